package transcribe

import (
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

// minAccelBytes is the free accelerator memory required before an
// accelerated attempt is worth making. Below this, whisper contexts fail to
// allocate or decode garbage.
const minAccelBytes = 2 * 1024 * 1024 * 1024

// discreteFloor filters out integrated GPUs: anything reporting less than
// 1GiB total is not worth probing further.
const discreteFloor = 1024 * 1024 * 1024

// vramProbe reports free accelerator memory in bytes. Best effort: when
// nothing can be determined it returns an optimistic value above the
// threshold, so missing telemetry never blocks accelerated attempts.
type vramProbe struct {
	logger *slog.Logger

	// overridable for tests
	readFile   func(string) ([]byte, error)
	runCommand func(name string, args ...string) ([]byte, error)
}

func newVRAMProbe(logger *slog.Logger) *vramProbe {
	return &vramProbe{
		logger:   logger,
		readFile: os.ReadFile,
		runCommand: func(name string, args ...string) ([]byte, error) {
			return exec.Command(name, args...).Output()
		},
	}
}

// Available returns the free byte estimate.
func (p *vramProbe) Available() uint64 {
	if free, ok := p.fromSysfs(); ok {
		return free
	}
	if free, ok := p.fromRocmSMI(); ok {
		return free
	}
	if free, ok := p.fromNvidiaSMI(); ok {
		return free
	}
	p.logger.Warn("could not determine accelerator memory, assuming sufficient")
	return minAccelBytes + 1
}

// Sufficient reports whether accelerated attempts should be planned at all.
func (p *vramProbe) Sufficient() bool {
	free := p.Available()
	p.logger.Info("accelerator memory probed", "free_bytes", free, "threshold", uint64(minAccelBytes))
	return free >= minAccelBytes
}

// fromSysfs reads the amdgpu memory counters. card1 is checked before card0:
// on hybrid machines the discrete GPU usually enumerates second.
func (p *vramProbe) fromSysfs() (uint64, bool) {
	cards := []string{
		"/sys/class/drm/card1/device",
		"/sys/class/drm/card0/device",
	}
	for _, dev := range cards {
		total, err1 := p.readSysfsValue(dev + "/mem_info_vram_total")
		used, err2 := p.readSysfsValue(dev + "/mem_info_vram_used")
		if err1 != nil || err2 != nil {
			continue
		}
		if total <= discreteFloor {
			continue
		}
		free := total - min(used, total)
		p.logger.Debug("gpu memory from sysfs", "device", dev, "total", total, "used", used)
		return free, true
	}
	return 0, false
}

func (p *vramProbe) readSysfsValue(path string) (uint64, error) {
	raw, err := p.readFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.ParseUint(strings.TrimSpace(string(raw)), 10, 64)
}

// fromRocmSMI parses `rocm-smi --showmeminfo vram`, looking for the GPU[0]
// total/used byte lines.
func (p *vramProbe) fromRocmSMI() (uint64, bool) {
	out, err := p.runCommand("rocm-smi", "--showmeminfo", "vram")
	if err != nil {
		return 0, false
	}

	var total, used uint64
	for _, line := range strings.Split(string(out), "\n") {
		if !strings.Contains(line, "GPU[0]") {
			continue
		}
		idx := strings.LastIndex(line, ":")
		if idx < 0 {
			continue
		}
		val, perr := strconv.ParseUint(strings.TrimSpace(line[idx+1:]), 10, 64)
		if perr != nil {
			continue
		}
		switch {
		case strings.Contains(line, "VRAM Total Used"):
			used = val
		case strings.Contains(line, "VRAM Total Memory"):
			total = val
		}
	}
	if total == 0 {
		return 0, false
	}
	return total - min(used, total), true
}

// fromNvidiaSMI queries free memory directly; the value is reported in MiB.
func (p *vramProbe) fromNvidiaSMI() (uint64, bool) {
	out, err := p.runCommand("nvidia-smi", "--query-gpu=memory.free", "--format=csv,noheader,nounits")
	if err != nil {
		return 0, false
	}
	first := strings.TrimSpace(strings.Split(string(out), "\n")[0])
	mib, perr := strconv.ParseUint(first, 10, 64)
	if perr != nil {
		return 0, false
	}
	return mib * 1024 * 1024, true
}
