package transcribe

import (
	"errors"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func testProbe() *vramProbe {
	p := newVRAMProbe(slog.New(slog.NewTextHandler(os.Stderr, nil)))
	p.readFile = func(string) ([]byte, error) { return nil, errors.New("no sysfs") }
	p.runCommand = func(string, ...string) ([]byte, error) { return nil, errors.New("no tool") }
	return p
}

func TestProbeSysfs(t *testing.T) {
	p := testProbe()
	values := map[string]string{
		"/sys/class/drm/card1/device/mem_info_vram_total": "17179869184\n",
		"/sys/class/drm/card1/device/mem_info_vram_used":  "4294967296\n",
	}
	p.readFile = func(path string) ([]byte, error) {
		if v, ok := values[path]; ok {
			return []byte(v), nil
		}
		return nil, errors.New("not found")
	}

	require.EqualValues(t, 17179869184-4294967296, p.Available())
	require.True(t, p.Sufficient())
}

func TestProbeIgnoresIntegratedGPU(t *testing.T) {
	p := testProbe()
	// 512MiB total on card0: shared-memory iGPU, not a decode target.
	values := map[string]string{
		"/sys/class/drm/card0/device/mem_info_vram_total": "536870912",
		"/sys/class/drm/card0/device/mem_info_vram_used":  "100000000",
	}
	p.readFile = func(path string) ([]byte, error) {
		if v, ok := values[path]; ok {
			return []byte(v), nil
		}
		return nil, errors.New("not found")
	}

	// Falls through to the optimistic default.
	require.True(t, p.Sufficient())
}

func TestProbeRocmSMI(t *testing.T) {
	p := testProbe()
	p.runCommand = func(name string, args ...string) ([]byte, error) {
		if name != "rocm-smi" {
			return nil, errors.New("not found")
		}
		out := "GPU[0]\t\t: VRAM Total Memory (B): 17179869184\n" +
			"GPU[0]\t\t: VRAM Total Used Memory (B): 16000000000\n"
		return []byte(out), nil
	}

	require.EqualValues(t, 17179869184-16000000000, p.Available())
	require.False(t, p.Sufficient())
}

func TestProbeNvidiaSMI(t *testing.T) {
	p := testProbe()
	p.runCommand = func(name string, args ...string) ([]byte, error) {
		if name != "nvidia-smi" {
			return nil, errors.New("not found")
		}
		return []byte("8192\n"), nil
	}

	require.EqualValues(t, uint64(8192)*1024*1024, p.Available())
	require.True(t, p.Sufficient())
}

func TestProbeOptimisticWhenUnknown(t *testing.T) {
	p := testProbe()
	require.True(t, p.Sufficient(), "missing telemetry must never block accelerated attempts")
}
