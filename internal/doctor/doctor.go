// Package doctor runs runtime readiness diagnostics for config, input
// devices, audio capture, transcription engines, and output tooling.
package doctor

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/mhalvorsen/dictata/internal/audio"
	"github.com/mhalvorsen/dictata/internal/config"
	"github.com/mhalvorsen/dictata/internal/transcribe"
)

// Check is one doctor assertion result.
type Check struct {
	Name    string
	Pass    bool
	Message string
}

// Report is the full doctor output contract.
type Report struct {
	Checks []Check
}

// OK returns true when all checks pass.
func (r Report) OK() bool {
	for _, check := range r.Checks {
		if !check.Pass {
			return false
		}
	}
	return true
}

// String renders the report as user-facing text output.
func (r Report) String() string {
	var b strings.Builder
	for _, check := range r.Checks {
		status := "OK"
		if !check.Pass {
			status = "FAIL"
		}
		b.WriteString(fmt.Sprintf("[%s] %s: %s\n", status, check.Name, check.Message))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// Run executes environment/config/runtime checks for a loaded config.
func Run(cfg config.Loaded) Report {
	checks := []Check{}

	checks = append(checks, Check{
		Name:    "config",
		Pass:    true,
		Message: fmt.Sprintf("loaded %q", cfg.Path),
	})

	checks = append(checks, checkEnv("XDG_RUNTIME_DIR", func(v string) bool {
		return strings.TrimSpace(v) != ""
	}, "runtime directory available", "XDG_RUNTIME_DIR is empty; control socket has no home"))

	checks = append(checks, checkInputDevices())
	checks = append(checks, checkAudioSelection(cfg.Config))
	checks = append(checks, checkTranscription(cfg.Config)...)
	checks = append(checks, checkOutputTools(cfg.Config)...)

	return Report{Checks: checks}
}

// checkEnv validates an environment variable through a caller-supplied predicate.
func checkEnv(name string, predicate func(string) bool, okMsg, failMsg string) Check {
	value := os.Getenv(name)
	if predicate(value) {
		return Check{Name: name, Pass: true, Message: okMsg}
	}
	return Check{Name: name, Pass: false, Message: failMsg}
}

// checkCommand validates that argv contains a runnable command.
func checkCommand(argv []string, name string) Check {
	if len(argv) == 0 {
		return Check{Name: name, Pass: false, Message: "command is empty"}
	}
	return checkBinary(argv[0], fmt.Sprintf("%s command is available", name))
}

// checkBinary validates that a binary exists in PATH.
func checkBinary(bin string, okMsg string) Check {
	path, err := exec.LookPath(bin)
	if err != nil {
		return Check{Name: bin, Pass: false, Message: fmt.Sprintf("binary not found in PATH: %s", bin)}
	}
	return Check{Name: bin, Pass: true, Message: fmt.Sprintf("found at %s (%s)", path, okMsg)}
}

// checkInputDevices verifies at least one evdev node is readable. Hotkey
// monitoring needs read access, which usually means the input group.
func checkInputDevices() Check {
	nodes, err := filepath.Glob("/dev/input/event*")
	if err != nil || len(nodes) == 0 {
		return Check{Name: "input.devices", Pass: false, Message: "no /dev/input/event* devices found"}
	}
	for _, node := range nodes {
		f, err := os.Open(node)
		if err == nil {
			f.Close()
			return Check{Name: "input.devices", Pass: true, Message: fmt.Sprintf("%d device(s), %s readable", len(nodes), node)}
		}
	}
	return Check{
		Name:    "input.devices",
		Pass:    false,
		Message: fmt.Sprintf("%d device(s) but none readable; add your user to the input group", len(nodes)),
	}
}

// checkAudioSelection runs live device selection to surface selection/fallback issues.
func checkAudioSelection(cfg config.Config) Check {
	selection, err := audio.SelectDevice(context.Background(), cfg.Audio.Input, cfg.Audio.Fallback)
	if err != nil {
		return Check{Name: "audio.device", Pass: false, Message: err.Error()}
	}
	message := fmt.Sprintf("selected %q", selection.Device.ID)
	if selection.Warning != "" {
		message = message + " (" + selection.Warning + ")"
	}
	return Check{Name: "audio.device", Pass: true, Message: message}
}

// checkTranscription validates the engine chain the daemon would use.
func checkTranscription(cfg config.Config) []Check {
	if cfg.Backend == "remote" {
		checks := []Check{}
		if strings.TrimSpace(cfg.Remote.Endpoint) == "" {
			checks = append(checks, Check{Name: "remote.endpoint", Pass: false, Message: "remote backend selected but endpoint is empty"})
		} else {
			checks = append(checks, Check{Name: "remote.endpoint", Pass: true, Message: cfg.Remote.Endpoint})
		}
		keyEnv := cfg.Remote.APIKeyEnv
		if keyEnv == "" {
			keyEnv = config.DefaultAPIKeyEnv
		}
		checks = append(checks, checkEnv(keyEnv, func(v string) bool {
			return v != ""
		}, "API key is set", fmt.Sprintf("%s is empty", keyEnv)))
		return checks
	}

	checks := []Check{checkModelFile("model", cfg.ModelPath)}
	if cfg.FallbackModelPath != "" {
		checks = append(checks, checkModelFile("fallback_model", cfg.FallbackModelPath))
	}

	if command, err := transcribe.ResolveCommand(cfg); err != nil {
		checks = append(checks, Check{Name: "whisper", Pass: false, Message: "no whisper binary found in PATH (tried whisper-cli, whisper-cpp, whisper)"})
	} else {
		checks = append(checks, Check{Name: "whisper", Pass: true, Message: fmt.Sprintf("found at %s", command)})
	}
	return checks
}

func checkModelFile(name, path string) Check {
	if strings.TrimSpace(path) == "" {
		return Check{Name: name, Pass: false, Message: "model path is empty"}
	}
	info, err := os.Stat(path)
	if err != nil {
		return Check{Name: name, Pass: false, Message: fmt.Sprintf("missing: %s", path)}
	}
	return Check{Name: name, Pass: true, Message: fmt.Sprintf("%s (%d MiB)", path, info.Size()/(1<<20))}
}

// checkOutputTools validates the clipboard/paste tooling the committer uses.
func checkOutputTools(cfg config.Config) []Check {
	checks := []Check{}

	if len(cfg.ClipboardCmd) > 0 {
		checks = append(checks, checkCommand(cfg.ClipboardCmd, "clipboard_cmd"))
	} else {
		checks = append(checks, checkBinary("wl-copy", "default clipboard path"))
	}

	if !cfg.AutoPaste {
		return checks
	}
	if len(cfg.PasteCmd) > 0 {
		checks = append(checks, checkCommand(cfg.PasteCmd, "paste_cmd"))
		return checks
	}

	// Default paste walks ydotool then wtype; either one suffices.
	if _, err := exec.LookPath("ydotool"); err == nil {
		checks = append(checks, Check{Name: "paste", Pass: true, Message: "ydotool available"})
		checks = append(checks, checkYdotoold())
		return checks
	}
	if path, err := exec.LookPath("wtype"); err == nil {
		checks = append(checks, Check{Name: "paste", Pass: true, Message: fmt.Sprintf("wtype available at %s", path)})
		return checks
	}
	checks = append(checks, Check{Name: "paste", Pass: false, Message: "neither ydotool nor wtype found in PATH"})
	return checks
}

// checkYdotoold looks for the ydotool daemon socket; ydotool silently does
// nothing without it.
func checkYdotoold() Check {
	candidates := []string{
		filepath.Join(os.Getenv("XDG_RUNTIME_DIR"), ".ydotool_socket"),
		"/tmp/.ydotool_socket",
	}
	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err == nil {
			return Check{Name: "ydotoold", Pass: true, Message: fmt.Sprintf("socket at %s", candidate)}
		}
	}
	return Check{Name: "ydotoold", Pass: false, Message: "ydotoold socket not found; is the daemon running?"}
}
