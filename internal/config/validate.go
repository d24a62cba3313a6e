package config

import (
	"fmt"
	"os"
	"strings"
)

// Validate enforces config invariants and returns non-fatal warnings.
func Validate(cfg Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	backend := strings.ToLower(strings.TrimSpace(cfg.Backend))
	if backend != "local" && backend != "remote" {
		return nil, fmt.Errorf("backend must be one of: local, remote")
	}
	if backend == "remote" && strings.TrimSpace(cfg.Remote.Endpoint) == "" {
		return nil, fmt.Errorf("remote_backend.endpoint must not be empty when backend=remote")
	}
	if cfg.Remote.TimeoutMS < 0 {
		return nil, fmt.Errorf("remote_backend.timeout_ms must be >= 0")
	}

	if strings.TrimSpace(cfg.ModelPath) == "" {
		return nil, fmt.Errorf("model_path must not be empty")
	}
	if strings.TrimSpace(cfg.Language) == "" {
		return nil, fmt.Errorf("language must not be empty")
	}
	if cfg.MaxHistory <= 0 {
		return nil, fmt.Errorf("max_history must be > 0")
	}

	if !cfg.Hotkey.Configured() {
		return nil, fmt.Errorf("hotkey must enable at least one modifier or set trigger_key")
	}

	if cfg.VAD.Threshold < 0 || cfg.VAD.Threshold > 1 {
		return nil, fmt.Errorf("vad.threshold must be within [0, 1]")
	}
	if cfg.VAD.SilenceDurationMS < 0 {
		return nil, fmt.Errorf("vad.silence_duration_ms must be >= 0")
	}
	if cfg.VAD.MinRecordingMS < 0 {
		return nil, fmt.Errorf("vad.min_recording_ms must be >= 0")
	}

	if fallback := strings.TrimSpace(cfg.FallbackModelPath); fallback != "" {
		if _, err := os.Stat(fallback); err != nil {
			warnings = append(warnings, Warning{
				Message: fmt.Sprintf("fallback model %q is not readable; fallback tiers will be skipped", fallback),
			})
		}
	}

	if len(cfg.ClipboardCmd) == 0 {
		warnings = append(warnings, Warning{
			Message: "clipboard_cmd is empty; using built-in clipboard support",
		})
	}

	return warnings, nil
}
