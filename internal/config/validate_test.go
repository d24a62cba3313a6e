package config

import (
	"strings"
	"testing"
)

func validConfig() Config {
	cfg := Default()
	cfg.ModelPath = "/models/ggml-base.en.bin"
	return cfg
}

func TestValidateAcceptsDefaults(t *testing.T) {
	if _, err := Validate(validConfig()); err != nil {
		t.Fatalf("Validate(default): %v", err)
	}
}

func TestValidateRejections(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"bad backend", func(c *Config) { c.Backend = "cloud" }, "backend"},
		{"remote without endpoint", func(c *Config) { c.Backend = "remote" }, "endpoint"},
		{"empty model", func(c *Config) { c.ModelPath = " " }, "model_path"},
		{"empty language", func(c *Config) { c.Language = "" }, "language"},
		{"zero history", func(c *Config) { c.MaxHistory = 0 }, "max_history"},
		{"unconfigured hotkey", func(c *Config) { c.Hotkey = HotkeyConfig{} }, "hotkey"},
		{"threshold too high", func(c *Config) { c.VAD.Threshold = 1.5 }, "threshold"},
		{"negative silence", func(c *Config) { c.VAD.SilenceDurationMS = -1 }, "silence"},
		{"negative min recording", func(c *Config) { c.VAD.MinRecordingMS = -1 }, "min_recording"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(&cfg)
			_, err := Validate(cfg)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("error %q does not mention %q", err, tc.wantErr)
			}
		})
	}
}

func TestValidateWarnsOnMissingFallbackModel(t *testing.T) {
	cfg := validConfig()
	cfg.FallbackModelPath = "/nonexistent/ggml-tiny.en.bin"
	warnings, err := Validate(cfg)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	found := false
	for _, w := range warnings {
		if strings.Contains(w.Message, "fallback model") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected fallback model warning, got %v", warnings)
	}
}

func TestHotkeyConfigured(t *testing.T) {
	if (HotkeyConfig{}).Configured() {
		t.Fatal("empty hotkey must not report configured")
	}
	if !(HotkeyConfig{Shift: true}).Configured() {
		t.Fatal("modifier-only hotkey must report configured")
	}
	if !(HotkeyConfig{TriggerKey: "f8"}).Configured() {
		t.Fatal("trigger-only hotkey must report configured")
	}
}
