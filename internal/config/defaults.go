package config

import "path/filepath"

// DefaultAPIKeyEnv is the environment variable consulted for the remote
// backend when api_key_env is not configured.
const DefaultAPIKeyEnv = "OPENAI_API_KEY"

// Default returns the canonical runtime configuration used when no file is present.
func Default() Config {
	return Config{
		ModelPath: filepath.Join(DataDir(), "models", "ggml-base.en.bin"),

		MaxHistory:          50,
		AutoPaste:           true,
		NotificationEnabled: true,
		AudioFeedback:       true,
		Language:            "en",
		PunctuationCommands: true,
		Backend:             "local",

		Hotkey: HotkeyConfig{Ctrl: true, Super: true},
		VAD: VADConfig{
			Enabled:           false,
			Threshold:         0.01,
			SilenceDurationMS: 1500,
			MinRecordingMS:    500,
		},
		Remote: RemoteConfig{
			Model:     "whisper-1",
			TimeoutMS: 20000,
		},
		ClipboardCmd: []string{"wl-copy", "--trim-newline"},
	}
}
