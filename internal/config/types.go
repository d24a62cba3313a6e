// Package config resolves, parses, validates, and defaults dictata configuration.
package config

// Config is the fully materialized runtime configuration used by dictata.
type Config struct {
	// ModelPath is the primary whisper model used for transcription.
	ModelPath string `json:"model_path"`
	// FallbackModelPath is a smaller model attempted when the primary
	// fails or accelerator memory is constrained. Optional.
	FallbackModelPath string `json:"fallback_model_path,omitempty"`

	MaxHistory          int    `json:"max_history"`
	AutoPaste           bool   `json:"auto_paste"`
	NotificationEnabled bool   `json:"notification_enabled"`
	AudioFeedback       bool   `json:"audio_feedback"`
	Language            string `json:"language"`
	TranslateToEnglish  bool   `json:"translate_to_english"`
	PunctuationCommands bool   `json:"punctuation_commands"`

	// Backend selects the transcription engine: "local" or "remote".
	Backend string `json:"backend"`

	Hotkey  HotkeyConfig  `json:"hotkey"`
	Audio   AudioConfig   `json:"audio"`
	VAD     VADConfig     `json:"vad"`
	Whisper WhisperConfig `json:"whisper"`
	Remote  RemoteConfig  `json:"remote_backend"`

	// ClipboardCmd is the argv used to set the clipboard. When empty the
	// built-in clipboard library is used instead.
	ClipboardCmd []string `json:"clipboard_cmd,omitempty"`
	// PasteCmd is the argv used to dispatch paste. When empty the default
	// ydotool/wtype chain is used.
	PasteCmd []string `json:"paste_cmd,omitempty"`
}

// HotkeyConfig describes the push-to-talk key combination.
type HotkeyConfig struct {
	Ctrl  bool `json:"ctrl"`
	Alt   bool `json:"alt"`
	Shift bool `json:"shift"`
	Super bool `json:"super"`
	// TriggerKey is an optional non-modifier key name ("space", "f8", "r")
	// required alongside the modifiers.
	TriggerKey string `json:"trigger_key,omitempty"`
}

// Configured reports whether the combination can ever activate.
func (h HotkeyConfig) Configured() bool {
	return h.Ctrl || h.Alt || h.Shift || h.Super || h.TriggerKey != ""
}

// AudioConfig selects the capture source. Empty or "default" means the
// server's default input.
type AudioConfig struct {
	Input    string `json:"input,omitempty"`
	Fallback string `json:"fallback,omitempty"`
}

// VADConfig controls silence-based auto-stop.
type VADConfig struct {
	Enabled bool `json:"enabled"`
	// Threshold is the RMS level treated as voice, 0.0 - 1.0.
	Threshold         float64 `json:"threshold"`
	SilenceDurationMS int     `json:"silence_duration_ms"`
	MinRecordingMS    int     `json:"min_recording_ms"`
}

// WhisperConfig controls the local whisper.cpp engine invocation.
type WhisperConfig struct {
	// Command overrides the whisper binary; when empty a small set of
	// well-known names is searched on PATH.
	Command   string   `json:"command,omitempty"`
	ExtraArgs []string `json:"extra_args,omitempty"`
}

// RemoteConfig describes an OpenAI-compatible transcription endpoint.
type RemoteConfig struct {
	Endpoint  string `json:"endpoint"`
	Model     string `json:"model"`
	TimeoutMS int    `json:"timeout_ms"`
	// APIKeyEnv names the environment variable holding the API key.
	APIKeyEnv string `json:"api_key_env,omitempty"`
}

// Warning is a non-fatal parse/validation message.
type Warning struct {
	Message string
}
