package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// ResolvePath applies CLI/XDG/home fallback rules for the config.json location.
func ResolvePath(explicit string) (string, error) {
	if strings.TrimSpace(explicit) != "" {
		return explicit, nil
	}

	if xdg := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME")); xdg != "" {
		return filepath.Join(xdg, "dictata", "config.json"), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.New("unable to resolve user home for config fallback")
	}

	return filepath.Join(home, ".config", "dictata", "config.json"), nil
}

// DataDir resolves the directory holding models and persisted history.
func DataDir() string {
	if xdg := strings.TrimSpace(os.Getenv("XDG_DATA_HOME")); xdg != "" {
		return filepath.Join(xdg, "dictata")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".dictata"
	}
	return filepath.Join(home, ".local", "share", "dictata")
}

// HistoryPath resolves the persisted transcription history file.
func HistoryPath() string {
	return filepath.Join(DataDir(), "history.json")
}
