package transcribe

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"github.com/mhalvorsen/dictata/internal/config"
)

// whisperBinaries are the well-known whisper.cpp CLI names searched on PATH
// when config does not name one explicitly.
var whisperBinaries = []string{"whisper-cli", "whisper-cpp", "whisper"}

// whisperEngine shells out to the whisper.cpp CLI. Each call loads the model,
// decodes once, and exits, so no accelerator context outlives the attempt.
type whisperEngine struct {
	logger  *slog.Logger
	command string

	language  string
	translate bool
	extraArgs []string
}

func newWhisperEngine(logger *slog.Logger, cfg config.Config) (*whisperEngine, error) {
	command := cfg.Whisper.Command
	if command == "" {
		found, err := findWhisperBinary()
		if err != nil {
			return nil, err
		}
		command = found
	}
	return &whisperEngine{
		logger:    logger,
		command:   command,
		language:  cfg.Language,
		translate: cfg.TranslateToEnglish,
		extraArgs: cfg.Whisper.ExtraArgs,
	}, nil
}

// ResolveCommand reports the whisper binary the local engine would invoke,
// honoring an explicit command override.
func ResolveCommand(cfg config.Config) (string, error) {
	if cfg.Whisper.Command != "" {
		return exec.LookPath(cfg.Whisper.Command)
	}
	return findWhisperBinary()
}

func findWhisperBinary() (string, error) {
	for _, name := range whisperBinaries {
		if path, err := exec.LookPath(name); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("no whisper binary found on PATH (tried %s)", strings.Join(whisperBinaries, ", "))
}

// Transcribe runs one decode of the artifact with the given model. The
// transcript is written to a sidecar text file rather than parsed from
// stdout, which whisper.cpp shares with its progress logging.
func (w *whisperEngine) Transcribe(ctx context.Context, audioPath, modelPath string, gpu bool) (string, error) {
	outBase := strings.TrimSuffix(audioPath, ".wav")
	outPath := outBase + ".txt"
	defer os.Remove(outPath)

	args := []string{
		"-m", modelPath,
		"-f", audioPath,
		"-otxt",
		"-of", outBase,
		"-np", // suppress progress chatter
	}
	if w.language != "" {
		args = append(args, "-l", w.language)
	}
	if w.translate {
		args = append(args, "-tr")
	}
	if !gpu {
		args = append(args, "--no-gpu")
	}
	args = append(args, w.extraArgs...)

	cmd := exec.CommandContext(ctx, w.command, args...)
	var stderr strings.Builder
	cmd.Stderr = &stderr

	w.logger.Debug("whisper invocation", "command", w.command, "model", modelPath, "gpu", gpu)
	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if len(detail) > 300 {
			detail = detail[len(detail)-300:]
		}
		return "", fmt.Errorf("whisper run: %w: %s", err, detail)
	}

	raw, err := os.ReadFile(outPath)
	if err != nil {
		return "", fmt.Errorf("read whisper output: %w", err)
	}
	return string(raw), nil
}
