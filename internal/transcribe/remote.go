package transcribe

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/mhalvorsen/dictata/internal/config"
)

const defaultRemoteTimeout = 20 * time.Second

// remoteEngine sends the artifact to an OpenAI-compatible transcription
// endpoint. Used when backend is "remote"; the GPU/CPU fallback chain does
// not apply since the compute lives on the other side.
type remoteEngine struct {
	logger  *slog.Logger
	client  *openai.Client
	model   string
	timeout time.Duration

	language  string
	translate bool
}

func newRemoteEngine(logger *slog.Logger, cfg config.Config) *remoteEngine {
	keyEnv := cfg.Remote.APIKeyEnv
	if keyEnv == "" {
		keyEnv = config.DefaultAPIKeyEnv
	}
	clientCfg := openai.DefaultConfig(os.Getenv(keyEnv))
	clientCfg.BaseURL = cfg.Remote.Endpoint

	timeout := defaultRemoteTimeout
	if cfg.Remote.TimeoutMS > 0 {
		timeout = time.Duration(cfg.Remote.TimeoutMS) * time.Millisecond
	}

	return &remoteEngine{
		logger:    logger,
		client:    openai.NewClientWithConfig(clientCfg),
		model:     cfg.Remote.Model,
		timeout:   timeout,
		language:  cfg.Language,
		translate: cfg.TranslateToEnglish,
	}
}

func (r *remoteEngine) Transcribe(ctx context.Context, audioPath string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	req := openai.AudioRequest{
		Model:    r.model,
		FilePath: audioPath,
		Language: r.language,
	}

	var (
		text string
		err  error
	)
	if r.translate {
		var resp openai.AudioResponse
		resp, err = r.client.CreateTranslation(ctx, req)
		text = resp.Text
	} else {
		var resp openai.AudioResponse
		resp, err = r.client.CreateTranscription(ctx, req)
		text = resp.Text
	}
	if err != nil {
		return "", fmt.Errorf("remote transcription: %w", err)
	}
	return text, nil
}
