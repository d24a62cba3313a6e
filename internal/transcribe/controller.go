package transcribe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/go-audio/wav"

	"github.com/mhalvorsen/dictata/internal/config"
)

// ErrNoSpeech marks a decode that completed but produced no usable text.
var ErrNoSpeech = errors.New("no speech detected")

const (
	// tierTries bounds repeated attempts at one model/device tier before
	// the chain moves on. Covers transient device contention without
	// looping forever.
	tierTries = 2
	tierDelay = 250 * time.Millisecond

	artifactSampleRate = 16000
)

// Result is the terminal outcome of one artifact.
type Result struct {
	Text string
	Err  error
}

type localEngine interface {
	Transcribe(ctx context.Context, audioPath, modelPath string, gpu bool) (string, error)
}

type remoteTranscriber interface {
	Transcribe(ctx context.Context, audioPath string) (string, error)
}

type headroomProbe interface {
	Sufficient() bool
}

// Controller consumes audio artifacts one at a time and publishes exactly
// one Result per artifact. Strictly serial: parallel decodes would double
// accelerator memory pressure. The controller owns artifact files once
// submitted and deletes them when the attempt chain finishes.
type Controller struct {
	logger *slog.Logger

	mu  sync.Mutex
	cfg config.Config

	jobs    chan string
	results chan Result

	probe     headroomProbe
	tierDelay time.Duration

	// injectable for tests
	newLocal   func(config.Config) (localEngine, error)
	newRemote  func(config.Config) remoteTranscriber
	fileExists func(string) bool
}

func NewController(logger *slog.Logger, cfg config.Config) *Controller {
	return &Controller{
		logger:    logger,
		cfg:       cfg,
		jobs:      make(chan string, 4),
		results:   make(chan Result, 4),
		probe:     newVRAMProbe(logger),
		tierDelay: tierDelay,
		newLocal: func(c config.Config) (localEngine, error) {
			return newWhisperEngine(logger, c)
		},
		newRemote: func(c config.Config) remoteTranscriber {
			return newRemoteEngine(logger, c)
		},
		fileExists: func(path string) bool {
			info, err := os.Stat(path)
			return err == nil && !info.IsDir()
		},
	}
}

// Submit queues one artifact. The controller takes ownership of the file.
func (c *Controller) Submit(path string) { c.jobs <- path }

// Results delivers one Result per submitted artifact, in order.
func (c *Controller) Results() <-chan Result { return c.results }

// UpdateConfig applies to jobs submitted after the call.
func (c *Controller) UpdateConfig(cfg config.Config) {
	c.mu.Lock()
	c.cfg = cfg
	c.mu.Unlock()
}

func (c *Controller) snapshotConfig() config.Config {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg
}

// Run processes jobs until ctx is cancelled.
func (c *Controller) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case path := <-c.jobs:
			result := c.process(ctx, path)
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				c.logger.Debug("artifact cleanup failed", "path", path, "error", err)
			}
			select {
			case c.results <- result:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (c *Controller) process(ctx context.Context, path string) Result {
	if err := validateArtifact(path); err != nil {
		return Result{Err: err}
	}

	cfg := c.snapshotConfig()
	if cfg.Backend == "remote" {
		return c.processRemote(ctx, cfg, path)
	}
	return c.processLocal(ctx, cfg, path)
}

func (c *Controller) processRemote(ctx context.Context, cfg config.Config, path string) Result {
	engine := c.newRemote(cfg)

	var lastErr error
	for try := 0; try < tierTries; try++ {
		if try > 0 {
			c.waitRetry(ctx)
		}
		text, err := engine.Transcribe(ctx, path)
		if err != nil {
			c.logger.Warn("remote attempt failed", "try", try+1, "error", err)
			lastErr = err
			continue
		}
		if accepted, result := acceptTranscript(text); accepted {
			return result
		}
		lastErr = ErrNoSpeech
	}
	return Result{Err: fmt.Errorf("remote transcription exhausted: %w", lastErr)}
}

// tier is one rung of the fallback ladder.
type tier struct {
	label string
	model string
	gpu   bool
}

// planTiers orders model/device combinations. With accelerator headroom the
// expensive accelerated decodes go first; without it, only CPU decodes are
// planned, cheapest model first.
func planTiers(sufficient bool, primary, fallback string, exists func(string) bool) []tier {
	hasFallback := fallback != "" && exists(fallback)

	var tiers []tier
	if sufficient {
		tiers = append(tiers, tier{label: "primary/gpu", model: primary, gpu: true})
		if hasFallback {
			tiers = append(tiers, tier{label: "fallback/gpu", model: fallback, gpu: true})
		}
	}
	if hasFallback {
		tiers = append(tiers, tier{label: "fallback/cpu", model: fallback})
	}
	tiers = append(tiers, tier{label: "primary/cpu", model: primary})
	return tiers
}

func (c *Controller) processLocal(ctx context.Context, cfg config.Config, path string) Result {
	engine, err := c.newLocal(cfg)
	if err != nil {
		return Result{Err: err}
	}

	sufficient := c.probe.Sufficient()
	tiers := planTiers(sufficient, cfg.ModelPath, cfg.FallbackModelPath, c.fileExists)

	var lastErr error
	for _, t := range tiers {
		for try := 0; try < tierTries; try++ {
			if try > 0 {
				c.waitRetry(ctx)
			}
			if ctx.Err() != nil {
				return Result{Err: ctx.Err()}
			}

			text, err := engine.Transcribe(ctx, path, t.model, t.gpu)
			if err != nil {
				c.logger.Warn("transcription attempt failed",
					"tier", t.label, "try", try+1, "error", err)
				lastErr = err
				continue
			}
			if accepted, result := acceptTranscript(text); accepted {
				c.logger.Info("transcription succeeded", "tier", t.label, "chars", len(result.Text))
				return result
			}
			c.logger.Warn("transcription produced unusable output", "tier", t.label, "try", try+1)
			lastErr = ErrNoSpeech
			// Garbage at a tier is a property of that model/device
			// pairing, not a transient fault: move on immediately.
			break
		}
	}

	return Result{Err: fmt.Errorf("all transcription attempts exhausted: %w", lastErr)}
}

// acceptTranscript trims and screens one decode.
func acceptTranscript(text string) (bool, Result) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" || looksGarbage(trimmed) {
		return false, Result{}
	}
	return true, Result{Text: trimmed}
}

func (c *Controller) waitRetry(ctx context.Context) {
	select {
	case <-time.After(c.tierDelay):
	case <-ctx.Done():
	}
}

// validateArtifact rejects input the engines cannot take verbatim. The
// capture side always produces mono 16kHz; anything else indicates a wiring
// bug and is a hard failure rather than something to resample here.
func validateArtifact(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open artifact: %w", err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	dec.ReadInfo()
	if err := dec.Err(); err != nil {
		return fmt.Errorf("parse artifact: %w", err)
	}
	if dec.NumChans != 1 {
		return fmt.Errorf("artifact has %d channels, want mono", dec.NumChans)
	}
	if dec.SampleRate != artifactSampleRate {
		return fmt.Errorf("artifact sample rate %d, want %d", dec.SampleRate, artifactSampleRate)
	}
	return nil
}
