// Package coordinator runs the daemon's central event loop: hotkey intents,
// control commands, capture artifacts, and transcription results all
// serialize through one goroutine that owns the lifecycle state machine.
package coordinator

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/mhalvorsen/dictata/internal/audio"
	"github.com/mhalvorsen/dictata/internal/config"
	"github.com/mhalvorsen/dictata/internal/fsm"
	"github.com/mhalvorsen/dictata/internal/hotkey"
	"github.com/mhalvorsen/dictata/internal/ipc"
	"github.com/mhalvorsen/dictata/internal/transcribe"
	"github.com/mhalvorsen/dictata/internal/transcript"
)

// CaptureEngine is the coordinator-facing surface of the audio worker.
type CaptureEngine interface {
	Start()
	Stop()
	Cancel()
	Artifacts() <-chan audio.Artifact
	AutoStop() <-chan struct{}
	UpdateConfig(config.Config)
}

// Transcriber is the coordinator-facing surface of the transcription worker.
type Transcriber interface {
	Submit(path string)
	Results() <-chan transcribe.Result
	UpdateConfig(config.Config)
}

// Committer dispatches a finished transcript to the desktop.
type Committer interface {
	Commit(ctx context.Context, transcript string) error
	UpdateConfig(config.Config)
}

// Notifier surfaces state changes to the user.
type Notifier interface {
	RecordingStarted()
	RecordingStopped()
	RecordingCancelled()
	TranscriptionComplete(text string)
	Error(message string)
	UpdateConfig(config.Config)
}

// History persists completed transcriptions.
type History interface {
	Add(text string, at time.Time) error
	SetLimit(limit int)
}

// Deps wires the coordinator to its collaborators.
type Deps struct {
	Engine      CaptureEngine
	Transcriber Transcriber
	Committer   Committer
	Notifier    Notifier
	History     History

	// Intents delivers hotkey decisions.
	Intents <-chan hotkey.Intent
	// PushHotkey forwards a reloaded hotkey config to the monitor.
	PushHotkey func(config.HotkeyConfig)
	// LoadConfig re-reads configuration for reload commands.
	LoadConfig func() (config.Config, error)
}

// Coordinator owns lifecycle state. All mutations happen on the Run
// goroutine; State is the only cross-thread read and is mutex-guarded.
type Coordinator struct {
	logger *slog.Logger
	deps   Deps

	mu    sync.RWMutex
	state fsm.State
	cfg   config.Config

	commands chan string
}

func New(logger *slog.Logger, cfg config.Config, deps Deps) *Coordinator {
	return &Coordinator{
		logger:   logger,
		deps:     deps,
		state:    fsm.StateIdle,
		cfg:      cfg,
		commands: make(chan string, 8),
	}
}

// State returns the current lifecycle state.
func (c *Coordinator) State() fsm.State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

func (c *Coordinator) setState(s fsm.State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

func (c *Coordinator) snapshotConfig() config.Config {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cfg
}

// Handle implements ipc.Handler. Commands are queued onto the event loop;
// the socket reader never blocks on lifecycle work.
func (c *Coordinator) Handle(_ context.Context, command string) {
	if !ipc.KnownCommand(command) {
		c.logger.Warn("ignoring unknown control command", "command", command)
		return
	}
	select {
	case c.commands <- command:
	default:
		c.logger.Warn("control command dropped: queue full", "command", command)
	}
}

// RequestReload queues a configuration reload (used by the SIGHUP handler).
func (c *Coordinator) RequestReload() {
	select {
	case c.commands <- ipc.CommandReload:
	default:
		c.logger.Warn("reload request dropped: queue full")
	}
}

// Run processes events until ctx is cancelled.
func (c *Coordinator) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return

		case intent := <-c.deps.Intents:
			c.handleIntent(intent)

		case command := <-c.commands:
			c.handleCommand(command)

		case <-c.deps.Engine.AutoStop():
			c.autoStop()

		case artifact := <-c.deps.Engine.Artifacts():
			c.handleArtifact(artifact)

		case result := <-c.deps.Transcriber.Results():
			c.handleResult(ctx, result)
		}
	}
}

func (c *Coordinator) handleIntent(intent hotkey.Intent) {
	switch intent {
	case hotkey.IntentStart:
		c.startRecording()
	case hotkey.IntentStop:
		c.stopRecording(fsm.EventStop)
	case hotkey.IntentCancel:
		c.cancelRecording()
	}
}

func (c *Coordinator) handleCommand(command string) {
	switch command {
	case ipc.CommandStart:
		c.startRecording()
	case ipc.CommandStop:
		c.stopRecording(fsm.EventStop)
	case ipc.CommandCancel:
		c.cancelRecording()
	case ipc.CommandToggle:
		if c.State() == fsm.StateRecording {
			c.stopRecording(fsm.EventStop)
		} else {
			c.startRecording()
		}
	case ipc.CommandReload:
		c.reload()
	}
}

func (c *Coordinator) startRecording() {
	state := c.State()
	next, err := fsm.Transition(state, fsm.EventStart)
	if err != nil {
		// Start intents during transcription are dropped, not queued: a
		// new session only begins once the current one fully resolves.
		c.logger.Debug("start ignored", "state", state)
		return
	}
	c.setState(next)
	c.deps.Engine.Start()
	c.deps.Notifier.RecordingStarted()
	c.logger.Info("recording started")
}

func (c *Coordinator) stopRecording(event fsm.Event) {
	state := c.State()
	next, err := fsm.Transition(state, event)
	if err != nil {
		c.logger.Debug("stop ignored", "state", state)
		return
	}
	c.setState(next)
	c.deps.Engine.Stop()
	c.deps.Notifier.RecordingStopped()
	c.logger.Info("recording stopped", "trigger", event)
}

func (c *Coordinator) autoStop() {
	if c.State() != fsm.StateRecording {
		return
	}
	c.logger.Info("silence detected, stopping recording")
	c.stopRecording(fsm.EventAutoStop)
}

func (c *Coordinator) cancelRecording() {
	state := c.State()
	next, err := fsm.Transition(state, fsm.EventCancel)
	if err != nil {
		c.logger.Debug("cancel ignored", "state", state)
		return
	}
	c.setState(next)
	c.deps.Engine.Cancel()
	c.deps.Notifier.RecordingCancelled()
	c.logger.Info("recording cancelled")
}

func (c *Coordinator) handleArtifact(artifact audio.Artifact) {
	if artifact.Err != nil {
		c.logger.Error("capture failed", "error", artifact.Err)
		c.deps.Notifier.Error("Recording failed")
		c.toIdleViaError()
		return
	}
	if artifact.Path == "" {
		// Cancelled session: state already returned to idle.
		return
	}

	c.logger.Info("artifact ready", "path", artifact.Path, "duration", artifact.Duration)
	c.deps.Transcriber.Submit(artifact.Path)
}

func (c *Coordinator) handleResult(ctx context.Context, result transcribe.Result) {
	if result.Err != nil {
		c.logger.Error("transcription failed", "error", result.Err)
		c.deps.Notifier.Error("Transcription failed")
		c.toIdleViaError()
		return
	}

	cfg := c.snapshotConfig()
	text := result.Text
	if cfg.PunctuationCommands {
		text = transcript.ApplyCommands(text)
	}

	// Commit is best-effort: a clipboard failure must not cost the user the
	// transcript, which still lands in history and the notification preview.
	if err := c.deps.Committer.Commit(ctx, text); err != nil {
		c.logger.Error("transcript commit failed", "error", err)
	}

	if err := c.deps.History.Add(text, time.Now()); err != nil {
		c.logger.Warn("history update failed", "error", err)
	}

	c.deps.Notifier.TranscriptionComplete(text)

	if next, err := fsm.Transition(c.State(), fsm.EventTranscribed); err == nil {
		c.setState(next)
	} else {
		c.toIdleViaError()
	}
	c.logger.Info("transcription delivered", "chars", len(text))
}

// toIdleViaError drives the state machine through error back to idle so the
// next hotkey press starts cleanly.
func (c *Coordinator) toIdleViaError() {
	next, _ := fsm.Transition(c.State(), fsm.EventFail)
	c.setState(next)
	if next, err := fsm.Transition(c.State(), fsm.EventReset); err == nil {
		c.setState(next)
	}
}

func (c *Coordinator) reload() {
	if c.deps.LoadConfig == nil {
		return
	}
	cfg, err := c.deps.LoadConfig()
	if err != nil {
		c.logger.Error("config reload failed, keeping previous config", "error", err)
		c.deps.Notifier.Error("Config reload failed")
		return
	}

	c.mu.Lock()
	c.cfg = cfg
	c.mu.Unlock()

	c.deps.Engine.UpdateConfig(cfg)
	c.deps.Transcriber.UpdateConfig(cfg)
	c.deps.Committer.UpdateConfig(cfg)
	c.deps.Notifier.UpdateConfig(cfg)
	c.deps.History.SetLimit(cfg.MaxHistory)
	if c.deps.PushHotkey != nil {
		c.deps.PushHotkey(cfg.Hotkey)
	}
	c.logger.Info("configuration reloaded")
}
