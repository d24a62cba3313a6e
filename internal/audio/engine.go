package audio

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mhalvorsen/dictata/internal/config"
)

// Artifact is the outcome of one capture session. Exactly one Artifact is
// published per session:
//   - Path set, Err nil: a finalized 16kHz mono s16 WAV ready to transcribe.
//   - Path empty, Err nil: the session was cancelled, nothing to transcribe.
//   - Err set: capture failed; any partial file has been deleted.
type Artifact struct {
	Path     string
	Duration time.Duration
	Err      error
}

// captureStream is the running device stream the engine supervises.
type captureStream interface {
	SampleRate() int
	Channels() int
	Stop() error
}

// deviceOpener abstracts source selection and stream creation so the engine
// can be driven without a sound server in tests.
type deviceOpener interface {
	Select(ctx context.Context, input, fallback string) (Selection, error)
	Start(ctx context.Context, dev Device, onFrames FrameFunc) (captureStream, error)
}

type pulseOpener struct{}

func (pulseOpener) Select(ctx context.Context, input, fallback string) (Selection, error) {
	return SelectDevice(ctx, input, fallback)
}

func (pulseOpener) Start(ctx context.Context, dev Device, onFrames FrameFunc) (captureStream, error) {
	return StartCapture(ctx, dev, onFrames)
}

// captureParams derives the rate and channel count a stream will actually be
// opened at for a device. StartCapture applies the same clamping, so a chain
// built from these values matches the stream.
func captureParams(d Device) (rate, channels int) {
	rate = d.SampleRate
	if rate < 8000 || rate > 192000 {
		rate = TargetSampleRate
	}
	channels = 1
	if d.Channels >= 2 {
		channels = 2
	}
	return rate, channels
}

type commandKind int

const (
	cmdStart commandKind = iota
	cmdStop
	cmdCancel
)

// Engine consumes Start/Stop/Cancel commands one at a time and runs at most
// one capture session. Completed sessions are published on Artifacts; VAD
// trips are published out-of-band on AutoStop so the capture callback never
// has to wait on the coordinator.
type Engine struct {
	logger *slog.Logger
	opener deviceOpener

	mu  sync.Mutex
	cfg config.Config

	commands  chan commandKind
	artifacts chan Artifact
	autoStop  chan struct{}

	tempDir string
	session *captureSession
}

// NewEngine builds an engine capturing from the Pulse sound server.
func NewEngine(logger *slog.Logger, cfg config.Config) *Engine {
	return newEngine(logger, cfg, pulseOpener{})
}

func newEngine(logger *slog.Logger, cfg config.Config, opener deviceOpener) *Engine {
	return &Engine{
		logger:    logger,
		opener:    opener,
		cfg:       cfg,
		commands:  make(chan commandKind, 16),
		artifacts: make(chan Artifact, 4),
		autoStop:  make(chan struct{}, 1),
		tempDir:   os.TempDir(),
	}
}

// Start requests a new capture session. Ignored if one is already active.
func (e *Engine) Start() { e.commands <- cmdStart }

// Stop requests finalization of the active session.
func (e *Engine) Stop() { e.commands <- cmdStop }

// Cancel requests teardown of the active session, discarding its audio.
func (e *Engine) Cancel() { e.commands <- cmdCancel }

// Artifacts delivers one Artifact per started session.
func (e *Engine) Artifacts() <-chan Artifact { return e.artifacts }

// AutoStop signals that the voice activity detector tripped. The receiver
// decides whether to issue Stop.
func (e *Engine) AutoStop() <-chan struct{} { return e.autoStop }

// UpdateConfig swaps the configuration used for subsequent sessions. The
// active session, if any, keeps the settings it started with.
func (e *Engine) UpdateConfig(cfg config.Config) {
	e.mu.Lock()
	e.cfg = cfg
	e.mu.Unlock()
}

func (e *Engine) snapshotConfig() config.Config {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cfg
}

// Run consumes commands until ctx is cancelled. Any session still active at
// shutdown is discarded.
func (e *Engine) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			if e.session != nil {
				e.session.discard()
				e.session = nil
			}
			return
		case cmd := <-e.commands:
			switch cmd {
			case cmdStart:
				e.handleStart(ctx)
			case cmdStop:
				e.handleStop()
			case cmdCancel:
				e.handleCancel()
			}
		}
	}
}

func (e *Engine) handleStart(ctx context.Context) {
	if e.session != nil {
		e.logger.Warn("capture start ignored: session already active")
		return
	}

	cfg := e.snapshotConfig()
	sess, err := e.openSession(ctx, cfg)
	if err != nil {
		e.logger.Error("capture start failed", "error", err)
		e.artifacts <- Artifact{Err: err}
		return
	}

	e.session = sess
	e.logger.Info("capture started",
		"device", sess.device.ID,
		"rate", sess.sourceRate,
		"channels", sess.channels,
		"vad", cfg.VAD.Enabled,
	)
}

func (e *Engine) openSession(ctx context.Context, cfg config.Config) (*captureSession, error) {
	sel, err := e.opener.Select(ctx, cfg.Audio.Input, cfg.Audio.Fallback)
	if err != nil {
		return nil, err
	}
	if sel.Warning != "" {
		e.logger.Warn("capture device fallback", "detail", sel.Warning)
	}

	rate, channels := captureParams(sel.Device)
	path := filepath.Join(e.tempDir, fmt.Sprintf("dictata-%s.wav", uuid.NewString()))
	sink, err := newWAVSink(path)
	if err != nil {
		return nil, err
	}

	sess := &captureSession{
		device:     sel.Device,
		sourceRate: rate,
		channels:   channels,
		vad:        newVoiceDetector(cfg.VAD, nil),
		resampler:  newResampler(rate, TargetSampleRate),
		sink:       sink,
		startedAt:  time.Now(),
		notify: func() {
			select {
			case e.autoStop <- struct{}{}:
			default:
			}
		},
	}

	stream, err := e.opener.Start(ctx, sel.Device, sess.handleFrames)
	if err != nil {
		sink.Discard()
		return nil, err
	}
	sess.stream = stream
	return sess, nil
}

func (e *Engine) handleStop() {
	sess := e.session
	if sess == nil {
		e.logger.Debug("capture stop with no active session")
		return
	}
	e.session = nil

	artifact := sess.finalize()
	if artifact.Err != nil {
		e.logger.Error("capture finalize failed", "error", artifact.Err)
	} else {
		e.logger.Info("capture finished",
			"path", artifact.Path,
			"duration", artifact.Duration,
		)
	}
	e.artifacts <- artifact
}

func (e *Engine) handleCancel() {
	sess := e.session
	if sess == nil {
		e.logger.Debug("capture cancel with no active session")
		return
	}
	e.session = nil

	sess.discard()
	e.logger.Info("capture cancelled")
	e.artifacts <- Artifact{}
}

// captureSession is one recording: the device stream plus the processing
// chain its callback drives.
type captureSession struct {
	device     Device
	sourceRate int
	channels   int
	stream     captureStream
	startedAt  time.Time

	notify func()

	// mu orders callback processing against teardown. Held only for the
	// arithmetic and the sink append, never across device calls.
	mu        sync.Mutex
	vad       *voiceDetector
	resampler *resampler
	sink      *wavSink
	done      bool
	streamErr error
}

// handleFrames runs on the capture callback thread.
func (s *captureSession) handleFrames(samples []float32, channels int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done || s.streamErr != nil {
		return
	}

	mono := downmix(samples, channels)
	if s.vad.ProcessSamples(mono) {
		s.notify()
	}
	if err := s.sink.Write(s.resampler.Process(mono)); err != nil {
		s.streamErr = err
	}
}

// finalize stops the stream, drains the resampler, and validates the
// artifact. Returns a terminal Artifact either way.
func (s *captureSession) finalize() Artifact {
	_ = s.stream.Stop()

	s.mu.Lock()
	s.done = true
	if s.streamErr == nil {
		s.streamErr = s.sink.Write(s.resampler.Flush())
	}
	err := s.streamErr
	samples := s.sink.Samples()
	s.mu.Unlock()

	if err != nil {
		s.sink.Discard()
		return Artifact{Err: err}
	}
	if err := s.sink.Finalize(); err != nil {
		return Artifact{Err: err}
	}
	return Artifact{
		Path:     s.sink.path,
		Duration: time.Duration(samples) * time.Second / TargetSampleRate,
	}
}

// discard stops the stream and deletes the artifact.
func (s *captureSession) discard() {
	_ = s.stream.Stop()

	s.mu.Lock()
	s.done = true
	s.mu.Unlock()

	s.sink.Discard()
}

// downmix averages interleaved channel pairs into mono. Mono input is
// returned as-is.
func downmix(samples []float32, channels int) []float32 {
	if channels <= 1 {
		return samples
	}
	mono := make([]float32, len(samples)/channels)
	for i := range mono {
		var sum float32
		for c := 0; c < channels; c++ {
			sum += samples[i*channels+c]
		}
		mono[i] = sum / float32(channels)
	}
	return mono
}
