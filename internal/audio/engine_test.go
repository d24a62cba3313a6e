package audio

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/go-audio/wav"
	"github.com/stretchr/testify/require"

	"github.com/mhalvorsen/dictata/internal/config"
)

type fakeStream struct {
	stopped bool
	rate    int
	chans   int
}

func (f *fakeStream) SampleRate() int { return f.rate }
func (f *fakeStream) Channels() int   { return f.chans }
func (f *fakeStream) Stop() error {
	f.stopped = true
	return nil
}

type fakeOpener struct {
	dev    Device
	selErr error

	mu       sync.Mutex
	stream   *fakeStream
	onFrames FrameFunc
}

func (f *fakeOpener) Select(context.Context, string, string) (Selection, error) {
	if f.selErr != nil {
		return Selection{}, f.selErr
	}
	return Selection{Device: f.dev}, nil
}

func (f *fakeOpener) Start(_ context.Context, dev Device, onFrames FrameFunc) (captureStream, error) {
	rate, chans := captureParams(dev)
	f.mu.Lock()
	f.stream = &fakeStream{rate: rate, chans: chans}
	f.onFrames = onFrames
	f.mu.Unlock()
	return f.stream, nil
}

func (f *fakeOpener) frames() FrameFunc {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.onFrames
}

func (f *fakeOpener) openedStream() *fakeStream {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stream
}

func testEngine(t *testing.T, cfg config.Config, opener *fakeOpener) (*Engine, context.CancelFunc) {
	t.Helper()
	e := newEngine(slog.New(slog.NewTextHandler(os.Stderr, nil)), cfg, opener)
	e.tempDir = t.TempDir()

	ctx, cancel := context.WithCancel(context.Background())
	go e.Run(ctx)
	t.Cleanup(cancel)
	return e, cancel
}

func pushSeconds(opener *fakeOpener, seconds float64, rate, channels int, amplitude float32) {
	total := int(seconds * float64(rate))
	chunk := 480
	for off := 0; off < total; off += chunk {
		n := chunk
		if off+n > total {
			n = total - off
		}
		frames := make([]float32, n*channels)
		for i := range frames {
			frames[i] = amplitude
		}
		opener.frames()(frames, channels)
	}
}

func waitArtifact(t *testing.T, e *Engine) Artifact {
	t.Helper()
	select {
	case a := <-e.Artifacts():
		return a
	case <-time.After(2 * time.Second):
		t.Fatal("no artifact published")
		return Artifact{}
	}
}

func waitForStream(t *testing.T, opener *fakeOpener) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for opener.frames() == nil {
		if time.Now().After(deadline) {
			t.Fatal("capture stream never opened")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestEngineStartStopProducesArtifact(t *testing.T) {
	opener := &fakeOpener{dev: Device{ID: "mic", SampleRate: 16000, Channels: 1, Available: true, Default: true}}
	e, _ := testEngine(t, config.Config{}, opener)

	e.Start()
	waitForStream(t, opener)
	pushSeconds(opener, 2, 16000, 1, 0.25)
	e.Stop()

	artifact := waitArtifact(t, e)
	require.NoError(t, artifact.Err)
	require.NotEmpty(t, artifact.Path)
	require.InDelta(t, 2.0, artifact.Duration.Seconds(), 0.05)
	require.True(t, opener.openedStream().stopped)

	f, err := os.Open(artifact.Path)
	require.NoError(t, err)
	defer f.Close()
	dec := wav.NewDecoder(f)
	buf, err := dec.FullPCMBuffer()
	require.NoError(t, err)
	require.EqualValues(t, 1, dec.NumChans)
	require.EqualValues(t, TargetSampleRate, dec.SampleRate)
	require.InDelta(t, 2*TargetSampleRate, len(buf.Data), float64(TargetSampleRate)/100)
}

func TestEngineResamplesStereoSource(t *testing.T) {
	opener := &fakeOpener{dev: Device{ID: "mic", SampleRate: 48000, Channels: 2, Available: true, Default: true}}
	e, _ := testEngine(t, config.Config{}, opener)

	e.Start()
	waitForStream(t, opener)
	pushSeconds(opener, 1, 48000, 2, 0.25)
	e.Stop()

	artifact := waitArtifact(t, e)
	require.NoError(t, artifact.Err)

	f, err := os.Open(artifact.Path)
	require.NoError(t, err)
	defer f.Close()
	dec := wav.NewDecoder(f)
	buf, err := dec.FullPCMBuffer()
	require.NoError(t, err)
	// One second of 48kHz stereo must land as one second of 16kHz mono.
	require.InDelta(t, TargetSampleRate, len(buf.Data), float64(TargetSampleRate)/100)
}

func TestEngineCancelDeletesArtifact(t *testing.T) {
	opener := &fakeOpener{dev: Device{ID: "mic", SampleRate: 16000, Channels: 1, Available: true, Default: true}}
	e, _ := testEngine(t, config.Config{}, opener)

	e.Start()
	waitForStream(t, opener)
	pushSeconds(opener, 1, 16000, 1, 0.25)
	e.Cancel()

	artifact := waitArtifact(t, e)
	require.NoError(t, artifact.Err)
	require.Empty(t, artifact.Path, "cancel must publish the no-artifact signal")

	entries, err := os.ReadDir(e.tempDir)
	require.NoError(t, err)
	require.Empty(t, entries, "cancelled artifact should be deleted")
}

func TestEngineIgnoresStartWhileActive(t *testing.T) {
	opener := &fakeOpener{dev: Device{ID: "mic", SampleRate: 16000, Channels: 1, Available: true, Default: true}}
	e, _ := testEngine(t, config.Config{}, opener)

	e.Start()
	waitForStream(t, opener)
	first := opener.openedStream()
	e.Start()
	pushSeconds(opener, 1, 16000, 1, 0.25)
	e.Stop()

	artifact := waitArtifact(t, e)
	require.NoError(t, artifact.Err)
	require.Same(t, first, opener.openedStream(), "second start must not reopen the stream")

	// Exactly one artifact for the whole sequence.
	select {
	case extra := <-e.Artifacts():
		t.Fatalf("unexpected second artifact: %+v", extra)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestEngineReportsSelectionFailure(t *testing.T) {
	opener := &fakeOpener{selErr: errors.New("no audio input devices found")}
	e, _ := testEngine(t, config.Config{}, opener)

	e.Start()

	artifact := waitArtifact(t, e)
	require.Error(t, artifact.Err)
	require.Empty(t, artifact.Path)
}

func TestEngineSignalsAutoStop(t *testing.T) {
	cfg := config.Config{VAD: config.VADConfig{
		Enabled:           true,
		Threshold:         0.5,
		SilenceDurationMS: 0,
		MinRecordingMS:    0,
	}}
	opener := &fakeOpener{dev: Device{ID: "mic", SampleRate: 16000, Channels: 1, Available: true, Default: true}}
	e, _ := testEngine(t, cfg, opener)

	e.Start()
	waitForStream(t, opener)
	// Quiet frames only: the detector trips immediately with zero guards.
	opener.frames()(make([]float32, 480), 1)

	select {
	case <-e.AutoStop():
	case <-time.After(time.Second):
		t.Fatal("auto-stop never signalled")
	}

	e.Stop()
	waitArtifact(t, e)
}

func TestDownmix(t *testing.T) {
	stereo := []float32{1, 0, 0.5, 0.5, -1, 1}
	mono := downmix(stereo, 2)
	require.Equal(t, []float32{0.5, 0.5, 0}, mono)

	passthrough := []float32{0.1, 0.2}
	require.Equal(t, passthrough, downmix(passthrough, 1))
}
