package transcribe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/require"

	"github.com/mhalvorsen/dictata/internal/config"
)

func writeTestWAV(t *testing.T, rate, channels int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "artifact.wav")
	f, err := os.Create(path)
	require.NoError(t, err)

	enc := wav.NewEncoder(f, rate, 16, channels, 1)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: channels, SampleRate: rate},
		Data:           make([]int, rate*channels/10),
		SourceBitDepth: 16,
	}
	require.NoError(t, enc.Write(buf))
	require.NoError(t, enc.Close())
	require.NoError(t, f.Close())
	return path
}

// scriptedEngine replays canned outcomes and records the attempt order.
type scriptedEngine struct {
	calls   []string
	outcome map[string][]attemptOutcome
}

type attemptOutcome struct {
	text string
	err  error
}

func (s *scriptedEngine) Transcribe(_ context.Context, _, model string, gpu bool) (string, error) {
	device := "cpu"
	if gpu {
		device = "gpu"
	}
	key := fmt.Sprintf("%s/%s", filepath.Base(model), device)
	s.calls = append(s.calls, key)

	queue := s.outcome[key]
	if len(queue) == 0 {
		return "", errors.New("unscripted attempt: " + key)
	}
	next := queue[0]
	s.outcome[key] = queue[1:]
	return next.text, next.err
}

type fixedProbe bool

func (p fixedProbe) Sufficient() bool { return bool(p) }

func testController(t *testing.T, cfg config.Config, engine *scriptedEngine, sufficient bool) *Controller {
	t.Helper()
	c := NewController(slog.New(slog.NewTextHandler(os.Stderr, nil)), cfg)
	c.probe = fixedProbe(sufficient)
	c.tierDelay = time.Millisecond
	c.newLocal = func(config.Config) (localEngine, error) { return engine, nil }
	c.fileExists = func(path string) bool { return path != "" }
	return c
}

func runOne(t *testing.T, c *Controller, path string) Result {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)

	c.Submit(path)
	select {
	case result := <-c.Results():
		return result
	case <-time.After(5 * time.Second):
		t.Fatal("controller produced no result")
		return Result{}
	}
}

func localConfig() config.Config {
	return config.Config{
		ModelPath:         "/models/large.bin",
		FallbackModelPath: "/models/base.bin",
		Backend:           "local",
	}
}

func TestControllerFallsBackOnGarbage(t *testing.T) {
	engine := &scriptedEngine{outcome: map[string][]attemptOutcome{
		"large.bin/gpu": {{text: ".........."}},
		"base.bin/gpu":  {{text: " Hello, world. "}},
	}}
	c := testController(t, localConfig(), engine, true)

	result := runOne(t, c, writeTestWAV(t, 16000, 1))
	require.NoError(t, result.Err)
	require.Equal(t, "Hello, world.", result.Text)
	require.Equal(t, []string{"large.bin/gpu", "base.bin/gpu"}, engine.calls)
}

func TestControllerSkipsAcceleratedTiersWithoutHeadroom(t *testing.T) {
	engine := &scriptedEngine{outcome: map[string][]attemptOutcome{
		"base.bin/cpu": {{err: errors.New("load failed")}, {err: errors.New("load failed")}},
		"large.bin/cpu": {{text: "plan b worked"}},
	}}
	c := testController(t, localConfig(), engine, false)

	result := runOne(t, c, writeTestWAV(t, 16000, 1))
	require.NoError(t, result.Err)
	require.Equal(t, "plan b worked", result.Text)
	require.Equal(t, []string{"base.bin/cpu", "base.bin/cpu", "large.bin/cpu"}, engine.calls)
}

func TestControllerRetriesTransientFailureAtSameTier(t *testing.T) {
	engine := &scriptedEngine{outcome: map[string][]attemptOutcome{
		"large.bin/gpu": {{err: errors.New("device busy")}, {text: "second try"}},
	}}
	c := testController(t, localConfig(), engine, true)

	result := runOne(t, c, writeTestWAV(t, 16000, 1))
	require.NoError(t, result.Err)
	require.Equal(t, "second try", result.Text)
	require.Equal(t, []string{"large.bin/gpu", "large.bin/gpu"}, engine.calls)
}

func TestControllerExhaustedChainReportsFailure(t *testing.T) {
	boom := errors.New("boom")
	engine := &scriptedEngine{outcome: map[string][]attemptOutcome{
		"large.bin/gpu": {{err: boom}, {err: boom}},
		"base.bin/gpu":  {{err: boom}, {err: boom}},
		"base.bin/cpu":  {{err: boom}, {err: boom}},
		"large.bin/cpu": {{err: boom}, {err: boom}},
	}}
	c := testController(t, localConfig(), engine, true)

	path := writeTestWAV(t, 16000, 1)
	result := runOne(t, c, path)
	require.Error(t, result.Err)
	require.Len(t, engine.calls, 8)

	_, statErr := os.Stat(path)
	require.True(t, os.IsNotExist(statErr), "artifact must be deleted after exhaustion")
}

func TestControllerDeletesArtifactOnSuccess(t *testing.T) {
	engine := &scriptedEngine{outcome: map[string][]attemptOutcome{
		"large.bin/gpu": {{text: "done"}},
	}}
	c := testController(t, localConfig(), engine, true)

	path := writeTestWAV(t, 16000, 1)
	result := runOne(t, c, path)
	require.NoError(t, result.Err)

	_, statErr := os.Stat(path)
	require.True(t, os.IsNotExist(statErr))
}

func TestControllerRejectsMismatchedArtifact(t *testing.T) {
	engine := &scriptedEngine{outcome: map[string][]attemptOutcome{}}
	c := testController(t, localConfig(), engine, true)

	result := runOne(t, c, writeTestWAV(t, 44100, 1))
	require.Error(t, result.Err)
	require.Empty(t, engine.calls, "validation failure must not reach the engine")

	result = runOne(t, c, writeTestWAV(t, 16000, 2))
	require.Error(t, result.Err)
	require.Empty(t, engine.calls)
}

func TestPlanTiersWithoutFallbackModel(t *testing.T) {
	exists := func(string) bool { return true }

	tiers := planTiers(true, "/m/primary.bin", "", exists)
	require.Equal(t, []tier{
		{label: "primary/gpu", model: "/m/primary.bin", gpu: true},
		{label: "primary/cpu", model: "/m/primary.bin"},
	}, tiers)

	tiers = planTiers(false, "/m/primary.bin", "/m/fallback.bin", func(string) bool { return false })
	require.Equal(t, []tier{
		{label: "primary/cpu", model: "/m/primary.bin"},
	}, tiers)
}
