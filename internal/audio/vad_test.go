package audio

import (
	"testing"
	"time"

	"github.com/mhalvorsen/dictata/internal/config"
)

func vadConfig() config.VADConfig {
	return config.VADConfig{
		Enabled:           true,
		Threshold:         0.01,
		SilenceDurationMS: 1500,
		MinRecordingMS:    500,
	}
}

func loudChunk() []float32 {
	chunk := make([]float32, 320)
	for i := range chunk {
		chunk[i] = 0.5
	}
	return chunk
}

func quietChunk() []float32 {
	return make([]float32, 320)
}

func TestDetectorFiresAfterSilence(t *testing.T) {
	clock := &fakeVADClock{now: time.Unix(1700000000, 0)}
	d := newVoiceDetector(vadConfig(), clock.Now)

	if d.ProcessSamples(loudChunk()) {
		t.Fatal("fired while voice present")
	}

	clock.Advance(time.Second)
	if d.ProcessSamples(loudChunk()) {
		t.Fatal("fired while voice present")
	}

	// 1.4s of silence: not yet.
	clock.Advance(1400 * time.Millisecond)
	if d.ProcessSamples(quietChunk()) {
		t.Fatal("fired before silence_duration_ms elapsed")
	}

	clock.Advance(200 * time.Millisecond)
	if !d.ProcessSamples(quietChunk()) {
		t.Fatal("did not fire after sustained silence")
	}
}

func TestDetectorNeverFiresBeforeMinRecording(t *testing.T) {
	cfg := vadConfig()
	cfg.SilenceDurationMS = 100
	cfg.MinRecordingMS = 5000

	clock := &fakeVADClock{now: time.Unix(1700000000, 0)}
	d := newVoiceDetector(cfg, clock.Now)

	// Total silence from the first sample, well past silence_duration_ms,
	// but inside the minimum-recording guard.
	for i := 0; i < 40; i++ {
		clock.Advance(100 * time.Millisecond)
		if d.ProcessSamples(quietChunk()) {
			t.Fatalf("fired at %v, before min recording elapsed", clock.now)
		}
	}

	clock.Advance(2 * time.Second)
	if !d.ProcessSamples(quietChunk()) {
		t.Fatal("did not fire once past the guard")
	}
}

func TestDetectorLatchesAfterFiring(t *testing.T) {
	clock := &fakeVADClock{now: time.Unix(1700000000, 0)}
	d := newVoiceDetector(vadConfig(), clock.Now)

	clock.Advance(3 * time.Second)
	if !d.ProcessSamples(quietChunk()) {
		t.Fatal("did not fire")
	}

	// Voice returning after the trip must not re-arm the detector.
	clock.Advance(time.Second)
	d.ProcessSamples(loudChunk())
	clock.Advance(5 * time.Second)
	if d.ProcessSamples(quietChunk()) {
		t.Fatal("fired twice in one session")
	}
}

func TestDetectorDisabled(t *testing.T) {
	cfg := vadConfig()
	cfg.Enabled = false

	clock := &fakeVADClock{now: time.Unix(1700000000, 0)}
	d := newVoiceDetector(cfg, clock.Now)

	clock.Advance(time.Minute)
	if d.ProcessSamples(quietChunk()) {
		t.Fatal("disabled detector fired")
	}
}

func TestRMS(t *testing.T) {
	if got := rms(nil); got != 0 {
		t.Fatalf("rms(nil) = %v", got)
	}
	if got := rms([]float32{0.5, -0.5, 0.5, -0.5}); got < 0.499 || got > 0.501 {
		t.Fatalf("rms of constant-magnitude signal = %v, want 0.5", got)
	}
}

type fakeVADClock struct {
	now time.Time
}

func (c *fakeVADClock) Now() time.Time {
	return c.now
}

func (c *fakeVADClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}
