package audio

import (
	"math"
	"time"

	"github.com/mhalvorsen/dictata/internal/config"
)

// voiceDetector decides when a recording has gone quiet for long enough to
// stop on its own. It fires at most once per session: after triggering it
// returns false until a new detector is made for the next session.
type voiceDetector struct {
	enabled   bool
	threshold float64
	silence   time.Duration
	minRecord time.Duration

	startedAt time.Time
	lastVoice time.Time
	triggered bool

	now func() time.Time
}

func newVoiceDetector(cfg config.VADConfig, now func() time.Time) *voiceDetector {
	if now == nil {
		now = time.Now
	}
	start := now()
	return &voiceDetector{
		enabled:   cfg.Enabled,
		threshold: cfg.Threshold,
		silence:   time.Duration(cfg.SilenceDurationMS) * time.Millisecond,
		minRecord: time.Duration(cfg.MinRecordingMS) * time.Millisecond,
		startedAt: start,
		lastVoice: start,
		now:       now,
	}
}

// ProcessSamples folds one mono chunk into the detector and reports whether
// auto-stop should fire. Runs on the capture callback, so it only does
// arithmetic.
func (d *voiceDetector) ProcessSamples(chunk []float32) bool {
	if !d.enabled || d.triggered {
		return false
	}

	now := d.now()
	if rms(chunk) > d.threshold {
		d.lastVoice = now
	}

	if now.Sub(d.startedAt) < d.minRecord {
		return false
	}
	if now.Sub(d.lastVoice) < d.silence {
		return false
	}

	d.triggered = true
	return true
}

func rms(chunk []float32) float64 {
	if len(chunk) == 0 {
		return 0
	}
	var sum float64
	for _, s := range chunk {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(chunk)))
}
