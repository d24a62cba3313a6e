// Package notify surfaces recording state to the user: desktop notifications
// and short audio cues. Everything here is fire-and-forget; a missing
// notification daemon or sound server must never affect dictation.
package notify

import (
	"log/slog"
	"sync"

	"github.com/gen2brain/beeep"

	"github.com/mhalvorsen/dictata/internal/config"
	"github.com/mhalvorsen/dictata/internal/transcript"
)

const appTitle = "Dictata"

// Notifier publishes user-facing event summaries.
type Notifier struct {
	logger *slog.Logger

	mu            sync.Mutex
	notifications bool
	audioCues     bool

	// injectable for tests
	send func(title, body string) error
	play func(kind cueKind) error
}

func New(cfg config.Config, logger *slog.Logger) *Notifier {
	return &Notifier{
		logger:        logger,
		notifications: cfg.NotificationEnabled,
		audioCues:     cfg.AudioFeedback,
		send: func(title, body string) error {
			return beeep.Notify(title, body, "")
		},
		play: func(kind cueKind) error {
			return playSynthCue(cueSamples(kind))
		},
	}
}

// UpdateConfig applies to subsequent events.
func (n *Notifier) UpdateConfig(cfg config.Config) {
	n.mu.Lock()
	n.notifications = cfg.NotificationEnabled
	n.audioCues = cfg.AudioFeedback
	n.mu.Unlock()
}

// RecordingStarted announces a new session.
func (n *Notifier) RecordingStarted() {
	n.cue(cueStart)
	n.notify("Recording started", "Listening...")
}

// RecordingStopped announces that transcription is underway.
func (n *Notifier) RecordingStopped() {
	n.cue(cueStop)
	n.notify("Recording stopped", "Transcribing...")
}

// RecordingCancelled announces a discarded session.
func (n *Notifier) RecordingCancelled() {
	n.cue(cueCancel)
	n.notify("Recording cancelled", "")
}

// TranscriptionComplete announces the finished transcript with a bounded
// preview.
func (n *Notifier) TranscriptionComplete(text string) {
	n.cue(cueComplete)
	n.notify("Transcription complete", "Transcribed: "+transcript.Preview(text))
}

// Error surfaces a failure summary.
func (n *Notifier) Error(message string) {
	n.cue(cueError)
	n.notify("Error", message)
}

func (n *Notifier) notify(title, body string) {
	n.mu.Lock()
	enabled := n.notifications
	n.mu.Unlock()
	if !enabled {
		return
	}

	go func() {
		if err := n.send(appTitle+": "+title, body); err != nil {
			n.logger.Debug("notification dropped", "title", title, "error", err)
		}
	}()
}

func (n *Notifier) cue(kind cueKind) {
	n.mu.Lock()
	enabled := n.audioCues
	n.mu.Unlock()
	if !enabled {
		return
	}

	go func() {
		if err := n.play(kind); err != nil {
			n.logger.Debug("audio cue dropped", "error", err)
		}
	}()
}
