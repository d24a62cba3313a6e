package hotkey

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sys/unix"

	"github.com/mhalvorsen/dictata/internal/config"
)

// pollTimeout bounds each multiplexed wait so config reloads and shutdown
// stay responsive.
const pollTimeout = 100 * time.Millisecond

// Monitor reads raw key edges from all keyboard devices and emits recording
// intents. Construction fails fatally when no keyboard device can be opened.
type Monitor struct {
	logger  *slog.Logger
	devices []*device
	tracker *tracker

	intents  chan Intent
	configCh chan config.HotkeyConfig
}

// NewMonitor opens keyboard devices and prepares the intent stream.
func NewMonitor(logger *slog.Logger, cfg config.HotkeyConfig) (*Monitor, error) {
	combo, err := ComboFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("resolve hotkey: %w", err)
	}

	devices, err := openKeyboards()
	if err != nil {
		return nil, err
	}

	for _, d := range devices {
		logger.Info("monitoring keyboard", "device", d.path, "name", d.name)
	}
	logger.Info("hotkey listener ready", "combo", combo.String())

	return &Monitor{
		logger:   logger,
		devices:  devices,
		tracker:  newTracker(combo, time.Now),
		intents:  make(chan Intent, 8),
		configCh: make(chan config.HotkeyConfig, 1),
	}, nil
}

// Intents returns the stream of recording intents.
func (m *Monitor) Intents() <-chan Intent {
	return m.intents
}

// UpdateConfig queues a hotkey configuration swap; it is applied between
// polling cycles without disturbing in-progress press tracking.
func (m *Monitor) UpdateConfig(cfg config.HotkeyConfig) {
	select {
	case m.configCh <- cfg:
	default:
		// A pending update is still queued; the newest one wins.
		select {
		case <-m.configCh:
		default:
		}
		m.configCh <- cfg
	}
}

// Run drives the poll loop until context cancellation. Devices are closed on
// return.
func (m *Monitor) Run(ctx context.Context) error {
	defer func() {
		for _, d := range m.devices {
			d.close()
		}
	}()

	pollFds := make([]unix.PollFd, len(m.devices))
	for i, d := range m.devices {
		pollFds[i] = unix.PollFd{Fd: int32(d.fd), Events: unix.POLLIN}
	}

	for {
		if ctx.Err() != nil {
			return nil
		}

		m.applyPendingConfig()

		for i := range pollFds {
			pollFds[i].Revents = 0
		}
		n, err := unix.Poll(pollFds, int(pollTimeout.Milliseconds()))
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return fmt.Errorf("poll input devices: %w", err)
		}
		if n == 0 {
			continue
		}

		for i, pfd := range pollFds {
			if pfd.Revents&unix.POLLIN == 0 {
				continue
			}
			events, err := m.devices[i].readKeyEvents()
			if err != nil {
				m.logger.Warn("input device read failed", "device", m.devices[i].path, "error", err.Error())
				continue
			}
			for _, ev := range events {
				if intent := m.tracker.handleKey(ev.Code, ev.Value); intent != IntentNone {
					m.emit(intent)
				}
			}
		}
	}
}

// applyPendingConfig swaps in a queued hotkey config, if any.
func (m *Monitor) applyPendingConfig() {
	select {
	case cfg := <-m.configCh:
		combo, err := ComboFromConfig(cfg)
		if err != nil {
			m.logger.Warn("ignoring invalid hotkey config", "error", err.Error())
			return
		}
		m.tracker.setCombo(combo)
		m.logger.Info("hotkey configuration reloaded", "combo", combo.String())
	default:
	}
}

// emit forwards an intent without ever blocking the input loop.
func (m *Monitor) emit(intent Intent) {
	select {
	case m.intents <- intent:
	default:
		m.logger.Warn("dropping hotkey intent; consumer is behind", "intent", intent.String())
	}
}
