// Package app executes CLI commands: the daemon itself plus the thin
// client commands that talk to it over the control socket.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mhalvorsen/dictata/internal/audio"
	"github.com/mhalvorsen/dictata/internal/cli"
	"github.com/mhalvorsen/dictata/internal/config"
	"github.com/mhalvorsen/dictata/internal/coordinator"
	"github.com/mhalvorsen/dictata/internal/doctor"
	"github.com/mhalvorsen/dictata/internal/history"
	"github.com/mhalvorsen/dictata/internal/hotkey"
	"github.com/mhalvorsen/dictata/internal/ipc"
	"github.com/mhalvorsen/dictata/internal/logging"
	"github.com/mhalvorsen/dictata/internal/notify"
	"github.com/mhalvorsen/dictata/internal/output"
	"github.com/mhalvorsen/dictata/internal/transcribe"
	"github.com/mhalvorsen/dictata/internal/version"
)

const (
	socketProbeTimeout = 180 * time.Millisecond
	socketAcquireTries = 8
	forwardTimeout     = 220 * time.Millisecond
)

type Runner struct {
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger
}

func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	r := Runner{Stdout: stdout, Stderr: stderr}
	return r.Execute(ctx, args)
}

func (r Runner) Execute(ctx context.Context, args []string) int {
	parsed, err := cli.Parse(args)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n\n", err)
		fmt.Fprint(r.Stderr, cli.HelpText("dictata"))
		return 2
	}

	if parsed.ShowHelp {
		fmt.Fprint(r.Stdout, cli.HelpText("dictata"))
		return 0
	}

	if parsed.Command == cli.CommandVersion {
		fmt.Fprintln(r.Stdout, version.String())
		return 0
	}

	if parsed.Command.Forwarded() {
		// Forwarded commands never need config or file logging.
		return r.forwardOrFail(ctx, string(parsed.Command))
	}
	if parsed.Command == cli.CommandDevices {
		return r.commandDevices(ctx)
	}

	logRuntime, err := logging.New()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: setup logging: %v\n", err)
		return 1
	}
	defer func() { _ = logRuntime.Close() }()

	logger := r.Logger
	if logger == nil {
		logger = logRuntime.Logger
	}

	cfgLoaded, err := config.Load(parsed.ConfigPath)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		logger.Error("load config failed", "error", err.Error())
		return 1
	}
	for _, w := range cfgLoaded.Warnings {
		fmt.Fprintf(r.Stderr, "warning: %s\n", w.Message)
		logger.Warn("config warning", "message", w.Message)
	}

	logger.Info("command start",
		"command", parsed.Command,
		"config", cfgLoaded.Path,
		"log", logRuntime.Path,
	)

	switch parsed.Command {
	case cli.CommandDoctor:
		report := doctor.Run(cfgLoaded)
		fmt.Fprintln(r.Stdout, report.String())
		if report.OK() {
			return 0
		}
		return 1
	case cli.CommandRun:
		return r.runDaemon(ctx, logger, cfgLoaded, parsed.ConfigPath)
	default:
		fmt.Fprintf(r.Stderr, "error: unsupported command %q\n", parsed.Command)
		return 2
	}
}

func (r Runner) commandDevices(ctx context.Context) int {
	devices, err := audio.ListDevices(ctx)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	if len(devices) == 0 {
		fmt.Fprintln(r.Stdout, "no audio devices found")
		return 1
	}

	for _, device := range devices {
		defaultMark := " "
		if device.Default {
			defaultMark = "*"
		}
		availability := "yes"
		if !device.Available {
			availability = "no"
		}
		muted := "no"
		if device.Muted {
			muted = "yes"
		}
		fmt.Fprintf(
			r.Stdout,
			"%s id=%s | description=%q | state=%s | rate=%d | channels=%d | available=%s | muted=%s\n",
			defaultMark,
			device.ID,
			device.Description,
			device.State,
			device.SampleRate,
			device.Channels,
			availability,
			muted,
		)
	}

	return 0
}

// forwardOrFail delivers one control command to a running daemon.
func (r Runner) forwardOrFail(ctx context.Context, command string) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	if err := ipc.Send(ctx, socketPath, command, forwardTimeout); err != nil {
		alive, probeErr := ipc.Probe(ctx, socketPath, forwardTimeout)
		if probeErr == nil && !alive {
			fmt.Fprintln(r.Stderr, "error: no running dictata daemon (start one with `dictata run`)")
			return 1
		}
		fmt.Fprintf(r.Stderr, "error: forward command %q: %v\n", command, err)
		return 1
	}
	return 0
}

// ensureModel verifies the primary model file before the daemon commits to
// serving. With the local backend a missing model would fail every session,
// so refuse to start; with the remote backend it only disables the local
// fallback.
func ensureModel(logger *slog.Logger, cfg config.Config) error {
	if _, err := os.Stat(cfg.ModelPath); err == nil {
		return nil
	}
	if cfg.Backend == "local" {
		return fmt.Errorf("whisper model not found at %s; run the install script or download a model to that path", cfg.ModelPath)
	}
	logger.Warn("local model missing; remote backend selected, local fallback unavailable", "path", cfg.ModelPath)
	return nil
}

// runDaemon owns the control socket and runs capture, transcription, and
// coordination until the context is cancelled.
func (r Runner) runDaemon(ctx context.Context, logger *slog.Logger, cfgLoaded config.Loaded, configPath string) int {
	cfg := cfgLoaded.Config

	if err := ensureModel(logger, cfg); err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		logger.Error("model check failed", "error", err.Error())
		return 1
	}

	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	listener, err := ipc.Acquire(ctx, socketPath, socketProbeTimeout, socketAcquireTries)
	if err != nil {
		if errors.Is(err, ipc.ErrAlreadyRunning) {
			fmt.Fprintln(r.Stderr, "error: dictata daemon already running")
			return 1
		}
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	defer func() {
		_ = listener.Close()
		_ = os.Remove(socketPath)
	}()

	monitor, err := hotkey.NewMonitor(logger, cfg.Hotkey)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		logger.Error("hotkey monitor unavailable", "error", err.Error())
		return 1
	}

	engine := audio.NewEngine(logger, cfg)
	controller := transcribe.NewController(logger, cfg)
	committer := output.NewCommitter(cfg, logger)
	notifier := notify.New(cfg, logger)
	store := history.Open(config.HistoryPath(), cfg.MaxHistory)

	coord := coordinator.New(logger, cfg, coordinator.Deps{
		Engine:      engine,
		Transcriber: controller,
		Committer:   committer,
		Notifier:    notifier,
		History:     store,
		Intents:     monitor.Intents(),
		PushHotkey:  monitor.UpdateConfig,
		LoadConfig: func() (config.Config, error) {
			loaded, err := config.Load(configPath)
			if err != nil {
				return config.Config{}, err
			}
			for _, w := range loaded.Warnings {
				logger.Warn("config warning", "message", w.Message)
			}
			return loaded.Config, nil
		},
	})

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// SIGHUP triggers the same reload path as the socket command.
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	go func() {
		for {
			select {
			case <-runCtx.Done():
				return
			case <-hup:
				logger.Info("received SIGHUP")
				coord.RequestReload()
			}
		}
	}()

	go engine.Run(runCtx)
	go controller.Run(runCtx)
	go coord.Run(runCtx)

	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- ipc.Serve(runCtx, listener, coord)
	}()

	monitorErrCh := make(chan error, 1)
	go func() {
		monitorErrCh <- monitor.Run(runCtx)
	}()

	logger.Info("daemon ready", "socket", socketPath, "config", cfgLoaded.Path)

	var exit int
	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-monitorErrCh:
		if err != nil {
			fmt.Fprintf(r.Stderr, "error: hotkey monitor failed: %v\n", err)
			logger.Error("hotkey monitor failed", "error", err.Error())
			exit = 1
		}
	case err := <-serverErrCh:
		if err != nil {
			fmt.Fprintf(r.Stderr, "error: control socket failed: %v\n", err)
			logger.Error("control socket failed", "error", err.Error())
			exit = 1
		}
	}

	cancel()
	return exit
}
