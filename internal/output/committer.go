// Package output applies transcript commit side effects (clipboard and paste).
package output

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"sync"
	"time"

	"github.com/atotto/clipboard"

	"github.com/mhalvorsen/dictata/internal/config"
)

const commandTimeout = 2 * time.Second

// ctrlVSequence is the raw ydotool key script for Ctrl down, V down, V up,
// Ctrl up.
var ctrlVSequence = []string{"key", "29:1", "47:1", "47:0", "29:0"}

// Committer delivers finished transcripts to the desktop: clipboard always,
// synthetic typing when auto-paste is on. The clipboard write must succeed
// before any paste is attempted; paste failures are logged and swallowed so
// the rest of the pipeline never stalls on a missing input tool.
type Committer struct {
	logger *slog.Logger

	mu           sync.Mutex
	clipboardCmd []string
	pasteCmd     []string
	autoPaste    bool

	// injectable for tests
	run       func(ctx context.Context, argv []string, input string) error
	writeClip func(text string) error
}

// NewCommitter constructs a transcript committer from runtime config.
func NewCommitter(cfg config.Config, logger *slog.Logger) *Committer {
	return &Committer{
		logger:       logger,
		clipboardCmd: cfg.ClipboardCmd,
		pasteCmd:     cfg.PasteCmd,
		autoPaste:    cfg.AutoPaste,
		run:          runCommandWithInput,
		writeClip:    clipboard.WriteAll,
	}
}

// UpdateConfig applies to subsequent commits.
func (c *Committer) UpdateConfig(cfg config.Config) {
	c.mu.Lock()
	c.clipboardCmd = cfg.ClipboardCmd
	c.pasteCmd = cfg.PasteCmd
	c.autoPaste = cfg.AutoPaste
	c.mu.Unlock()
}

// Commit writes transcript text to the clipboard and optionally dispatches
// paste. A clipboard failure is returned; a paste failure is not.
func (c *Committer) Commit(ctx context.Context, transcript string) error {
	if transcript == "" {
		return nil
	}

	c.mu.Lock()
	clipboardCmd := c.clipboardCmd
	pasteCmd := c.pasteCmd
	autoPaste := c.autoPaste
	c.mu.Unlock()

	if err := c.setClipboard(ctx, clipboardCmd, transcript); err != nil {
		return fmt.Errorf("set clipboard: %w", err)
	}

	if !autoPaste {
		return nil
	}

	if len(pasteCmd) > 0 {
		pasteCtx, cancel := context.WithTimeout(ctx, commandTimeout)
		defer cancel()
		if err := c.run(pasteCtx, pasteCmd, ""); err != nil {
			c.logPasteFailure(err)
		}
		return nil
	}

	if err := c.defaultPaste(ctx, transcript); err != nil {
		c.logPasteFailure(err)
	}
	return nil
}

func (c *Committer) setClipboard(ctx context.Context, argv []string, text string) error {
	if len(argv) == 0 {
		return c.writeClip(text)
	}
	clipCtx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()
	return c.run(clipCtx, argv, text)
}

// defaultPaste walks the Wayland typing-tool chain: ydotool type, then
// wtype, then a synthesized Ctrl+V against the already-set clipboard.
func (c *Committer) defaultPaste(ctx context.Context, transcript string) error {
	typeCtx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()
	typeErr := c.run(typeCtx, []string{"ydotool", "type", "--", transcript}, "")
	if typeErr == nil {
		return nil
	}
	c.logger.Debug("ydotool type failed, trying wtype", "error", typeErr)

	wtypeCtx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()
	wtypeErr := c.run(wtypeCtx, []string{"wtype", "--", transcript}, "")
	if wtypeErr == nil {
		return nil
	}
	c.logger.Debug("wtype failed, trying ctrl+v", "error", wtypeErr)

	// Give the clipboard manager a beat before relying on its contents.
	select {
	case <-time.After(50 * time.Millisecond):
	case <-ctx.Done():
		return ctx.Err()
	}

	keyCtx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()
	if err := c.run(keyCtx, append([]string{"ydotool"}, ctrlVSequence...), ""); err != nil {
		return fmt.Errorf("all paste methods failed: %w", err)
	}
	return nil
}

// runCommandWithInput executes argv and optionally writes input to stdin.
func runCommandWithInput(ctx context.Context, argv []string, input string) error {
	if len(argv) == 0 {
		return fmt.Errorf("command argv cannot be empty")
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("open stdin for %s: %w", argv[0], err)
	}

	if err := cmd.Start(); err != nil {
		_ = stdin.Close()
		return fmt.Errorf("start command %s: %w", argv[0], err)
	}

	if input != "" {
		if _, err := stdin.Write([]byte(input)); err != nil {
			_ = stdin.Close()
			_ = cmd.Wait()
			return fmt.Errorf("write stdin for %s: %w", argv[0], err)
		}
	}
	_ = stdin.Close()

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("wait for %s: %w", argv[0], err)
	}
	return nil
}

// logPasteFailure records paste errors while preserving clipboard success semantics.
func (c *Committer) logPasteFailure(err error) {
	if c.logger == nil || err == nil {
		return
	}
	c.logger.Error("paste dispatch failed; clipboard remains set", "error", err.Error())
}
