// Package ipc exposes the daemon's unix-socket control surface: newline-
// terminated plain-text commands, no replies.
package ipc

// Control commands understood by a running daemon.
const (
	CommandStart  = "start"
	CommandStop   = "stop"
	CommandCancel = "cancel"
	CommandToggle = "toggle"
	CommandReload = "reload"
)

// KnownCommand reports whether cmd is part of the control vocabulary.
// Unknown commands are ignored with a warning rather than erroring, so
// newer clients can talk to older daemons.
func KnownCommand(cmd string) bool {
	switch cmd {
	case CommandStart, CommandStop, CommandCancel, CommandToggle, CommandReload:
		return true
	}
	return false
}
