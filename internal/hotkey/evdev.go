package hotkey

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unsafe"

	"golang.org/x/sys/unix"
)

const (
	inputDir = "/dev/input"

	evKey = 0x01

	// keyBitmapBytes covers codes up to KEY_MAX (0x2ff).
	keyBitmapBytes = 0x2ff/8 + 1
)

// inputEvent mirrors struct input_event from linux/input.h.
type inputEvent struct {
	Time  unix.Timeval
	Type  uint16
	Code  uint16
	Value int32
}

var inputEventSize = int(unsafe.Sizeof(inputEvent{}))

// keyEvent is a decoded EV_KEY edge.
type keyEvent struct {
	Code  uint16
	Value int32
}

// device is one open keyboard-capable input device.
type device struct {
	fd   int
	path string
	name string
	buf  []byte
}

// openKeyboards opens every /dev/input/event* device that exposes keyboard
// keys. It returns an error naming the required permission group when no
// device can be used.
func openKeyboards() ([]*device, error) {
	entries, err := os.ReadDir(inputDir)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", inputDir, err)
	}

	var devices []*device
	for _, entry := range entries {
		if !strings.HasPrefix(entry.Name(), "event") {
			continue
		}
		path := filepath.Join(inputDir, entry.Name())

		fd, err := unix.Open(path, unix.O_RDONLY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
		if err != nil {
			continue
		}

		if !hasKeyboardKeys(fd) {
			_ = unix.Close(fd)
			continue
		}

		devices = append(devices, &device{
			fd:   fd,
			path: path,
			name: deviceName(fd),
			buf:  make([]byte, inputEventSize*64),
		})
	}

	if len(devices) == 0 {
		return nil, errors.New(
			"no keyboard input devices found; add yourself to the 'input' group " +
				"(sudo usermod -aG input $USER) and log in again",
		)
	}
	return devices, nil
}

// close releases the device file descriptor.
func (d *device) close() {
	_ = unix.Close(d.fd)
}

// readKeyEvents drains pending events and returns the EV_KEY edges among them.
func (d *device) readKeyEvents() ([]keyEvent, error) {
	n, err := unix.Read(d.fd, d.buf)
	if err != nil {
		if err == unix.EAGAIN {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", d.path, err)
	}

	var out []keyEvent
	reader := bytes.NewReader(d.buf[:n])
	for reader.Len() >= inputEventSize {
		var ev inputEvent
		if err := binary.Read(reader, binary.LittleEndian, &ev); err != nil {
			return out, fmt.Errorf("decode input event from %s: %w", d.path, err)
		}
		if ev.Type != evKey {
			continue
		}
		out = append(out, keyEvent{Code: ev.Code, Value: ev.Value})
	}
	return out, nil
}

// hasKeyboardKeys checks the EV_KEY capability bitmap for Ctrl/Alt keys, the
// same heuristic used to separate keyboards from mice and buttons.
func hasKeyboardKeys(fd int) bool {
	var bitmap [keyBitmapBytes]byte
	if err := ioctlEviocgbit(fd, evKey, bitmap[:]); err != nil {
		return false
	}
	return bitmapHas(bitmap[:], KeyLeftCtrl) || bitmapHas(bitmap[:], KeyLeftAlt)
}

// bitmapHas tests one key bit in an EVIOCGBIT bitmap.
func bitmapHas(bitmap []byte, code uint16) bool {
	idx := int(code) / 8
	if idx >= len(bitmap) {
		return false
	}
	return bitmap[idx]&(1<<(code%8)) != 0
}

// deviceName queries the human-readable device name, best-effort.
func deviceName(fd int) string {
	var buf [256]byte
	if err := ioctlEviocgname(fd, buf[:]); err != nil {
		return "unknown"
	}
	name := string(bytes.TrimRight(buf[:], "\x00"))
	if name == "" {
		return "unknown"
	}
	return name
}

// evdev ioctl request encoding: _IOC(_IOC_READ, 'E', nr, size).
func evdevIoctlRequest(nr uintptr, size int) uintptr {
	const iocRead = 2
	return iocRead<<30 | uintptr(size)<<16 | 'E'<<8 | nr
}

// ioctlEviocgbit fills buf with the capability bitmap for one event type.
func ioctlEviocgbit(fd int, evtype uintptr, buf []byte) error {
	req := evdevIoctlRequest(0x20+evtype, len(buf))
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), req, uintptr(unsafe.Pointer(&buf[0])))
	if errno != 0 {
		return errno
	}
	return nil
}

// ioctlEviocgname fills buf with the device name.
func ioctlEviocgname(fd int, buf []byte) error {
	req := evdevIoctlRequest(0x06, len(buf))
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), req, uintptr(unsafe.Pointer(&buf[0])))
	if errno != 0 {
		return errno
	}
	return nil
}
