//go:build linux

package system

import (
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sys/unix"
)

const (
	evKey = 0x01

	// Linux input-event-codes.h
	keyEsc = 1
	keyQ   = 16
	keyF4  = 62
)

// quitKeys are the keys that ask a kiosk-mode display to exit.
var quitKeys = map[uint16]bool{keyEsc: true, keyQ: true, keyF4: true}

// WatchQuitKeys watches Linux evdev devices under /dev/input/event* and calls
// onQuit once when Esc, Q or F4 is pressed. Without input devices it logs and
// returns.
func WatchQuitKeys(ctx context.Context, logger Logger, onQuit func()) {
	if onQuit == nil {
		return
	}

	// input_event = timeval + u16 type + u16 code + s32 value.
	tvSize := binary.Size(unix.Timeval{})
	eventSize := tvSize + 2 + 2 + 4

	paths, err := filepath.Glob("/dev/input/event*")
	if err != nil || len(paths) == 0 {
		if logger != nil {
			logger.Infof("input", "no evdev devices found, quit keys disabled")
		}
		return
	}

	var once sync.Once
	trigger := func(code uint16) {
		once.Do(func() {
			if logger != nil {
				logger.Infof("input", "quit key %d pressed", code)
			}
			onQuit()
		})
	}

	for _, path := range paths {
		go watchDevice(ctx, path, tvSize, eventSize, trigger)
	}
}

func watchDevice(ctx context.Context, path string, tvSize, eventSize int, trigger func(uint16)) {
	fd, err := unix.Open(path, unix.O_RDONLY|unix.O_NONBLOCK, 0)
	if err != nil {
		return
	}
	f := os.NewFile(uintptr(fd), path)
	defer func() {
		_ = f.Close()
	}()

	buf := make([]byte, 4096)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		pollFds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
		if _, err := unix.Poll(pollFds, 250); err != nil {
			if err == unix.EINTR {
				continue
			}
			// Device might have gone away.
			return
		}
		if pollFds[0].Revents&unix.POLLIN == 0 {
			continue
		}

		n, err := unix.Read(fd, buf)
		if err != nil {
			if err == unix.EAGAIN || err == unix.EINTR {
				continue
			}
			return
		}

		for off := 0; off+eventSize <= n; off += eventSize {
			rec := buf[off : off+eventSize]
			typ := binary.LittleEndian.Uint16(rec[tvSize : tvSize+2])
			code := binary.LittleEndian.Uint16(rec[tvSize+2 : tvSize+4])
			value := int32(binary.LittleEndian.Uint32(rec[tvSize+4 : tvSize+8]))
			if typ == evKey && value == 1 && quitKeys[code] {
				trigger(code)
				return
			}
		}
	}
}
