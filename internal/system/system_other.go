//go:build !linux

// Package system wraps the Linux console and input devices used by the
// framebuffer display.
package system

import (
	"context"
	"errors"
)

var errUnsupported = errors.New("system: console control requires linux")

type Logger interface {
	Infof(component string, format string, args ...interface{})
	Errorf(component string, format string, args ...interface{})
}

func SetGraphicsMode() error { return errUnsupported }
func RestoreTextMode() error { return errUnsupported }
func HideCursor() error      { return errUnsupported }
func ShowCursor() error      { return errUnsupported }

func EnterGraphics(Logger) {}
func LeaveGraphics(Logger) {}

func WatchQuitKeys(ctx context.Context, logger Logger, onQuit func()) {}
