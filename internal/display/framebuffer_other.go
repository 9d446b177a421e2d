//go:build !linux || !cgo

package display

import (
	"context"
	"errors"
)

// Framebuffer is only available on Linux.
type Framebuffer struct {
	*Memory
}

func OpenFramebuffer(device, qrPayload string, logger Logger) (*Framebuffer, error) {
	return nil, errors.New("display: framebuffer driver requires linux")
}

func (f *Framebuffer) Run(ctx context.Context) error { return nil }

func (f *Framebuffer) Done() <-chan struct{} { return nil }
