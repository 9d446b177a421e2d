//go:build linux && cgo

package display

import (
	"context"
	"image"
	"sync"
	"time"

	fb "github.com/gonutz/framebuffer"

	"github.com/rook-computer/octolcd/internal/system"
)

const framebufferRefresh = time.Second / 10

// Framebuffer shows the character grid as a simulated LCD on a Linux
// framebuffer, for boards with an HDMI or SPI panel instead of an HD44780.
type Framebuffer struct {
	*Memory

	Logger Logger

	dev    *fb.Device
	canvas *image.RGBA
	panel  *Panel
	drawn  uint64

	quit     chan struct{}
	quitOnce sync.Once
}

// OpenFramebuffer opens device (usually /dev/fb0) and switches the console
// to graphics mode.
func OpenFramebuffer(device, qrPayload string, logger Logger) (*Framebuffer, error) {
	dev, err := fb.Open(device)
	if err != nil {
		return nil, err
	}
	if logger != nil {
		bounds := dev.Bounds()
		logger.Infof("fb", "framebuffer %s open, bounds=%dx%d", device, bounds.Dx(), bounds.Dy())
	}
	system.EnterGraphics(logger)
	return &Framebuffer{
		Memory: NewMemory(),
		Logger: logger,
		dev:    dev,
		canvas: image.NewRGBA(image.Rect(0, 0, CanvasWidth, CanvasHeight)),
		panel:  NewPanel(qrPayload, logger),
		quit:   make(chan struct{}),
	}, nil
}

// Run redraws at most every 100ms when the grid changed, and watches the
// keyboard for a quit key, until ctx is done.
func (f *Framebuffer) Run(ctx context.Context) error {
	system.WatchQuitKeys(ctx, f.Logger, func() {
		f.quitOnce.Do(func() { close(f.quit) })
	})

	ticker := time.NewTicker(framebufferRefresh)
	defer ticker.Stop()
	for {
		f.redraw()
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Done is closed when a quit key was pressed.
func (f *Framebuffer) Done() <-chan struct{} { return f.quit }

func (f *Framebuffer) redraw() {
	v := f.Memory.Version()
	if v == f.drawn {
		return
	}
	f.panel.Draw(f.canvas, f.Memory)
	scaleInto(f.dev, f.canvas)
	f.drawn = v
}

// Close blanks the panel and hands the console back to text mode.
func (f *Framebuffer) Close() error {
	_ = f.Memory.Clear()
	f.redraw()
	system.LeaveGraphics(f.Logger)
	f.dev.Close()
	return nil
}
