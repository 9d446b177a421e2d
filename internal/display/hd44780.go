package display

import (
	"errors"
	"fmt"
	"sync"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
	"tinygo.org/x/drivers"
	"tinygo.org/x/drivers/hd44780i2c"

	"github.com/rook-computer/octolcd/internal/render"
)

// Common PCF8574 backpack addresses, probed in order when none is configured.
var DefaultI2CAddresses = []uint8{0x27, 0x3F}

var ErrNoDevice = errors.New("display: no HD44780 backpack found")

// recordingBus remembers the first failed transaction since the last reset;
// the HD44780 driver itself discards bus errors.
type recordingBus struct {
	bus drivers.I2C

	mu  sync.Mutex
	err error
}

func (b *recordingBus) Tx(addr uint16, w, r []byte) error {
	err := b.bus.Tx(addr, w, r)
	if err != nil {
		b.mu.Lock()
		if b.err == nil {
			b.err = err
		}
		b.mu.Unlock()
	}
	return err
}

func (b *recordingBus) take() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	err := b.err
	b.err = nil
	return err
}

// HD44780 drives a 16x2 character LCD through a PCF8574 I2C backpack.
type HD44780 struct {
	mu     sync.Mutex
	dev    hd44780i2c.Device
	bus    *recordingBus
	closer i2c.BusCloser
	addr   uint8
	col    int
}

// OpenHD44780 initialises the periph host drivers, opens busName ("" for
// the first bus) and configures the display at addr, or at the first
// responding default address when addr is 0.
func OpenHD44780(busName string, addr uint8, logger Logger) (*HD44780, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("display: periph init: %w", err)
	}
	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, fmt.Errorf("display: open i2c bus %q: %w", busName, err)
	}

	candidates := DefaultI2CAddresses
	if addr != 0 {
		candidates = []uint8{addr}
	}
	found, err := probe(bus, candidates)
	if err != nil {
		_ = bus.Close()
		return nil, err
	}
	if logger != nil {
		logger.Infof("lcd", "HD44780 found at 0x%02X on %s", found, bus)
	}

	lcd, err := NewHD44780(bus, found)
	if err != nil {
		_ = bus.Close()
		return nil, err
	}
	lcd.closer = bus
	return lcd, nil
}

// probe returns the first address that acknowledges a one-byte write.
func probe(bus drivers.I2C, candidates []uint8) (uint8, error) {
	var lastErr error
	for _, a := range candidates {
		if err := bus.Tx(uint16(a), []byte{0x00}, nil); err != nil {
			lastErr = err
			continue
		}
		return a, nil
	}
	if lastErr != nil {
		return 0, fmt.Errorf("%w: %v", ErrNoDevice, lastErr)
	}
	return 0, ErrNoDevice
}

// NewHD44780 configures the display at addr on an already open bus.
func NewHD44780(bus drivers.I2C, addr uint8) (*HD44780, error) {
	rec := &recordingBus{bus: bus}
	h := &HD44780{bus: rec, addr: addr, dev: hd44780i2c.New(rec, addr)}
	if err := h.dev.Configure(hd44780i2c.Config{Width: render.Columns, Height: render.Rows}); err != nil {
		return nil, err
	}
	if err := rec.take(); err != nil {
		return nil, fmt.Errorf("display: configure HD44780 at 0x%02X: %w", addr, err)
	}
	return h, nil
}

func (h *HD44780) Clear() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dev.ClearDisplay()
	h.col = 0
	return h.bus.take()
}

// WriteRow prints text from the first column of row, truncated to the width
// so the controller never wraps onto the other line.
func (h *HD44780) WriteRow(row int, text string) error {
	if row < 1 || row > render.Rows {
		return fmt.Errorf("display: row %d out of range", row)
	}
	if len(text) > render.Columns {
		text = text[:render.Columns]
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dev.SetCursor(0, uint8(row-1))
	h.dev.Print([]byte(text))
	h.col = len(text)
	return h.bus.take()
}

func (h *HD44780) DefineGlyph(slot uint8, bitmap [8]byte) error {
	if int(slot) >= MaxGlyphSlots {
		return fmt.Errorf("display: glyph slot %d out of range", slot)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dev.CreateCharacter(slot, bitmap[:])
	return h.bus.take()
}

func (h *HD44780) SetCursor(col, row int) error {
	if col < 0 || col >= render.Columns || row < 0 || row >= render.Rows {
		return fmt.Errorf("display: cursor %d,%d out of range", col, row)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dev.SetCursor(uint8(col), uint8(row))
	h.col = col
	return h.bus.take()
}

// WriteGlyph writes one character code; writes past the last column are
// dropped instead of wrapping.
func (h *HD44780) WriteGlyph(code byte) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.col >= render.Columns {
		return nil
	}
	h.dev.Print([]byte{code})
	h.col++
	return h.bus.take()
}

// Close blanks the display and releases the bus.
func (h *HD44780) Close() error {
	h.mu.Lock()
	h.dev.ClearDisplay()
	err := h.bus.take()
	h.mu.Unlock()
	if h.closer != nil {
		if cerr := h.closer.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
