// Package display implements render.Sink for the supported output devices.
package display

import (
	"fmt"
	"sync"

	"github.com/rook-computer/octolcd/internal/render"
)

const (
	// MaxGlyphSlots is the size of an HD44780 character generator RAM.
	MaxGlyphSlots = 8
)

// Memory is a 2x16 character grid with HD44780 cursor semantics: writes past
// the last column are dropped. It backs the console and framebuffer sinks
// and serves as a headless display.
type Memory struct {
	mu      sync.Mutex
	cells   [render.Rows][render.Columns]byte
	glyphs  [MaxGlyphSlots][8]byte
	defined [MaxGlyphSlots]bool
	col     int
	row     int
	version uint64
}

func NewMemory() *Memory {
	m := &Memory{}
	m.clearLocked()
	return m
}

func (m *Memory) Clear() error {
	m.mu.Lock()
	m.clearLocked()
	m.mu.Unlock()
	return nil
}

func (m *Memory) clearLocked() {
	for r := range m.cells {
		for c := range m.cells[r] {
			m.cells[r][c] = ' '
		}
	}
	m.col, m.row = 0, 0
	m.version++
}

func (m *Memory) WriteRow(row int, text string) error {
	if row < 1 || row > render.Rows {
		return fmt.Errorf("display: row %d out of range", row)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	n := copy(m.cells[row-1][:], text)
	m.col, m.row = n, row-1
	m.version++
	return nil
}

func (m *Memory) DefineGlyph(slot uint8, bitmap [8]byte) error {
	if int(slot) >= MaxGlyphSlots {
		return fmt.Errorf("display: glyph slot %d out of range", slot)
	}
	m.mu.Lock()
	m.glyphs[slot] = bitmap
	m.defined[slot] = true
	m.version++
	m.mu.Unlock()
	return nil
}

func (m *Memory) SetCursor(col, row int) error {
	if col < 0 || col >= render.Columns || row < 0 || row >= render.Rows {
		return fmt.Errorf("display: cursor %d,%d out of range", col, row)
	}
	m.mu.Lock()
	m.col, m.row = col, row
	m.mu.Unlock()
	return nil
}

func (m *Memory) WriteGlyph(code byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.col < render.Columns {
		m.cells[m.row][m.col] = code
		m.version++
	}
	m.col++
	return nil
}

func (m *Memory) Close() error { return nil }

// Lines returns the raw cell bytes of both rows.
func (m *Memory) Lines() [render.Rows]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out [render.Rows]string
	for r := range m.cells {
		out[r] = string(m.cells[r][:])
	}
	return out
}

// Glyph returns the bitmap stored in slot, if one was defined.
func (m *Memory) Glyph(slot uint8) ([8]byte, bool) {
	if int(slot) >= MaxGlyphSlots {
		return [8]byte{}, false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.glyphs[slot], m.defined[slot]
}

// Version increases on every visible change; sinks that redraw lazily
// compare it against the last version they drew.
func (m *Memory) Version() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.version
}
