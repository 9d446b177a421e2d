package display

import (
	"context"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/rook-computer/octolcd/internal/render"
)

func newSimConsole(t *testing.T) (*Console, tcell.SimulationScreen) {
	t.Helper()
	screen := tcell.NewSimulationScreen("UTF-8")
	c, err := NewConsole(screen, "octolcd")
	if err != nil {
		t.Fatalf("NewConsole() error: %v", err)
	}
	screen.SetSize(40, 10)
	return c, screen
}

func cellAt(s tcell.Screen, col, row int) rune {
	r, _, _, _ := s.GetContent(consoleLeft+1+col, consoleTop+1+row)
	return r
}

func TestConsoleDrawsRowsAndGlyphs(t *testing.T) {
	c, screen := newSimConsole(t)
	defer c.Close()

	if err := c.WriteRow(1, "42.5%    \x00 01:25"); err != nil {
		t.Fatalf("WriteRow() error: %v", err)
	}
	if got := cellAt(screen, 0, 0); got != '4' {
		t.Fatalf("cell 0,0 = %q", got)
	}
	if got := cellAt(screen, 10, 0); got != '◷' {
		t.Fatalf("clock glyph rendered as %q", got)
	}

	_ = c.SetCursor(0, 1)
	for _, b := range render.ProgressCells(50) {
		_ = c.WriteGlyph(b)
	}
	if got := cellAt(screen, 0, 1); got != tcell.RuneBlock {
		t.Fatalf("filled box rendered as %q", got)
	}
	if got := cellAt(screen, 9, 1); got != '>' {
		t.Fatalf("cursor rendered as %q", got)
	}
}

func TestConsoleQuitKey(t *testing.T) {
	c, screen := newSimConsole(t)
	defer c.Close()

	done := make(chan error, 1)
	go func() { done <- c.Run(context.Background()) }()
	screen.InjectKey(tcell.KeyRune, 'q', tcell.ModNone)

	select {
	case <-c.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("quit key did not close Done()")
	}
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run() error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Run() did not return")
	}
}

func TestConsoleRunStopsOnCancel(t *testing.T) {
	c, _ := newSimConsole(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("Run() did not return after cancel")
	}
	_ = c.Close()
}
