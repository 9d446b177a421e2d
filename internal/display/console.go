package display

import (
	"context"
	"sync"

	"github.com/gdamore/tcell/v2"

	"github.com/rook-computer/octolcd/internal/render"
)

const (
	consoleLeft = 2
	consoleTop  = 1
)

var (
	consoleFrame = tcell.StyleDefault.Foreground(tcell.ColorGray)
	consoleCells = tcell.StyleDefault.Background(tcell.ColorDarkOliveGreen).Foreground(tcell.ColorBlack)
	consoleHelp  = tcell.StyleDefault.Foreground(tcell.ColorGray).Dim(true)
)

// Console draws the 16x2 grid in a terminal, for development machines.
type Console struct {
	*Memory

	mu     sync.Mutex
	screen tcell.Screen
	title  string
	closed bool

	quit     chan struct{}
	quitOnce sync.Once
	finiOnce sync.Once
}

// OpenConsole takes over the controlling terminal.
func OpenConsole(title string) (*Console, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, err
	}
	return NewConsole(screen, title)
}

// NewConsole initialises screen and draws the empty panel.
func NewConsole(screen tcell.Screen, title string) (*Console, error) {
	if err := screen.Init(); err != nil {
		return nil, err
	}
	screen.HideCursor()
	c := &Console{Memory: NewMemory(), screen: screen, title: title, quit: make(chan struct{})}
	c.draw()
	return c, nil
}

func (c *Console) Clear() error {
	_ = c.Memory.Clear()
	c.draw()
	return nil
}

func (c *Console) WriteRow(row int, text string) error {
	if err := c.Memory.WriteRow(row, text); err != nil {
		return err
	}
	c.draw()
	return nil
}

func (c *Console) WriteGlyph(code byte) error {
	_ = c.Memory.WriteGlyph(code)
	c.draw()
	return nil
}

// Run handles terminal events until ctx is done or a quit key is pressed.
func (c *Console) Run(ctx context.Context) error {
	go func() {
		select {
		case <-ctx.Done():
			c.fini()
		case <-c.quit:
		}
	}()
	for {
		ev := c.screen.PollEvent()
		switch ev := ev.(type) {
		case nil:
			return nil
		case *tcell.EventResize:
			c.mu.Lock()
			if !c.closed {
				c.screen.Sync()
			}
			c.mu.Unlock()
			c.draw()
		case *tcell.EventKey:
			if isQuitKey(ev) {
				c.quitOnce.Do(func() { close(c.quit) })
				return nil
			}
		}
	}
}

// Done is closed when the user pressed q, Esc or Ctrl-C.
func (c *Console) Done() <-chan struct{} { return c.quit }

func (c *Console) Close() error {
	c.fini()
	return nil
}

func (c *Console) fini() {
	c.finiOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.screen.Fini()
		c.mu.Unlock()
	})
}

func isQuitKey(ev *tcell.EventKey) bool {
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return true
	case tcell.KeyRune:
		return ev.Rune() == 'q' || ev.Rune() == 'Q'
	}
	return false
}

func (c *Console) draw() {
	lines := c.Memory.Lines()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	s := c.screen
	s.Clear()

	right := consoleLeft + render.Columns + 1
	bottom := consoleTop + render.Rows + 1
	for x := consoleLeft + 1; x < right; x++ {
		s.SetContent(x, consoleTop, tcell.RuneHLine, nil, consoleFrame)
		s.SetContent(x, bottom, tcell.RuneHLine, nil, consoleFrame)
	}
	for y := consoleTop + 1; y < bottom; y++ {
		s.SetContent(consoleLeft, y, tcell.RuneVLine, nil, consoleFrame)
		s.SetContent(right, y, tcell.RuneVLine, nil, consoleFrame)
	}
	s.SetContent(consoleLeft, consoleTop, tcell.RuneULCorner, nil, consoleFrame)
	s.SetContent(right, consoleTop, tcell.RuneURCorner, nil, consoleFrame)
	s.SetContent(consoleLeft, bottom, tcell.RuneLLCorner, nil, consoleFrame)
	s.SetContent(right, bottom, tcell.RuneLRCorner, nil, consoleFrame)

	for i, r := range []rune(" " + c.title + " ") {
		s.SetContent(consoleLeft+2+i, consoleTop, r, nil, consoleFrame)
	}
	for row, line := range lines {
		for col := 0; col < len(line); col++ {
			s.SetContent(consoleLeft+1+col, consoleTop+1+row, render.PrintableRune(line[col]), nil, consoleCells)
		}
	}
	for i, r := range "q to quit" {
		s.SetContent(consoleLeft+i, bottom+1, r, nil, consoleHelp)
	}
	s.Show()
}
