package render

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/rook-computer/octolcd/internal/metrics"
	"github.com/rook-computer/octolcd/internal/state"
)

// DefaultInterval is the render tick.
const DefaultInterval = 1500 * time.Millisecond

// Sink is a 2x16 character display.
type Sink interface {
	Clear() error
	// WriteRow writes a full row; row is 1 or 2.
	WriteRow(row int, text string) error
	// DefineGlyph stores a custom 5x8 character in slot 0-7.
	DefineGlyph(slot uint8, bitmap [8]byte) error
	// SetCursor moves the write position; col and row are zero-based.
	SetCursor(col, row int) error
	// WriteGlyph writes one raw character code at the cursor and advances it.
	WriteGlyph(code byte) error
	Close() error
}

// SnapshotSource is satisfied by state.Store and the poller.
type SnapshotSource interface {
	Snapshot() *state.Snapshot
}

type Logger interface {
	Infof(component string, format string, args ...interface{})
	Errorf(component string, format string, args ...interface{})
}

// Renderer turns snapshots into frames on a fixed tick and writes them to a
// sink. It never waits on the poller.
type Renderer struct {
	Sink     Sink
	Name     string
	Interval time.Duration
	Logger   Logger
	Metrics  *metrics.Metrics

	// StaleAfter, when positive, logs once each time the snapshot becomes
	// older than this.
	StaleAfter time.Duration

	// Now is the render clock; time.Now when nil.
	Now func() time.Time

	mu          sync.Mutex
	last        Frame
	hasLast     bool
	staleLogged bool

	// writeMu serializes sink writes; LastFrame never waits on it.
	writeMu     sync.Mutex
	written     [Rows]uint64
	haveWritten [Rows]bool
	sinkFailing bool
}

func NewRenderer(sink Sink, name string) *Renderer {
	return &Renderer{Sink: sink, Name: name, Interval: DefaultInterval}
}

// Start clears the display and installs the custom glyphs.
func (r *Renderer) Start() error {
	if err := r.Sink.Clear(); err != nil {
		return err
	}
	if err := InstallGlyphs(r.Sink); err != nil {
		return err
	}
	r.writeMu.Lock()
	r.haveWritten = [Rows]bool{}
	r.writeMu.Unlock()
	if r.Logger != nil {
		r.Logger.Infof("render", "display ready, %d glyphs installed", len(Glyphs))
	}
	return nil
}

// RunLoop renders immediately and then once per Interval until ctx is done.
func (r *Renderer) RunLoop(ctx context.Context, src SnapshotSource) {
	interval := r.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	r.RenderOnce(src, r.now())
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.RenderOnce(src, r.now())
		}
	}
}

// RenderOnce composes the frame for now and writes the rows that changed
// since the last successful write. A skipped row or a failed write affects
// that row only.
func (r *Renderer) RenderOnce(src SnapshotSource, now time.Time) Frame {
	snap := src.Snapshot()
	frame := Compose(snap, now, r.Name)
	r.Metrics.ObserveFrame(snap.Age(now))
	r.noteStaleness(snap, now)

	r.mu.Lock()
	r.last = frame
	r.hasLast = true
	r.mu.Unlock()

	r.writeMu.Lock()
	defer r.writeMu.Unlock()
	r.writeRow(1, frame.Row1)
	r.writeRow(2, frame.Row2)
	return frame
}

// LastFrame returns the most recently composed frame.
func (r *Renderer) LastFrame() (Frame, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last, r.hasLast
}

// writeRow must be called with writeMu held.
func (r *Renderer) writeRow(row int, content Row) {
	idx := row - 1
	if content.Kind == RowSkip {
		r.Metrics.RowSkipped(strconv.Itoa(row))
		return
	}
	digest := rowDigest(content)
	if r.haveWritten[idx] && r.written[idx] == digest {
		return
	}

	var err error
	switch content.Kind {
	case RowText:
		err = r.Sink.WriteRow(row, content.Text)
	case RowCells:
		err = r.writeCells(idx, content.Cells)
	}
	if err != nil {
		r.haveWritten[idx] = false
		r.Metrics.SinkError()
		if !r.sinkFailing && r.Logger != nil {
			r.Logger.Errorf("render", "display write row %d: %v", row, err)
		}
		r.sinkFailing = true
		return
	}
	if r.sinkFailing && r.Logger != nil {
		r.Logger.Infof("render", "display writes recovered")
	}
	r.sinkFailing = false
	r.written[idx] = digest
	r.haveWritten[idx] = true
}

func (r *Renderer) writeCells(rowIdx int, cells []byte) error {
	if err := r.Sink.SetCursor(0, rowIdx); err != nil {
		return err
	}
	for _, c := range cells {
		if err := r.Sink.WriteGlyph(c); err != nil {
			return err
		}
	}
	return nil
}

func (r *Renderer) noteStaleness(snap *state.Snapshot, now time.Time) {
	if r.StaleAfter <= 0 {
		return
	}
	stale := snap.Age(now) > r.StaleAfter
	r.mu.Lock()
	logIt := stale && !r.staleLogged
	r.staleLogged = stale
	r.mu.Unlock()
	if logIt && r.Logger != nil {
		r.Logger.Infof("render", "status data is stale, last fetched %s", humanize.RelTime(snap.FetchedAt, now, "ago", "from now"))
	}
}

func (r *Renderer) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}
