package render

import (
	"errors"
	"time"

	"github.com/zeebo/xxh3"

	"github.com/rook-computer/octolcd/internal/render/layout"
	"github.com/rook-computer/octolcd/internal/state"
)

// RowKind says how a row is written to the display.
type RowKind uint8

const (
	// RowText is Columns cells of text, written with Sink.WriteRow.
	RowText RowKind = iota
	// RowCells is Columns raw character codes, written cell by cell.
	RowCells
	// RowSkip leaves the physical row as it is; Err explains why.
	RowSkip
)

func (k RowKind) String() string {
	switch k {
	case RowText:
		return "text"
	case RowCells:
		return "cells"
	case RowSkip:
		return "skip"
	default:
		return "unknown"
	}
}

var (
	ErrNoToolTemp  = errors.New("tool temperature unavailable")
	ErrNoBedTemp   = errors.New("bed temperature unavailable")
	ErrNoTempBlock = errors.New("temperature block missing")
)

type Row struct {
	Kind  RowKind
	Text  string
	Cells []byte
	Err   error
}

func textRow(s string) Row { return Row{Kind: RowText, Text: layout.PadRight(s, Columns)} }

func skipRow(err error) Row { return Row{Kind: RowSkip, Err: err} }

// Bytes returns the cells of the row as they appear on the display, or nil
// for a skipped row.
func (r Row) Bytes() []byte {
	switch r.Kind {
	case RowText:
		return []byte(r.Text)
	case RowCells:
		return append([]byte(nil), r.Cells...)
	default:
		return nil
	}
}

// Frame is everything one render tick writes.
type Frame struct {
	Row1 Row
	Row2 Row
	Page int
}

// Digest identifies the visible content of the frame.
func (f Frame) Digest() uint64 {
	buf := make([]byte, 0, 2*(Columns+1))
	buf = append(buf, byte(f.Row1.Kind))
	buf = append(buf, f.Row1.Bytes()...)
	buf = append(buf, byte(f.Row2.Kind))
	buf = append(buf, f.Row2.Bytes()...)
	return xxh3.Hash(buf)
}

func rowDigest(r Row) uint64 {
	return xxh3.Hash(append([]byte{byte(r.Kind)}, r.Bytes()...))
}

// Compose derives the frame for now from a snapshot. It depends on nothing
// but its arguments.
func Compose(snap *state.Snapshot, now time.Time, name string) Frame {
	page := PageAt(now)
	frame := Frame{Page: page}
	name = layout.ASCII(name)

	if !snap.HasData() {
		frame.Row1 = textRow(name)
		frame.Row2 = textRow(StartingIndicator(page))
		return frame
	}

	printer := snap.Printer
	var progress *state.JobProgress
	if printer.Printing() && snap.Job != nil && snap.Job.Progress.Completion != nil {
		progress = &snap.Job.Progress
	}

	switch {
	case progress != nil:
		frame.Row1 = textRow(progressLine(*progress, snap.FetchedAt, now))
	case page == 0:
		frame.Row1 = textRow(layout.Center(layout.ASCII(printer.State.Text), Columns))
	default:
		frame.Row1 = textRow(name)
	}

	frame.Row2 = secondRow(printer.Temperature, progress, page)
	return frame
}

// secondRow needs both heater blocks on every page; a null actual only
// matters on the page that shows it.
func secondRow(temps state.Temperatures, progress *state.JobProgress, page int) Row {
	if temps.Tool0 == nil || temps.Bed == nil {
		return skipRow(ErrNoTempBlock)
	}
	switch page {
	case 0:
		if temps.Tool0.Actual == nil {
			return skipRow(ErrNoToolTemp)
		}
		return textRow(glyphString(SlotThermometer) + " " + FormatTemp("%3.0f", *temps.Tool0.Actual, temps.Tool0.Target))
	case 1:
		if temps.Bed.Actual == nil {
			return skipRow(ErrNoBedTemp)
		}
		return textRow(glyphString(SlotHeater) + " " + FormatTemp("%2.1f", *temps.Bed.Actual, temps.Bed.Target))
	default:
		if progress == nil {
			return textRow("No print started")
		}
		return Row{Kind: RowCells, Cells: ProgressCells(*progress.Completion)}
	}
}
