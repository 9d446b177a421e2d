package render

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/rook-computer/octolcd/internal/state"
)

const deviceName = "Oleandri Printer"

func printerDoc(printing bool, text string) *state.PrinterDoc {
	return &state.PrinterDoc{
		State: state.PrinterState{Text: text, Flags: state.PrinterFlags{Printing: printing, Operational: true}},
		Temperature: state.Temperatures{
			Tool0: &state.Temp{Actual: floatp(214.8), Target: floatp(215)},
			Bed:   &state.Temp{Actual: floatp(59.94), Target: floatp(0)},
		},
	}
}

func jobDoc(completion float64, left *int) *state.JobDoc {
	return &state.JobDoc{Progress: state.JobProgress{Completion: floatp(completion), PrintTimeLeft: left}}
}

func TestComposeNoData(t *testing.T) {
	want := []string{
		"  . starting .  ",
		" .. starting .. ",
		"... starting ...",
	}
	for page := 0; page < 3; page++ {
		now := atPage(page)
		for _, snap := range []*state.Snapshot{
			{FetchedAt: now},
			{Job: jobDoc(10, intp(60)), FetchedAt: now},
		} {
			frame := Compose(snap, now, deviceName)
			if frame.Row1.Kind != RowText || frame.Row1.Text != deviceName {
				t.Fatalf("page %d: row1 = %+v", page, frame.Row1)
			}
			if frame.Row2.Kind != RowText || frame.Row2.Text != want[page] {
				t.Fatalf("page %d: row2 = %q, want %q", page, frame.Row2.Text, want[page])
			}
		}
	}
}

func TestComposePrintingRowOne(t *testing.T) {
	now := atPage(1)
	snap := &state.Snapshot{
		Printer:   printerDoc(true, "Printing"),
		Job:       jobDoc(42.5, intp(90)),
		FetchedAt: now.Add(-5 * time.Second),
	}
	frame := Compose(snap, now, deviceName)
	if want := "42.5%    \x00 01:25"; frame.Row1.Text != want {
		t.Fatalf("row1 = %q, want %q", frame.Row1.Text, want)
	}
	if len(frame.Row1.Text) != Columns {
		t.Fatalf("row1 width %d", len(frame.Row1.Text))
	}
}

func TestComposePrintingRowOneFitsAtFullCompletion(t *testing.T) {
	now := atPage(0)
	for _, completion := range []float64{99.96, 100} {
		snap := &state.Snapshot{Printer: printerDoc(true, "Printing"), Job: jobDoc(completion, intp(0)), FetchedAt: now}
		frame := Compose(snap, now, deviceName)
		if len(frame.Row1.Text) != Columns {
			t.Fatalf("completion %v: row1 %q is %d wide", completion, frame.Row1.Text, len(frame.Row1.Text))
		}
		if want := "100.0%      \x00 0s"; frame.Row1.Text != want {
			t.Fatalf("completion %v: row1 = %q, want %q", completion, frame.Row1.Text, want)
		}
	}
	long := &state.Snapshot{Printer: printerDoc(true, "Printing"), Job: jobDoc(100, intp(36000)), FetchedAt: now}
	if got := Compose(long, now, deviceName).Row1.Text; len(got) != Columns {
		t.Fatalf("row1 %q is %d wide", got, len(got))
	}
}

func TestComposePrintingUnknownTimeLeft(t *testing.T) {
	now := atPage(0)
	snap := &state.Snapshot{Printer: printerDoc(true, "Printing"), Job: jobDoc(3, nil), FetchedAt: now}
	frame := Compose(snap, now, deviceName)
	if want := "3.0%      \x00 N/A "; frame.Row1.Text != want {
		t.Fatalf("row1 = %q, want %q", frame.Row1.Text, want)
	}
}

func TestComposeIdleRowOneAlternates(t *testing.T) {
	snap := &state.Snapshot{Printer: printerDoc(false, "Operational"), Job: jobDoc(0, nil)}
	if got := Compose(snap, atPage(0), deviceName).Row1.Text; got != "  Operational   " {
		t.Fatalf("page 0 row1 = %q", got)
	}
	for _, page := range []int{1, 2} {
		if got := Compose(snap, atPage(page), deviceName).Row1.Text; got != deviceName {
			t.Fatalf("page %d row1 = %q", page, got)
		}
	}
}

func TestComposePrintingWithoutJobFallsBackToIdle(t *testing.T) {
	snap := &state.Snapshot{Printer: printerDoc(true, "Printing")}
	frame := Compose(snap, atPage(0), deviceName)
	if frame.Row1.Text != "    Printing    " {
		t.Fatalf("row1 = %q", frame.Row1.Text)
	}
	frame = Compose(snap, atPage(2), deviceName)
	if frame.Row2.Text != "No print started" {
		t.Fatalf("row2 = %q", frame.Row2.Text)
	}
}

func TestComposeRowTwoRotation(t *testing.T) {
	now := atPage(0)
	snap := &state.Snapshot{Printer: printerDoc(true, "Printing"), Job: jobDoc(50, intp(600)), FetchedAt: now}

	tool := Compose(snap, atPage(0), deviceName).Row2
	if want := "\x02 215\x01/215\x01     "; tool.Text != want {
		t.Fatalf("tool row = %q, want %q", tool.Text, want)
	}
	bed := Compose(snap, atPage(1), deviceName).Row2
	if want := "\x03 59.9\x01         "; bed.Text != want {
		t.Fatalf("bed row = %q, want %q", bed.Text, want)
	}
	bar := Compose(snap, atPage(2), deviceName).Row2
	if bar.Kind != RowCells {
		t.Fatalf("expected progress bar cells, got %v", bar.Kind)
	}
	if !bytes.Equal(bar.Cells, ProgressCells(50)) {
		t.Fatalf("bar cells = %q", bar.Cells)
	}
}

func TestComposeIdleProgressPage(t *testing.T) {
	snap := &state.Snapshot{Printer: printerDoc(false, "Operational"), Job: jobDoc(100, intp(0))}
	row := Compose(snap, atPage(2), deviceName).Row2
	if row.Kind != RowText || row.Text != "No print started" {
		t.Fatalf("row2 = %+v", row)
	}
}

func TestComposeMissingTemperaturesSkipsRowTwoOnly(t *testing.T) {
	printer := printerDoc(false, "Operational")
	printer.Temperature.Tool0 = nil
	printer.Temperature.Bed.Actual = nil
	snap := &state.Snapshot{Printer: printer}

	frame := Compose(snap, atPage(0), deviceName)
	if frame.Row1.Kind != RowText || frame.Row1.Text != "  Operational   " {
		t.Fatalf("row1 must still render, got %+v", frame.Row1)
	}
	if frame.Row2.Kind != RowSkip || !errors.Is(frame.Row2.Err, ErrNoTempBlock) {
		t.Fatalf("expected skipped row2 for missing tool block, got %+v", frame.Row2)
	}
	frame = Compose(snap, atPage(1), deviceName)
	if frame.Row2.Kind != RowSkip || !errors.Is(frame.Row2.Err, ErrNoTempBlock) {
		t.Fatalf("expected skipped row2 for missing tool block, got %+v", frame.Row2)
	}

	printer = printerDoc(false, "Operational")
	printer.Temperature.Bed.Actual = nil
	frame = Compose(&state.Snapshot{Printer: printer}, atPage(1), deviceName)
	if frame.Row2.Kind != RowSkip || !errors.Is(frame.Row2.Err, ErrNoBedTemp) {
		t.Fatalf("expected skipped row2 for null bed temp, got %+v", frame.Row2)
	}
	if got := Compose(&state.Snapshot{Printer: printer}, atPage(0), deviceName).Row2; got.Kind != RowText {
		t.Fatalf("null bed temp must not hide the tool page, got %+v", got)
	}
}

func TestComposeMissingBedBlockSkipsEveryPage(t *testing.T) {
	printer := printerDoc(true, "Printing")
	printer.Temperature.Bed = nil
	snap := &state.Snapshot{Printer: printer, Job: jobDoc(50, intp(600))}
	for page := 0; page < 3; page++ {
		frame := Compose(snap, atPage(page), deviceName)
		if frame.Row2.Kind != RowSkip || !errors.Is(frame.Row2.Err, ErrNoTempBlock) {
			t.Fatalf("page %d: row2 = %+v, want skip", page, frame.Row2)
		}
		if frame.Row1.Kind != RowText {
			t.Fatalf("page %d: row1 must still render, got %+v", page, frame.Row1)
		}
	}
}

func TestComposeJobFetchFailed(t *testing.T) {
	snap := &state.Snapshot{Printer: printerDoc(false, "Operational")}
	for page := 0; page < 3; page++ {
		frame := Compose(snap, atPage(page), deviceName)
		if frame.Row1.Kind != RowText || len(frame.Row1.Text) != Columns {
			t.Fatalf("page %d: row1 = %+v", page, frame.Row1)
		}
		if frame.Row2.Kind == RowSkip {
			t.Fatalf("page %d: row2 unexpectedly skipped: %v", page, frame.Row2.Err)
		}
	}
}

func TestComposeIsIdempotent(t *testing.T) {
	now := atPage(2).Add(3 * time.Second)
	snap := &state.Snapshot{Printer: printerDoc(true, "Printing"), Job: jobDoc(66.6, intp(4000)), FetchedAt: now.Add(-2 * time.Second)}
	a := Compose(snap, now, deviceName)
	b := Compose(snap, now, deviceName)
	if a.Row1.Text != b.Row1.Text || !bytes.Equal(a.Row2.Bytes(), b.Row2.Bytes()) {
		t.Fatalf("frames differ: %+v vs %+v", a, b)
	}
	if a.Digest() != b.Digest() {
		t.Fatalf("digests differ for identical frames")
	}
	c := Compose(snap, now.Add(time.Second), deviceName)
	if c.Digest() == a.Digest() {
		t.Fatalf("expected digest to change with the countdown")
	}
}

func TestComposeSanitizesStatusText(t *testing.T) {
	snap := &state.Snapshot{Printer: printerDoc(false, "Bereit für Druck")}
	if got := Compose(snap, atPage(0), deviceName).Row1.Text; got != "Bereit f?r Druck" {
		t.Fatalf("row1 = %q", got)
	}
}
