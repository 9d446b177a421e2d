package render

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rook-computer/octolcd/internal/render/layout"
	"github.com/rook-computer/octolcd/internal/state"
)

const (
	Columns = 16
	Rows    = 2

	pageSeconds = 8
	pageCount   = 3

	barBoxes = 15
)

// PageAt selects the rotating content page, changing every eight seconds.
func PageAt(now time.Time) int {
	secs := now.Unix()
	page := (secs / pageSeconds) % pageCount
	if page < 0 {
		page += pageCount
	}
	return int(page)
}

// ExtrapolateTimeLeft moves a server estimate taken at fetchedAt forward to
// now. The result never goes below zero; nil stays nil.
func ExtrapolateTimeLeft(left *int, fetchedAt, now time.Time) *int {
	if left == nil {
		return nil
	}
	elapsed := now.Sub(fetchedAt).Seconds()
	adjusted := int(math.RoundToEven(float64(*left) - elapsed))
	if adjusted < 0 {
		adjusted = 0
	}
	return &adjusted
}

// FormatTimeLeft renders seconds as "45s", "02:05" or "1:02:05".
func FormatTimeLeft(seconds *int) string {
	if seconds == nil {
		return "N/A"
	}
	s := *seconds
	switch {
	case s < 60:
		return fmt.Sprintf("%ds", s)
	case s < 3600:
		return fmt.Sprintf("%02d:%02d", s/60, s%60)
	default:
		return fmt.Sprintf("%d:%02d:%02d", s/3600, (s/60)%60, s%60)
	}
}

// FormatTemp renders an actual temperature and, when target is set and
// non-zero, "/target". Both use the given verb, followed by the degree glyph.
func FormatTemp(verb string, actual float64, target *float64) string {
	deg := glyphString(SlotDegree)
	out := fmt.Sprintf(verb, actual) + deg
	if target != nil && *target != 0 {
		out += "/" + fmt.Sprintf(verb, *target) + deg
	}
	return out
}

// ProgressBoxes is the number of filled cells for a completion percentage:
// one at 0%, sixteen at 100%.
func ProgressBoxes(completion float64) int {
	if math.IsNaN(completion) || completion < 0 {
		completion = 0
	}
	if completion > 100 {
		completion = 100
	}
	return int(math.RoundToEven(completion/100*barBoxes)) + 1
}

// ProgressCells lays out a full row: filled boxes, the cursor, then spaces.
// The row is cut at Columns cells, so a full bar hides the cursor.
func ProgressCells(completion float64) []byte {
	n := ProgressBoxes(completion)
	cells := make([]byte, 0, Columns+1)
	for i := 0; i < n; i++ {
		cells = append(cells, CodeFilledBox)
	}
	cells = append(cells, CodeCursor)
	for len(cells) < Columns {
		cells = append(cells, ' ')
	}
	return cells[:Columns]
}

// StartingIndicator is the animated row shown while no printer data exists.
func StartingIndicator(page int) string {
	dots := strings.Repeat(".", page+1)
	return strings.Repeat(" ", 2-page) + dots + " starting " + dots
}

const timeFieldWidth = 10

func progressLine(progress state.JobProgress, fetchedAt, now time.Time) string {
	left := ExtrapolateTimeLeft(progress.PrintTimeLeft, fetchedAt, now)
	timeLeft := glyphString(SlotClock) + " " + FormatTimeLeft(left)
	// "100.0% " is one cell wider than the usual prefix; the time field
	// gives up the difference so the row stays 16 cells.
	prefix := fmt.Sprintf("%2.1f%% ", *progress.Completion)
	width := min(timeFieldWidth, Columns-len(prefix))
	return layout.Truncate(prefix+layout.RightJustify(timeLeft, width), Columns)
}
