package web

import (
	"net/http"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	jsoniter "github.com/json-iterator/go"

	"github.com/rook-computer/octolcd/internal/render"
	"github.com/rook-computer/octolcd/internal/state"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type apiError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type snapshotResponse struct {
	Printer    *state.PrinterDoc `json:"printer"`
	Job        *state.JobDoc     `json:"job"`
	HasData    bool              `json:"hasData"`
	FetchedAt  *time.Time        `json:"fetchedAt"`
	AgeSeconds float64           `json:"ageSeconds"`
	Age        string            `json:"age"`
}

type frameRow struct {
	Kind string `json:"kind"`
	// Text is the row with glyphs mapped to Unicode; empty when skipped.
	Text  string `json:"text"`
	Raw   []byte `json:"raw,omitempty"`
	Error string `json:"error,omitempty"`
}

type frameResponse struct {
	Page   int        `json:"page"`
	Rows   []frameRow `json:"rows"`
	Digest string     `json:"digest"`
}

type healthResponse struct {
	OK         bool    `json:"ok"`
	HasData    bool    `json:"hasData"`
	AgeSeconds float64 `json:"ageSeconds"`
}

func apiV1Router(deps APIV1Deps) http.Handler {
	deps = deps.withDefaults()
	mux := http.NewServeMux()
	mux.HandleFunc("/snapshot", func(w http.ResponseWriter, r *http.Request) { handleSnapshot(w, r, deps) })
	mux.HandleFunc("/frame", func(w http.ResponseWriter, r *http.Request) { handleFrame(w, r, deps) })
	return mux
}

func handleSnapshot(w http.ResponseWriter, r *http.Request, deps APIV1Deps) {
	if r.Method != http.MethodGet {
		writeAPIError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}
	now := deps.Now()
	snap := deps.Snapshots.Snapshot()
	resp := snapshotResponse{
		Printer:    snap.Printer,
		Job:        snap.Job,
		HasData:    snap.HasData(),
		AgeSeconds: snap.Age(now).Seconds(),
		Age:        "never",
	}
	if !snap.FetchedAt.IsZero() {
		fetched := snap.FetchedAt.UTC()
		resp.FetchedAt = &fetched
		resp.Age = humanize.RelTime(snap.FetchedAt, now, "ago", "from now")
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleFrame serves the rows last composed for the display. The ETag is
// the frame digest, so pollers get 304 until the display content changes.
func handleFrame(w http.ResponseWriter, r *http.Request, deps APIV1Deps) {
	if r.Method != http.MethodGet {
		writeAPIError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
		return
	}
	frame, ok := deps.Frames.LastFrame()
	if !ok {
		writeAPIError(w, http.StatusServiceUnavailable, "no_frame", "nothing rendered yet")
		return
	}

	digest := strconv.FormatUint(frame.Digest(), 16)
	etag := `"` + digest + `"`
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "no-cache")
	if match := r.Header.Get("If-None-Match"); match != "" && match == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	resp := frameResponse{
		Page:   frame.Page,
		Rows:   []frameRow{toFrameRow(frame.Row1), toFrameRow(frame.Row2)},
		Digest: digest,
	}
	writeJSON(w, http.StatusOK, resp)
}

func toFrameRow(row render.Row) frameRow {
	out := frameRow{Kind: row.Kind.String()}
	if row.Kind == render.RowSkip {
		if row.Err != nil {
			out.Error = row.Err.Error()
		}
		return out
	}
	raw := row.Bytes()
	out.Text = render.Printable(raw)
	out.Raw = raw
	return out
}

func handleHealth(w http.ResponseWriter, r *http.Request, deps APIV1Deps) {
	snap := deps.Snapshots.Snapshot()
	writeJSON(w, http.StatusOK, healthResponse{
		OK:         true,
		HasData:    snap.HasData(),
		AgeSeconds: snap.Age(deps.Now()).Seconds(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeAPIError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, apiError{Error: code, Message: message})
}
