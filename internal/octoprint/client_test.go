package octoprint

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const printerBody = `{
  "state": {"text": "Printing", "flags": {"operational": true, "printing": true}},
  "temperature": {
    "tool0": {"actual": 214.8, "target": 215.0, "offset": 0},
    "bed": {"actual": 59.9, "target": 60.0, "offset": 0}
  }
}`

const jobBody = `{
  "job": {"file": {"name": "benchy.gcode"}},
  "progress": {"completion": 42.5, "printTime": 600, "printTimeLeft": 90},
  "state": "Printing"
}`

func newTestServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, "secret", time.Second)
}

func TestFetchPrinterDecodesDocument(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/printer" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.Header.Get("X-Api-Key"); got != "secret" {
			t.Errorf("expected api key header, got %q", got)
		}
		_, _ = w.Write([]byte(printerBody))
	})

	doc, err := client.FetchPrinter(context.Background())
	if err != nil {
		t.Fatalf("FetchPrinter() error: %v", err)
	}
	if !doc.Printing() || doc.State.Text != "Printing" {
		t.Fatalf("unexpected state: %+v", doc.State)
	}
	if doc.Temperature.Tool0 == nil || *doc.Temperature.Tool0.Actual != 214.8 {
		t.Fatalf("unexpected tool temperature: %+v", doc.Temperature.Tool0)
	}
	if doc.Temperature.Bed == nil || *doc.Temperature.Bed.Target != 60.0 {
		t.Fatalf("unexpected bed temperature: %+v", doc.Temperature.Bed)
	}
}

func TestFetchJobDecodesNullFields(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"job":{"file":{"name":null}},"progress":{"completion":null,"printTimeLeft":null},"state":"Operational"}`))
	})

	doc, err := client.FetchJob(context.Background())
	if err != nil {
		t.Fatalf("FetchJob() error: %v", err)
	}
	if doc.Progress.Completion != nil || doc.Progress.PrintTimeLeft != nil {
		t.Fatalf("expected null progress fields, got %+v", doc.Progress)
	}
}

func TestFetchJobValues(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(jobBody))
	})

	doc, err := client.FetchJob(context.Background())
	if err != nil {
		t.Fatalf("FetchJob() error: %v", err)
	}
	if *doc.Progress.Completion != 42.5 || *doc.Progress.PrintTimeLeft != 90 {
		t.Fatalf("unexpected progress: %+v", doc.Progress)
	}
	if doc.Job.File.Name != "benchy.gcode" {
		t.Fatalf("unexpected file name %q", doc.Job.File.Name)
	}
}

func TestFetchFailures(t *testing.T) {
	cases := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"non-json body", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("<html>login</html>"))
		}},
		{"forbidden", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "invalid api key", http.StatusForbidden)
		}},
		{"not operational", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "Printer is not operational", http.StatusConflict)
		}},
		{"null body", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte("null"))
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client := newTestServer(t, tc.handler)
			if doc, err := client.FetchPrinter(context.Background()); !errors.Is(err, ErrFetch) || doc != nil {
				t.Fatalf("FetchPrinter() = %+v, %v; want nil, ErrFetch", doc, err)
			}
			if doc, err := client.FetchJob(context.Background()); !errors.Is(err, ErrFetch) || doc != nil {
				t.Fatalf("FetchJob() = %+v, %v; want nil, ErrFetch", doc, err)
			}
		})
	}
}

func TestFetchTimeout(t *testing.T) {
	release := make(chan struct{})
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)
	client.Timeout = 50 * time.Millisecond

	if _, err := client.FetchJob(context.Background()); !errors.Is(err, ErrFetch) {
		t.Fatalf("expected ErrFetch on timeout, got %v", err)
	}
}

func TestBaseURL(t *testing.T) {
	cases := map[string]string{
		"octopi.local":          "http://octopi.local",
		"octopi.local:5000/":    "http://octopi.local:5000",
		"https://print.example": "https://print.example",
	}
	for host, want := range cases {
		c := &Client{Host: host}
		if got := c.BaseURL(); got != want {
			t.Fatalf("BaseURL(%q) = %q, want %q", host, got, want)
		}
	}
}
