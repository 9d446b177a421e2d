package app

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rook-computer/octolcd/internal/display"
	"github.com/rook-computer/octolcd/internal/poller"
	"github.com/rook-computer/octolcd/internal/render"
	"github.com/rook-computer/octolcd/internal/state"
	"github.com/rook-computer/octolcd/internal/web"
)

type stubSource struct{}

func (stubSource) FetchJob(ctx context.Context) (*state.JobDoc, error) {
	return &state.JobDoc{}, nil
}

func (stubSource) FetchPrinter(ctx context.Context) (*state.PrinterDoc, error) {
	return &state.PrinterDoc{State: state.PrinterState{Text: "Operational", Flags: state.PrinterFlags{Operational: true}}}, nil
}

// quittingSink is a memory display that can ask the app to exit.
type quittingSink struct {
	*display.Memory
	quit   chan struct{}
	mu     sync.Mutex
	closed bool
}

func (s *quittingSink) Done() <-chan struct{} { return s.quit }

func (s *quittingSink) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

func (s *quittingSink) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

type countingPublisher struct {
	mu      sync.Mutex
	queued  int
	started chan struct{}
}

func (p *countingPublisher) Enqueue(*state.Snapshot) bool {
	p.mu.Lock()
	p.queued++
	p.mu.Unlock()
	return true
}

func (p *countingPublisher) Run(ctx context.Context) error {
	close(p.started)
	<-ctx.Done()
	return nil
}

func (p *countingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.queued
}

func newTestApp(sink render.Sink) *App {
	store := state.NewStore(time.Now())
	p := poller.New(stubSource{}, store, 10*time.Millisecond)
	r := render.NewRenderer(sink, "Oleandri Printer")
	r.Interval = 10 * time.Millisecond
	return New(store, p, r, web.NoopServer{})
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestStartRunsUntilCancelledAndClearsDisplay(t *testing.T) {
	sink := display.NewMemory()
	a := newTestApp(sink)
	pub := &countingPublisher{started: make(chan struct{})}
	a.Publisher = pub

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Start(ctx) }()

	<-pub.started
	waitFor(t, "a rendered status row", func() bool {
		return strings.Contains(sink.Lines()[0], "Operational") || strings.Contains(sink.Lines()[0], "Oleandri")
	})
	waitFor(t, "snapshots handed to the publisher", func() bool { return pub.count() > 0 })

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Start() error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Start() did not return after cancel")
	}
	if got := sink.Lines(); strings.TrimSpace(got[0]+got[1]) != "" {
		t.Fatalf("display not cleared on shutdown: %q", got)
	}
}

func TestExitStopsApp(t *testing.T) {
	a := newTestApp(display.NewMemory())
	done := make(chan error, 1)
	go func() { done <- a.Start(context.Background()) }()

	time.Sleep(30 * time.Millisecond)
	boom := errors.New("boom")
	a.Exit(boom)
	a.Exit(nil)
	select {
	case err := <-done:
		if !errors.Is(err, boom) {
			t.Fatalf("Start() = %v, want the first Exit error", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Start() did not return after Exit")
	}
}

func TestDisplayQuitRequestStopsApp(t *testing.T) {
	sink := &quittingSink{Memory: display.NewMemory(), quit: make(chan struct{})}
	a := newTestApp(sink)
	done := make(chan error, 1)
	go func() { done <- a.Start(context.Background()) }()

	time.Sleep(30 * time.Millisecond)
	close(sink.quit)
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Start() error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Start() did not return after the display quit")
	}
	if !sink.isClosed() {
		t.Fatalf("display not closed")
	}
}

type failingServer struct{}

func (failingServer) Start(ctx context.Context) error { return errors.New("listen :80: permission denied") }
func (failingServer) Stop() error                     { return nil }

func TestStartFailsWhenWebServerCannotListen(t *testing.T) {
	a := newTestApp(display.NewMemory())
	a.Web = failingServer{}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := a.Start(ctx); err == nil {
		t.Fatalf("expected web start error")
	}
}

func TestFileLoggerFormat(t *testing.T) {
	var buf bytes.Buffer
	l := NewFileLogger(&buf)
	l.now = func() time.Time { return time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC) }
	l.Infof("poller", "fetch %s ok", "job")
	l.Errorf("render", "row %d failed", 2)
	want := "2026-03-14T12:00:00Z [INFO] poller: fetch job ok\n2026-03-14T12:00:00Z [ERROR] render: row 2 failed\n"
	if buf.String() != want {
		t.Fatalf("log output:\n%s\nwant:\n%s", buf.String(), want)
	}

	buf.Reset()
	quiet := ErrorsOnly{Logger: l}
	quiet.Infof("poller", "dropped")
	quiet.Errorf("poller", "kept")
	if strings.Contains(buf.String(), "dropped") || !strings.Contains(buf.String(), "kept") {
		t.Fatalf("ErrorsOnly output: %q", buf.String())
	}
}
