// Package poller keeps the latest print server status in a state.Store.
//
// The poller fetches the job and printer documents on a fixed interval and
// publishes both, together with the fetch time, as one immutable snapshot.
// A failed fetch leaves its document nil in that snapshot; nothing else is
// reported to readers.
package poller

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rook-computer/octolcd/internal/metrics"
	"github.com/rook-computer/octolcd/internal/octoprint"
	"github.com/rook-computer/octolcd/internal/state"
)

const DefaultInterval = 5 * time.Second

type Logger interface {
	Infof(component string, format string, args ...interface{})
	Errorf(component string, format string, args ...interface{})
}

type Poller struct {
	Source   octoprint.Source
	Store    *state.Store
	Interval time.Duration
	Logger   Logger
	Metrics  *metrics.Metrics

	// OnPublish, when set, is called with every published snapshot from the
	// polling goroutine. It must not block.
	OnPublish func(*state.Snapshot)

	// Now is the clock used to stamp snapshots; time.Now when nil.
	Now func() time.Time

	stopOnce sync.Once
	stopCh   chan struct{}

	mu             sync.Mutex
	jobFailing     bool
	printerFailing bool
}

func New(source octoprint.Source, store *state.Store, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Poller{Source: source, Store: store, Interval: interval, stopCh: make(chan struct{})}
}

// Snapshot returns the latest published snapshot without blocking.
func (p *Poller) Snapshot() *state.Snapshot {
	return p.Store.Snapshot()
}

// Run polls immediately and then once per Interval until ctx is done or Stop
// is called. An in-flight fetch is bounded by the source's own timeout.
func (p *Poller) Run(ctx context.Context) error {
	interval := p.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if p.stopped() {
			return nil
		}
		p.PollOnce(ctx)
		select {
		case <-ctx.Done():
			return nil
		case <-p.stopChan():
			return nil
		case <-ticker.C:
		}
	}
}

// Stop ends Run before its next sleep completes. Safe to call repeatedly.
func (p *Poller) Stop() {
	ch := p.stopChan()
	p.stopOnce.Do(func() { close(ch) })
}

// PollOnce fetches both documents concurrently and publishes the result.
func (p *Poller) PollOnce(ctx context.Context) *state.Snapshot {
	var (
		job     *state.JobDoc
		printer *state.PrinterDoc
		jobErr  error
		prtErr  error
		g       errgroup.Group
	)
	g.Go(func() error {
		start := time.Now()
		job, jobErr = p.Source.FetchJob(ctx)
		p.Metrics.ObserveFetch(metrics.DocumentJob, time.Since(start), jobErr)
		return nil
	})
	g.Go(func() error {
		start := time.Now()
		printer, prtErr = p.Source.FetchPrinter(ctx)
		p.Metrics.ObserveFetch(metrics.DocumentPrinter, time.Since(start), prtErr)
		return nil
	})
	_ = g.Wait()

	if jobErr != nil {
		job = nil
	}
	if prtErr != nil {
		printer = nil
	}
	p.noteOutcome(metrics.DocumentJob, jobErr)
	p.noteOutcome(metrics.DocumentPrinter, prtErr)

	snap := p.Store.Publish(&state.Snapshot{Printer: printer, Job: job, FetchedAt: p.now()})
	if p.OnPublish != nil {
		p.OnPublish(snap)
	}
	return snap
}

// noteOutcome logs only when a document starts or stops failing, so an
// unreachable server does not flood the log every interval.
func (p *Poller) noteOutcome(document string, err error) {
	p.mu.Lock()
	failing := &p.jobFailing
	if document == metrics.DocumentPrinter {
		failing = &p.printerFailing
	}
	was := *failing
	*failing = err != nil
	p.mu.Unlock()

	if p.Logger == nil {
		return
	}
	switch {
	case err != nil && !was:
		p.Logger.Errorf("poller", "%s fetch failing: %v", document, err)
	case err == nil && was:
		p.Logger.Infof("poller", "%s fetch recovered", document)
	}
}

func (p *Poller) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

func (p *Poller) stopChan() chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopCh == nil {
		p.stopCh = make(chan struct{})
	}
	return p.stopCh
}

func (p *Poller) stopped() bool {
	select {
	case <-p.stopChan():
		return true
	default:
		return false
	}
}
