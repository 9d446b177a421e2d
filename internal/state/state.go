package state

import (
	"sync/atomic"
	"time"
)

// Snapshot is the latest pair of status documents and the time they were
// fetched. Either document is nil when its fetch failed.
//
// A published Snapshot is never mutated; the poller replaces it wholesale.
type Snapshot struct {
	Printer   *PrinterDoc
	Job       *JobDoc
	FetchedAt time.Time
}

// HasData reports whether the printer document is available.
func (snap *Snapshot) HasData() bool {
	return snap != nil && snap.Printer != nil
}

// Age returns how long ago the snapshot was fetched relative to now.
func (snap *Snapshot) Age(now time.Time) time.Duration {
	if snap == nil || snap.FetchedAt.IsZero() {
		return 0
	}
	return now.Sub(snap.FetchedAt)
}

// Store holds the current Snapshot. One writer publishes, any number of
// readers load; both sides are lock-free.
type Store struct {
	current atomic.Pointer[Snapshot]
}

// NewStore returns a store holding an empty snapshot stamped with start.
func NewStore(start time.Time) *Store {
	store := &Store{}
	store.current.Store(&Snapshot{FetchedAt: start})
	return store
}

// Snapshot returns the latest published snapshot. It never blocks and never
// returns nil.
func (store *Store) Snapshot() *Snapshot {
	if snap := store.current.Load(); snap != nil {
		return snap
	}
	return &Snapshot{}
}

// Publish replaces the current snapshot and returns what was stored.
// FetchedAt never moves backwards: a snapshot stamped earlier than the
// current one is stored as a copy carrying the current FetchedAt.
func (store *Store) Publish(snap *Snapshot) *Snapshot {
	if snap == nil {
		return store.Snapshot()
	}
	if prev := store.current.Load(); prev != nil && snap.FetchedAt.Before(prev.FetchedAt) {
		fixed := *snap
		fixed.FetchedAt = prev.FetchedAt
		snap = &fixed
	}
	store.current.Store(snap)
	return snap
}
