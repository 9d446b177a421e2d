package web

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/rook-computer/octolcd/internal/render"
	"github.com/rook-computer/octolcd/internal/state"
)

// SnapshotSource is satisfied by state.Store and the poller.
type SnapshotSource interface {
	Snapshot() *state.Snapshot
}

// FrameSource is satisfied by render.Renderer.
type FrameSource interface {
	LastFrame() (render.Frame, bool)
}

type APIV1Deps struct {
	Snapshots SnapshotSource
	Frames    FrameSource
	// Gatherer backs /metrics; prometheus.DefaultGatherer when nil.
	Gatherer prometheus.Gatherer
	Now      func() time.Time
}

func (d APIV1Deps) withDefaults() APIV1Deps {
	out := d
	if out.Snapshots == nil {
		out.Snapshots = state.NewStore(time.Time{})
	}
	if out.Frames == nil {
		out.Frames = noFrames{}
	}
	if out.Gatherer == nil {
		out.Gatherer = prometheus.DefaultGatherer
	}
	if out.Now == nil {
		out.Now = time.Now
	}
	return out
}

type noFrames struct{}

func (noFrames) LastFrame() (render.Frame, bool) { return render.Frame{}, false }
