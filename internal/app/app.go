// Package app wires the poller, renderer, display and outer surfaces
// together and owns their lifecycle.
package app

import (
	"context"
	"errors"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/rook-computer/octolcd/internal/poller"
	"github.com/rook-computer/octolcd/internal/render"
	"github.com/rook-computer/octolcd/internal/state"
	"github.com/rook-computer/octolcd/internal/web"
)

// Publisher receives every published snapshot; publish.MQTTPublisher
// implements it.
type Publisher interface {
	Enqueue(snap *state.Snapshot) bool
	Run(ctx context.Context) error
}

// Sinks with their own event loop (console, framebuffer) implement runner;
// those that can ask the process to quit implement quitter.
type runner interface {
	Run(ctx context.Context) error
}

type quitter interface {
	Done() <-chan struct{}
}

var errExitRequested = errors.New("exit requested")

type App struct {
	Store     *state.Store
	Poller    *poller.Poller
	Renderer  *render.Renderer
	Web       web.Server
	Publisher Publisher
	Logger    Logger

	exitOnce atomic.Bool
	exitCh   chan error
}

func New(store *state.Store, p *poller.Poller, renderer *render.Renderer, webServer web.Server) *App {
	return &App{Store: store, Poller: p, Renderer: renderer, Web: webServer, Logger: NoopLogger{}, exitCh: make(chan error, 1)}
}

// Exit requests the app to stop running. Only the first call counts.
func (app *App) Exit(err error) {
	if app.exitCh == nil {
		return
	}
	if !app.exitOnce.CompareAndSwap(false, true) {
		return
	}
	select {
	case app.exitCh <- err:
	default:
	}
}

// Start runs until ctx is cancelled, Exit is called, the display asks to
// quit, or a part fails. The display is cleared and closed before it
// returns. Cancellation and quit requests return nil.
func (app *App) Start(ctx context.Context) error {
	if app.exitCh == nil {
		app.exitCh = make(chan error, 1)
	}
	if app.Logger == nil {
		app.Logger = NoopLogger{}
	}
	app.exitOnce.Store(false)

	sink := app.Renderer.Sink
	if err := app.Renderer.Start(); err != nil {
		app.Logger.Errorf("app", "display start error: %v", err)
		_ = sink.Close()
		return err
	}
	defer app.shutdownDisplay(sink)

	if app.Publisher != nil {
		next := app.Poller.OnPublish
		app.Poller.OnPublish = func(snap *state.Snapshot) {
			if next != nil {
				next(snap)
			}
			app.Publisher.Enqueue(snap)
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	if app.Web != nil {
		if err := app.Web.Start(gctx); err != nil {
			app.Logger.Errorf("app", "web server start error: %v", err)
			return err
		}
		defer func() { _ = app.Web.Stop() }()
	}

	g.Go(func() error { return app.Poller.Run(gctx) })
	g.Go(func() error {
		app.Renderer.RunLoop(gctx, app.Poller)
		return nil
	})
	if app.Publisher != nil {
		g.Go(func() error { return app.Publisher.Run(gctx) })
	}
	if r, ok := sink.(runner); ok {
		g.Go(func() error { return r.Run(gctx) })
	}
	if q, ok := sink.(quitter); ok {
		g.Go(func() error {
			select {
			case <-gctx.Done():
			case <-q.Done():
				app.Logger.Infof("app", "display requested exit")
				app.Exit(nil)
			}
			return nil
		})
	}
	g.Go(func() error {
		select {
		case <-gctx.Done():
			return nil
		case err := <-app.exitCh:
			if err == nil {
				return errExitRequested
			}
			return err
		}
	})

	app.Logger.Infof("app", "running")
	err := g.Wait()
	app.Poller.Stop()
	if errors.Is(err, errExitRequested) || errors.Is(err, context.Canceled) {
		err = nil
	}
	if err != nil {
		app.Logger.Errorf("app", "stopped: %v", err)
	} else {
		app.Logger.Infof("app", "stopped")
	}
	return err
}

func (app *App) shutdownDisplay(sink render.Sink) {
	if err := sink.Clear(); err != nil {
		app.Logger.Errorf("app", "clear display: %v", err)
	}
	if err := sink.Close(); err != nil {
		app.Logger.Errorf("app", "close display: %v", err)
	}
}
