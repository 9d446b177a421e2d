package web

import "context"

// Server is the lifecycle the app drives; NoopServer stands in when the
// status API is disabled.
type Server interface {
	Start(ctx context.Context) error
	Stop() error
}

type NoopServer struct{}

func (NoopServer) Start(ctx context.Context) error { return nil }
func (NoopServer) Stop() error                     { return nil }
