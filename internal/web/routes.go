package web

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RegisterAPIV1 registers the status API under /api/v1/.
func RegisterAPIV1(mux *http.ServeMux, deps APIV1Deps) {
	mux.Handle("/api/v1/", http.StripPrefix("/api/v1", apiV1Router(deps)))
}

// RegisterOps registers /healthz and /metrics.
func RegisterOps(mux *http.ServeMux, deps APIV1Deps) {
	deps = deps.withDefaults()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { handleHealth(w, r, deps) })
	mux.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
}

// NewDefaultMux builds the device handler:
// - /api/v1/* for the status API
// - /healthz and /metrics for operations
// Dev mode wraps everything in permissive CORS.
func NewDefaultMux(cfg ServerConfig, deps APIV1Deps) http.Handler {
	mux := http.NewServeMux()
	RegisterAPIV1(mux, deps)
	RegisterOps(mux, deps)
	if cfg.DevMode {
		return WithDevCORS(mux)
	}
	return mux
}
