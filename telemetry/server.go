package telemetry

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/fsetools/fseparse/cfg"
)

// StartServer serves /metrics and /healthz when Prometheus is enabled.
// The listener runs for the life of the process; a bind failure is logged,
// not fatal, since metrics are an observability aid, not the job.
func StartServer() {
	if registry == nil {
		return
	}

	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))

	addr := fmt.Sprintf("%s:%d", cfg.Config.Prometheus.Address, cfg.Config.Prometheus.Port)
	go func() {
		log.Info().Str("addr", addr).Msg("Serving metrics")
		if err := http.ListenAndServe(addr, r); err != nil {
			log.Error().Err(err).Str("addr", addr).Msg("Metrics server stopped")
		}
	}()
}
