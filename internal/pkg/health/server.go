package health

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Vodeneev/adnbet/internal/pkg/health/handlers"
	"github.com/Vodeneev/adnbet/internal/pkg/performance"
)

// NewMux builds the service endpoints: /ping, /health, /metrics and, when a tracker
// is given, /summary. /health runs checks on every request.
func NewMux(registry *prometheus.Registry, tracker *performance.Tracker, checks ...handlers.Check) *http.ServeMux {
	mux := http.NewServeMux()

	// Health endpoints
	mux.HandleFunc("/ping", handlers.HandlePing)
	mux.HandleFunc("/health", handlers.HealthHandler(checks...))

	if registry != nil {
		mux.Handle("/metrics", handlers.MetricsHandler(registry))
	}
	if tracker != nil {
		mux.HandleFunc("/summary", handlers.SummaryHandler(tracker))
	}
	return mux
}

// Run serves mux on addr until ctx is done.
func Run(ctx context.Context, addr string, service string, mux http.Handler) {
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	go func() {
		slog.Info("Health server listening", "service", service, "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Health server error", "service", service, "error", err)
		}
	}()
}
