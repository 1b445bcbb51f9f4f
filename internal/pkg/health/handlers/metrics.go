package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Vodeneev/adnbet/internal/pkg/performance"
)

// MetricsHandler exposes a Prometheus registry
func MetricsHandler(registry *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

// SummaryHandler serves the statistics of the running session as JSON
func SummaryHandler(tracker *performance.Tracker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		summary := tracker.Summary(time.Now())

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		if err := json.NewEncoder(w).Encode(summary); err != nil {
			http.Error(w, fmt.Sprintf("failed to encode summary: %v", err), http.StatusInternalServerError)
			return
		}
	}
}
