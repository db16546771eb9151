package server

import (
	_ "embed"
	"net/http"
)

//go:embed water-overview.json
var waterOverviewJSON []byte

// Dashboards maps URL paths to the embedded Grafana dashboard assets.
func Dashboards() map[string][]byte {
	return map[string][]byte{
		"/dashboards/quandify/water-overview.json": waterOverviewJSON,
	}
}

// DashboardsHandler serves dashboard JSON from an in-memory map.
func DashboardsHandler(dashboards map[string][]byte) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, ok := dashboards[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	})
}
