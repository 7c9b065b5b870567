package http

import (
	"net/http"
	"time"

	"github.com/photostream/backend/internal/cache"
	"github.com/photostream/backend/internal/store"
	"github.com/photostream/backend/pkg/httpx"
)

type healthChecks struct {
	Database string `json:"database,omitempty"`
	Cache    string `json:"cache,omitempty"`
}

type healthResponse struct {
	Status  string        `json:"status"`
	Uptime  string        `json:"uptime"`
	Version string        `json:"version"`
	Checks  *healthChecks `json:"checks,omitempty"`
}

// LivezHandler answers 200 whenever the process is up.
func LivezHandler(startTime time.Time, version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, healthResponse{
			Status:  "ok",
			Uptime:  time.Since(startTime).String(),
			Version: version,
		})
	}
}

// ReadyzHandler checks the store and session cache. A cache outage degrades
// the response but does not fail readiness, since authentication falls back
// to the store.
func ReadyzHandler(startTime time.Time, version string, st store.Store, sc *cache.SessionCache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := &healthChecks{Database: "ok", Cache: "ok"}
		overallStatus := "ok"
		statusCode := http.StatusOK

		if err := st.Ping(r.Context()); err != nil {
			checks.Database = "error: " + err.Error()
			overallStatus = "degraded"
			statusCode = http.StatusServiceUnavailable
		}

		if err := sc.Ping(r.Context()); err != nil {
			checks.Cache = "error: " + err.Error()
			if overallStatus == "ok" {
				overallStatus = "degraded"
			}
		}

		httpx.WriteJSON(w, statusCode, healthResponse{
			Status:  overallStatus,
			Uptime:  time.Since(startTime).String(),
			Version: version,
			Checks:  checks,
		})
	}
}
