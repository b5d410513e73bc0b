package http

import (
	"context"
	"net/http"
	"time"

	"github.com/aussiebroadwan/dide/internal/auth/notify"
	"github.com/aussiebroadwan/dide/internal/auth/store"
	"github.com/aussiebroadwan/dide/pkg/authsdk"
	"github.com/aussiebroadwan/dide/pkg/httpx"
)

// readinessTimeout bounds each dependency probe.
const readinessTimeout = 2 * time.Second

// ReadyzHandler probes the database and the change channel and answers 503
// if either fails. A nil channel is reported as disabled.
func ReadyzHandler(startTime time.Time, version string, st store.Store, ch notify.Channel) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		healthy := true
		probe := func(ping func(context.Context) error) string {
			ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
			defer cancel()
			if err := ping(ctx); err != nil {
				healthy = false
				return "error: " + err.Error()
			}
			return "ok"
		}

		checks := &authsdk.HealthChecks{Database: probe(st.Ping), Notify: "disabled"}
		if ch != nil {
			checks.Notify = probe(ch.Ping)
		}

		resp := authsdk.HealthResponse{
			Status:  "ok",
			Uptime:  time.Since(startTime).String(),
			Version: version,
			Checks:  checks,
		}
		code := http.StatusOK
		if !healthy {
			resp.Status, code = "degraded", http.StatusServiceUnavailable
		}
		httpx.WriteJSON(w, code, resp)
	}
}
