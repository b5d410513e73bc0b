package http

import (
	"net/http"
	"time"

	"github.com/aussiebroadwan/dide/pkg/authsdk"
	"github.com/aussiebroadwan/dide/pkg/httpx"
)

// LivezHandler always reports ok while the process is serving.
func LivezHandler(startTime time.Time, version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, authsdk.HealthResponse{
			Status:  "ok",
			Uptime:  time.Since(startTime).String(),
			Version: version,
		})
	}
}
