package handlers

import (
	"net/http"

	"github.com/matiasleandrokruk/genhub/internal/version"
)

type healthResponse struct {
	Status string `json:"status"`
	version.Info
}

// Health reports liveness and build metadata. It needs no session token.
func Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Info: version.Get()})
}
