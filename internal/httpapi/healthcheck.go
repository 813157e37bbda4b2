package httpapi

import (
	"net/http"
	"time"

	"dronectl-server/internal/utils"
)

type healthchecker interface {
	handleHealthz(w http.ResponseWriter, r *http.Request)
}

type healthcheckerImpl struct {
	store Snapshotter
}

func NewHealthchecker(store Snapshotter) healthchecker {
	return &healthcheckerImpl{store: store}
}

// handleHealthz proves the store is reachable by taking a snapshot; there is
// no other backing dependency to probe.
func (h *healthcheckerImpl) handleHealthz(w http.ResponseWriter, r *http.Request) {
	snap := h.store.Snapshot()
	utils.WriteJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"uptime": snap.System.Uptime,
		"time":   time.Now().UTC().Format(time.RFC3339Nano),
	})
}

func registerHealthcheck(mux *http.ServeMux, store Snapshotter) {
	healthchecker := NewHealthchecker(store)
	mux.HandleFunc("GET /healthz", healthchecker.handleHealthz)
}
