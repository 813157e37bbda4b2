package httpapi

import (
	"net/http"

	"dronectl-server/internal/modules/sensors/types"
)

// Snapshotter is the store capability the liveness check needs.
type Snapshotter interface {
	Snapshot() types.Snapshot
}

func NewMux(store Snapshotter) *http.ServeMux {
	mux := http.NewServeMux()
	registerHealthcheck(mux, store)
	registerMetrics(mux)
	return mux
}
