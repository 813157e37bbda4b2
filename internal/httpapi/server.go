package httpapi

import (
	"net/http"
	"time"

	"dronectl-server/internal/config"
)

func NewServer(cfg config.Config, mux *http.ServeMux) *http.Server {
	var handler http.Handler = mux
	handler = corsAllowAll(handler)
	handler = requestLogger(handler)

	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
