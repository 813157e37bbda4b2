package controller

import (
	"net/http"

	"dronectl-server/internal/modules/sensors/types"
)

// SensorService is what the handlers need from the sensors service.
type SensorService interface {
	Snapshot() types.Snapshot
	UpdateChannel(channel string, fields map[string]any) error
	IngestFrame(raw []byte) error
}

type SensorController interface {
	RegisterRoutes(mux *http.ServeMux)
}

type sensorControllerImpl struct {
	service SensorService
}

func NewSensorController(service SensorService) SensorController {
	return &sensorControllerImpl{service: service}
}

func (c *sensorControllerImpl) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /", c.handleRoot)
	mux.HandleFunc("GET /api/sensors", c.handleGetSensors)
	mux.HandleFunc("POST /api/sensors/{channel}", c.handleUpdateChannel)
	mux.HandleFunc("POST /api/stm32", c.handleFrame)
}
