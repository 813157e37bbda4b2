package sensors

import (
	"net/http"

	"dronectl-server/internal/modules/sensors/controller"
	"dronectl-server/internal/modules/sensors/service"
)

func RegisterFeature(mux *http.ServeMux, svc *service.Service) {
	sensorController := controller.NewSensorController(svc)
	sensorController.RegisterRoutes(mux)
}
