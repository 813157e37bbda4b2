package controller

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"dronectl-server/internal/modules/sensors/store"
	"dronectl-server/internal/modules/sensors/telemetry"
	"dronectl-server/internal/utils"
)

// maxFrameBytes bounds the POST /api/stm32 body. Real frames are under 200
// bytes; anything bigger is not a telemetry frame.
const maxFrameBytes = 4096

func (c *sensorControllerImpl) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "Drone Control API is running",
	})
}

func (c *sensorControllerImpl) handleGetSensors(w http.ResponseWriter, r *http.Request) {
	snap := c.service.Snapshot()
	utils.WriteJSON(w, http.StatusOK, map[string]any{
		"sensors":   snap,
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
	})
}

func (c *sensorControllerImpl) handleUpdateChannel(w http.ResponseWriter, r *http.Request) {
	channel := r.PathValue("channel")
	if channel == "" {
		utils.WriteError(w, http.StatusBadRequest, "missing sensor channel")
		return
	}

	var fields map[string]any
	if err := utils.DecodeJSONBody(r, &fields); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := c.service.UpdateChannel(channel, fields); err != nil {
		switch {
		case errors.Is(err, store.ErrUnknownChannel):
			utils.WriteError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, store.ErrInvalidField):
			utils.WriteError(w, http.StatusBadRequest, err.Error())
		default:
			slog.Error("channel update failed", "channel", channel, "error", err)
			utils.WriteError(w, http.StatusInternalServerError, "failed to update sensor data")
		}
		return
	}

	utils.WriteJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": store.Canonical(channel) + " data updated",
	})
}

func (c *sensorControllerImpl) handleFrame(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxFrameBytes))
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	switch err := c.service.IngestFrame(raw); {
	case err == nil:
		utils.WriteJSON(w, http.StatusOK, map[string]string{"status": "success"})
	case errors.Is(err, telemetry.ErrUnrecognized):
		// Not an error: the bridge sends other frame types too. Acknowledge
		// so it does not retry.
		utils.WriteJSON(w, http.StatusOK, map[string]string{
			"status":  "ignored",
			"message": "Unrecognized data format",
		})
	case errors.Is(err, telemetry.ErrMalformed):
		utils.WriteError(w, http.StatusBadRequest, "Invalid data format")
	default:
		slog.Error("frame ingest failed", "error", err)
		utils.WriteError(w, http.StatusInternalServerError, "failed to process telemetry frame")
	}
}
