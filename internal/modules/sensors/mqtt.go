package sensors

import (
	"errors"
	"log/slog"

	"dronectl-server/internal/modules/sensors/service"
	"dronectl-server/internal/modules/sensors/telemetry"
)

// FrameSubscriber interface for attaching raw frame handlers
type FrameSubscriber interface {
	SetFrameHandler(handler func(frame []byte) error)
}

// RegisterFrameHandler feeds frames arriving over MQTT into the same decoder
// path the HTTP endpoint uses. Unrecognized frames are dropped quietly (the
// bridge publishes heartbeats on the same topic); malformed ones are logged
// by the service and reported back to the subscriber.
func RegisterFrameHandler(subscriber FrameSubscriber, svc *service.Service) {
	subscriber.SetFrameHandler(func(frame []byte) error {
		err := svc.IngestFrame(frame)
		if errors.Is(err, telemetry.ErrUnrecognized) {
			slog.Debug("ignoring non-telemetry mqtt payload", "size", len(frame))
			return nil
		}
		return err
	})
}
