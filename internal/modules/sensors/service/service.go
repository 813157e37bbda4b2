package service

import (
	"errors"
	"fmt"
	"log/slog"

	"dronectl-server/internal/modules/sensors/store"
	"dronectl-server/internal/modules/sensors/telemetry"
	"dronectl-server/internal/modules/sensors/types"
	"dronectl-server/internal/observability"
)

// Service binds the frame decoder to the sensor store and is the one
// boundary both ingestion paths (HTTP and MQTT) go through.
type Service struct {
	store   *store.SensorStore
	metrics *observability.Metrics
}

func New(s *store.SensorStore, m *observability.Metrics) *Service {
	return &Service{store: s, metrics: m}
}

func (s *Service) Snapshot() types.Snapshot {
	return s.store.Snapshot()
}

// UpdateChannel forwards a structured partial update to the store,
// preserving its partial-overwrite and atomic-rejection semantics.
func (s *Service) UpdateChannel(channel string, fields map[string]any) error {
	if err := s.store.Merge(channel, fields); err != nil {
		s.metrics.MergesRejected.WithLabelValues(store.Canonical(channel)).Inc()
		return err
	}
	s.metrics.MergesApplied.WithLabelValues(store.Canonical(channel)).Inc()
	return nil
}

// IngestFrame decodes one raw telemetry frame and applies it to the inertial
// unit and barometer channels. The returned error carries the decode outcome:
// telemetry.ErrUnrecognized (soft ignore), telemetry.ErrMalformed (client
// error), or nil. The store is never partially mutated on a failed decode.
func (s *Service) IngestFrame(raw []byte) error {
	frame, err := telemetry.Decode(raw)
	if err != nil {
		if errors.Is(err, telemetry.ErrUnrecognized) {
			s.metrics.FramesIgnored.Inc()
		} else {
			s.metrics.FramesMalformed.Inc()
			slog.Warn("malformed telemetry frame", "error", err, "frame", string(raw))
		}
		return err
	}

	// The decoder only produces schema-valid payloads, so a merge failure
	// here is a programming error, not a client one.
	if err := s.store.Merge(store.ChannelInertialUnit, frame.InertialFields()); err != nil {
		return fmt.Errorf("apply inertial unit frame: %w", err)
	}
	if err := s.store.Merge(store.ChannelBarometer, frame.BarometerFields()); err != nil {
		return fmt.Errorf("apply barometer frame: %w", err)
	}

	s.metrics.FramesDecoded.Inc()
	s.metrics.MergesApplied.WithLabelValues(store.ChannelInertialUnit).Inc()
	s.metrics.MergesApplied.WithLabelValues(store.ChannelBarometer).Inc()
	return nil
}
