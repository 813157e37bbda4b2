package store

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"dronectl-server/internal/modules/sensors/health"
	"dronectl-server/internal/modules/sensors/types"
)

var (
	// ErrUnknownChannel means the merge target does not exist (or is not
	// externally writable, like the system channel).
	ErrUnknownChannel = errors.New("unknown sensor channel")

	// ErrInvalidField means a field name or value does not match the channel
	// schema. The whole merge is rejected; nothing is applied.
	ErrInvalidField = errors.New("invalid field")
)

// Writable channel identifiers plus the derived system channel.
const (
	ChannelInertialUnit = "inertial_unit"
	ChannelBarometer    = "barometer"
	ChannelGPS          = "gps"
	ChannelSystem       = "system"
)

// The original firmware posts to /api/sensors/mpu9250; keep that name working.
const channelAliasMPU = "mpu9250"

// SensorStore is the single source of truth for current sensor state. One
// RWMutex per channel: merges to the same channel are linearized, merges to
// different channels and snapshots proceed independently.
type SensorStore struct {
	start    time.Time
	provider health.Provider

	imuMu sync.RWMutex
	imu   types.InertialUnit

	baroMu sync.RWMutex
	baro   types.Barometer

	gpsMu sync.RWMutex
	gps   types.GPS
}

// New creates a store with zero/default records, as at process start.
func New(provider health.Provider) *SensorStore {
	if provider == nil {
		provider = health.StaticProvider{}
	}
	return &SensorStore{
		start:    time.Now(),
		provider: provider,
		imu:      types.InertialUnit{Status: types.StatusIdle},
		baro: types.Barometer{
			SeaLevelPressure: types.DefaultSeaLevelPressure,
			Status:           types.StatusIdle,
		},
		gps: types.GPS{Status: types.StatusNoFix},
	}
}

// Snapshot returns a point-in-time copy of all four channels. The system
// channel is recomputed on every call: uptime from the process start time,
// host metrics from the provider, last_update as the current UTC instant.
func (s *SensorStore) Snapshot() types.Snapshot {
	var snap types.Snapshot

	s.imuMu.RLock()
	snap.InertialUnit = s.imu
	s.imuMu.RUnlock()

	s.baroMu.RLock()
	snap.Barometer = s.baro
	s.baroMu.RUnlock()

	s.gpsMu.RLock()
	snap.GPS = s.gps
	s.gpsMu.RUnlock()

	m := s.provider.Sample()
	snap.System = types.SystemHealth{
		Uptime:      math.Round(time.Since(s.start).Seconds()*10) / 10,
		CPUTemp:     m.CPUTemp,
		MemoryUsage: m.MemoryUsage,
		DiskUsage:   m.DiskUsage,
		Status:      types.StatusRunning,
		LastUpdate:  time.Now().UTC().Format(time.RFC3339Nano),
	}
	return snap
}

// Merge overwrites the fields named in fields on the given channel, leaving
// all other fields untouched. The payload is validated in full before any
// mutation, so a failed merge leaves the record exactly as it was.
func (s *SensorStore) Merge(channel string, fields map[string]any) error {
	switch Canonical(channel) {
	case ChannelInertialUnit:
		p, err := imuPatchFrom(fields)
		if err != nil {
			return err
		}
		s.imuMu.Lock()
		p.apply(&s.imu)
		s.imuMu.Unlock()
		return nil

	case ChannelBarometer:
		p, err := baroPatchFrom(fields)
		if err != nil {
			return err
		}
		s.baroMu.Lock()
		p.apply(&s.baro)
		s.baroMu.Unlock()
		return nil

	case ChannelGPS:
		p, err := gpsPatchFrom(fields)
		if err != nil {
			return err
		}
		s.gpsMu.Lock()
		p.apply(&s.gps)
		s.gpsMu.Unlock()
		return nil

	default:
		// system is derived state and deliberately not a merge target.
		return fmt.Errorf("%w: %q", ErrUnknownChannel, channel)
	}
}

// Canonical maps accepted channel spellings to their canonical identifier.
// Unknown names pass through unchanged so Merge can report them.
func Canonical(channel string) string {
	if channel == channelAliasMPU {
		return ChannelInertialUnit
	}
	return channel
}
