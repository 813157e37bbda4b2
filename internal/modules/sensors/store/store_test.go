package store

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dronectl-server/internal/modules/sensors/health"
	"dronectl-server/internal/modules/sensors/types"
)

func TestNewDefaults(t *testing.T) {
	s := New(nil)
	snap := s.Snapshot()

	assert.Equal(t, types.StatusIdle, snap.InertialUnit.Status)
	assert.False(t, snap.InertialUnit.Calibrated)
	assert.Equal(t, types.Vector3{}, snap.InertialUnit.Accelerometer)

	assert.Equal(t, types.StatusIdle, snap.Barometer.Status)
	assert.Equal(t, types.DefaultSeaLevelPressure, snap.Barometer.SeaLevelPressure)

	assert.Equal(t, types.StatusNoFix, snap.GPS.Status)
	assert.Zero(t, snap.GPS.Satellites)
}

func TestMergeIsFieldPartial(t *testing.T) {
	s := New(nil)
	require.NoError(t, s.Merge(ChannelInertialUnit, map[string]any{
		"accelerometer": map[string]any{"x": 1.0, "y": 2.0, "z": 3.0},
		"calibrated":    true,
	}))

	// Only status should change; everything else keeps its prior value.
	require.NoError(t, s.Merge(ChannelInertialUnit, map[string]any{"status": types.StatusActive}))

	imu := s.Snapshot().InertialUnit
	assert.Equal(t, types.StatusActive, imu.Status)
	assert.True(t, imu.Calibrated)
	assert.Equal(t, types.Vector3{X: 1, Y: 2, Z: 3}, imu.Accelerometer)
}

func TestMergeVectorPerComponent(t *testing.T) {
	s := New(nil)
	require.NoError(t, s.Merge(ChannelInertialUnit, map[string]any{
		"gyroscope": map[string]any{"x": 1.0, "y": 2.0, "z": 3.0},
	}))
	require.NoError(t, s.Merge(ChannelInertialUnit, map[string]any{
		"gyroscope": map[string]any{"y": 9.0},
	}))

	assert.Equal(t, types.Vector3{X: 1, Y: 9, Z: 3}, s.Snapshot().InertialUnit.Gyroscope)
}

func TestMergeAtomicOnFailure(t *testing.T) {
	s := New(nil)
	require.NoError(t, s.Merge(ChannelInertialUnit, map[string]any{
		"accelerometer": map[string]any{"x": 1.0},
		"temperature":   21.5,
	}))
	before := s.Snapshot().InertialUnit

	err := s.Merge(ChannelInertialUnit, map[string]any{
		"temperature":   30.0,
		"accelerometer": map[string]any{"x": "bad"},
	})
	require.ErrorIs(t, err, ErrInvalidField)

	assert.Equal(t, before, s.Snapshot().InertialUnit, "failed merge must not apply any field")
}

func TestMergeRejectsUnknownField(t *testing.T) {
	s := New(nil)
	err := s.Merge(ChannelBarometer, map[string]any{"humidity": 40.0})
	assert.ErrorIs(t, err, ErrInvalidField)
}

func TestMergeRejectsBadTypes(t *testing.T) {
	s := New(nil)

	for name, fields := range map[string]map[string]any{
		"string for float":   {"pressure": "high"},
		"number for bool":    {"calibrated": 1.0},
		"string for bool":    {"altitude": 1.0, "calibrated": "yes"},
		"bool for status":    {"status": true},
		"status out of enum": {"status": "sleeping"},
	} {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, s.Merge(ChannelBarometer, fields), ErrInvalidField)
		})
	}

	snap := s.Snapshot().Barometer
	assert.Zero(t, snap.Pressure)
	assert.Equal(t, types.StatusIdle, snap.Status)
}

func TestMergeGPSValidation(t *testing.T) {
	s := New(nil)

	require.NoError(t, s.Merge(ChannelGPS, map[string]any{
		"latitude":   -33.865,
		"longitude":  151.209,
		"satellites": 7.0, // JSON numbers arrive as float64
		"hdop":       0.9,
		"status":     types.StatusFix,
	}))
	gps := s.Snapshot().GPS
	assert.Equal(t, 7, gps.Satellites)
	assert.Equal(t, types.StatusFix, gps.Status)

	assert.ErrorIs(t, s.Merge(ChannelGPS, map[string]any{"satellites": -1.0}), ErrInvalidField)
	assert.ErrorIs(t, s.Merge(ChannelGPS, map[string]any{"satellites": 2.5}), ErrInvalidField)
	assert.ErrorIs(t, s.Merge(ChannelGPS, map[string]any{"hdop": -0.1}), ErrInvalidField)
	assert.ErrorIs(t, s.Merge(ChannelGPS, map[string]any{"status": types.StatusActive}), ErrInvalidField)
}

func TestMergeUnknownChannel(t *testing.T) {
	s := New(nil)
	assert.ErrorIs(t, s.Merge("lidar", map[string]any{"status": types.StatusActive}), ErrUnknownChannel)

	// The system channel is derived state, not a merge target.
	assert.ErrorIs(t, s.Merge(ChannelSystem, map[string]any{"cpu_temp": 10.0}), ErrUnknownChannel)
}

func TestMergeChannelAlias(t *testing.T) {
	s := New(nil)
	require.NoError(t, s.Merge("mpu9250", map[string]any{"temperature": 33.0}))
	assert.Equal(t, 33.0, s.Snapshot().InertialUnit.Temperature)
}

func TestSnapshotSystemHealth(t *testing.T) {
	s := New(health.StaticProvider{})
	snap := s.Snapshot()

	assert.Equal(t, 45.0, snap.System.CPUTemp)
	assert.Equal(t, 30.5, snap.System.MemoryUsage)
	assert.Equal(t, 15.2, snap.System.DiskUsage)
	assert.Equal(t, types.StatusRunning, snap.System.Status)

	ts, err := time.Parse(time.RFC3339Nano, snap.System.LastUpdate)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().UTC(), ts, time.Second)
}

func TestUptimeMonotonic(t *testing.T) {
	s := New(nil)
	first := s.Snapshot().System.Uptime
	time.Sleep(150 * time.Millisecond)
	second := s.Snapshot().System.Uptime

	assert.GreaterOrEqual(t, second, first)
	assert.GreaterOrEqual(t, second, 0.1, "150ms elapsed should be visible at 0.1s resolution")
}

func TestConcurrentMergesAcrossChannels(t *testing.T) {
	s := New(nil)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			_ = s.Merge(ChannelInertialUnit, map[string]any{"temperature": float64(i)})
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			_ = s.Merge(ChannelBarometer, map[string]any{"pressure": float64(i)})
		}
	}()
	wg.Wait()

	snap := s.Snapshot()
	assert.Equal(t, 199.0, snap.InertialUnit.Temperature, "no lost update on inertial unit")
	assert.Equal(t, 199.0, snap.Barometer.Pressure, "no lost update on barometer")
}

func TestNoTornWrites(t *testing.T) {
	s := New(nil)

	// Writers always set x==y==z; a torn read would mix values from two merges.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 500; i++ {
			v := float64(i)
			_ = s.Merge(ChannelInertialUnit, map[string]any{
				"accelerometer": map[string]any{"x": v, "y": v, "z": v},
			})
		}
	}()

	for {
		select {
		case <-done:
			return
		default:
		}
		a := s.Snapshot().InertialUnit.Accelerometer
		require.Equal(t, a.X, a.Y, "torn write observed")
		require.Equal(t, a.X, a.Z, "torn write observed")
	}
}
