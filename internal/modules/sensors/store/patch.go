package store

import (
	"fmt"
	"math"

	"dronectl-server/internal/modules/sensors/types"
)

// Patches are fully validated before any lock is taken: each *Patch holds
// pointers for the fields present in the payload and nil for the rest, which
// is what makes a failed merge atomic and a successful one field-partial.

type vecPatch struct {
	x, y, z *float64
}

func (p vecPatch) apply(v *types.Vector3) {
	if p.x != nil {
		v.X = *p.x
	}
	if p.y != nil {
		v.Y = *p.y
	}
	if p.z != nil {
		v.Z = *p.z
	}
}

type imuPatch struct {
	accel, gyro, mag vecPatch
	temperature      *float64
	calibrated       *bool
	status           *string
}

func (p imuPatch) apply(r *types.InertialUnit) {
	p.accel.apply(&r.Accelerometer)
	p.gyro.apply(&r.Gyroscope)
	p.mag.apply(&r.Magnetometer)
	if p.temperature != nil {
		r.Temperature = *p.temperature
	}
	if p.calibrated != nil {
		r.Calibrated = *p.calibrated
	}
	if p.status != nil {
		r.Status = *p.status
	}
}

func imuPatchFrom(fields map[string]any) (imuPatch, error) {
	var p imuPatch
	for name, v := range fields {
		var err error
		switch name {
		case "accelerometer":
			p.accel, err = vecPatchFrom(name, v)
		case "gyroscope":
			p.gyro, err = vecPatchFrom(name, v)
		case "magnetometer":
			p.mag, err = vecPatchFrom(name, v)
		case "temperature":
			p.temperature, err = floatField(name, v)
		case "calibrated":
			p.calibrated, err = boolField(name, v)
		case "status":
			p.status, err = enumField(name, v, types.StatusIdle, types.StatusActive, types.StatusError)
		default:
			err = fmt.Errorf("%w: unknown field %q", ErrInvalidField, name)
		}
		if err != nil {
			return imuPatch{}, err
		}
	}
	return p, nil
}

type baroPatch struct {
	pressure, temperature, altitude, seaLevel *float64
	calibrated                                *bool
	status                                    *string
}

func (p baroPatch) apply(r *types.Barometer) {
	if p.pressure != nil {
		r.Pressure = *p.pressure
	}
	if p.temperature != nil {
		r.Temperature = *p.temperature
	}
	if p.altitude != nil {
		r.Altitude = *p.altitude
	}
	if p.seaLevel != nil {
		r.SeaLevelPressure = *p.seaLevel
	}
	if p.calibrated != nil {
		r.Calibrated = *p.calibrated
	}
	if p.status != nil {
		r.Status = *p.status
	}
}

func baroPatchFrom(fields map[string]any) (baroPatch, error) {
	var p baroPatch
	for name, v := range fields {
		var err error
		switch name {
		case "pressure":
			p.pressure, err = floatField(name, v)
		case "temperature":
			p.temperature, err = floatField(name, v)
		case "altitude":
			p.altitude, err = floatField(name, v)
		case "sea_level_pressure":
			p.seaLevel, err = floatField(name, v)
		case "calibrated":
			p.calibrated, err = boolField(name, v)
		case "status":
			p.status, err = enumField(name, v, types.StatusIdle, types.StatusActive, types.StatusError)
		default:
			err = fmt.Errorf("%w: unknown field %q", ErrInvalidField, name)
		}
		if err != nil {
			return baroPatch{}, err
		}
	}
	return p, nil
}

type gpsPatch struct {
	latitude, longitude, altitude, speed, hdop *float64
	satellites                                 *int
	calibrated                                 *bool
	status                                     *string
}

func (p gpsPatch) apply(r *types.GPS) {
	if p.latitude != nil {
		r.Latitude = *p.latitude
	}
	if p.longitude != nil {
		r.Longitude = *p.longitude
	}
	if p.altitude != nil {
		r.Altitude = *p.altitude
	}
	if p.speed != nil {
		r.Speed = *p.speed
	}
	if p.hdop != nil {
		r.HDOP = *p.hdop
	}
	if p.satellites != nil {
		r.Satellites = *p.satellites
	}
	if p.calibrated != nil {
		r.Calibrated = *p.calibrated
	}
	if p.status != nil {
		r.Status = *p.status
	}
}

func gpsPatchFrom(fields map[string]any) (gpsPatch, error) {
	var p gpsPatch
	for name, v := range fields {
		var err error
		switch name {
		case "latitude":
			p.latitude, err = floatField(name, v)
		case "longitude":
			p.longitude, err = floatField(name, v)
		case "altitude":
			p.altitude, err = floatField(name, v)
		case "speed":
			p.speed, err = floatField(name, v)
		case "hdop":
			p.hdop, err = floatField(name, v)
			if err == nil && *p.hdop < 0 {
				err = fmt.Errorf("%w: hdop must be >= 0", ErrInvalidField)
			}
		case "satellites":
			p.satellites, err = intField(name, v)
			if err == nil && *p.satellites < 0 {
				err = fmt.Errorf("%w: satellites must be >= 0", ErrInvalidField)
			}
		case "calibrated":
			p.calibrated, err = boolField(name, v)
		case "status":
			p.status, err = enumField(name, v, types.StatusNoFix, types.StatusFix)
		default:
			err = fmt.Errorf("%w: unknown field %q", ErrInvalidField, name)
		}
		if err != nil {
			return gpsPatch{}, err
		}
	}
	return p, nil
}

// vecPatchFrom accepts a {x,y,z} object with any subset of components.
func vecPatchFrom(name string, v any) (vecPatch, error) {
	obj, ok := v.(map[string]any)
	if !ok {
		return vecPatch{}, fmt.Errorf("%w: %s must be an object with x/y/z components", ErrInvalidField, name)
	}
	var p vecPatch
	for axis, comp := range obj {
		var err error
		switch axis {
		case "x":
			p.x, err = floatField(name+".x", comp)
		case "y":
			p.y, err = floatField(name+".y", comp)
		case "z":
			p.z, err = floatField(name+".z", comp)
		default:
			err = fmt.Errorf("%w: unknown component %q of %s", ErrInvalidField, axis, name)
		}
		if err != nil {
			return vecPatch{}, err
		}
	}
	return p, nil
}

// JSON numbers decode as float64; accept native ints too so in-process
// callers (decoder, tests) don't have to round-trip through JSON.
func floatField(name string, v any) (*float64, error) {
	switch n := v.(type) {
	case float64:
		return &n, nil
	case float32:
		f := float64(n)
		return &f, nil
	case int:
		f := float64(n)
		return &f, nil
	case int64:
		f := float64(n)
		return &f, nil
	default:
		return nil, fmt.Errorf("%w: %s must be a number, got %T", ErrInvalidField, name, v)
	}
}

func intField(name string, v any) (*int, error) {
	switch n := v.(type) {
	case int:
		return &n, nil
	case int64:
		i := int(n)
		return &i, nil
	case float64:
		if n != math.Trunc(n) {
			return nil, fmt.Errorf("%w: %s must be an integer, got %v", ErrInvalidField, name, n)
		}
		i := int(n)
		return &i, nil
	default:
		return nil, fmt.Errorf("%w: %s must be an integer, got %T", ErrInvalidField, name, v)
	}
}

func boolField(name string, v any) (*bool, error) {
	b, ok := v.(bool)
	if !ok {
		return nil, fmt.Errorf("%w: %s must be a boolean, got %T", ErrInvalidField, name, v)
	}
	return &b, nil
}

func enumField(name string, v any, allowed ...string) (*string, error) {
	s, ok := v.(string)
	if !ok {
		return nil, fmt.Errorf("%w: %s must be a string, got %T", ErrInvalidField, name, v)
	}
	for _, a := range allowed {
		if s == a {
			return &s, nil
		}
	}
	return nil, fmt.Errorf("%w: %s %q not in %v", ErrInvalidField, name, s, allowed)
}
