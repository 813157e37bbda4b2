// Package telemetry decodes the delimited frames the STM32 bridge emits:
//
//	<SENSOR_DATA|MPU|ax|ay|az|gx|gy|gz|BMP|pressure|temperature[|altitude]>
//
// A frame that does not match the marker shape is Unrecognized (the bridge
// also sends heartbeats and other frame types; those are ignored, not
// errors). A frame that matches the shape but carries tokens that fail to
// parse is Malformed and must surface to the sender as a client error.
package telemetry

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"dronectl-server/internal/modules/sensors/types"
)

var (
	// ErrUnrecognized means the input is not a sensor-data frame at all.
	ErrUnrecognized = errors.New("unrecognized frame")

	// ErrMalformed means the frame matched the marker shape but a payload
	// token is not a valid number.
	ErrMalformed = errors.New("malformed frame")
)

const (
	tokenHeader = "SENSOR_DATA"
	tokenMPU    = "MPU"
	tokenBMP    = "BMP"

	// Tokens 0-10 are mandatory; token 11 (altitude) is optional.
	minTokens = 11
)

// Frame is one decoded telemetry frame.
type Frame struct {
	Accelerometer types.Vector3
	Gyroscope     types.Vector3
	Pressure      float64
	Temperature   float64
	Altitude      float64
}

// Decode parses one raw frame. It returns ErrUnrecognized for input that is
// not a sensor-data frame and ErrMalformed (wrapped, with token detail) for a
// frame with a corrupt payload.
func Decode(raw []byte) (*Frame, error) {
	s := strings.TrimSpace(string(raw))
	if len(s) < 2 || !strings.HasPrefix(s, "<") || !strings.HasSuffix(s, ">") {
		return nil, ErrUnrecognized
	}

	parts := strings.Split(s[1:len(s)-1], "|")
	if len(parts) < minTokens || parts[0] != tokenHeader || parts[1] != tokenMPU || parts[8] != tokenBMP {
		return nil, ErrUnrecognized
	}

	values, err := parseFloats(parts, 2, 3, 4, 5, 6, 7, 9, 10)
	if err != nil {
		return nil, err
	}

	f := &Frame{
		Accelerometer: types.Vector3{X: values[0], Y: values[1], Z: values[2]},
		Gyroscope:     types.Vector3{X: values[3], Y: values[4], Z: values[5]},
		Pressure:      values[6],
		Temperature:   values[7],
	}
	if len(parts) > minTokens {
		f.Altitude, err = parseFloat(parts, 11)
		if err != nil {
			return nil, err
		}
	}
	return f, nil
}

// InertialFields is the merge payload for the inertial unit channel. Per the
// wire contract a decoded frame marks the channel calibrated and active; the
// magnetometer is never carried by this frame type.
func (f *Frame) InertialFields() map[string]any {
	return map[string]any{
		"accelerometer": map[string]any{"x": f.Accelerometer.X, "y": f.Accelerometer.Y, "z": f.Accelerometer.Z},
		"gyroscope":     map[string]any{"x": f.Gyroscope.X, "y": f.Gyroscope.Y, "z": f.Gyroscope.Z},
		"calibrated":    true,
		"status":        types.StatusActive,
	}
}

// BarometerFields is the merge payload for the barometer channel. Altitude is
// zero when the frame omitted the optional 12th token.
func (f *Frame) BarometerFields() map[string]any {
	return map[string]any{
		"pressure":    f.Pressure,
		"temperature": f.Temperature,
		"altitude":    f.Altitude,
		"calibrated":  true,
		"status":      types.StatusActive,
	}
}

func parseFloats(parts []string, indexes ...int) ([]float64, error) {
	out := make([]float64, 0, len(indexes))
	for _, i := range indexes {
		v, err := parseFloat(parts, i)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func parseFloat(parts []string, i int) (float64, error) {
	if i >= len(parts) {
		return 0, fmt.Errorf("%w: missing token %d", ErrMalformed, i)
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(parts[i]), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: token %d %q is not a number", ErrMalformed, i, parts[i])
	}
	return v, nil
}
