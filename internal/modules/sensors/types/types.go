package types

// Status values a sensor channel can report.
const (
	StatusIdle    = "idle"
	StatusActive  = "active"
	StatusError   = "error"
	StatusNoFix   = "no_fix"
	StatusFix     = "fix"
	StatusRunning = "running"
)

// DefaultSeaLevelPressure is the standard atmosphere in hPa, used as the
// barometer's reference until a caller supplies its own.
const DefaultSeaLevelPressure = 1013.25

type Vector3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// InertialUnit is the current MPU (IMU) reading. The magnetometer is carried
// for completeness but is never populated by the microcontroller frame.
type InertialUnit struct {
	Accelerometer Vector3 `json:"accelerometer"`
	Gyroscope     Vector3 `json:"gyroscope"`
	Magnetometer  Vector3 `json:"magnetometer"`
	Temperature   float64 `json:"temperature"`
	Calibrated    bool    `json:"calibrated"`
	Status        string  `json:"status"`
}

type Barometer struct {
	Pressure         float64 `json:"pressure"`
	Temperature      float64 `json:"temperature"`
	Altitude         float64 `json:"altitude"`
	SeaLevelPressure float64 `json:"sea_level_pressure"`
	Calibrated       bool    `json:"calibrated"`
	Status           string  `json:"status"`
}

type GPS struct {
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
	Altitude   float64 `json:"altitude"`
	Speed      float64 `json:"speed"`
	Satellites int     `json:"satellites"`
	HDOP       float64 `json:"hdop"`
	Status     string  `json:"status"`
	Calibrated bool    `json:"calibrated"`
}

// SystemHealth is derived state: uptime and last_update are recomputed on
// every snapshot, the host metrics come from a health.Provider.
type SystemHealth struct {
	Uptime      float64 `json:"uptime"`
	CPUTemp     float64 `json:"cpu_temp"`
	MemoryUsage float64 `json:"memory_usage"`
	DiskUsage   float64 `json:"disk_usage"`
	Status      string  `json:"status"`
	LastUpdate  string  `json:"last_update"`
}

// Snapshot is a consistent point-in-time copy of all four channels.
type Snapshot struct {
	InertialUnit InertialUnit `json:"inertial_unit"`
	Barometer    Barometer    `json:"barometer"`
	GPS          GPS          `json:"gps"`
	System       SystemHealth `json:"system"`
}
