package health

import (
	"log/slog"
	"strings"

	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/sensors"
)

// Metrics is one sample of host health for the system channel.
type Metrics struct {
	CPUTemp     float64
	MemoryUsage float64
	DiskUsage   float64
}

// Provider supplies host metrics for the system channel. Sample must never
// fail; providers degrade to zero or simulated values instead.
type Provider interface {
	Sample() Metrics
}

// StaticProvider returns fixed values. It is the default when the host has no
// instrumentation worth trusting (e.g. inside a container on the bench).
type StaticProvider struct{}

func (StaticProvider) Sample() Metrics {
	return Metrics{CPUTemp: 45.0, MemoryUsage: 30.5, DiskUsage: 15.2}
}

// HostProvider samples the real host via gopsutil. Individual probe failures
// leave the corresponding metric at zero rather than failing the snapshot.
type HostProvider struct {
	// DiskPath is the mount point to report usage for. Defaults to "/".
	DiskPath string
}

func (p HostProvider) Sample() Metrics {
	var m Metrics

	if vm, err := mem.VirtualMemory(); err == nil {
		m.MemoryUsage = vm.UsedPercent
	} else {
		slog.Debug("memory probe failed", "error", err)
	}

	path := p.DiskPath
	if path == "" {
		path = "/"
	}
	if du, err := disk.Usage(path); err == nil {
		m.DiskUsage = du.UsedPercent
	} else {
		slog.Debug("disk probe failed", "path", path, "error", err)
	}

	if temps, err := sensors.SensorsTemperatures(); err == nil {
		m.CPUTemp = cpuTemperature(temps)
	} else {
		slog.Debug("temperature probe failed", "error", err)
	}

	return m
}

// cpuTemperature picks the CPU package sensor if one is identifiable,
// otherwise the first reported temperature.
func cpuTemperature(temps []sensors.TemperatureStat) float64 {
	for _, t := range temps {
		key := strings.ToLower(t.SensorKey)
		if strings.Contains(key, "coretemp") || strings.Contains(key, "cpu") || strings.Contains(key, "k10temp") {
			return t.Temperature
		}
	}
	if len(temps) > 0 {
		return temps[0].Temperature
	}
	return 0
}
