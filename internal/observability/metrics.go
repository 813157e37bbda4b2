package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts what happens on the two ingestion paths. Register once per
// process (the default registerer in main, a fresh registry in tests).
type Metrics struct {
	FramesDecoded   prometheus.Counter
	FramesIgnored   prometheus.Counter
	FramesMalformed prometheus.Counter
	MergesApplied   *prometheus.CounterVec
	MergesRejected  *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		FramesDecoded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dronectl_frames_decoded_total",
			Help: "Telemetry frames decoded and applied to the sensor store.",
		}),
		FramesIgnored: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dronectl_frames_ignored_total",
			Help: "Inputs that did not match the sensor-data frame shape.",
		}),
		FramesMalformed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dronectl_frames_malformed_total",
			Help: "Frames with the right markers but an unparseable payload.",
		}),
		MergesApplied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dronectl_merges_applied_total",
			Help: "Successful channel merges.",
		}, []string{"channel"}),
		MergesRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dronectl_merges_rejected_total",
			Help: "Channel merges rejected by schema validation.",
		}, []string{"channel"}),
	}
	reg.MustRegister(m.FramesDecoded, m.FramesIgnored, m.FramesMalformed, m.MergesApplied, m.MergesRejected)
	return m
}
