package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Result labels.
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// Metrics holds the decode and eval collectors of one run, registered on a
// private registry.
type Metrics struct {
	registry *prometheus.Registry

	decodeTotal    *prometheus.CounterVec
	decodeDuration prometheus.Histogram
	decodePackets  prometheus.Counter
	evalTotal      *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		decodeTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "bitsctl",
				Subsystem: "decode",
				Name:      "total",
				Help:      "Total BITS transmissions decoded.",
			},
			[]string{"result"},
		),
		decodeDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "bitsctl",
				Subsystem: "decode",
				Name:      "duration_seconds",
				Help:      "Time spent decoding one transmission.",
				Buckets:   prometheus.ExponentialBuckets(1e-6, 4, 10),
			},
		),
		decodePackets: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "bitsctl",
				Subsystem: "decode",
				Name:      "packets_total",
				Help:      "Packets produced by successful decodes.",
			},
		),
		evalTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "bitsctl",
				Subsystem: "eval",
				Name:      "total",
				Help:      "Evaluations by part and result.",
			},
			[]string{"part", "result"},
		),
	}
	m.registry.MustRegister(m.decodeTotal, m.decodeDuration, m.decodePackets, m.evalTotal)
	return m
}

// Gatherer exposes the registry the metrics are registered with.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}

func (m *Metrics) RecordDecode(packets int, duration time.Duration, err error) {
	result := ResultOK
	if err != nil {
		result = ResultError
	} else {
		m.decodePackets.Add(float64(packets))
	}
	m.decodeTotal.WithLabelValues(result).Inc()
	m.decodeDuration.Observe(duration.Seconds())
}

func (m *Metrics) RecordEval(part string, err error) {
	result := ResultOK
	if err != nil {
		result = ResultError
	}
	m.evalTotal.WithLabelValues(part, result).Inc()
}

// WriteTextfile dumps the gathered metrics to path in the Prometheus text
// format, for node_exporter's textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}
