package mailbox

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "serialmailbox"

// hubMetrics mirrors the hub counters as Prometheus collectors. The
// collectors always exist; they are only registered when WithMetrics is set.
type hubMetrics struct {
	linesRead      prometheus.Counter
	linesDiscarded prometheus.Counter
	linesTruncated prometheus.Counter
	rejected       prometheus.Counter
	bytesWritten   prometheus.Counter
	consumers      prometheus.Gauge
	evictions      *prometheus.CounterVec
	drops          *prometheus.CounterVec
}

func newHubMetrics() *hubMetrics {
	return &hubMetrics{
		linesRead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "lines_read_total",
			Help:      "Total number of lines assembled from the serial input",
		}),
		linesDiscarded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "lines_discarded_total",
			Help:      "Total number of lines discarded because they were empty after trimming",
		}),
		linesTruncated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "lines_truncated_total",
			Help:      "Total number of lines cut at the assembly limit",
		}),
		rejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "registrations_rejected_total",
			Help:      "Total number of failed consumer registrations",
		}),
		bytesWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "bytes_written_total",
			Help:      "Total number of bytes written to the serial output",
		}),
		consumers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "consumers",
			Help:      "Number of registered consumers",
		}),
		evictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "queue_evictions_total",
			Help:      "Total number of oldest lines evicted from a full consumer queue",
		}, []string{"consumer"}),
		drops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "queue_drops_total",
			Help:      "Total number of lines dropped for a consumer after eviction and retry",
		}, []string{"consumer"}),
	}
}

func (m *hubMetrics) register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{
		m.linesRead, m.linesDiscarded, m.linesTruncated, m.rejected,
		m.bytesWritten, m.consumers, m.evictions, m.drops,
	} {
		if err := reg.Register(c); err != nil {
			return fmt.Errorf("register metrics: %w", err)
		}
	}
	return nil
}
