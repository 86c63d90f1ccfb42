package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "irlink",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"node", "method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "irlink",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"node", "method", "path", "status"},
	)
	framesSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "irlink",
			Subsystem: "link",
			Name:      "frames_sent_total",
			Help:      "Frames handed to the active channel.",
		},
		[]string{"channel"},
	)
	framesReceived = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "irlink",
			Subsystem: "link",
			Name:      "frames_received_total",
			Help:      "Complete frames returned by the active channel.",
		},
		[]string{"channel"},
	)
	framesDiscarded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "irlink",
			Subsystem: "link",
			Name:      "frames_discarded_total",
			Help:      "Partial or malformed frames dropped during receive.",
		},
		[]string{"channel", "reason"},
	)
	linkErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "irlink",
			Subsystem: "link",
			Name:      "errors_total",
			Help:      "Errors returned by channel operations.",
		},
		[]string{"channel", "op"},
	)
	frameBytes = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "irlink",
			Subsystem: "link",
			Name:      "frame_payload_bytes",
			Help:      "Payload size of frames sent and received.",
			Buckets:   []float64{0, 8, 16, 32, 64, 128, 255},
		},
		[]string{"channel", "direction"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(httpRequests, httpDuration, framesSent, framesReceived, framesDiscarded, linkErrors, frameBytes)
	})
}

func RecordHTTPRequest(node, method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(node, method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(node, method, path, statusLabel).Observe(duration.Seconds())
}

func RecordFrameSent(channel string, size int) {
	RegisterMetrics()
	framesSent.WithLabelValues(channel).Inc()
	frameBytes.WithLabelValues(channel, "tx").Observe(float64(size))
}

func RecordFrameReceived(channel string, size int) {
	RegisterMetrics()
	framesReceived.WithLabelValues(channel).Inc()
	frameBytes.WithLabelValues(channel, "rx").Observe(float64(size))
}

func RecordFrameDiscarded(channel, reason string) {
	RegisterMetrics()
	framesDiscarded.WithLabelValues(channel, reason).Inc()
}

func RecordLinkError(channel, op string) {
	RegisterMetrics()
	linkErrors.WithLabelValues(channel, op).Inc()
}
