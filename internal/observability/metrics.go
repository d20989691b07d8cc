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
			Namespace: "cody",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total admin sidecar HTTP requests.",
		},
		[]string{"node", "method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "cody",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Admin sidecar HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"node", "method", "path", "status"},
	)
	mapperRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cody",
			Subsystem: "mapper",
			Name:      "requests_total",
			Help:      "Module-mapper requests dispatched, by request and response verb.",
		},
		[]string{"node", "request", "response"},
	)
	mapperDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "cody",
			Subsystem: "mapper",
			Name:      "dispatch_duration_seconds",
			Help:      "Time spent dispatching one module-mapper request to a resolver.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"node", "request"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(httpRequests, httpDuration, mapperRequests, mapperDuration)
	})
}

func RecordHTTPRequest(node, method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(node, method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(node, method, path, statusLabel).Observe(duration.Seconds())
}

// RecordMapperRequest tallies one dispatched module-mapper request, labeled
// by the request verb it decoded to and the response verb the server sent.
func RecordMapperRequest(node, requestVerb, responseVerb string, duration time.Duration) {
	RegisterMetrics()
	mapperRequests.WithLabelValues(node, requestVerb, responseVerb).Inc()
	mapperDuration.WithLabelValues(node, requestVerb).Observe(duration.Seconds())
}
