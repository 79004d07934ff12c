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
			Namespace: "taskkit",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"service", "method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "taskkit",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path", "status"},
	)
	linkDownloads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "taskkit",
			Subsystem: "download",
			Name:      "links_total",
			Help:      "External links fetched on behalf of tasks.",
		},
		[]string{"service", "scheme", "success"},
	)
	linkDownloadDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "taskkit",
			Subsystem: "download",
			Name:      "link_duration_seconds",
			Help:      "External link fetch duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "scheme", "success"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(httpRequests, httpDuration, linkDownloads, linkDownloadDuration)
	})
}

func RecordHTTPRequest(service, method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(service, method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(service, method, path, statusLabel).Observe(duration.Seconds())
}

func RecordLinkDownload(service, scheme string, duration time.Duration, success bool) {
	RegisterMetrics()
	successLabel := strconv.FormatBool(success)
	linkDownloads.WithLabelValues(service, scheme, successLabel).Inc()
	linkDownloadDuration.WithLabelValues(service, scheme, successLabel).Observe(duration.Seconds())
}
