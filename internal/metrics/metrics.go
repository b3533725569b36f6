package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	connectionState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fprax_notify_connection_state",
			Help: "Real-time connection state (1 connected, 0 disconnected)",
		},
	)

	reconnectAttempts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fprax_notify_reconnect_attempts_total",
			Help: "Total reconnection attempts scheduled",
		},
	)

	framesReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fprax_notify_frames_total",
			Help: "Inbound frames by type",
		},
		[]string{"type"},
	)

	framesMalformed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fprax_notify_frames_malformed_total",
			Help: "Inbound frames discarded as malformed",
		},
	)

	notificationsStored = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fprax_notify_notifications_stored_total",
			Help: "Notifications inserted into the session store",
		},
	)

	unreadCount = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fprax_notify_unread_count",
			Help: "Current unread notification count",
		},
	)

	alertsDelivered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fprax_notify_alerts_delivered_total",
			Help: "Notifications mirrored to the host alert facility",
		},
	)

	commandsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fprax_notify_commands_dropped_total",
			Help: "Outbound commands dropped because the transport was closed",
		},
	)

	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fprax_notify_http_requests_total",
			Help: "Total HTTP requests by method, path, and status",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fprax_notify_http_request_duration_seconds",
			Help:    "HTTP request latency distribution",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "path"},
	)
)

// Handler returns the Prometheus metrics HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// SetConnected records the real-time connection state.
func SetConnected(connected bool) {
	if connected {
		connectionState.Set(1)
	} else {
		connectionState.Set(0)
	}
}

// RecordReconnectAttempt records one scheduled reconnection attempt.
func RecordReconnectAttempt() {
	reconnectAttempts.Inc()
}

// RecordFrame records an inbound frame by type.
func RecordFrame(frameType string) {
	framesReceived.WithLabelValues(frameType).Inc()
}

// RecordMalformedFrame records a discarded malformed frame.
func RecordMalformedFrame() {
	framesMalformed.Inc()
}

// RecordNotificationStored records one store insertion.
func RecordNotificationStored() {
	notificationsStored.Inc()
}

// SetUnreadCount sets the unread gauge.
func SetUnreadCount(n int) {
	unreadCount.Set(float64(n))
}

// RecordAlertDelivered records one host alert.
func RecordAlertDelivered() {
	alertsDelivered.Inc()
}

// RecordCommandDropped records an outbound command dropped while the
// transport was closed.
func RecordCommandDropped() {
	commandsDropped.Inc()
}

// RecordRequest records HTTP request metrics
func RecordRequest(method, path string, status int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

// Middleware returns HTTP middleware that records request metrics
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		RecordRequest(r.Method, r.URL.Path, wrapped.status, time.Since(start))
	})
}
