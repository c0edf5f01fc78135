package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Resolution outcome labels.
const (
	ResolutionComplete          = "complete"
	ResolutionFailsafe          = "failsafe"
	ResolutionTimeout           = "timeout"
	ResolutionMalformedIdentity = "malformed_identity"
)

// Notification outcome labels.
const (
	NotificationShown        = "shown"
	NotificationDeduplicated = "deduplicated"
	NotificationBurstDropped = "burst_dropped"
)

// Metrics collects Prometheus metrics for the application.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	access          *AccessMetrics
}

// AccessMetrics counts access-resolution events.
type AccessMetrics struct {
	resolutions   *prometheus.CounterVec
	cacheLookups  *prometheus.CounterVec
	notifications *prometheus.CounterVec
	denials       prometheus.Counter
}

// NewMetrics initialises the registry and base metrics.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "verdantrx_http_requests_total",
		Help: "HTTP requests by route and status code.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "verdantrx_http_request_duration_seconds",
		Help:    "HTTP request duration per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	registry.MustRegister(requests, duration)

	access := &AccessMetrics{
		resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "verdantrx_role_resolutions_total",
			Help: "Role resolution cycles by outcome.",
		}, []string{"outcome"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "verdantrx_admin_cache_lookups_total",
			Help: "Admin status cache lookups by result.",
		}, []string{"result"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "verdantrx_denial_notifications_total",
			Help: "Denial notification attempts by outcome.",
		}, []string{"outcome"}),
		denials: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "verdantrx_route_denials_total",
			Help: "Navigations denied by the route guard.",
		}),
	}
	registry.MustRegister(access.resolutions, access.cacheLookups, access.notifications, access.denials)

	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:   requests,
		requestDuration: duration,
		access:          access,
	}
}

// Handler returns the http.Handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Access returns the access-resolution counters.
func (m *Metrics) Access() *AccessMetrics {
	if m == nil {
		return nil
	}
	return m.access
}

// Middleware records metrics for every HTTP request.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// Registerer exposes the registry for custom metric registration.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

// ObserveResolution counts one resolution cycle by outcome.
func (a *AccessMetrics) ObserveResolution(outcome string) {
	if a == nil {
		return
	}
	a.resolutions.WithLabelValues(outcome).Inc()
}

// ObserveAdminCache counts one cache lookup.
func (a *AccessMetrics) ObserveAdminCache(hit bool) {
	if a == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	a.cacheLookups.WithLabelValues(result).Inc()
}

// ObserveNotification counts one notification attempt by outcome.
func (a *AccessMetrics) ObserveNotification(outcome string) {
	if a == nil {
		return
	}
	a.notifications.WithLabelValues(outcome).Inc()
}

// ObserveDenial counts one denied navigation.
func (a *AccessMetrics) ObserveDenial() {
	if a == nil {
		return
	}
	a.denials.Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
