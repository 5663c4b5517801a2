package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "gateway"

// PrometheusRecorder exports metrics through a Prometheus registry.
type PrometheusRecorder struct {
	registry *prometheus.Registry

	tokensIssued    *prometheus.CounterVec
	tokensFailed    *prometheus.CounterVec
	tokenDuration   *prometheus.HistogramVec
	checkoutLookups *prometheus.CounterVec
	checkoutCreated prometheus.Counter
	passwordSetups  *prometheus.CounterVec
	webhookEvents   *prometheus.CounterVec
	purged          *prometheus.CounterVec
}

// NewPrometheus registers the gateway collectors on a fresh registry.
func NewPrometheus() *PrometheusRecorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &PrometheusRecorder{
		registry: reg,
		tokensIssued: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "token",
			Name:      "issued_total",
			Help:      "Chat tokens issued",
		}, []string{"variant"}),
		tokensFailed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "token",
			Name:      "failed_total",
			Help:      "Chat token issuance failures",
		}, []string{"variant"}),
		tokenDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "token",
			Name:      "duration_seconds",
			Help:      "Time spent minting a chat token, including user upsert",
			Buckets:   prometheus.DefBuckets,
		}, []string{"variant"}),
		checkoutLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "billing",
			Name:      "checkout_lookups_total",
			Help:      "Checkout email lookups by outcome",
		}, []string{"status"}),
		checkoutCreated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "billing",
			Name:      "checkout_sessions_created_total",
			Help:      "Checkout sessions created",
		}),
		passwordSetups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "account",
			Name:      "password_setups_total",
			Help:      "Password setups by outcome",
		}, []string{"status"}),
		webhookEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "billing",
			Name:      "webhook_events_total",
			Help:      "Payments webhook events by type and outcome",
		}, []string{"type", "status"}),
		purged: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "maintenance",
			Name:      "purged_entries_total",
			Help:      "Entries removed by purge operations",
		}, []string{"store"}),
	}
}

// Handler serves the registry in Prometheus exposition format.
func (p *PrometheusRecorder) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (p *PrometheusRecorder) Registry() *prometheus.Registry {
	return p.registry
}

func (p *PrometheusRecorder) IncTokenIssued(variant string) {
	p.tokensIssued.WithLabelValues(variant).Inc()
}

func (p *PrometheusRecorder) IncTokenFailed(variant string) {
	p.tokensFailed.WithLabelValues(variant).Inc()
}

func (p *PrometheusRecorder) ObserveTokenDuration(variant string, duration time.Duration) {
	p.tokenDuration.WithLabelValues(variant).Observe(duration.Seconds())
}

func (p *PrometheusRecorder) IncCheckoutLookup(status string) {
	p.checkoutLookups.WithLabelValues(status).Inc()
}

func (p *PrometheusRecorder) IncCheckoutSessionCreated() {
	p.checkoutCreated.Inc()
}

func (p *PrometheusRecorder) IncPasswordSetup(status string) {
	p.passwordSetups.WithLabelValues(status).Inc()
}

func (p *PrometheusRecorder) IncWebhookEvent(eventType, status string) {
	p.webhookEvents.WithLabelValues(eventType, status).Inc()
}

func (p *PrometheusRecorder) AddPurged(store string, count int) {
	if count <= 0 {
		return
	}
	p.purged.WithLabelValues(store).Add(float64(count))
}
