package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/recomarket/recomarket-backend/internal/domain/offer"
	"github.com/recomarket/recomarket-backend/internal/domain/sellrequest"
)

// Collector records auction domain metrics against a Prometheus registry
type Collector struct {
	registry *prometheus.Registry

	sellRequestsOpened *prometheus.CounterVec
	offersSubmitted    *prometheus.CounterVec
	awardsTotal        prometheus.Counter
	awardConflicts     prometheus.Counter
	awardDuration      prometheus.Histogram

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// NewCollector creates a collector with its own registry
func NewCollector() *Collector {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Collector{
		registry: registry,
		sellRequestsOpened: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "recomarket_sell_requests_opened_total",
			Help: "Total sell requests opened, by category",
		}, []string{"category"}),
		offersSubmitted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "recomarket_offers_submitted_total",
			Help: "Total offers submitted, by currency",
		}, []string{"currency"}),
		awardsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "recomarket_awards_total",
			Help: "Total successful awards",
		}),
		awardConflicts: factory.NewCounter(prometheus.CounterOpts{
			Name: "recomarket_award_conflicts_total",
			Help: "Awards rejected because the sell request was already resolved",
		}),
		awardDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "recomarket_award_duration_seconds",
			Help:    "Time spent applying an award",
			Buckets: prometheus.DefBuckets,
		}),
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "recomarket_http_requests_total",
			Help: "Total HTTP requests, by method, route and status",
		}, []string{"method", "route", "status"}),
		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "recomarket_http_request_duration_seconds",
			Help:    "HTTP request latency, by method and route",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// RecordSellRequestOpened increments the opened counter
func (c *Collector) RecordSellRequestOpened(_ context.Context, r *sellrequest.SellRequest) {
	c.sellRequestsOpened.WithLabelValues(string(r.Category)).Inc()
}

// RecordOfferSubmitted increments the submitted counter
func (c *Collector) RecordOfferSubmitted(_ context.Context, o *offer.Offer) {
	c.offersSubmitted.WithLabelValues(o.Price.Currency()).Inc()
}

// RecordAward records a successful award and its duration
func (c *Collector) RecordAward(_ context.Context, _ uuid.UUID, duration time.Duration) {
	c.awardsTotal.Inc()
	c.awardDuration.Observe(duration.Seconds())
}

// RecordAwardConflict counts an award that lost the resolution race
func (c *Collector) RecordAwardConflict(_ context.Context, _ uuid.UUID) {
	c.awardConflicts.Inc()
}

// RecordHTTPRequest records one served request
func (c *Collector) RecordHTTPRequest(method, route string, status string, duration time.Duration) {
	c.httpRequests.WithLabelValues(method, route, status).Inc()
	c.httpDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// Handler exposes the registry in Prometheus exposition format
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
