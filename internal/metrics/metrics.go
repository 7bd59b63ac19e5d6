package metrics

import (
	"context"
	"net/http"
	"time"

	"backend-roadtrip/internal/apperr"
	"backend-roadtrip/internal/change"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Collector struct {
	reg *prometheus.Registry

	Operations *prometheus.CounterVec // op, outcome
	Changes    *prometheus.CounterVec // kind

	AssemblyDuration *prometheus.HistogramVec // scope: stint|trip
	CacheLookups     *prometheus.CounterVec   // result: hit|miss

	NATSPublished   prometheus.Counter
	NATSPublishErrs prometheus.Counter
	NATSConnected   prometheus.Gauge
	PublishDuration prometheus.Histogram
}

func NewCollector() *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		Operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "roadtrip_sequence_operations_total",
			Help: "Sequencing operations by outcome.",
		}, []string{"op", "outcome"}),
		Changes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "roadtrip_changes_total",
			Help: "Committed changes by kind.",
		}, []string{"kind"}),
		AssemblyDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "roadtrip_timeline_assembly_seconds",
			Help:    "Duration of timeline assembly including reads.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 15),
		}, []string{"scope"}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "roadtrip_timeline_cache_lookups_total",
			Help: "Trip timeline cache lookups by result.",
		}, []string{"result"}),
		NATSPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "roadtrip_nats_published_total",
			Help: "Total NATS messages published.",
		}),
		NATSPublishErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "roadtrip_nats_publish_errors_total",
			Help: "Total NATS publish errors.",
		}),
		NATSConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "roadtrip_nats_connected",
			Help: "1 if NATS connection is established, 0 otherwise.",
		}),
		PublishDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "roadtrip_publish_duration_seconds",
			Help:    "Duration to publish a NATS message.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 15),
		}),
	}

	reg.MustRegister(
		c.Operations, c.Changes,
		c.AssemblyDuration, c.CacheLookups,
		c.NATSPublished, c.NATSPublishErrs, c.NATSConnected, c.PublishDuration,
		collectors.NewGoCollector(),
	)
	return c
}

func (c *Collector) Handler() http.Handler { return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{}) }

// Outcome buckets an operation error into a low-cardinality label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case apperr.IsRetryable(err):
		return "inconsistent"
	case apperr.Is(err, apperr.KindValidation):
		return "invalid"
	case apperr.Is(err, apperr.KindNotFound):
		return "not_found"
	case apperr.Is(err, apperr.KindConflict):
		return "conflict"
	case apperr.Is(err, apperr.KindForbidden):
		return "forbidden"
	}
	return "error"
}

func (c *Collector) ObserveOperation(op string, err error) {
	c.Operations.WithLabelValues(op, Outcome(err)).Inc()
}

func (c *Collector) ObserveAssembly(scope string, d time.Duration, _ error) {
	c.AssemblyDuration.WithLabelValues(scope).Observe(d.Seconds())
}

func (c *Collector) ObserveCache(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	c.CacheLookups.WithLabelValues(result).Inc()
}

// Notify implements change.Notifier.
func (c *Collector) Notify(_ context.Context, ch change.Change) error {
	c.Changes.WithLabelValues(string(ch.Kind)).Inc()
	return nil
}

func (c *Collector) NATSPublishedInc()              { c.NATSPublished.Inc() }
func (c *Collector) NATSPublishErrInc()             { c.NATSPublishErrs.Inc() }
func (c *Collector) PublishObserve(d time.Duration) { c.PublishDuration.Observe(d.Seconds()) }

func (c *Collector) NATSSetConnected(connected bool) {
	if connected {
		c.NATSConnected.Set(1)
		return
	}
	c.NATSConnected.Set(0)
}
