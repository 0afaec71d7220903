package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Registry struct {
	reg *prometheus.Registry

	// publisher
	Published         *prometheus.CounterVec
	PublishFailed     *prometheus.CounterVec
	PublishRetries    prometheus.Counter
	PublishLatencySec prometheus.Histogram

	// consumer
	Applied         *prometheus.CounterVec
	Skipped         *prometheus.CounterVec
	Committed       prometheus.Counter
	ConsumeRetries  prometheus.Counter
	ConsumeFailures prometheus.Counter
}

// NewRegistry builds a private registry; namespace prefixes every metric name
// (e.g. "cart", "orders").
func NewRegistry(namespace string) *Registry {
	r := prometheus.NewRegistry()

	published := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Name: "events_published_total",
	}, []string{"topic"})
	publishFailed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Name: "events_publish_failed_total",
	}, []string{"topic"})
	publishRetries := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Name: "events_publish_retries_total",
	})
	publishLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "events_publish_latency_seconds",
		Buckets:   prometheus.DefBuckets,
	})

	applied := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Name: "events_applied_total",
	}, []string{"topic"})
	skipped := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Name: "events_skipped_total",
	}, []string{"topic"})
	committed := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Name: "offsets_committed_total",
	})
	consumeRetries := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Name: "consume_retries_total",
	})
	consumeFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Name: "consume_failures_total",
	})

	r.MustRegister(
		collectors.NewGoCollector(),
		published, publishFailed, publishRetries, publishLatency,
		applied, skipped, committed, consumeRetries, consumeFailures,
	)
	return &Registry{
		reg:               r,
		Published:         published,
		PublishFailed:     publishFailed,
		PublishRetries:    publishRetries,
		PublishLatencySec: publishLatency,
		Applied:           applied,
		Skipped:           skipped,
		Committed:         committed,
		ConsumeRetries:    consumeRetries,
		ConsumeFailures:   consumeFailures,
	}
}

func (r *Registry) Handler() http.Handler { return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{}) }
