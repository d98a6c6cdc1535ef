package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CartAddsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cart_adds_total",
		Help: "Total number of add-to-cart operations",
	})

	CartRemovalsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cart_removals_total",
		Help: "Total number of cart line removals",
	})

	CartClearsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cart_clears_total",
		Help: "Total number of cart clears",
	})

	CartPersistFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_persist_failures_total",
		Help: "Total number of failed cart snapshot saves",
	}, []string{"backend"})

	CartRestoresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_restores_total",
		Help: "Total number of cart restores by outcome",
	}, []string{"outcome"})

	PipelineDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pipeline_duration_seconds",
		Help:    "Latency of filter/sort pipeline runs",
		Buckets: prometheus.DefBuckets,
	})

	CatalogRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_requests_total",
		Help: "Total number of upstream catalog requests",
	}, []string{"operation", "outcome"})

	CatalogCacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_cache_hits_total",
		Help: "Product cache lookups by outcome",
	}, []string{"outcome"})

	MirrorWritesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mirror_writes_total",
		Help: "Upstream cart mirror writes by outcome",
	}, []string{"outcome"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
