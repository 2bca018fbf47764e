package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SalesCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gestistock_sales_created_total",
		Help: "Total number of sales recorded",
	})

	SalesFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gestistock_sales_failed_total",
		Help: "Total number of rejected sale requests",
	}, []string{"reason"})

	SalesCancelledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gestistock_sales_cancelled_total",
		Help: "Total number of deleted sales",
	})

	SaleProcessingLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "gestistock_sale_processing_latency_seconds",
		Help:    "Latency of sale creation",
		Buckets: prometheus.DefBuckets,
	})

	PaymentsRecordedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gestistock_payments_recorded_total",
		Help: "Total number of payments recorded",
	}, []string{"method"})

	ClientsPromotedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gestistock_clients_promoted_total",
		Help: "Total number of clients promoted to vip",
	})

	StockMovementsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gestistock_stock_movements_total",
		Help: "Total number of stock movements recorded",
	}, []string{"type", "reason"})

	StockRejectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gestistock_stock_rejections_total",
		Help: "Total number of stock mutations rejected",
	}, []string{"reason"})

	StockAlertsCreatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gestistock_stock_alerts_created_total",
		Help: "Total number of stock alert notifications created",
	}, []string{"type"})

	EventsPublishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gestistock_events_published_total",
		Help: "Total number of events published to Kafka",
	}, []string{"type"})

	StatsCacheTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gestistock_stats_cache_total",
		Help: "Stats cache lookups by result",
	}, []string{"result"})

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
