package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type Collector struct {
	reg *prometheus.Registry

	TrackedEntities  *prometheus.GaugeVec // feed label
	ActiveAnimations prometheus.Gauge
	AgeLabels        prometheus.Gauge

	EntitiesCreated  *prometheus.CounterVec
	EntitiesRemoved  *prometheus.CounterVec
	EntitiesAnimated *prometheus.CounterVec
	EntitiesSnapped  *prometheus.CounterVec
	RecordsSkipped   *prometheus.CounterVec
	CreateFailures   *prometheus.CounterVec

	Snapshots   *prometheus.CounterVec
	FetchErrors *prometheus.CounterVec // feed, kind labels: network|malformed

	NATSPublished   prometheus.Counter
	NATSPublishErrs prometheus.Counter
	NATSConnected   prometheus.Gauge

	RouteRefreshes *prometheus.CounterVec // result label: ok|error

	FetchDuration     *prometheus.HistogramVec
	ReconcileDuration prometheus.Histogram
	PublishDuration   prometheus.Histogram

	PollInterval      *prometheus.GaugeVec // seconds
	JumpThreshold     *prometheus.GaugeVec // meters
	FreshnessInterval prometheus.Gauge     // seconds
}

// FeedSettings describes one configured feed for the static gauges.
type FeedSettings struct {
	Name          string
	PollInterval  time.Duration
	JumpThreshold float64
}

func NewCollector(feeds []FeedSettings, freshnessInterval time.Duration) *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		TrackedEntities: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "transitmap_tracked_entities",
			Help: "Number of vehicles currently shown on the map.",
		}, []string{"feed"}),
		ActiveAnimations: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "transitmap_active_animations",
			Help: "Number of marker animations in flight.",
		}),
		AgeLabels: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "transitmap_age_labels",
			Help: "Number of freshness labels refreshed per tick.",
		}),
		EntitiesCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "transitmap_entities_created_total",
			Help: "Total markers created.",
		}, []string{"feed"}),
		EntitiesRemoved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "transitmap_entities_removed_total",
			Help: "Total markers removed after disappearing from a snapshot.",
		}, []string{"feed"}),
		EntitiesAnimated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "transitmap_entities_animated_total",
			Help: "Total position changes animated.",
		}, []string{"feed"}),
		EntitiesSnapped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "transitmap_entities_snapped_total",
			Help: "Total position changes at or above the jump threshold.",
		}, []string{"feed"}),
		RecordsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "transitmap_records_skipped_total",
			Help: "Total records without identifier or usable position.",
		}, []string{"feed"}),
		CreateFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "transitmap_marker_create_failures_total",
			Help: "Total records whose marker could not be created; retried on the next snapshot.",
		}, []string{"feed"}),
		Snapshots: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "transitmap_snapshots_total",
			Help: "Total snapshots reconciled.",
		}, []string{"feed"}),
		FetchErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "transitmap_fetch_errors_total",
			Help: "Total failed feed fetches.",
		}, []string{"feed", "kind"}),
		NATSPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "transitmap_nats_published_total",
			Help: "Total NATS messages published.",
		}),
		NATSPublishErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "transitmap_nats_publish_errors_total",
			Help: "Total NATS publish errors.",
		}),
		NATSConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "transitmap_nats_connected",
			Help: "1 if NATS connection is established, 0 otherwise.",
		}),
		RouteRefreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "transitmap_route_refreshes_total",
			Help: "Route directory reloads.",
		}, []string{"result"}),
		FetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "transitmap_fetch_duration_seconds",
			Help:    "Duration of feed requests including decoding.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}, []string{"feed"}),
		ReconcileDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "transitmap_reconcile_duration_seconds",
			Help:    "Duration of snapshot reconciliation.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 15),
		}),
		PublishDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "transitmap_publish_duration_seconds",
			Help:    "Duration to marshal and publish a NATS message.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 15),
		}),
		PollInterval: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "transitmap_poll_interval_seconds",
			Help: "Configured poll interval per feed.",
		}, []string{"feed"}),
		JumpThreshold: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "transitmap_jump_threshold_meters",
			Help: "Configured jump threshold per feed.",
		}, []string{"feed"}),
		FreshnessInterval: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "transitmap_freshness_interval_seconds",
			Help: "Freshness label refresh interval in seconds.",
		}),
	}

	// Register
	reg.MustRegister(
		c.TrackedEntities, c.ActiveAnimations, c.AgeLabels,
		c.EntitiesCreated, c.EntitiesRemoved, c.EntitiesAnimated, c.EntitiesSnapped, c.RecordsSkipped, c.CreateFailures,
		c.Snapshots, c.FetchErrors,
		c.NATSPublished, c.NATSPublishErrs, c.NATSConnected,
		c.RouteRefreshes,
		c.FetchDuration, c.ReconcileDuration, c.PublishDuration,
		c.PollInterval, c.JumpThreshold, c.FreshnessInterval,
	)

	// Set static gauges
	for _, f := range feeds {
		c.PollInterval.WithLabelValues(f.Name).Set(f.PollInterval.Seconds())
		c.JumpThreshold.WithLabelValues(f.Name).Set(f.JumpThreshold)
	}
	c.FreshnessInterval.Set(freshnessInterval.Seconds())

	return c
}

func (c *Collector) Handler() http.Handler { return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{}) }

// Serve starts an HTTP server exposing /metrics on the given address.
func (c *Collector) Serve(addr string, logger *zap.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server error", zap.Error(err))
		}
	}()
	logger.Info("metrics listening", zap.String("addr", addr))
	return srv
}
