package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"transit-map/internal/config"
	"transit-map/internal/db"
	"transit-map/internal/feed"
	"transit-map/internal/live"
	"transit-map/internal/metrics"
	"transit-map/internal/publisher"
	"transit-map/internal/track"
)

func main() {
	// Load configuration from .env and environment
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	var logger *zap.Logger
	if cfg.LogLevel == "debug" {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	// Root context with cancellation on SIGINT/SIGTERM
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Metrics setup
	var mcol *metrics.Collector
	if cfg.MetricsAddr != "" {
		var settings []metrics.FeedSettings
		for _, f := range cfg.Feeds() {
			settings = append(settings, metrics.FeedSettings{Name: f.Name, PollInterval: f.PollInterval, JumpThreshold: f.JumpThreshold})
		}
		mcol = metrics.NewCollector(settings, cfg.FreshnessInterval)
		srv := mcol.Serve(cfg.MetricsAddr, logger)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	pres, err := publisher.NewNATSPresenter(cfg.NATSURL, cfg.NATSSubjectPrefix, cfg.LogNATSSubjects, wrapPublisherMetrics(mcol), logger)
	if err != nil {
		logger.Fatal("nats error", zap.Error(err), zap.String("url", cfg.NATSURL))
	}
	defer pres.Close()

	routes := startRouteDirectory(ctx, cfg, mcol, logger)

	mgr := live.NewManager(pres, cfg.FreshnessInterval, cfg.FrameInterval(), mcol, logger)
	for _, f := range cfg.Feeds() {
		var dec feed.Decoder = feed.BusDecoder{}
		if f.Name == "train" {
			dec = feed.TrainDecoder{}
		}
		opts := track.Options{
			Icon:              f.Name,
			JumpThreshold:     f.JumpThreshold,
			AnimationDuration: f.AnimationDuration,
		}
		if routes != nil {
			opts.Routes = routes
		}
		// a request never outlives its poll interval
		mgr.AddFeed(feed.NewFetcher(f.Name, f.URL, dec, f.PollInterval), f.PollInterval, opts)
		logger.Info("polling feed",
			zap.String("feed", f.Name),
			zap.String("url", f.URL),
			zap.Duration("interval", f.PollInterval),
			zap.Float64("jump_threshold_m", f.JumpThreshold),
		)
	}
	mgr.Start(ctx)

	// Block until context cancelled
	<-ctx.Done()
	mgr.Stop()
	logger.Info("shutdown complete")
}

// startRouteDirectory connects to the optional GTFS database. Failures leave
// popups showing raw route ids.
func startRouteDirectory(ctx context.Context, cfg *config.Config, mcol *metrics.Collector, logger *zap.Logger) *db.RouteDirectory {
	if cfg.DatabaseURL == "" {
		return nil
	}
	dsn, err := db.ResolveDSN(ctx, cfg.DatabaseURL, cfg.City)
	if err != nil {
		logger.Warn("route database unavailable", zap.Error(err))
		return nil
	}
	sqlDB, err := db.Open(dsn)
	if err != nil {
		logger.Warn("route database unavailable", zap.Error(err))
		return nil
	}
	if err := db.Ping(ctx, sqlDB); err != nil {
		logger.Warn("route database unavailable", zap.Error(err))
		_ = sqlDB.Close()
		return nil
	}
	dir := db.NewRouteDirectory(sqlDB, logger, func(err error) {
		if mcol == nil {
			return
		}
		if err != nil {
			mcol.RouteRefreshes.WithLabelValues("error").Inc()
		} else {
			mcol.RouteRefreshes.WithLabelValues("ok").Inc()
		}
	})
	go func() {
		defer sqlDB.Close()
		dir.Run(ctx, cfg.RoutesRefreshInterval)
	}()
	return dir
}

// wrapPublisherMetrics adapts our Collector to the PublisherMetrics interface.
func wrapPublisherMetrics(c *metrics.Collector) publisher.PublisherMetrics {
	if c == nil {
		return nil
	}
	return &pubMetrics{c: c}
}

type pubMetrics struct{ c *metrics.Collector }

func (p *pubMetrics) NATSPublishedInc()              { p.c.NATSPublished.Inc() }
func (p *pubMetrics) NATSPublishErrInc()             { p.c.NATSPublishErrs.Inc() }
func (p *pubMetrics) PublishObserve(d time.Duration) { p.c.PublishDuration.Observe(d.Seconds()) }
func (p *pubMetrics) NATSSetConnected(b bool) {
	if b {
		p.c.NATSConnected.Set(1)
	} else {
		p.c.NATSConnected.Set(0)
	}
}
