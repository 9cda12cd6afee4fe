package db

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"go.uber.org/zap"

	"transit-map/internal/gtfs"
)

// RouteDirectory serves route display names from the GTFS routes table. The
// table is replaced wholesale on every refresh, so readers never see a
// partial load.
type RouteDirectory struct {
	db     *sql.DB
	logger *zap.Logger
	onLoad func(err error)

	mu     sync.RWMutex
	routes map[string]gtfs.Route
}

// NewRouteDirectory creates a directory backed by db. onLoad, if set, is
// called after every refresh attempt.
func NewRouteDirectory(db *sql.DB, logger *zap.Logger, onLoad func(err error)) *RouteDirectory {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RouteDirectory{db: db, logger: logger, onLoad: onLoad, routes: map[string]gtfs.Route{}}
}

// NewStaticRouteDirectory serves a fixed set of routes.
func NewStaticRouteDirectory(routes []gtfs.Route) *RouteDirectory {
	d := NewRouteDirectory(nil, nil, nil)
	d.Replace(routes)
	return d
}

func (d *RouteDirectory) RouteName(routeID string) (string, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	r, ok := d.routes[routeID]
	if !ok {
		return "", false
	}
	return r.DisplayName(), true
}

func (d *RouteDirectory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.routes)
}

func (d *RouteDirectory) Replace(routes []gtfs.Route) {
	m := make(map[string]gtfs.Route, len(routes))
	for _, r := range routes {
		m[r.RouteID] = r
	}
	d.mu.Lock()
	d.routes = m
	d.mu.Unlock()
}

// Refresh reloads the routes table. On failure the previous routes stay.
func (d *RouteDirectory) Refresh(ctx context.Context) error {
	routes, err := FetchRoutes(ctx, d.db)
	if d.onLoad != nil {
		d.onLoad(err)
	}
	if err != nil {
		return err
	}
	d.mu.Lock()
	d.routes = routes
	d.mu.Unlock()
	d.logger.Info("route directory loaded", zap.Int("routes", len(routes)))
	return nil
}

// Run refreshes immediately and then every interval until ctx is done.
func (d *RouteDirectory) Run(ctx context.Context, interval time.Duration) {
	if err := d.Refresh(ctx); err != nil {
		d.logger.Warn("route directory refresh failed", zap.Error(err))
	}
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := d.Refresh(ctx); err != nil {
				d.logger.Warn("route directory refresh failed", zap.Error(err))
			}
		}
	}
}
