package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"transit-map/internal/gtfs"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(30 * time.Minute)
	return db, nil
}

func Ping(ctx context.Context, db *sql.DB) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return db.PingContext(ctx)
}

// FetchRoutes loads every row of the GTFS routes table keyed by route_id.
func FetchRoutes(ctx context.Context, db *sql.DB) (map[string]gtfs.Route, error) {
	q := `
SELECT route_id,
       COALESCE(route_short_name, ''),
       COALESCE(route_long_name, '')
FROM routes`
	rows, err := db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query routes: %w", err)
	}
	defer rows.Close()

	out := make(map[string]gtfs.Route)
	for rows.Next() {
		var r gtfs.Route
		if err := rows.Scan(&r.RouteID, &r.ShortName, &r.LongName); err != nil {
			return nil, err
		}
		out[r.RouteID] = r
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
