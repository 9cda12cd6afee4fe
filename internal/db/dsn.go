package db

import (
	"errors"
	"net/url"
	"strings"
)

var (
	errEmptyDSN    = errors.New("empty DSN")
	errEmptyDBName = errors.New("empty database name")
)

// WithDBName points a postgres:// or postgresql:// DSN at another database,
// so the route directory can follow the latest GTFS import of a city. A DSN
// without a scheme is treated as postgres://.
func WithDBName(dsn, database string) (string, error) {
	if dsn == "" {
		return "", errEmptyDSN
	}
	database = strings.Trim(database, "/ ")
	if database == "" {
		return "", errEmptyDBName
	}
	if !strings.Contains(dsn, "://") {
		dsn = "postgres://" + dsn
	}
	u, err := url.Parse(dsn)
	if err != nil {
		return "", err
	}
	u.Path = "/" + database
	return u.String(), nil
}
