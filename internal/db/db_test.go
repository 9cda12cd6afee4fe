package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"transit-map/internal/gtfs"
)

func TestWithDBName(t *testing.T) {
	tests := []struct {
		name, dsn, db, want string
	}{
		{"replaces path", "postgres://u:p@host:5432/postgres?sslmode=disable", "gtfs_stl_2026", "postgres://u:p@host:5432/gtfs_stl_2026?sslmode=disable"},
		{"postgresql scheme", "postgresql://host/db", "/other", "postgresql://host/other"},
		{"missing scheme", "u@host/db", "x", "postgres://u@host/x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := WithDBName(tt.dsn, tt.db)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := WithDBName("", "x")
	assert.ErrorIs(t, err, errEmptyDSN)
	_, err = WithDBName("postgres://host/db", " / ")
	assert.ErrorIs(t, err, errEmptyDBName)
}

func TestRouteDirectory_StaticLookup(t *testing.T) {
	d := NewStaticRouteDirectory([]gtfs.Route{
		{RouteID: "70", ShortName: "70", LongName: "Grand"},
		{RouteID: "RED", LongName: "MetroLink Red Line"},
		{RouteID: "X"},
	})
	assert.Equal(t, 3, d.Len())

	name, ok := d.RouteName("70")
	require.True(t, ok)
	assert.Equal(t, "70 Grand", name)

	name, _ = d.RouteName("RED")
	assert.Equal(t, "MetroLink Red Line", name)

	name, _ = d.RouteName("X")
	assert.Equal(t, "X", name)

	_, ok = d.RouteName("missing")
	assert.False(t, ok)

	d.Replace(nil)
	assert.Zero(t, d.Len())
}
