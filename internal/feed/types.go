package feed

import (
	"time"

	"transit-map/internal/geo"
)

// Record is a vehicle row normalized from any feed shape. ID is derived once
// at decode time and is the only identifier used downstream.
type Record struct {
	ID         string
	VehicleID  string
	TripID     string
	RouteID    string
	Label      string
	Position   *geo.Point // nil when the feed gave no usable position
	Timestamp  int64      // seconds since epoch
	NextStopID string
	SecsToNext *int
}

// Snapshot is one complete poll result for a feed.
type Snapshot struct {
	Feed       string
	Records    []Record
	ReceivedAt time.Time
}

type busEnvelope struct {
	Data *[]busRecord `json:"data"`
}

type busRecord struct {
	ID        string       `json:"id"`
	Label     string       `json:"label,omitempty"`
	Position  *busPosition `json:"position,omitempty"`
	Trip      *busTrip     `json:"trip,omitempty"`
	Timestamp int64        `json:"timestamp"`
}

type busPosition struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

type busTrip struct {
	TripID  string `json:"trip_id"`
	RouteID string `json:"route_id"`
}

type trainEnvelope struct {
	Data *[]trainRecord `json:"data"`
}

type trainRecord struct {
	TripID     string   `json:"trip_id"`
	RouteID    string   `json:"route_id"`
	Lat        *float64 `json:"lat"`
	Lon        *float64 `json:"lon"`
	NextStopID string   `json:"next_stop_id,omitempty"`
	SecsToNext *int     `json:"secs_to_next,omitempty"`
}
