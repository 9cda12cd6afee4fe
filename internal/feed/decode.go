package feed

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"transit-map/internal/geo"
)

// Decoder turns a response body into normalized records.
type Decoder interface {
	Decode(body []byte, receivedAt time.Time) ([]Record, error)
}

var errNoData = errors.New(`envelope has no "data" array`)

// BusID prefers the trip-scoped identifier and falls back to the raw vehicle id.
func BusID(vehicleID, tripID string) string {
	if t := strings.TrimSpace(tripID); t != "" {
		return t
	}
	return strings.TrimSpace(vehicleID)
}

type BusDecoder struct{}

func (BusDecoder) Decode(body []byte, receivedAt time.Time) ([]Record, error) {
	var env busEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, err
	}
	if env.Data == nil {
		return nil, errNoData
	}
	out := make([]Record, 0, len(*env.Data))
	for _, v := range *env.Data {
		r := Record{
			VehicleID: v.ID,
			Label:     v.Label,
			Timestamp: v.Timestamp,
		}
		if v.Trip != nil {
			r.TripID = v.Trip.TripID
			r.RouteID = v.Trip.RouteID
		}
		r.ID = BusID(r.VehicleID, r.TripID)
		if v.Position != nil {
			r.Position = point(v.Position.Latitude, v.Position.Longitude)
		}
		if r.Timestamp <= 0 {
			r.Timestamp = receivedAt.Unix()
		}
		out = append(out, r)
	}
	return out, nil
}

// TrainDecoder reads the scheduled-train feed, which carries no upstream
// timestamp; freshness is measured from receipt.
type TrainDecoder struct{}

func (TrainDecoder) Decode(body []byte, receivedAt time.Time) ([]Record, error) {
	var env trainEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, err
	}
	if env.Data == nil {
		return nil, errNoData
	}
	out := make([]Record, 0, len(*env.Data))
	for _, v := range *env.Data {
		out = append(out, Record{
			ID:         strings.TrimSpace(v.TripID),
			TripID:     v.TripID,
			RouteID:    v.RouteID,
			Position:   point(v.Lat, v.Lon),
			Timestamp:  receivedAt.Unix(),
			NextStopID: v.NextStopID,
			SecsToNext: v.SecsToNext,
		})
	}
	return out, nil
}

func point(lat, lon *float64) *geo.Point {
	if lat == nil || lon == nil {
		return nil
	}
	p := geo.Point{Lat: *lat, Lon: *lon}
	if !p.Valid() {
		return nil
	}
	return &p
}
