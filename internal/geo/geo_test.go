package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistance(t *testing.T) {
	a := Point{Lat: 38.63, Lon: -90.20}

	assert.Zero(t, Distance(a, a))

	// one thousandth of a degree in each axis around St. Louis
	d := Distance(a, Point{Lat: 38.631, Lon: -90.199})
	assert.InDelta(t, 141, d, 5)

	// symmetric
	b := Point{Lat: 38.67, Lon: -90.25}
	assert.InDelta(t, Distance(a, b), Distance(b, a), 1e-9)

	// one degree of latitude
	assert.InDelta(t, 111195, Distance(Point{0, 0}, Point{1, 0}), 10)
}

func TestLerp(t *testing.T) {
	from := Point{Lat: 10, Lon: 20}
	to := Point{Lat: 20, Lon: 40}

	tests := []struct {
		name string
		frac float64
		want Point
	}{
		{"start", 0, from},
		{"half", 0.5, Point{Lat: 15, Lon: 30}},
		{"end", 1, to},
		{"clamped below", -0.5, from},
		{"clamped above", 3, to},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Lerp(from, to, tt.frac)
			assert.InDelta(t, tt.want.Lat, got.Lat, 1e-9)
			assert.InDelta(t, tt.want.Lon, got.Lon, 1e-9)
		})
	}
}

func TestPointValid(t *testing.T) {
	tests := []struct {
		name string
		p    Point
		want bool
	}{
		{"st louis", Point{38.627, -90.1994}, true},
		{"origin", Point{0, 0}, true},
		{"poles", Point{90, 180}, true},
		{"lat out of range", Point{91, 0}, false},
		{"lon out of range", Point{0, -181}, false},
		{"nan", Point{math.NaN(), 0}, false},
		{"inf", Point{0, math.Inf(1)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.p.Valid())
		})
	}
}
