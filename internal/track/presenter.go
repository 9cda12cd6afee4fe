package track

import (
	"fmt"
	"strings"

	"transit-map/internal/geo"
)

// Marker is an opaque handle issued by a Presenter.
type Marker struct {
	Feed string `json:"feed"`
	ID   string `json:"id"`
}

// Presenter is the map rendering surface. Calls are one-way: the presenter
// never creates or removes markers on its own.
type Presenter interface {
	CreateMarker(feed string, pos geo.Point, icon string) (Marker, error)
	SetPosition(m Marker, pos geo.Point)
	BindPopup(m Marker, html string)
	RemoveMarker(m Marker)
	SetAge(key string, seconds int64)
}

// RouteNamer resolves a route id to display text.
type RouteNamer interface {
	RouteName(routeID string) (string, bool)
}

// FreshnessKey is the label lookup key for an entity, namespaced by feed. It
// doubles as a DOM id, so every byte of id outside [A-Za-z0-9-] is written as
// _XX hex. The encoding is reversible, so distinct ids never share a key.
func FreshnessKey(feed, id string) string {
	var b strings.Builder
	b.Grow(len(feed) + 1 + len(id))
	b.WriteString(feed)
	b.WriteByte('-')
	for i := 0; i < len(id); i++ {
		c := id[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-':
			b.WriteByte(c)
		default:
			fmt.Fprintf(&b, "_%02X", c)
		}
	}
	return b.String()
}
