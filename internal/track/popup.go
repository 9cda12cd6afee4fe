package track

import (
	"fmt"
	"html"
	"strings"

	"transit-map/internal/feed"
)

func routeText(routes RouteNamer, routeID string) string {
	if routeID == "" {
		return "?"
	}
	if routes != nil {
		if name, ok := routes.RouteName(routeID); ok && name != "" {
			return name
		}
	}
	return routeID
}

// renderPopup builds the popup HTML for a record. The age span is filled in
// by the freshness tick, so the markup stays stable across snapshots.
func renderPopup(feedName string, rec feed.Record, routes RouteNamer) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Route: %s<br>", html.EscapeString(routeText(routes, rec.RouteID)))
	if rec.VehicleID != "" {
		vehicle := rec.Label
		if vehicle == "" {
			vehicle = rec.VehicleID
		}
		fmt.Fprintf(&b, "Vehicle: %s<br>", html.EscapeString(vehicle))
	} else {
		fmt.Fprintf(&b, "Trip: %s<br>", html.EscapeString(rec.TripID))
	}
	if rec.NextStopID != "" {
		fmt.Fprintf(&b, "Next stop: %s", html.EscapeString(rec.NextStopID))
		if rec.SecsToNext != nil {
			fmt.Fprintf(&b, " in %ds", *rec.SecsToNext)
		}
		b.WriteString("<br>")
	}
	fmt.Fprintf(&b, `Updated <span id="%s">-</span>s ago`, FreshnessKey(feedName, rec.ID))
	return b.String()
}
