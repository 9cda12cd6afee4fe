package gtfs

import "strings"

// Route is a row of the GTFS routes table.
type Route struct {
	RouteID   string
	ShortName string
	LongName  string
}

// DisplayName joins short and long names, falling back to the route id.
func (r Route) DisplayName() string {
	name := strings.TrimSpace(strings.TrimSpace(r.ShortName) + " " + strings.TrimSpace(r.LongName))
	if name == "" {
		return r.RouteID
	}
	return name
}
