package tracking

import (
	"encoding/json"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
)

const (
	StyleSnapped = "solid"
	StyleRaw     = "dashed"
)

// Route is what gets drawn for a selected vehicle: either the road-snapped
// polyline or the raw trail, distinguished by Style.
type Route struct {
	BusID   string  `json:"bus_id"`
	Points  []Point `json:"points"`
	Snapped bool    `json:"snapped"`
	Style   string  `json:"style"`
	Meters  float64 `json:"meters"`
}

func rawRoute(busID string, pts []Point) Route {
	return Route{BusID: busID, Points: pts, Style: StyleRaw, Meters: pathLength(pts)}
}

func snappedRoute(busID string, pts []Point) Route {
	return Route{BusID: busID, Points: pts, Snapped: true, Style: StyleSnapped, Meters: pathLength(pts)}
}

func pathLength(pts []Point) float64 {
	var total float64
	for i := 1; i < len(pts); i++ {
		total += Distance(pts[i-1], pts[i])
	}
	return total
}

// LineString converts the route to a geometry in lng/lat order.
func (r Route) LineString() (*geom.LineString, error) {
	coords := make([]geom.Coord, len(r.Points))
	for i, p := range r.Points {
		coords[i] = geom.Coord{p.Lng, p.Lat}
	}
	return geom.NewLineString(geom.XY).SetCoords(coords)
}

// GeoJSON encodes the route geometry, or null for an empty route.
func (r Route) GeoJSON() (json.RawMessage, error) {
	if len(r.Points) < 2 {
		return json.RawMessage("null"), nil
	}
	ls, err := r.LineString()
	if err != nil {
		return nil, err
	}
	b, err := geojson.Marshal(ls)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func pointsFromGeometry(g geom.T) []Point {
	var flat []float64
	switch t := g.(type) {
	case *geom.LineString:
		flat = t.FlatCoords()
	case *geom.MultiLineString:
		flat = t.FlatCoords()
	default:
		return nil
	}
	stride := g.Stride()
	pts := make([]Point, 0, len(flat)/stride)
	for i := 0; i+1 < len(flat); i += stride {
		pts = append(pts, Point{Lat: flat[i+1], Lng: flat[i]})
	}
	return pts
}
