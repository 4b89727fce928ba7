package tracking

// Point is a WGS84 coordinate.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Region is the deployment's operating area.
type Region struct {
	Name     string
	Fallback Point

	MinLat, MaxLat float64
	MinLng, MaxLng float64

	// A fix with |lat| above and |lng| below this value is treated as swapped.
	SwapThreshold float64
}

// DefaultRegion covers Kenya with the fallback on Nairobi CBD.
func DefaultRegion() Region {
	return Region{
		Name:          "nairobi",
		Fallback:      Point{Lat: -1.286389, Lng: 36.817223},
		MinLat:        -5.0,
		MaxLat:        5.5,
		MinLng:        33.5,
		MaxLng:        42.5,
		SwapThreshold: 5,
	}
}

func (r Region) Contains(p Point) bool {
	return p.Lat >= r.MinLat && p.Lat <= r.MaxLat &&
		p.Lng >= r.MinLng && p.Lng <= r.MaxLng
}
