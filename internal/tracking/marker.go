package tracking

const (
	ColorMoving   = "green"
	ColorStanding = "amber"
	ColorUnknown  = "blue"
	ColorFallback = "grey"

	IconBus         = "bus"
	IconBusFallback = "bus-fallback"
)

// Marker is the visual state of a vehicle on the map.
type Marker struct {
	Color    string  `json:"color"`
	Icon     string  `json:"icon"`
	Rotation float64 `json:"rotation"`
	Label    string  `json:"label"`
	Popup    Popup   `json:"popup"`
}

type Popup struct {
	Title    string  `json:"title"`
	Plate    string  `json:"plate"`
	Speed    float64 `json:"speed"`
	Movement string  `json:"movement"`
	Updated  string  `json:"updated"`
	Address  string  `json:"address,omitempty"`
	Note     string  `json:"note,omitempty"`
}

func MarkerFor(p Position, name, plate string) Marker {
	m := Marker{
		Icon:     IconBus,
		Rotation: p.Direction,
		Label:    name,
		Popup: Popup{
			Title:    name,
			Plate:    plate,
			Speed:    p.Speed,
			Movement: string(p.Movement),
			Updated:  p.Timestamp.UTC().Format("2006-01-02 15:04:05Z"),
		},
	}
	switch {
	case p.Fallback:
		m.Color = ColorFallback
		m.Icon = IconBusFallback
		m.Rotation = 0
		m.Popup.Note = "no valid GPS fix, showing reference location"
	case p.Movement == Moving:
		m.Color = ColorMoving
	case p.Movement == Standing:
		m.Color = ColorStanding
	default:
		m.Color = ColorUnknown
	}
	return m
}
