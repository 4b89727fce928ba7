package tracking

import (
	"math"
	"strings"
	"time"

	"school_tracker/internal/models"
)

type MovementState string

const (
	Moving   MovementState = "moving"
	Standing MovementState = "standing"
	Unknown  MovementState = "unknown"
)

// movingSpeed is the km/h above which a report without a state counts as moving.
const movingSpeed = 1.0

// Position is a normalized fix. Lat/Lng are always either a validated live
// value or the region fallback with Fallback set.
type Position struct {
	Point
	Fallback  bool          `json:"fallback"`
	Direction float64       `json:"direction"`
	Speed     float64       `json:"speed"`
	Movement  MovementState `json:"movement"`
	Timestamp time.Time     `json:"timestamp"`
}

// Normalize validates and repairs a raw device report. It never fails:
// anything unusable degrades to the fallback coordinate.
func (r Region) Normalize(raw models.RawLocation, now time.Time) Position {
	pos := Position{
		Direction: raw.Direction.Or(0),
		Speed:     raw.Speed.Or(0),
		Timestamp: raw.Timestamp,
	}
	// Device clocks run ahead; a future fix would hold the trail window open.
	if pos.Timestamp.IsZero() || pos.Timestamp.After(now) {
		pos.Timestamp = now
	}

	pos.Point, pos.Fallback = r.fix(raw.Latitude, raw.Longitude)
	pos.Movement = movementOf(raw.Movement, pos.Speed, pos.Fallback)
	return pos
}

func (r Region) fix(latN, lngN models.Number) (Point, bool) {
	if !latN.Valid || !lngN.Valid {
		return r.Fallback, true
	}
	lat, lng := latN.Value, lngN.Value

	if math.Abs(lat) > r.SwapThreshold && math.Abs(lng) < r.SwapThreshold {
		lat, lng = lng, lat
	}
	if math.Abs(lat) > 90 || math.Abs(lng) > 180 {
		return r.Fallback, true
	}

	p := Point{Lat: lat, Lng: lng}
	if !r.Contains(p) {
		return r.Fallback, true
	}
	return p, false
}

func movementOf(state string, speed float64, fallback bool) MovementState {
	switch strings.ToUpper(strings.TrimSpace(state)) {
	case "MOVING", "MOVE", "RUNNING", "DRIVING":
		return Moving
	case "STANDING", "STOPPED", "STOP", "PARKED", "IDLE", "STATIC":
		return Standing
	}
	if fallback {
		return Unknown
	}
	if speed > movingSpeed {
		return Moving
	}
	return Standing
}
