package tracking

import (
	"math"
	"sync"
	"time"
)

const (
	TrailWindow = 24 * time.Hour
	// MinDisplacement in degrees on either axis, roughly 5 meters.
	MinDisplacement = 0.00005
	// SnapPoints is how many recent samples are sent for road snapping.
	SnapPoints = 20
)

type Sample struct {
	Lat       float64   `json:"lat"`
	Lng       float64   `json:"lng"`
	Timestamp time.Time `json:"timestamp"`
}

func (s Sample) Point() Point { return Point{Lat: s.Lat, Lng: s.Lng} }

// Trails keeps a time-ordered, 24h-bounded trail per vehicle.
type Trails struct {
	mu        sync.Mutex
	trails    map[string][]Sample
	window    time.Duration
	threshold float64
}

func NewTrails() *Trails {
	return &Trails{
		trails:    make(map[string][]Sample),
		window:    TrailWindow,
		threshold: MinDisplacement,
	}
}

// Observe records a new sample for id and reports whether the trail grew.
// Samples older than the window are purged first; the sample is then seeded,
// appended on meaningful movement, or ignored.
func (t *Trails) Observe(id string, s Sample) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.observe(id, s)
}

func (t *Trails) observe(id string, s Sample) bool {
	trail := t.purge(t.trails[id], s.Timestamp)
	if len(trail) == 0 {
		t.trails[id] = []Sample{s}
		return true
	}
	t.trails[id] = trail

	last := trail[len(trail)-1]
	if s.Timestamp.Before(last.Timestamp) {
		return false
	}
	if math.Abs(s.Lat-last.Lat) <= t.threshold && math.Abs(s.Lng-last.Lng) <= t.threshold {
		return false
	}
	t.trails[id] = append(trail, s)
	return true
}

// purge drops samples older than the window relative to now.
func (t *Trails) purge(trail []Sample, now time.Time) []Sample {
	cutoff := now.Add(-t.window)
	i := 0
	for i < len(trail) && trail[i].Timestamp.Before(cutoff) {
		i++
	}
	if i == 0 {
		return trail
	}
	return append([]Sample(nil), trail[i:]...)
}

// Select restores the stored trail for id and appends the current live
// position so the trail ends now.
func (t *Trails) Select(id string, current Sample, now time.Time) []Sample {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.observe(id, current)
	return t.read(id, now)
}

// Trail returns a copy of the trail for id as of now.
func (t *Trails) Trail(id string, now time.Time) []Sample {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.read(id, now)
}

// Recent returns at most n of the newest samples for id as of now.
func (t *Trails) Recent(id string, n int, now time.Time) []Sample {
	return Recent(t.Trail(id, now), n)
}

// read purges id's trail against now, stores the result and returns a copy.
func (t *Trails) read(id string, now time.Time) []Sample {
	trail := t.purge(t.trails[id], now)
	if len(trail) == 0 {
		delete(t.trails, id)
		return nil
	}
	t.trails[id] = trail
	return append([]Sample(nil), trail...)
}

func Recent(trail []Sample, n int) []Sample {
	if n <= 0 || len(trail) <= n {
		return trail
	}
	return trail[len(trail)-n:]
}
