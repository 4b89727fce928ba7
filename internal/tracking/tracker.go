package tracking

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"school_tracker/internal/models"
)

var ErrUnknownBus = errors.New("unknown bus")

// VehicleState is one bus in a snapshot. Position and Marker are nil when no
// device reported for the bus this cycle.
type VehicleState struct {
	Bus      models.Bus `json:"bus"`
	Position *Position  `json:"position,omitempty"`
	Marker   *Marker    `json:"marker,omitempty"`
}

// Snapshot is the result of one poll cycle.
type Snapshot struct {
	Seq       uint64         `json:"seq"`
	FetchedAt time.Time      `json:"fetched_at"`
	Vehicles  []VehicleState `json:"vehicles"`
}

// Vehicle looks up a bus by id.
func (s Snapshot) Vehicle(busID string) (VehicleState, bool) {
	for _, v := range s.Vehicles {
		if v.Bus.ID.String() == busID {
			return v, true
		}
	}
	return VehicleState{}, false
}

// Filter keeps the vehicles accepted by keep.
func (s Snapshot) Filter(keep func(models.Bus) bool) Snapshot {
	out := Snapshot{Seq: s.Seq, FetchedAt: s.FetchedAt, Vehicles: make([]VehicleState, 0, len(s.Vehicles))}
	for _, v := range s.Vehicles {
		if keep(v.Bus) {
			out.Vehicles = append(out.Vehicles, v)
		}
	}
	return out
}

// Listener is told about every applied snapshot and which watched buses'
// trails grew.
type Listener func(s Snapshot, grown map[string]bool)

type TrackerOptions struct {
	Region   Region
	Buses    BusLister
	Devices  DeviceSource
	Snapper  Snapper
	Geocoder *Geocoder
	Now      func() time.Time
}

// Tracker owns the latest snapshot and the trails of watched buses.
type Tracker struct {
	region   Region
	buses    BusLister
	devices  DeviceSource
	snapper  Snapper
	geocoder *Geocoder
	trails   *Trails
	now      func() time.Time

	mu        sync.RWMutex
	current   Snapshot
	watched   map[string]int
	listeners []Listener
}

func NewTracker(opts TrackerOptions) *Tracker {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Tracker{
		region:   opts.Region,
		buses:    opts.Buses,
		devices:  opts.Devices,
		snapper:  opts.Snapper,
		geocoder: opts.Geocoder,
		trails:   NewTrails(),
		now:      opts.Now,
		watched:  make(map[string]int),
	}
}

// Fetch runs the network half of a poll cycle: buses and device reports,
// normalized and joined. It does not touch tracker state.
func (t *Tracker) Fetch(ctx context.Context) (Snapshot, error) {
	buses, err := t.buses.ListBuses(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("list buses: %w", err)
	}
	reports, err := t.devices.DeviceLocations(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("device locations: %w", err)
	}
	return t.Build(buses, reports), nil
}

// Build normalizes and joins one batch.
func (t *Tracker) Build(buses []models.Bus, reports []models.RawLocation) Snapshot {
	now := t.now()
	matched := Match(buses, reports)

	snap := Snapshot{FetchedAt: now, Vehicles: make([]VehicleState, 0, len(buses))}
	var live, fallback int
	for _, bus := range buses {
		vs := VehicleState{Bus: bus}
		if rep, ok := matched[bus.ID]; ok {
			pos := t.region.Normalize(rep, now)
			marker := MarkerFor(pos, bus.Name, bus.PlateNumber)
			vs.Position, vs.Marker = &pos, &marker
			if pos.Fallback {
				fallback++
			} else {
				live++
			}
		}
		snap.Vehicles = append(snap.Vehicles, vs)
	}

	logrus.WithFields(logrus.Fields{
		"buses":    len(buses),
		"reports":  len(reports),
		"live":     live,
		"fallback": fallback,
	}).Debug("tracking cycle built")
	return snap
}

// Apply publishes a snapshot, grows the trails of watched buses and notifies
// listeners.
func (t *Tracker) Apply(seq uint64, snap Snapshot) {
	snap.Seq = seq
	t.decorate(&snap)

	t.mu.Lock()
	t.current = snap
	grown := make(map[string]bool)
	for _, v := range snap.Vehicles {
		id := v.Bus.ID.String()
		if t.watched[id] == 0 || v.Position == nil || v.Position.Fallback {
			continue
		}
		if t.trails.Observe(id, sampleOf(*v.Position)) {
			grown[id] = true
		}
	}
	listeners := append([]Listener(nil), t.listeners...)
	t.mu.Unlock()

	for _, fn := range listeners {
		fn(snap, grown)
	}
}

// decorate fills popup addresses from the geocode cache and queues lookups
// for the rest. It never blocks on the network.
func (t *Tracker) decorate(snap *Snapshot) {
	if t.geocoder == nil {
		return
	}
	for i := range snap.Vehicles {
		v := &snap.Vehicles[i]
		if v.Position == nil || v.Position.Fallback {
			continue
		}
		if addr, ok := t.geocoder.Cached(v.Position.Point); ok {
			v.Marker.Popup.Address = addr
			continue
		}
		t.geocoder.Prefetch(v.Position.Point)
	}
}

func sampleOf(p Position) Sample {
	return Sample{Lat: p.Lat, Lng: p.Lng, Timestamp: p.Timestamp}
}

// Current returns the last applied snapshot.
func (t *Tracker) Current() Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.current
}

// Subscribe registers fn for every applied snapshot.
func (t *Tracker) Subscribe(fn Listener) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.listeners = append(t.listeners, fn)
}

// Watch starts accumulating a trail for busID; call the returned func to
// stop. Trails survive unwatching so switching back keeps history.
func (t *Tracker) Watch(busID string) func() {
	t.mu.Lock()
	t.watched[busID]++
	t.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			t.mu.Lock()
			defer t.mu.Unlock()
			if t.watched[busID]--; t.watched[busID] <= 0 {
				delete(t.watched, busID)
			}
		})
	}
}

// Select restores busID's trail, extends it with the current live position
// and returns the route to draw.
func (t *Tracker) Select(ctx context.Context, busID string) (Route, error) {
	v, ok := t.Current().Vehicle(busID)
	if !ok {
		return Route{}, ErrUnknownBus
	}
	now := t.now()
	var trail []Sample
	if v.Position != nil && !v.Position.Fallback {
		trail = t.trails.Select(busID, sampleOf(*v.Position), now)
	} else {
		trail = t.trails.Trail(busID, now)
	}
	return BuildRoute(ctx, t.snapper, busID, trail), nil
}

// Route builds the route for busID from its stored trail.
func (t *Tracker) Route(ctx context.Context, busID string) Route {
	return BuildRoute(ctx, t.snapper, busID, t.Trail(busID))
}

// Trail returns busID's trail, holding only samples from the last window.
func (t *Tracker) Trail(busID string) []Sample {
	return t.trails.Trail(busID, t.now())
}
