package tracking

import (
	"context"
	"sync"
	"time"
)

// Frame is one step of a progressive route reveal.
type Frame struct {
	BusID  string  `json:"bus_id"`
	Points []Point `json:"points"`
	Step   int     `json:"step"`
	Total  int     `json:"total"`
	Style  string  `json:"style"`
	Done   bool    `json:"done"`

	// Heading of the last revealed segment, for the route-head arrow.
	Heading float64 `json:"heading"`
}

// Animator reveals a route one point per tick. Starting a new reveal cancels
// the one in progress.
type Animator struct {
	tick time.Duration

	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
}

func NewAnimator(tick time.Duration) *Animator {
	if tick <= 0 {
		tick = 120 * time.Millisecond
	}
	return &Animator{tick: tick}
}

// Play emits frames of length 1..len(r.Points). It returns nil once the full
// route has been emitted, or the context error when superseded or cancelled.
func (a *Animator) Play(ctx context.Context, r Route, emit func(Frame)) error {
	ctx, cancel := context.WithCancel(ctx)
	a.mu.Lock()
	if a.cancel != nil {
		a.cancel()
	}
	a.gen++
	gen := a.gen
	a.cancel = cancel
	a.mu.Unlock()

	defer func() {
		a.mu.Lock()
		if a.gen == gen {
			a.cancel = nil
		}
		a.mu.Unlock()
		cancel()
	}()

	total := len(r.Points)
	if total == 0 {
		return nil
	}

	frame := func(n int) Frame {
		f := Frame{
			BusID:  r.BusID,
			Points: r.Points[:n],
			Step:   n,
			Total:  total,
			Style:  r.Style,
			Done:   n == total,
		}
		if n >= 2 {
			f.Heading = Bearing(r.Points[n-2], r.Points[n-1])
		}
		return f
	}

	emit(frame(1))
	if total == 1 {
		return nil
	}

	ticker := time.NewTicker(a.tick)
	defer ticker.Stop()
	for n := 2; n <= total; n++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := ctx.Err(); err != nil {
				return err
			}
			emit(frame(n))
		}
	}
	return nil
}

// Stop cancels the reveal in progress, if any.
func (a *Animator) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
}
