package tracking

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Poller repeats fetch on an interval. Each cycle supersedes the previous
// one: starting a cycle cancels the one still in flight, and a result is
// applied only if no newer cycle has been applied already.
type Poller[T any] struct {
	name     string
	interval time.Duration
	fetch    func(context.Context) (T, error)
	apply    func(uint64, T)

	mu      sync.Mutex
	seq     uint64
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	applyMu sync.Mutex
	applied uint64
}

func NewPoller[T any](name string, interval time.Duration, fetch func(context.Context) (T, error), apply func(uint64, T)) *Poller[T] {
	return &Poller[T]{
		name:     name,
		interval: interval,
		fetch:    fetch,
		apply:    apply,
	}
}

// Run polls immediately and then every interval until ctx is done.
func (p *Poller[T]) Run(ctx context.Context) {
	logrus.WithFields(logrus.Fields{
		"poller":   p.name,
		"interval": p.interval.String(),
	}).Info("poller started")

	p.Trigger(ctx)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			p.mu.Lock()
			if p.cancel != nil {
				p.cancel()
			}
			p.mu.Unlock()
			p.wg.Wait()
			logrus.WithField("poller", p.name).Info("poller stopped")
			return
		case <-ticker.C:
			p.Trigger(ctx)
		}
	}
}

// Trigger starts a new cycle, cancelling any cycle still in flight, and
// returns its sequence number.
func (p *Poller[T]) Trigger(ctx context.Context) uint64 {
	cctx, cancel := context.WithCancel(ctx)

	p.mu.Lock()
	if p.cancel != nil {
		p.cancel()
	}
	p.seq++
	seq := p.seq
	p.cancel = cancel
	p.wg.Add(1)
	p.mu.Unlock()

	go p.cycle(cctx, cancel, seq)
	return seq
}

func (p *Poller[T]) cycle(ctx context.Context, cancel context.CancelFunc, seq uint64) {
	defer p.wg.Done()
	defer cancel()

	start := time.Now()
	result, err := p.fetch(ctx)
	log := logrus.WithFields(logrus.Fields{
		"poller":  p.name,
		"seq":     seq,
		"elapsed": time.Since(start).String(),
	})
	if err != nil {
		if errors.Is(err, context.Canceled) {
			log.Debug("poll cycle superseded")
			return
		}
		log.WithError(err).Warn("poll cycle failed, keeping previous data")
		return
	}

	p.applyMu.Lock()
	defer p.applyMu.Unlock()
	if seq <= p.applied {
		log.WithField("applied", p.applied).Debug("dropping stale poll result")
		return
	}
	p.applied = seq
	p.apply(seq, result)
}

// Applied returns the sequence number of the last applied cycle.
func (p *Poller[T]) Applied() uint64 {
	p.applyMu.Lock()
	defer p.applyMu.Unlock()
	return p.applied
}

// Wait blocks until every started cycle has finished.
func (p *Poller[T]) Wait() {
	p.wg.Wait()
}
