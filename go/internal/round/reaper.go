package round

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// Reaper periodically evicts live rounds that have had no players for TTL.
type Reaper struct {
	registry *Registry
	clock    clockwork.Clock
	ttl      time.Duration
	interval time.Duration
}

// NewReaper creates a reaper. A zero ttl disables it.
func NewReaper(registry *Registry, clock clockwork.Clock, ttl, interval time.Duration) *Reaper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Reaper{
		registry: registry,
		clock:    clock,
		ttl:      ttl,
		interval: interval,
	}
}

// Run evicts idle rounds on every tick until ctx is cancelled
func (r *Reaper) Run(ctx context.Context) {
	if r.ttl <= 0 {
		log.Info().Msg("idle round reaper disabled")
		return
	}

	ticker := r.clock.NewTicker(r.interval)
	defer ticker.Stop()

	log.Info().Dur("ttl", r.ttl).Dur("interval", r.interval).Msg("idle round reaper started")
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			r.Sweep()
		}
	}
}

// Sweep runs one eviction pass and returns the evicted courses
func (r *Reaper) Sweep() []string {
	evicted := r.registry.EvictIdle(r.clock.Now(), r.ttl)
	for _, course := range evicted {
		log.Info().Str("course", course).Msg("evicted idle live round")
	}
	return evicted
}
