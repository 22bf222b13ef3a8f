package events

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

type DispatcherConfig struct {
	BufferSize int
	MaxRetries int
	RetryDelay time.Duration
}

func DefaultDispatcherConfig() DispatcherConfig {
	return DispatcherConfig{
		BufferSize: 1000,
		MaxRetries: 3,
		RetryDelay: 200 * time.Millisecond,
	}
}

// Dispatcher queues events in memory and publishes them from a single goroutine, so a slow or
// unreachable bus never stalls the caller. Events still queued at shutdown are dropped.
type Dispatcher struct {
	publisher Publisher
	cfg       DispatcherConfig
	queue     chan Event
}

// NewDispatcher creates a dispatcher in front of publisher
func NewDispatcher(publisher Publisher, cfg DispatcherConfig) *Dispatcher {
	return &Dispatcher{
		publisher: publisher,
		cfg:       cfg,
		queue:     make(chan Event, cfg.BufferSize),
	}
}

// Enqueue schedules event for publishing. It reports false when the queue is full.
func (d *Dispatcher) Enqueue(event Event) bool {
	select {
	case d.queue <- event:
		return true
	default:
		log.Warn().
			Str("event_type", string(event.Type)).
			Str("course", event.Course).
			Msg("event queue full, dropping event")
		return false
	}
}

// Run publishes queued events until ctx is cancelled
func (d *Dispatcher) Run(ctx context.Context) {
	log.Info().Msg("event dispatcher started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Int("pending", len(d.queue)).Msg("event dispatcher shutting down")
			return
		case event := <-d.queue:
			if err := d.publishWithRetry(ctx, event); err != nil {
				log.Error().Err(err).Str("event_id", event.ID.String()).Msg("failed to publish event")
			}
		}
	}
}

// publishWithRetry attempts to publish an event with a linear backoff between attempts.
func (d *Dispatcher) publishWithRetry(ctx context.Context, event Event) error {
	var lastErr error

	for attempt := 0; attempt <= d.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(d.cfg.RetryDelay * time.Duration(attempt)):
			}
		}

		if err := d.publisher.Publish(ctx, event); err != nil {
			lastErr = err
			log.Warn().
				Err(err).
				Int("attempt", attempt+1).
				Str("event_id", event.ID.String()).
				Msg("failed to publish, retrying")
			continue
		}

		if attempt > 0 {
			log.Info().
				Int("attempt", attempt+1).
				Str("event_id", event.ID.String()).
				Msg("publish succeeded after retry")
		}
		return nil
	}

	return fmt.Errorf("publish failed after %d attempts: %w", d.cfg.MaxRetries+1, lastErr)
}
