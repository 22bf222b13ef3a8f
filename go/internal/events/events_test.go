package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DenisKelolli/Golf-App/go/internal/models"
)

func TestNewMsg(t *testing.T) {
	at := time.Date(2026, 5, 2, 15, 0, 0, 0, time.UTC)
	event := New(TypeScoreRecorded, "highlandgreens", at, ScoreRecordedPayload{
		Course:  "highlandgreens",
		Player:  "Alice",
		Hole:    3,
		Value:   models.IntPtr(4),
		Version: 7,
	})

	msg, err := NewMsg("golf.events", event)
	require.NoError(t, err)

	assert.Equal(t, "golf.events.score_recorded", msg.Subject)
	assert.Equal(t, event.ID.String(), msg.Header.Get("Event-ID"))
	assert.Equal(t, "highlandgreens", msg.Header.Get("Course"))

	var env struct {
		EventID   string               `json:"eventId"`
		EventType Type                 `json:"eventType"`
		Timestamp time.Time            `json:"timestamp"`
		Payload   ScoreRecordedPayload `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(msg.Data, &env))
	assert.Equal(t, TypeScoreRecorded, env.EventType)
	assert.True(t, at.Equal(env.Timestamp))
	require.NotNil(t, env.Payload.Value)
	assert.Equal(t, 4, *env.Payload.Value)
	assert.Equal(t, uint64(7), env.Payload.Version)
}

func TestNewMsgClearedScoreIsNull(t *testing.T) {
	msg, err := NewMsg("golf.events", New(TypeScoreRecorded, "c", time.Now(), ScoreRecordedPayload{Hole: 1}))
	require.NoError(t, err)
	assert.Contains(t, string(msg.Data), `"value":null`)
}

type flakyPublisher struct {
	mu        sync.Mutex
	failures  int
	published []Event
	done      chan struct{}
}

func (p *flakyPublisher) Publish(_ context.Context, event Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failures > 0 {
		p.failures--
		return errors.New("nats: no responders available for request")
	}
	p.published = append(p.published, event)
	close(p.done)
	return nil
}

func (p *flakyPublisher) Close() error { return nil }

func TestDispatcherRetries(t *testing.T) {
	pub := &flakyPublisher{failures: 2, done: make(chan struct{})}
	d := NewDispatcher(pub, DispatcherConfig{BufferSize: 4, MaxRetries: 3, RetryDelay: time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go d.Run(ctx)

	event := New(TypePlayerJoined, "highlandgreens", time.Now(), PlayerJoinedPayload{Player: "Alice"})
	require.True(t, d.Enqueue(event))

	select {
	case <-pub.done:
	case <-time.After(2 * time.Second):
		t.Fatal("event was never published")
	}
	pub.mu.Lock()
	defer pub.mu.Unlock()
	require.Len(t, pub.published, 1)
	assert.Equal(t, event.ID, pub.published[0].ID)
}

func TestDispatcherGivesUp(t *testing.T) {
	pub := &flakyPublisher{failures: 10, done: make(chan struct{})}
	d := NewDispatcher(pub, DispatcherConfig{BufferSize: 1, MaxRetries: 1, RetryDelay: time.Millisecond})

	err := d.publishWithRetry(context.Background(), New(TypeRoundFinished, "c", time.Now(), nil))
	assert.ErrorContains(t, err, "publish failed after 2 attempts")
}

func TestDispatcherEnqueueWhenFull(t *testing.T) {
	d := NewDispatcher(NopPublisher{}, DispatcherConfig{BufferSize: 1})

	assert.True(t, d.Enqueue(New(TypePlayerJoined, "c", time.Now(), nil)))
	assert.False(t, d.Enqueue(New(TypePlayerJoined, "c", time.Now(), nil)))
}
