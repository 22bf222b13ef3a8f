// Package events publishes scorecard domain events to the message bus.
package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/DenisKelolli/Golf-App/go/internal/models"
)

// Type names a domain event. It is also the last token of the subject the event is published on.
type Type string

const (
	TypePlayerJoined  Type = "player_joined"
	TypeScoreRecorded Type = "score_recorded"
	TypeRoundFinished Type = "round_finished"
)

// Event is one domain event bound for the bus
type Event struct {
	ID         uuid.UUID
	Type       Type
	Course     string
	OccurredAt time.Time
	Payload    any
}

// New creates an event with a fresh id
func New(t Type, course string, at time.Time, payload any) Event {
	return Event{
		ID:         uuid.New(),
		Type:       t,
		Course:     course,
		OccurredAt: at,
		Payload:    payload,
	}
}

// PlayerJoinedPayload is the payload for a PlayerJoined event
type PlayerJoinedPayload struct {
	Course   string    `json:"course"`
	Player   string    `json:"player"`
	JoinedAt time.Time `json:"joined_at"`
}

// ScoreRecordedPayload is the payload for a ScoreRecorded event
type ScoreRecordedPayload struct {
	Course     string    `json:"course"`
	Player     string    `json:"player"`
	Hole       int       `json:"hole"`
	Value      *int      `json:"value"`
	Version    uint64    `json:"version"`
	RecordedAt time.Time `json:"recorded_at"`
}

// RoundFinishedPayload is the payload for a RoundFinished event
type RoundFinishedPayload struct {
	ArchiveID  uuid.UUID              `json:"archive_id"`
	Course     string                 `json:"course"`
	FinishedAt time.Time              `json:"finished_at"`
	Players    []models.PlayerSummary `json:"players"`
}
