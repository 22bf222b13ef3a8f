package round

import (
	"time"

	"github.com/google/uuid"

	"github.com/DenisKelolli/Golf-App/go/internal/models"
)

// EventType identifies a live round event
type EventType string

const (
	EventPresenceChanged EventType = "presence_changed"
	EventScoreChanged    EventType = "score_changed"
	EventRoundFinished   EventType = "round_finished"
)

// Event is delivered to every observer of a course. Version orders events for one course;
// clients drop any event older than the last one they applied.
type Event struct {
	Type      EventType `json:"type"`
	Course    string    `json:"course"`
	Version   uint64    `json:"version"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

// PresenceChangedData is the payload of a presence_changed event
type PresenceChangedData struct {
	Players models.PresenceList `json:"players"`
}

// ScoreChangedData is the payload of a score_changed event. A nil Value clears the slot.
type ScoreChangedData struct {
	Player  string              `json:"player"`
	Hole    int                 `json:"hole"`
	Value   *int                `json:"value"`
	Players models.PresenceList `json:"players"`
}

// RoundFinishedData is the payload of a round_finished event
type RoundFinishedData struct {
	ArchiveID  uuid.UUID              `json:"archive_id"`
	FinishedAt time.Time              `json:"finished_at"`
	Players    []models.PlayerSummary `json:"players"`
}

// Broadcaster delivers events to the observers of a course.
type Broadcaster interface {
	Publish(course string, event Event)
}

func presenceChanged(course string, version uint64, at time.Time, players models.PresenceList) Event {
	return Event{
		Type:      EventPresenceChanged,
		Course:    course,
		Version:   version,
		Timestamp: at,
		Data:      PresenceChangedData{Players: players},
	}
}

func scoreChanged(course string, version uint64, at time.Time, edit ScoreEdit, players models.PresenceList) Event {
	return Event{
		Type:      EventScoreChanged,
		Course:    course,
		Version:   version,
		Timestamp: at,
		Data: ScoreChangedData{
			Player:  edit.Player,
			Hole:    edit.Hole,
			Value:   edit.Value,
			Players: players,
		},
	}
}

func roundFinished(version uint64, archive *models.ArchivedRound) Event {
	return Event{
		Type:      EventRoundFinished,
		Course:    archive.CourseName,
		Version:   version,
		Timestamp: archive.FinishedAt,
		Data: RoundFinishedData{
			ArchiveID:  archive.ID,
			FinishedAt: archive.FinishedAt,
			Players:    archive.Summaries(),
		},
	}
}
