package models

import (
	"time"

	"github.com/google/uuid"
)

// PlayerScores is the persisted scorecard line for one player.
type PlayerScores struct {
	PlayerName string `json:"player_name"`
	Scores     Scores `json:"scores"`
}

// DurableRound is the persisted, resumable record of an in-progress round
type DurableRound struct {
	CourseName string         `json:"course_name"`
	Players    []PlayerScores `json:"players"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// FindPlayer returns the persisted scorecard line for name
func (r *DurableRound) FindPlayer(name string) (PlayerScores, bool) {
	if r == nil {
		return PlayerScores{}, false
	}
	for _, p := range r.Players {
		if p.PlayerName == name {
			return p, true
		}
	}
	return PlayerScores{}, false
}

// ArchivedRound is the immutable record of a finished round.
type ArchivedRound struct {
	ID         uuid.UUID      `json:"id"`
	CourseName string         `json:"course_name"`
	Players    []PlayerScores `json:"players"`
	FinishedAt time.Time      `json:"finished_at"`

	// Course is the hole layout at finish time, nil when the catalog no longer knows the course.
	Course *Course `json:"course,omitempty"`
}

// PlayerSummary is a per-player total for an archived round
type PlayerSummary struct {
	PlayerName  string `json:"player_name"`
	Strokes     int    `json:"strokes"`
	HolesPlayed int    `json:"holes_played"`

	// ToPar is only set when the course layout is known.
	ToPar *int `json:"to_par,omitempty"`
}

// Summaries computes strokes and relative-to-par totals for every player
func (a ArchivedRound) Summaries() []PlayerSummary {
	out := make([]PlayerSummary, 0, len(a.Players))
	for _, p := range a.Players {
		strokes, played := p.Scores.Total()
		s := PlayerSummary{PlayerName: p.PlayerName, Strokes: strokes, HolesPlayed: played}
		if a.Course != nil {
			par := 0
			for i, v := range p.Scores {
				if v != nil && i < len(a.Course.Holes) {
					par += a.Course.Holes[i].Par
				}
			}
			toPar := strokes - par
			s.ToPar = &toPar
		}
		out = append(out, s)
	}
	return out
}
