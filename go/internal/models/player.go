package models

import (
	"sort"
	"time"
)

// Scores holds one slot per hole. A nil slot is unset, which is distinct from a score of zero.
type Scores []*int

// NewScores returns an all-unset scorecard for holeCount holes
func NewScores(holeCount int) Scores {
	return make(Scores, holeCount)
}

// Clone returns a deep copy so callers can never alias registry-owned slots
func (s Scores) Clone() Scores {
	if s == nil {
		return nil
	}
	out := make(Scores, len(s))
	for i, v := range s {
		if v != nil {
			n := *v
			out[i] = &n
		}
	}
	return out
}

// Fit returns a copy resized to holeCount, dropping extra slots and padding with unset ones.
func (s Scores) Fit(holeCount int) Scores {
	out := make(Scores, holeCount)
	copy(out, s.Clone())
	return out
}

// Total sums the recorded strokes and reports how many holes have been scored
func (s Scores) Total() (strokes int, played int) {
	for _, v := range s {
		if v != nil {
			strokes += *v
			played++
		}
	}
	return strokes, played
}

// Player represents a golfer joined to a course's live round
type Player struct {
	Name     string    `json:"name"`
	Scores   Scores    `json:"scores"`
	JoinedAt time.Time `json:"joined_at"`
}

// Clone returns a copy of the player with its own score slots
func (p Player) Clone() Player {
	p.Scores = p.Scores.Clone()
	return p
}

// PresenceList is the set of players joined to a course, always ordered by name.
type PresenceList []Player

// SortPlayers orders players by name ascending using byte-wise comparison.
func SortPlayers(players []Player) {
	sort.Slice(players, func(i, j int) bool {
		return players[i].Name < players[j].Name
	})
}

// Names returns the player names in list order
func (l PresenceList) Names() []string {
	names := make([]string, len(l))
	for i, p := range l {
		names[i] = p.Name
	}
	return names
}

// Find returns the player with the given name
func (l PresenceList) Find(name string) (Player, bool) {
	for _, p := range l {
		if p.Name == name {
			return p, true
		}
	}
	return Player{}, false
}

// IntPtr returns a pointer to v, handy for building score slots
func IntPtr(v int) *int {
	return &v
}
