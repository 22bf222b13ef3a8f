// Package memstore keeps durable and archived rounds in process memory. It backs STORE=memory
// and the round tests.
package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/DenisKelolli/Golf-App/go/internal/models"
	"github.com/DenisKelolli/Golf-App/go/internal/round"
)

// Op names a store operation for failure injection
type Op string

const (
	OpGetOrCreate   Op = "get_or_create_round"
	OpGetRound      Op = "get_round"
	OpAddPlayer     Op = "add_player"
	OpSaveScores    Op = "save_scores"
	OpDeleteRound   Op = "delete_round"
	OpCreateArchive Op = "create_archive"
	OpListArchives  Op = "list_archives"
)

type playerRow struct {
	name    string
	scores  models.Scores
	version uint64
}

type roundRow struct {
	createdAt time.Time
	updatedAt time.Time
	players   []*playerRow
}

func (r *roundRow) find(name string) *playerRow {
	for _, p := range r.players {
		if p.name == name {
			return p
		}
	}
	return nil
}

// Store implements round.RoundRepository and round.ArchiveRepository
type Store struct {
	clock clockwork.Clock

	mu       sync.Mutex
	rounds   map[string]*roundRow
	archives []models.ArchivedRound
	failures map[Op]error
}

var (
	_ round.RoundRepository   = (*Store)(nil)
	_ round.ArchiveRepository = (*Store)(nil)
)

// New creates an empty store
func New(clock clockwork.Clock) *Store {
	return &Store{
		clock:    clock,
		rounds:   make(map[string]*roundRow),
		failures: make(map[Op]error),
	}
}

// FailOn makes every call of op return err until it is reset with a nil err.
func (s *Store) FailOn(op Op, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failures, op)
		return
	}
	s.failures[op] = err
}

// must be called with s.mu held
func (s *Store) fail(op Op) error {
	return s.failures[op]
}

func (s *Store) getOrCreate(course string) *roundRow {
	r, ok := s.rounds[course]
	if !ok {
		now := s.clock.Now()
		r = &roundRow{createdAt: now, updatedAt: now}
		s.rounds[course] = r
	}
	return r
}

func toDurable(course string, r *roundRow) *models.DurableRound {
	out := &models.DurableRound{
		CourseName: course,
		Players:    make([]models.PlayerScores, 0, len(r.players)),
		CreatedAt:  r.createdAt,
		UpdatedAt:  r.updatedAt,
	}
	for _, p := range r.players {
		out.Players = append(out.Players, models.PlayerScores{PlayerName: p.name, Scores: p.scores.Clone()})
	}
	return out
}

func (s *Store) GetOrCreateRound(_ context.Context, course string) (*models.DurableRound, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail(OpGetOrCreate); err != nil {
		return nil, err
	}
	return toDurable(course, s.getOrCreate(course)), nil
}

func (s *Store) GetRound(_ context.Context, course string) (*models.DurableRound, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail(OpGetRound); err != nil {
		return nil, err
	}
	r, ok := s.rounds[course]
	if !ok {
		return nil, round.ErrRoundNotFound
	}
	return toDurable(course, r), nil
}

func (s *Store) AddPlayer(_ context.Context, course, player string, scores models.Scores) (models.PlayerScores, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail(OpAddPlayer); err != nil {
		return models.PlayerScores{}, err
	}
	r := s.getOrCreate(course)
	p := r.find(player)
	if p == nil {
		p = &playerRow{name: player, scores: scores.Clone()}
		r.players = append(r.players, p)
		r.updatedAt = s.clock.Now()
	}
	return models.PlayerScores{PlayerName: p.name, Scores: p.scores.Clone()}, nil
}

func (s *Store) SaveScores(_ context.Context, course, player string, scores models.Scores, version uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail(OpSaveScores); err != nil {
		return err
	}
	r := s.getOrCreate(course)
	p := r.find(player)
	if p == nil {
		p = &playerRow{name: player}
		r.players = append(r.players, p)
	}
	if p.version >= version && p.scores != nil {
		return nil
	}
	p.scores = scores.Clone()
	p.version = version
	r.updatedAt = s.clock.Now()
	return nil
}

func (s *Store) DeleteRound(_ context.Context, course string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail(OpDeleteRound); err != nil {
		return err
	}
	delete(s.rounds, course)
	return nil
}

func (s *Store) CreateArchive(_ context.Context, archive models.ArchivedRound) (*models.ArchivedRound, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail(OpCreateArchive); err != nil {
		return nil, err
	}
	stored := cloneArchive(archive)
	s.archives = append(s.archives, stored)
	out := cloneArchive(stored)
	return &out, nil
}

func (s *Store) ListArchives(_ context.Context) ([]models.ArchivedRound, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail(OpListArchives); err != nil {
		return nil, err
	}
	out := make([]models.ArchivedRound, 0, len(s.archives))
	for _, a := range s.archives {
		out = append(out, cloneArchive(a))
	}
	return out, nil
}

func cloneArchive(a models.ArchivedRound) models.ArchivedRound {
	players := make([]models.PlayerScores, len(a.Players))
	for i, p := range a.Players {
		players[i] = models.PlayerScores{PlayerName: p.PlayerName, Scores: p.Scores.Clone()}
	}
	a.Players = players
	if a.Course != nil {
		c := *a.Course
		c.Holes = append([]models.Hole(nil), a.Course.Holes...)
		a.Course = &c
	}
	return a
}
