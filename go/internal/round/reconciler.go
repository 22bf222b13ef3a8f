package round

import (
	"context"
	"errors"
	"fmt"

	"github.com/jonboulle/clockwork"

	"github.com/DenisKelolli/Golf-App/go/internal/models"
)

// RoundRepository defines what the reconciler needs from the durable round store
type RoundRepository interface {
	// GetOrCreateRound upserts the round so concurrent callers observe exactly one row.
	GetOrCreateRound(ctx context.Context, course string) (*models.DurableRound, error)
	GetRound(ctx context.Context, course string) (*models.DurableRound, error)
	// AddPlayer inserts the player if absent and returns the stored line either way.
	AddPlayer(ctx context.Context, course, player string, scores models.Scores) (models.PlayerScores, error)
	// SaveScores writes the whole line unless the store already holds a newer version for it.
	// The round and player are created when missing.
	SaveScores(ctx context.Context, course, player string, scores models.Scores, version uint64) error
	DeleteRound(ctx context.Context, course string) error
}

// ScoreWrite is one accepted edit on its way to the durable round. Scores is the player's whole
// line after the edit and Version is the live round version it was taken at.
type ScoreWrite struct {
	Course  string
	Player  string
	Hole    int
	Value   *int
	Scores  models.Scores
	Version uint64
}

// Reconciler is the only translator between live rounds and durable rounds.
type Reconciler struct {
	repo  RoundRepository
	clock clockwork.Clock
}

// NewReconciler creates a new Reconciler
func NewReconciler(repo RoundRepository, clock clockwork.Clock) *Reconciler {
	return &Reconciler{
		repo:  repo,
		clock: clock,
	}
}

// LoadOrCreate returns the durable round for course, creating an empty one when absent.
func (r *Reconciler) LoadOrCreate(ctx context.Context, course string) (models.DurableRound, error) {
	round, err := r.repo.GetOrCreateRound(ctx, course)
	if err != nil {
		return models.DurableRound{}, fmt.Errorf("%w: load round %q: %w", ErrPersistence, course, err)
	}
	return *round, nil
}

// MergePlayer resumes player's persisted scores or records a fresh all-unset line for them.
// Calling it twice for the same player never creates a second line.
func (r *Reconciler) MergePlayer(ctx context.Context, round models.DurableRound, player string, holeCount int) (models.Player, error) {
	line, err := r.repo.AddPlayer(ctx, round.CourseName, player, models.NewScores(holeCount))
	if err != nil {
		return models.Player{}, fmt.Errorf("%w: add player %q to %q: %w", ErrPersistence, player, round.CourseName, err)
	}
	return models.Player{
		Name:     player,
		Scores:   line.Scores.Fit(holeCount),
		JoinedAt: r.clock.Now(),
	}, nil
}

// PersistScore writes an accepted edit. Writes for the same player may land in any order; the
// store keeps the one with the highest version.
func (r *Reconciler) PersistScore(ctx context.Context, w ScoreWrite) error {
	if err := r.repo.SaveScores(ctx, w.Course, w.Player, w.Scores, w.Version); err != nil {
		return fmt.Errorf("%w: save hole %d for %q on %q: %w", ErrPersistence, w.Hole, w.Player, w.Course, err)
	}
	return nil
}

// Load returns the durable round for course or ErrRoundNotFound.
func (r *Reconciler) Load(ctx context.Context, course string) (models.DurableRound, error) {
	round, err := r.repo.GetRound(ctx, course)
	if errors.Is(err, ErrRoundNotFound) {
		return models.DurableRound{}, fmt.Errorf("%w: %s", ErrRoundNotFound, course)
	}
	if err != nil {
		return models.DurableRound{}, fmt.Errorf("%w: get round %q: %w", ErrPersistence, course, err)
	}
	return *round, nil
}

// Discard deletes the durable round for course
func (r *Reconciler) Discard(ctx context.Context, course string) error {
	if err := r.repo.DeleteRound(ctx, course); err != nil {
		return fmt.Errorf("%w: delete round %q: %w", ErrPersistence, course, err)
	}
	return nil
}
