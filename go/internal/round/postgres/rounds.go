package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/DenisKelolli/Golf-App/go/internal/models"
	"github.com/DenisKelolli/Golf-App/go/internal/round"
	"github.com/DenisKelolli/Golf-App/go/internal/sqlutil"
)

const (
	upsertRound = `
INSERT INTO live_rounds (course_name) VALUES ($1)
ON CONFLICT (course_name) DO UPDATE SET course_name = EXCLUDED.course_name
RETURNING created_at, updated_at`

	selectRound = `
SELECT created_at, updated_at FROM live_rounds WHERE course_name = $1`

	selectPlayers = `
SELECT player_name, scores FROM live_round_players
WHERE course_name = $1
ORDER BY joined_at, player_name`

	insertPlayer = `
INSERT INTO live_round_players (course_name, player_name, scores) VALUES ($1, $2, $3)
ON CONFLICT (course_name, player_name) DO NOTHING`

	selectPlayerScores = `
SELECT scores FROM live_round_players WHERE course_name = $1 AND player_name = $2`

	saveScores = `
INSERT INTO live_round_players (course_name, player_name, scores, version) VALUES ($1, $2, $3, $4)
ON CONFLICT (course_name, player_name) DO UPDATE
SET scores = EXCLUDED.scores, version = EXCLUDED.version
WHERE live_round_players.version < EXCLUDED.version`

	touchRound = `
UPDATE live_rounds SET updated_at = now() WHERE course_name = $1`

	deleteRound = `
DELETE FROM live_rounds WHERE course_name = $1`
)

// RoundRepository implements round.RoundRepository on a pgx pool
type RoundRepository struct {
	pool *pgxpool.Pool
}

var _ round.RoundRepository = (*RoundRepository)(nil)

// NewRoundRepository creates a new durable round repository
func NewRoundRepository(pool *pgxpool.Pool) *RoundRepository {
	return &RoundRepository{
		pool: pool,
	}
}

// GetOrCreateRound upserts the round row and returns it with its players
func (r *RoundRepository) GetOrCreateRound(ctx context.Context, course string) (*models.DurableRound, error) {
	out := &models.DurableRound{CourseName: course}
	err := sqlutil.Run(ctx, r.pool, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, upsertRound, course).Scan(&out.CreatedAt, &out.UpdatedAt); err != nil {
			return fmt.Errorf("failed to upsert round: %w", err)
		}
		players, err := queryPlayers(ctx, tx, course)
		if err != nil {
			return err
		}
		out.Players = players
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// GetRound returns the round for course or round.ErrRoundNotFound
func (r *RoundRepository) GetRound(ctx context.Context, course string) (*models.DurableRound, error) {
	out := &models.DurableRound{CourseName: course}
	err := r.pool.QueryRow(ctx, selectRound, course).Scan(&out.CreatedAt, &out.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, round.ErrRoundNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get round: %w", err)
	}

	players, err := queryPlayers(ctx, r.pool, course)
	if err != nil {
		return nil, err
	}
	out.Players = players
	return out, nil
}

// AddPlayer inserts the player line if absent and returns the stored line
func (r *RoundRepository) AddPlayer(ctx context.Context, course, player string, scores models.Scores) (models.PlayerScores, error) {
	var stored []*int32
	err := sqlutil.Run(ctx, r.pool, func(tx pgx.Tx) error {
		if err := ensureRound(ctx, tx, course); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, insertPlayer, course, player, sqlutil.ToInt4Array(scores)); err != nil {
			return fmt.Errorf("failed to insert player: %w", err)
		}
		if err := tx.QueryRow(ctx, selectPlayerScores, course, player).Scan(&stored); err != nil {
			return fmt.Errorf("failed to read player scores: %w", err)
		}
		return nil
	})
	if err != nil {
		return models.PlayerScores{}, err
	}
	return models.PlayerScores{PlayerName: player, Scores: sqlutil.FromInt4Array(stored)}, nil
}

// SaveScores writes the player's line unless a newer version is already stored
func (r *RoundRepository) SaveScores(ctx context.Context, course, player string, scores models.Scores, version uint64) error {
	return sqlutil.Run(ctx, r.pool, func(tx pgx.Tx) error {
		if err := ensureRound(ctx, tx, course); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, saveScores, course, player, sqlutil.ToInt4Array(scores), int64(version))
		if err != nil {
			return fmt.Errorf("failed to save scores: %w", err)
		}
		if tag.RowsAffected() == 0 {
			// a newer edit already landed
			return nil
		}
		if _, err := tx.Exec(ctx, touchRound, course); err != nil {
			return fmt.Errorf("failed to touch round: %w", err)
		}
		return nil
	})
}

// DeleteRound removes the round and, through the cascade, its players
func (r *RoundRepository) DeleteRound(ctx context.Context, course string) error {
	if _, err := r.pool.Exec(ctx, deleteRound, course); err != nil {
		return fmt.Errorf("failed to delete round: %w", err)
	}
	return nil
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func queryPlayers(ctx context.Context, q querier, course string) ([]models.PlayerScores, error) {
	rows, err := q.Query(ctx, selectPlayers, course)
	if err != nil {
		return nil, fmt.Errorf("failed to query players: %w", err)
	}
	defer rows.Close()

	players := []models.PlayerScores{}
	for rows.Next() {
		var (
			name   string
			scores []*int32
		)
		if err := rows.Scan(&name, &scores); err != nil {
			return nil, fmt.Errorf("failed to scan player: %w", err)
		}
		players = append(players, models.PlayerScores{PlayerName: name, Scores: sqlutil.FromInt4Array(scores)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate players: %w", err)
	}
	return players, nil
}

func ensureRound(ctx context.Context, tx pgx.Tx, course string) error {
	var createdAt, updatedAt time.Time
	if err := tx.QueryRow(ctx, upsertRound, course).Scan(&createdAt, &updatedAt); err != nil {
		return fmt.Errorf("failed to upsert round: %w", err)
	}
	return nil
}
