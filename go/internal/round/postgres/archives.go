package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/lib/pq"
	"github.com/sqlc-dev/pqtype"

	"github.com/DenisKelolli/Golf-App/go/internal/models"
	"github.com/DenisKelolli/Golf-App/go/internal/round"
	"github.com/DenisKelolli/Golf-App/go/internal/sqlutil"
)

const (
	insertArchive = `
INSERT INTO archived_rounds (id, course_name, player_names, players, course_snapshot, finished_at)
VALUES ($1, $2, $3, $4, $5, $6)`

	listArchives = `
SELECT id, course_name, players, course_snapshot, finished_at
FROM archived_rounds
ORDER BY seq`
)

// ArchiveRepository implements round.ArchiveRepository on database/sql
type ArchiveRepository struct {
	db *sql.DB
}

var _ round.ArchiveRepository = (*ArchiveRepository)(nil)

// NewArchiveRepository creates a new archive repository
func NewArchiveRepository(db *sql.DB) *ArchiveRepository {
	return &ArchiveRepository{
		db: db,
	}
}

// CreateArchive writes an archived round. Archives are never updated afterwards.
func (r *ArchiveRepository) CreateArchive(ctx context.Context, archive models.ArchivedRound) (*models.ArchivedRound, error) {
	playersJSON, err := json.Marshal(archive.Players)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal players: %w", err)
	}

	var snapshot pqtype.NullRawMessage
	if archive.Course != nil {
		snapshot, err = sqlutil.ToNullJSON(archive.Course)
		if err != nil {
			return nil, err
		}
	}

	names := make([]string, len(archive.Players))
	for i, p := range archive.Players {
		names[i] = p.PlayerName
	}

	_, err = r.db.ExecContext(ctx, insertArchive,
		archive.ID,
		archive.CourseName,
		pq.Array(names),
		playersJSON,
		snapshot,
		archive.FinishedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create archive: %w", err)
	}
	return &archive, nil
}

// ListArchives returns every archive in insertion order
func (r *ArchiveRepository) ListArchives(ctx context.Context) ([]models.ArchivedRound, error) {
	rows, err := r.db.QueryContext(ctx, listArchives)
	if err != nil {
		return nil, fmt.Errorf("failed to list archives: %w", err)
	}
	defer rows.Close()

	archives := []models.ArchivedRound{}
	for rows.Next() {
		var (
			a           models.ArchivedRound
			playersJSON []byte
			snapshot    pqtype.NullRawMessage
		)
		if err := rows.Scan(&a.ID, &a.CourseName, &playersJSON, &snapshot, &a.FinishedAt); err != nil {
			return nil, fmt.Errorf("failed to scan archive: %w", err)
		}
		if err := json.Unmarshal(playersJSON, &a.Players); err != nil {
			return nil, fmt.Errorf("failed to unmarshal archive players: %w", err)
		}
		var c models.Course
		ok, err := sqlutil.FromNullJSON(snapshot, &c)
		if err != nil {
			return nil, err
		}
		if ok {
			a.Course = &c
		}
		archives = append(archives, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate archives: %w", err)
	}
	return archives, nil
}
