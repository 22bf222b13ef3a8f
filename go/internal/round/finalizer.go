package round

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/DenisKelolli/Golf-App/go/internal/events"
	"github.com/DenisKelolli/Golf-App/go/internal/models"
)

// Finish archives the durable round of courseName and ends its live round.
//
// The live round stops taking edits and every edit it already accepted is written before the
// durable round is read, so the archive holds them and no late write re-creates the round.
// The archive write and the durable delete are separate writes. If the delete fails the
// stray durable round is resumed by the next join instead of starting a duplicate.
func (a *App) Finish(ctx context.Context, courseName string) (*models.ArchivedRound, error) {
	if courseName == "" {
		return nil, fmt.Errorf("%w: course is required", ErrInvalidRequest)
	}

	resume, err := a.registry.Quiesce(ctx, courseName)
	if err != nil {
		return nil, err
	}
	defer resume()

	durable, err := a.reconciler.Load(ctx, courseName)
	if errors.Is(err, ErrRoundNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNoActiveRound, courseName)
	}
	if err != nil {
		return nil, err
	}

	archive := models.ArchivedRound{
		ID:         uuid.New(),
		CourseName: courseName,
		Players:    make([]models.PlayerScores, 0, len(durable.Players)),
		FinishedAt: a.clock.Now().UTC(),
	}
	for _, p := range durable.Players {
		archive.Players = append(archive.Players, models.PlayerScores{
			PlayerName: p.PlayerName,
			Scores:     p.Scores.Clone(),
		})
	}
	if c, err := a.catalog.GetCourse(ctx, courseName); err == nil {
		archive.Course = &c
	} else {
		log.Warn().Err(err).Str("course", courseName).Msg("archiving round without course layout")
	}

	saved, err := a.archives.CreateArchive(ctx, archive)
	if err != nil {
		return nil, fmt.Errorf("%w: archive round %q: %w", ErrPersistence, courseName, err)
	}

	if err := a.reconciler.Discard(ctx, courseName); err != nil {
		log.Warn().
			Err(err).
			Str("course", courseName).
			Str("archive_id", saved.ID.String()).
			Msg("round archived but durable round not deleted, next join will resume it")
	}

	version := a.registry.Clear(courseName)

	log.Info().
		Str("course", courseName).
		Str("archive_id", saved.ID.String()).
		Int("players", len(saved.Players)).
		Msg("round finished")

	a.broadcaster.Publish(courseName, presenceChanged(courseName, version, saved.FinishedAt, models.PresenceList{}))
	a.broadcaster.Publish(courseName, roundFinished(version, saved))
	a.bus.Enqueue(events.New(events.TypeRoundFinished, courseName, saved.FinishedAt, events.RoundFinishedPayload{
		ArchiveID:  saved.ID,
		Course:     courseName,
		FinishedAt: saved.FinishedAt,
		Players:    saved.Summaries(),
	}))

	return saved, nil
}

// ListArchive returns every archived round in the order they were finished
func (a *App) ListArchive(ctx context.Context) ([]models.ArchivedRound, error) {
	archives, err := a.archives.ListArchives(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: list archives: %w", ErrPersistence, err)
	}
	return archives, nil
}
