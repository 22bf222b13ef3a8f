package round

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/DenisKelolli/Golf-App/go/internal/course"
	"github.com/DenisKelolli/Golf-App/go/internal/events"
	"github.com/DenisKelolli/Golf-App/go/internal/models"
)

// MaxStrokes is the highest score accepted for a single hole.
const MaxStrokes = 99

const persistTimeout = 5 * time.Second

// ArchiveRepository defines what the app layer needs from the archive store
type ArchiveRepository interface {
	CreateArchive(ctx context.Context, archive models.ArchivedRound) (*models.ArchivedRound, error)
	ListArchives(ctx context.Context) ([]models.ArchivedRound, error)
}

// EventBus defines what the app layer needs from the domain event bus
type EventBus interface {
	Enqueue(event events.Event) bool
}

// ScoreEdit sets one hole for one player. A nil Value clears the slot.
type ScoreEdit struct {
	Course string `json:"course"`
	Player string `json:"player"`
	Hole   int    `json:"hole"`
	Value  *int   `json:"value"`
}

// EditResult is the outcome of an accepted edit. Warning is set when the edit is live but
// could not be persisted.
type EditResult struct {
	Presence
	Warning string `json:"warning,omitempty"`
}

// JoinResult is the joined player and the course presence after the join
type JoinResult struct {
	Player models.Player `json:"player"`
	Presence
}

// Scorecard is a course layout with the persisted scores of its in-progress round
type Scorecard struct {
	Course  models.Course         `json:"course"`
	Players []models.PlayerScores `json:"players"`
}

// App handles live scorecard business logic
type App struct {
	registry    *Registry
	reconciler  *Reconciler
	archives    ArchiveRepository
	catalog     CourseCatalog
	broadcaster Broadcaster
	bus         EventBus
	clock       clockwork.Clock
}

// NewApp creates a new round App
func NewApp(registry *Registry, reconciler *Reconciler, archives ArchiveRepository, catalog CourseCatalog, broadcaster Broadcaster, bus EventBus, clock clockwork.Clock) *App {
	return &App{
		registry:    registry,
		reconciler:  reconciler,
		archives:    archives,
		catalog:     catalog,
		broadcaster: broadcaster,
		bus:         bus,
		clock:       clock,
	}
}

// Join attaches conn to player on courseName. A connection that was attached elsewhere is
// detached from its previous player first.
func (a *App) Join(ctx context.Context, courseName, player string, conn ConnectionID) (*JoinResult, error) {
	courseName, player = strings.TrimSpace(courseName), strings.TrimSpace(player)
	if courseName == "" || player == "" {
		return nil, fmt.Errorf("%w: course and player are required", ErrInvalidRequest)
	}
	if conn == "" {
		return nil, fmt.Errorf("%w: connection id is required", ErrInvalidRequest)
	}

	if prevCourse, prevPlayer, ok := a.registry.Lookup(conn); ok && (prevCourse != courseName || prevPlayer != player) {
		a.Leave(ctx, conn)
	}

	joined, presence, err := a.registry.Join(ctx, courseName, player, conn)
	if err != nil {
		if errors.Is(err, course.ErrCourseNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrCourseNotFound, courseName)
		}
		log.Error().Err(err).Str("course", courseName).Str("player", player).Msg("failed to join round")
		return nil, err
	}

	log.Info().
		Str("course", courseName).
		Str("player", player).
		Str("connection_id", string(conn)).
		Int("players", len(presence.Players)).
		Msg("player joined round")

	now := a.clock.Now()
	a.broadcaster.Publish(courseName, presenceChanged(courseName, presence.Version, now, presence.Players))
	a.bus.Enqueue(events.New(events.TypePlayerJoined, courseName, now, events.PlayerJoinedPayload{
		Course:   courseName,
		Player:   player,
		JoinedAt: joined.JoinedAt,
	}))

	return &JoinResult{Player: joined, Presence: presence}, nil
}

// Leave detaches conn from its player. It reports false when conn was not attached.
func (a *App) Leave(_ context.Context, conn ConnectionID) bool {
	courseName, presence, ok := a.registry.Leave(conn)
	if !ok {
		return false
	}

	log.Info().
		Str("course", courseName).
		Str("connection_id", string(conn)).
		Int("players", len(presence.Players)).
		Msg("player left round")

	a.broadcaster.Publish(courseName, presenceChanged(courseName, presence.Version, a.clock.Now(), presence.Players))
	return true
}

// EditScore is the only path that mutates a score. actor is the authenticated caller and must
// name the edited player. Rejected edits are never persisted or broadcast. An accepted edit is
// broadcast before it is written, so a slow store never holds back observers.
func (a *App) EditScore(ctx context.Context, actor string, edit ScoreEdit) (*EditResult, error) {
	if actor == "" {
		return nil, fmt.Errorf("%w: join the round before editing scores", ErrNoIdentity)
	}
	if err := validateEdit(edit); err != nil {
		return nil, err
	}
	if actor != edit.Player {
		return nil, fmt.Errorf("%w: %s cannot edit %s", ErrNotYourScorecard, actor, edit.Player)
	}

	presence, done, err := a.registry.ApplyScore(edit.Course, edit.Player, edit.Hole, edit.Value)
	if err != nil {
		log.Debug().Err(err).Str("course", edit.Course).Str("player", edit.Player).Msg("score edit rejected")
		return nil, err
	}
	defer done()

	now := a.clock.Now()
	a.broadcaster.Publish(edit.Course, scoreChanged(edit.Course, presence.Version, now, edit, presence.Players))
	a.bus.Enqueue(events.New(events.TypeScoreRecorded, edit.Course, now, events.ScoreRecordedPayload{
		Course:     edit.Course,
		Player:     edit.Player,
		Hole:       edit.Hole,
		Value:      edit.Value,
		Version:    presence.Version,
		RecordedAt: now,
	}))

	result := &EditResult{Presence: presence}
	player, _ := presence.Players.Find(edit.Player)

	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()
	err = a.reconciler.PersistScore(pctx, ScoreWrite{
		Course:  edit.Course,
		Player:  edit.Player,
		Hole:    edit.Hole,
		Value:   edit.Value,
		Scores:  player.Scores,
		Version: presence.Version,
	})
	if err != nil {
		log.Warn().
			Err(err).
			Str("course", edit.Course).
			Str("player", edit.Player).
			Int("hole", edit.Hole).
			Msg("score applied live but not persisted")
		result.Warning = "score is live but could not be saved"
	}

	return result, nil
}

func validateEdit(edit ScoreEdit) error {
	if edit.Course == "" || edit.Player == "" {
		return fmt.Errorf("%w: course and player are required", ErrInvalidRequest)
	}
	if edit.Hole < 0 {
		return fmt.Errorf("%w: %d", ErrHoleIndexOutOfRange, edit.Hole)
	}
	if edit.Value != nil && (*edit.Value < 0 || *edit.Value > MaxStrokes) {
		return fmt.Errorf("%w: %d is outside [0, %d]", ErrInvalidScore, *edit.Value, MaxStrokes)
	}
	return nil
}

// Presence returns the live players of courseName
func (a *App) Presence(_ context.Context, courseName string) Presence {
	return a.registry.Snapshot(courseName)
}

// ActiveRounds lists the live rounds held in memory
func (a *App) ActiveRounds() []ActiveRound {
	return a.registry.ActiveCourses()
}

// Courses lists the course catalog
func (a *App) Courses(ctx context.Context) []models.Course {
	return a.catalog.List(ctx)
}

// Scorecard returns the course layout with the durable scores of its round in progress.
// Players is empty when no round is in progress.
func (a *App) Scorecard(ctx context.Context, courseName string) (*Scorecard, error) {
	c, err := a.catalog.GetCourse(ctx, courseName)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrCourseNotFound, courseName)
	}

	card := &Scorecard{Course: c, Players: []models.PlayerScores{}}
	durable, err := a.reconciler.Load(ctx, courseName)
	switch {
	case errors.Is(err, ErrRoundNotFound):
		return card, nil
	case err != nil:
		return nil, err
	}
	for _, p := range durable.Players {
		card.Players = append(card.Players, models.PlayerScores{
			PlayerName: p.PlayerName,
			Scores:     p.Scores.Fit(len(c.Holes)),
		})
	}
	return card, nil
}
