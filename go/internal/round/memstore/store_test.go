package memstore

import (
	"context"
	"errors"
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DenisKelolli/Golf-App/go/internal/models"
	"github.com/DenisKelolli/Golf-App/go/internal/round"
)

func TestGetOrCreateRoundIsSingleton(t *testing.T) {
	ctx := context.Background()
	s := New(clockwork.NewFakeClock())

	first, err := s.GetOrCreateRound(ctx, "highlandgreens")
	require.NoError(t, err)
	_, err = s.AddPlayer(ctx, "highlandgreens", "Alice", models.NewScores(3))
	require.NoError(t, err)

	second, err := s.GetOrCreateRound(ctx, "highlandgreens")
	require.NoError(t, err)
	assert.Equal(t, first.CreatedAt, second.CreatedAt)
	assert.Len(t, second.Players, 1)
}

func TestGetRoundNotFound(t *testing.T) {
	_, err := New(clockwork.NewFakeClock()).GetRound(context.Background(), "nowhere")
	assert.ErrorIs(t, err, round.ErrRoundNotFound)
}

func TestAddPlayerIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := New(clockwork.NewFakeClock())

	require.NoError(t, s.SaveScores(ctx, "c", "Alice", models.Scores{models.IntPtr(4), nil}, 1))

	line, err := s.AddPlayer(ctx, "c", "Alice", models.NewScores(2))
	require.NoError(t, err)
	require.NotNil(t, line.Scores[0])
	assert.Equal(t, 4, *line.Scores[0])

	r, err := s.GetRound(ctx, "c")
	require.NoError(t, err)
	assert.Len(t, r.Players, 1)
}

func TestSaveScoresKeepsNewestVersion(t *testing.T) {
	ctx := context.Background()
	s := New(clockwork.NewFakeClock())

	require.NoError(t, s.SaveScores(ctx, "c", "Alice", models.Scores{models.IntPtr(5)}, 9))
	require.NoError(t, s.SaveScores(ctx, "c", "Alice", models.Scores{models.IntPtr(4)}, 8))

	r, err := s.GetRound(ctx, "c")
	require.NoError(t, err)
	assert.Equal(t, 5, *r.Players[0].Scores[0])
}

func TestFailOn(t *testing.T) {
	ctx := context.Background()
	s := New(clockwork.NewFakeClock())
	boom := errors.New("connection refused")

	s.FailOn(OpSaveScores, boom)
	assert.ErrorIs(t, s.SaveScores(ctx, "c", "Alice", models.NewScores(1), 1), boom)

	s.FailOn(OpSaveScores, nil)
	assert.NoError(t, s.SaveScores(ctx, "c", "Alice", models.NewScores(1), 1))
}

func TestArchivesKeepOrderAndDoNotAlias(t *testing.T) {
	ctx := context.Background()
	s := New(clockwork.NewFakeClock())

	scores := models.Scores{models.IntPtr(3)}
	_, err := s.CreateArchive(ctx, models.ArchivedRound{CourseName: "a", Players: []models.PlayerScores{{PlayerName: "Alice", Scores: scores}}})
	require.NoError(t, err)
	_, err = s.CreateArchive(ctx, models.ArchivedRound{CourseName: "b"})
	require.NoError(t, err)
	*scores[0] = 9

	list, err := s.ListArchives(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "a", list[0].CourseName)
	assert.Equal(t, "b", list[1].CourseName)
	assert.Equal(t, 3, *list[0].Players[0].Scores[0])
}
