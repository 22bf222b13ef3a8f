package gateway_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DenisKelolli/Golf-App/go/internal/gateway"
	"github.com/DenisKelolli/Golf-App/go/internal/models"
	"github.com/DenisKelolli/Golf-App/go/internal/round"
)

func (h *harness) getJSON(t *testing.T, path string, v any) int {
	t.Helper()
	resp, err := http.Get(h.srv.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	if v != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
	}
	return resp.StatusCode
}

func TestStateCourses(t *testing.T) {
	h := newHarness(t)

	var courses []models.Course
	require.Equal(t, http.StatusOK, h.getJSON(t, "/api/courses", &courses))
	require.Len(t, courses, 1)
	assert.Equal(t, testCourse, courses[0].Name)
	assert.Equal(t, 36, courses[0].TotalPar())
}

func TestStateActiveRoundsAndPresence(t *testing.T) {
	h := newHarness(t)

	var active []round.ActiveRound
	require.Equal(t, http.StatusOK, h.getJSON(t, "/api/courses/active", &active))
	assert.Empty(t, active)

	alice := h.dial(t, "Alice")
	alice.join()

	require.Equal(t, http.StatusOK, h.getJSON(t, "/api/courses/active", &active))
	require.Len(t, active, 1)
	assert.Equal(t, testCourse, active[0].Course)
	assert.Equal(t, 1, active[0].Players)

	var presence round.Presence
	require.Equal(t, http.StatusOK, h.getJSON(t, "/api/courses/"+testCourse+"/presence", &presence))
	assert.Equal(t, []string{"Alice"}, presence.Players.Names())

	var stats gateway.ConnectionStats
	require.Equal(t, http.StatusOK, h.getJSON(t, "/ws/stats", &stats))
	assert.Equal(t, 1, stats.TotalConnections)
}

func TestStateScorecard(t *testing.T) {
	h := newHarness(t)

	var card round.Scorecard
	require.Equal(t, http.StatusOK, h.getJSON(t, "/api/courses/"+testCourse+"/scorecard", &card))
	assert.Len(t, card.Course.Holes, 9)
	assert.Empty(t, card.Players)

	alice := h.dial(t, "Alice")
	alice.join()
	alice.send(`{"type":"score_edit","hole":3,"value":5}`)
	alice.until(ofType(string(round.EventScoreChanged)))

	require.Equal(t, http.StatusOK, h.getJSON(t, "/api/courses/"+testCourse+"/scorecard", &card))
	require.Len(t, card.Players, 1)
	assert.Equal(t, "Alice", card.Players[0].PlayerName)
	require.NotNil(t, card.Players[0].Scores[3])
	assert.Equal(t, 5, *card.Players[0].Scores[3])

	var errResp struct {
		Error string `json:"error"`
		Kind  string `json:"kind"`
	}
	require.Equal(t, http.StatusNotFound, h.getJSON(t, "/api/courses/augusta/scorecard", &errResp))
	assert.Equal(t, string(round.KindNotFound), errResp.Kind)
}

func TestStateHistory(t *testing.T) {
	h := newHarness(t)

	var history []round.ArchiveSummary
	require.Equal(t, http.StatusOK, h.getJSON(t, "/api/history", &history))
	assert.Empty(t, history)

	alice := h.dial(t, "Alice")
	alice.join()
	alice.send(`{"type":"score_edit","hole":0,"value":3}`)
	alice.until(ofType(string(round.EventScoreChanged)))

	_, err := h.app.Finish(context.Background(), testCourse)
	require.NoError(t, err)

	require.Equal(t, http.StatusOK, h.getJSON(t, "/api/history", &history))
	require.Len(t, history, 1)
	assert.Equal(t, testCourse, history[0].CourseName)
	require.Len(t, history[0].Totals, 1)
	assert.Equal(t, 3, history[0].Totals[0].Strokes)
	assert.Equal(t, 1, history[0].Totals[0].HolesPlayed)
	require.NotNil(t, history[0].Totals[0].ToPar)
	assert.Equal(t, -1, *history[0].Totals[0].ToPar)
}
