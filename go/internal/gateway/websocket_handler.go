package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/DenisKelolli/Golf-App/go/internal/identity"
	"github.com/DenisKelolli/Golf-App/go/internal/models"
	"github.com/DenisKelolli/Golf-App/go/internal/round"
)

// RoundApp defines what the websocket handler needs from the round application
type RoundApp interface {
	Join(ctx context.Context, course, player string, conn round.ConnectionID) (*round.JoinResult, error)
	Leave(ctx context.Context, conn round.ConnectionID) bool
	EditScore(ctx context.Context, actor string, edit round.ScoreEdit) (*round.EditResult, error)
	Presence(ctx context.Context, course string) round.Presence
}

// CourseCatalog defines the course lookup used to validate subscriptions
type CourseCatalog interface {
	GetCourse(ctx context.Context, name string) (models.Course, error)
}

// WebSocketHandler handles WebSocket connection requests
type WebSocketHandler struct {
	connectionManager *ConnectionManager
	app               RoundApp
	catalog           CourseCatalog
	requestTimeout    time.Duration
}

var _ ConnectionHandler = (*WebSocketHandler)(nil)

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(cm *ConnectionManager, app RoundApp, catalog CourseCatalog, requestTimeout time.Duration) *WebSocketHandler {
	if requestTimeout <= 0 {
		requestTimeout = 10 * time.Second
	}
	return &WebSocketHandler{
		connectionManager: cm,
		app:               app,
		catalog:           catalog,
		requestTimeout:    requestTimeout,
	}
}

// HandleCourseConnection handles WebSocket connections for course updates
// GET /ws/course?course={course}
func (h *WebSocketHandler) HandleCourseConnection(w http.ResponseWriter, r *http.Request) {
	course := r.URL.Query().Get("course")
	if course == "" {
		http.Error(w, "course parameter is required", http.StatusBadRequest)
		return
	}
	if _, err := h.catalog.GetCourse(r.Context(), course); err != nil {
		http.Error(w, "course not found", http.StatusNotFound)
		return
	}

	// Anonymous connections may watch; they must join before editing.
	player, _ := identity.CurrentPlayerName(r.Context())

	if _, err := h.connectionManager.UpgradeConnection(w, r, course, player, h); err != nil {
		log.Error().
			Err(err).
			Str("course", course).
			Str("player", player).
			Msg("failed to upgrade WebSocket connection")
		return
	}
}

// HandleStats returns connection statistics
// GET /ws/stats
func (h *WebSocketHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.connectionManager.GetConnectionStats())
}

// HandleConnect greets a new connection with the current presence of its course
func (h *WebSocketHandler) HandleConnect(c *Connection) any {
	presence := h.app.Presence(context.Background(), c.Course)
	return ConnectedMessage{
		Type:         MessageTypeConnected,
		ConnectionID: c.ID,
		Course:       c.Course,
		Players:      presence.Players,
		Version:      presence.Version,
	}
}

// HandleMessage routes one client frame. Failures are reported to c only.
func (h *WebSocketHandler) HandleMessage(c *Connection, data []byte) {
	msg, err := ParseClientMessage(data)
	if err != nil {
		h.sendError(c, round.KindValidation, err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.requestTimeout)
	defer cancel()

	switch m := msg.(type) {
	case JoinMessage:
		h.handleJoin(ctx, c, m)
	case ScoreEditMessage:
		h.handleScoreEdit(ctx, c, m)
	}
}

// HandleDisconnect removes the connection's player from presence
func (h *WebSocketHandler) HandleDisconnect(c *Connection) {
	h.app.Leave(context.Background(), c.ID)
}

func (h *WebSocketHandler) handleJoin(ctx context.Context, c *Connection, m JoinMessage) {
	if err := checkCourse(c, m.Course); err != nil {
		h.sendError(c, round.KindValidation, err)
		return
	}

	player := m.Player
	switch {
	case c.Player != "" && player == "":
		player = c.Player
	case c.Player != "" && player != c.Player:
		h.sendError(c, round.KindPermission, round.ErrNotYourScorecard)
		return
	case player == "":
		h.sendError(c, round.KindValidation, errors.New("player is required"))
		return
	}

	result, err := h.app.Join(ctx, c.Course, player, c.ID)
	if err != nil {
		h.sendError(c, round.KindOf(err), err)
		return
	}
	c.joinedAs = result.Player.Name

	h.connectionManager.SendTo(c, JoinedMessage{
		Type:    MessageTypeJoined,
		Player:  result.Player,
		Players: result.Players,
		Version: result.Version,
	})
}

func (h *WebSocketHandler) handleScoreEdit(ctx context.Context, c *Connection, m ScoreEditMessage) {
	if err := checkCourse(c, m.Course); err != nil {
		h.sendError(c, round.KindValidation, err)
		return
	}

	actor := c.Player
	if actor == "" {
		actor = c.joinedAs
	}
	if actor == "" {
		h.sendError(c, round.KindUnauthenticated, errors.New("join the round before editing scores"))
		return
	}
	player := m.Player
	if player == "" {
		player = actor
	}

	result, err := h.app.EditScore(ctx, actor, round.ScoreEdit{
		Course: c.Course,
		Player: player,
		Hole:   m.Hole,
		Value:  m.Value,
	})
	if err != nil {
		h.sendError(c, round.KindOf(err), err)
		return
	}
	if result.Warning != "" {
		h.connectionManager.SendTo(c, WarningMessage{Type: MessageTypeWarning, Message: result.Warning})
	}
}

// checkCourse rejects messages naming a course other than the one c is subscribed to
func checkCourse(c *Connection, course string) error {
	if course != "" && course != c.Course {
		return fmt.Errorf("connection is subscribed to %s, not %s", c.Course, course)
	}
	return nil
}

func (h *WebSocketHandler) sendError(c *Connection, kind round.Kind, err error) {
	if kind == "" {
		kind = round.KindInternal
	}
	log.Debug().
		Err(err).
		Str("connection_id", string(c.ID)).
		Str("kind", string(kind)).
		Msg("rejected client message")
	h.connectionManager.SendTo(c, newErrorMessage(kind, err.Error()))
}
