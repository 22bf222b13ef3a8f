package gateway

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/DenisKelolli/Golf-App/go/internal/models"
	"github.com/DenisKelolli/Golf-App/go/internal/round"
)

// Client message types
const (
	MessageTypeJoin      = "join"
	MessageTypeScoreEdit = "score_edit"
)

// Server-only message types. Broadcast events use round.EventType.
const (
	MessageTypeConnected = "connected"
	MessageTypeJoined    = "joined"
	MessageTypeError     = "error"
	MessageTypeWarning   = "warning"
)

var ErrMalformedMessage = errors.New("malformed message")

// ClientMessage is a validated inbound message: JoinMessage or ScoreEditMessage.
type ClientMessage interface {
	clientMessage()
}

// JoinMessage asks to join the connection's course. Player defaults to the connection identity.
type JoinMessage struct {
	Course string
	Player string
}

// ScoreEditMessage sets one hole. A nil Value clears the hole.
type ScoreEditMessage struct {
	Course string
	Player string
	Hole   int
	Value  *int
}

func (JoinMessage) clientMessage()      {}
func (ScoreEditMessage) clientMessage() {}

type rawClientMessage struct {
	Type   string          `json:"type"`
	Course string          `json:"course"`
	Player string          `json:"player"`
	Hole   *int            `json:"hole"`
	Value  json.RawMessage `json:"value"`
}

// ParseClientMessage decodes and validates one inbound frame. Unknown types and missing
// required fields are rejected before anything reaches the round core.
func ParseClientMessage(data []byte) (ClientMessage, error) {
	var raw rawClientMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedMessage, err)
	}

	switch raw.Type {
	case MessageTypeJoin:
		return JoinMessage{
			Course: strings.TrimSpace(raw.Course),
			Player: strings.TrimSpace(raw.Player),
		}, nil

	case MessageTypeScoreEdit:
		if raw.Hole == nil {
			return nil, fmt.Errorf("%w: hole is required", ErrMalformedMessage)
		}
		value, err := parseScoreValue(raw.Value)
		if err != nil {
			return nil, err
		}
		return ScoreEditMessage{
			Course: strings.TrimSpace(raw.Course),
			Player: strings.TrimSpace(raw.Player),
			Hole:   *raw.Hole,
			Value:  value,
		}, nil

	case "":
		return nil, fmt.Errorf("%w: type is required", ErrMalformedMessage)
	default:
		return nil, fmt.Errorf("%w: unknown type %q", ErrMalformedMessage, raw.Type)
	}
}

// parseScoreValue requires the value key. null clears the hole; anything else must be an integer.
func parseScoreValue(raw json.RawMessage) (*int, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: value is required", ErrMalformedMessage)
	}
	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil, nil
	}
	var v int
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("%w: value must be an integer or null", ErrMalformedMessage)
	}
	return &v, nil
}

// ConnectedMessage greets a new connection with the course presence
type ConnectedMessage struct {
	Type         string              `json:"type"`
	ConnectionID round.ConnectionID  `json:"connection_id"`
	Course       string              `json:"course"`
	Players      models.PresenceList `json:"players"`
	Version      uint64              `json:"version"`
}

// JoinedMessage tells the joining connection which player it now controls
type JoinedMessage struct {
	Type    string              `json:"type"`
	Player  models.Player       `json:"player"`
	Players models.PresenceList `json:"players"`
	Version uint64              `json:"version"`
}

// ErrorMessage reports a rejected message to the connection that sent it
type ErrorMessage struct {
	Type    string     `json:"type"`
	Kind    round.Kind `json:"kind"`
	Message string     `json:"message"`
}

// WarningMessage reports an accepted edit that could not be saved
type WarningMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func newErrorMessage(kind round.Kind, message string) ErrorMessage {
	return ErrorMessage{Type: MessageTypeError, Kind: kind, Message: message}
}
