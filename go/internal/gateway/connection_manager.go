package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/DenisKelolli/Golf-App/go/internal/round"
)

// ConnectionManager manages WebSocket connections grouped by course
type ConnectionManager struct {
	// Connection pools organized by course name
	courseConnections map[string]map[*Connection]bool
	byID              map[round.ConnectionID]*Connection
	mu                sync.RWMutex

	upgrader websocket.Upgrader
	config   ConnectionConfig

	// Event broadcasting
	broadcastCh chan BroadcastMessage
}

var (
	_ round.Broadcaster         = (*ConnectionManager)(nil)
	_ round.ConnectionDirectory = (*ConnectionManager)(nil)
)

// ConnectionHandler receives the lifecycle of a connection
type ConnectionHandler interface {
	// HandleConnect returns the first message queued to a new connection. It runs under the
	// manager lock; Publish is the only manager method it may call.
	HandleConnect(c *Connection) any
	HandleMessage(c *Connection, data []byte)
	HandleDisconnect(c *Connection)
}

// Connection represents a WebSocket connection to a client
type Connection struct {
	ID      round.ConnectionID
	Course  string
	Player  string // identity from the upgrade request, empty for anonymous observers
	Conn    *websocket.Conn
	Send    chan []byte
	Manager *ConnectionManager

	handler ConnectionHandler
	// joinedAs is only touched from the read pump.
	joinedAs string

	ConnectedAt time.Time
}

// ConnectionConfig holds configuration for WebSocket connections
type ConnectionConfig struct {
	WriteTimeout        time.Duration
	ReadTimeout         time.Duration
	PingInterval        time.Duration
	MaxMessageSize      int64
	ReadBufferSize      int
	WriteBufferSize     int
	SendBufferSize      int
	BroadcastBufferSize int
	CheckOrigin         func(r *http.Request) bool
}

// BroadcastMessage is an event bound for every connection of a course
type BroadcastMessage struct {
	Course string
	Event  round.Event
}

// ConnectionStats describes the open connections
type ConnectionStats struct {
	TotalConnections  int            `json:"total_connections"`
	ActiveCourses     int            `json:"active_courses"`
	CourseConnections map[string]int `json:"course_connections"`
}

// DefaultConnectionConfig returns default WebSocket configuration
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:        10 * time.Second,
		ReadTimeout:         60 * time.Second,
		PingInterval:        30 * time.Second,
		MaxMessageSize:      4096,
		ReadBufferSize:      1024,
		WriteBufferSize:     1024,
		SendBufferSize:      256,
		BroadcastBufferSize: 1000,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
}

// NewConnectionManager creates a new WebSocket connection manager
func NewConnectionManager(config ConnectionConfig) *ConnectionManager {
	return &ConnectionManager{
		courseConnections: make(map[string]map[*Connection]bool),
		byID:              make(map[round.ConnectionID]*Connection),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config:      config,
		broadcastCh: make(chan BroadcastMessage, config.BroadcastBufferSize),
	}
}

// Start processes broadcast messages until ctx is cancelled. A single goroutine dispatches, so
// every connection receives the events of a course in the order they were published.
func (cm *ConnectionManager) Start(ctx context.Context) {
	log.Info().Msg("connection manager started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("connection manager shutting down")
			cm.closeAll()
			return
		case message := <-cm.broadcastCh:
			cm.handleBroadcast(message)
		}
	}
}

// UpgradeConnection upgrades an HTTP connection to WebSocket and subscribes it to course
func (cm *ConnectionManager) UpgradeConnection(w http.ResponseWriter, r *http.Request, course, player string, handler ConnectionHandler) (*Connection, error) {
	conn, err := cm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to upgrade connection: %w", err)
	}

	connection := &Connection{
		ID:          round.NewConnectionID(),
		Course:      course,
		Player:      player,
		Conn:        conn,
		Send:        make(chan []byte, cm.config.SendBufferSize),
		Manager:     cm,
		handler:     handler,
		ConnectedAt: time.Now(),
	}

	if err := cm.registerConnection(connection); err != nil {
		conn.Close()
		return nil, err
	}

	go connection.writePump()
	go connection.readPump()

	log.Info().
		Str("connection_id", string(connection.ID)).
		Str("player", player).
		Str("course", course).
		Msg("WebSocket connection established")

	return connection, nil
}

// registerConnection adds a connection to the manager and queues its greeting. Both happen under
// the manager lock, so broadcasts published meanwhile reach the connection after the greeting.
func (cm *ConnectionManager) registerConnection(conn *Connection) error {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if greeting := conn.handler.HandleConnect(conn); greeting != nil {
		data, err := json.Marshal(greeting)
		if err != nil {
			return fmt.Errorf("failed to marshal greeting: %w", err)
		}
		conn.Send <- data
	}

	if cm.courseConnections[conn.Course] == nil {
		cm.courseConnections[conn.Course] = make(map[*Connection]bool)
	}
	cm.courseConnections[conn.Course][conn] = true
	cm.byID[conn.ID] = conn

	log.Debug().
		Str("connection_id", string(conn.ID)).
		Str("course", conn.Course).
		Int("total_connections", len(cm.courseConnections[conn.Course])).
		Msg("connection registered")
	return nil
}

// unregisterConnection removes a connection from the manager. The handler hears about the
// disconnect exactly once, after the manager lock is released.
func (cm *ConnectionManager) unregisterConnection(conn *Connection) {
	cm.mu.Lock()
	removed := false
	if connections, exists := cm.courseConnections[conn.Course]; exists {
		if _, exists := connections[conn]; exists {
			delete(connections, conn)
			delete(cm.byID, conn.ID)
			close(conn.Send)
			removed = true

			if len(connections) == 0 {
				delete(cm.courseConnections, conn.Course)
			}
		}
	}
	cm.mu.Unlock()

	if !removed {
		return
	}

	log.Info().
		Str("connection_id", string(conn.ID)).
		Str("player", conn.Player).
		Str("course", conn.Course).
		Msg("connection unregistered")

	if conn.handler != nil {
		conn.handler.HandleDisconnect(conn)
	}
}

// Publish queues an event for every connection of course
func (cm *ConnectionManager) Publish(course string, event round.Event) {
	select {
	case cm.broadcastCh <- BroadcastMessage{Course: course, Event: event}:
	default:
		log.Warn().
			Str("course", course).
			Str("event_type", string(event.Type)).
			Msg("broadcast channel full, dropping message")
	}
}

// SendTo queues msg for a single connection. It reports false when the connection is gone or
// its buffer is full.
func (cm *ConnectionManager) SendTo(conn *Connection, msg any) bool {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal direct message")
		return false
	}

	cm.mu.RLock()
	defer cm.mu.RUnlock()
	if cm.byID[conn.ID] != conn {
		return false
	}
	select {
	case conn.Send <- data:
		return true
	default:
		log.Warn().
			Str("connection_id", string(conn.ID)).
			Msg("connection send buffer full, dropping direct message")
		return false
	}
}

// HasConnection reports whether id is an open connection subscribed to course
func (cm *ConnectionManager) HasConnection(course string, id round.ConnectionID) bool {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	conn, ok := cm.byID[id]
	return ok && conn.Course == course
}

// handleBroadcast processes a broadcast message
func (cm *ConnectionManager) handleBroadcast(message BroadcastMessage) {
	eventData, err := json.Marshal(message.Event)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal event for broadcast")
		return
	}

	// Sends are non-blocking, so they happen under the read lock; that keeps a concurrent
	// unregister from closing a Send channel mid-broadcast.
	var slow []*Connection
	cm.mu.RLock()
	connections := cm.courseConnections[message.Course]
	delivered := 0
	for conn := range connections {
		select {
		case conn.Send <- eventData:
			delivered++
		default:
			slow = append(slow, conn)
		}
	}
	cm.mu.RUnlock()

	for _, conn := range slow {
		log.Warn().
			Str("connection_id", string(conn.ID)).
			Str("player", conn.Player).
			Msg("connection send buffer full, closing connection")
		cm.unregisterConnection(conn)
		conn.Conn.Close()
	}

	log.Debug().
		Str("event_type", string(message.Event.Type)).
		Str("course", message.Course).
		Uint64("version", message.Event.Version).
		Int("connections", delivered).
		Msg("event broadcasted")
}

// GetConnectionStats returns statistics about active connections
func (cm *ConnectionManager) GetConnectionStats() ConnectionStats {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	stats := ConnectionStats{
		ActiveCourses:     len(cm.courseConnections),
		CourseConnections: make(map[string]int, len(cm.courseConnections)),
	}
	for course, connections := range cm.courseConnections {
		stats.TotalConnections += len(connections)
		stats.CourseConnections[course] = len(connections)
	}
	return stats
}

func (cm *ConnectionManager) closeAll() {
	cm.mu.RLock()
	conns := make([]*Connection, 0, len(cm.byID))
	for _, conn := range cm.byID {
		conns = append(conns, conn)
	}
	cm.mu.RUnlock()

	for _, conn := range conns {
		conn.Conn.Close()
	}
}

// writePump handles sending messages to the WebSocket connection
func (c *Connection) writePump() {
	ticker := time.NewTicker(c.Manager.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
		c.Manager.unregisterConnection(c)
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if !ok {
				// Channel was closed
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Error().
					Err(err).
					Str("connection_id", string(c.ID)).
					Msg("failed to write message to WebSocket")
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Debug().
					Err(err).
					Str("connection_id", string(c.ID)).
					Msg("failed to send ping")
				return
			}
		}
	}
}

// readPump handles reading messages from the WebSocket connection. Messages from one
// connection are handled one at a time, in arrival order.
func (c *Connection) readPump() {
	defer func() {
		c.Manager.unregisterConnection(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(c.Manager.config.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().
					Err(err).
					Str("connection_id", string(c.ID)).
					Msg("unexpected WebSocket close error")
			}
			break
		}

		c.handler.HandleMessage(c, message)
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	}
}
