package gateway

import (
	"context"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
)

// App is everything the gateway needs from the round application
type App interface {
	RoundApp
	StateProvider
}

// Service is the scorecard gateway: websocket sessions, broadcast fan-out and the state API
type Service struct {
	connectionManager *ConnectionManager
	wsHandler         *WebSocketHandler
	stateHandler      *StateHandler
}

// Config holds configuration for the gateway service
type Config struct {
	ConnectionConfig ConnectionConfig
	RequestTimeout   time.Duration
}

// DefaultConfig returns default configuration for the gateway
func DefaultConfig() Config {
	return Config{
		ConnectionConfig: DefaultConnectionConfig(),
		RequestTimeout:   10 * time.Second,
	}
}

// NewService creates a new gateway service. cm is created first because the round
// application broadcasts through it.
func NewService(config Config, cm *ConnectionManager, app App, catalog CourseCatalog) *Service {
	return &Service{
		connectionManager: cm,
		wsHandler:         NewWebSocketHandler(cm, app, catalog, config.RequestTimeout),
		stateHandler:      NewStateHandler(app),
	}
}

// Start runs the broadcast loop until ctx is cancelled
func (s *Service) Start(ctx context.Context) error {
	log.Info().Msg("starting scorecard gateway service")

	go s.connectionManager.Start(ctx)

	<-ctx.Done()

	log.Info().Msg("scorecard gateway service stopped")
	return nil
}

// RegisterRoutes registers the websocket and state routes
func (s *Service) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/ws/course", s.wsHandler.HandleCourseConnection).Methods("GET")
	r.HandleFunc("/ws/stats", s.wsHandler.HandleStats).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/courses", s.stateHandler.HandleCourses).Methods("GET")
	// registered before the {course} routes so "active" is not taken as a course name
	api.HandleFunc("/courses/active", s.stateHandler.HandleActiveRounds).Methods("GET")
	api.HandleFunc("/courses/{course}/presence", s.stateHandler.HandlePresence).Methods("GET")
	api.HandleFunc("/courses/{course}/scorecard", s.stateHandler.HandleScorecard).Methods("GET")
	api.HandleFunc("/history", s.stateHandler.HandleHistory).Methods("GET")

	log.Info().Msg("scorecard gateway routes registered")
}

// GetStats returns statistics about the gateway service
func (s *Service) GetStats() ConnectionStats {
	return s.connectionManager.GetConnectionStats()
}
