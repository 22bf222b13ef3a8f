package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jonboulle/clockwork"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"

	"github.com/DenisKelolli/Golf-App/go/internal/course"
	"github.com/DenisKelolli/Golf-App/go/internal/events"
	"github.com/DenisKelolli/Golf-App/go/internal/gateway"
	"github.com/DenisKelolli/Golf-App/go/internal/round"
	"github.com/DenisKelolli/Golf-App/go/internal/round/memstore"
	"github.com/DenisKelolli/Golf-App/go/internal/round/postgres"
)

type Services struct {
	Scorecard  *round.Service
	Gateway    *gateway.Service
	Dispatcher *events.Dispatcher
	Reaper     *round.Reaper

	closers []func() error
}

type stores struct {
	rounds   round.RoundRepository
	archives round.ArchiveRepository
}

func setupServices(ctx context.Context, cfg *Config, corsPolicy *cors.Cors) (*Services, error) {
	// Wire up dependency injection chain
	// Store → Reconciler → Registry → App → Service / Gateway
	services := &Services{}
	clock := clockwork.NewRealClock()

	catalog, err := course.LoadFile(cfg.CoursesFile)
	if err != nil {
		return nil, err
	}
	log.Info().Int("courses", len(catalog.List(ctx))).Str("file", cfg.CoursesFile).Msg("loaded course catalog")

	st, err := services.setupStores(ctx, cfg, clock)
	if err != nil {
		return nil, err
	}

	publisher, err := setupPublisher(cfg)
	if err != nil {
		services.Close()
		return nil, err
	}
	services.closers = append(services.closers, publisher.Close)
	services.Dispatcher = events.NewDispatcher(publisher, events.DefaultDispatcherConfig())

	connCfg := gateway.DefaultConnectionConfig()
	connCfg.WriteTimeout = cfg.WS.WriteTimeout
	connCfg.ReadTimeout = cfg.WS.ReadTimeout
	connCfg.PingInterval = cfg.WS.PingInterval
	connCfg.MaxMessageSize = cfg.WS.MaxMessageSize
	connCfg.CheckOrigin = func(r *http.Request) bool {
		// non-browser clients send no Origin
		return r.Header.Get("Origin") == "" || corsPolicy.OriginAllowed(r)
	}
	connectionManager := gateway.NewConnectionManager(connCfg)

	reconciler := round.NewReconciler(st.rounds, clock)
	registry := round.NewRegistry(reconciler, catalog, clock)
	app := round.NewApp(registry, reconciler, st.archives, catalog, connectionManager, services.Dispatcher, clock)

	gatewayCfg := gateway.DefaultConfig()
	gatewayCfg.ConnectionConfig = connCfg
	services.Gateway = gateway.NewService(gatewayCfg, connectionManager, app, catalog)
	services.Scorecard = round.NewService(app, connectionManager)
	services.Reaper = round.NewReaper(registry, clock, cfg.IdleRoundTTL, cfg.ReaperInterval)

	return services, nil
}

func (s *Services) setupStores(ctx context.Context, cfg *Config, clock clockwork.Clock) (stores, error) {
	if cfg.Store == storeMemory {
		log.Warn().Msg("using in-memory store, rounds will not survive a restart")
		store := memstore.New(clock)
		return stores{rounds: store, archives: store}, nil
	}

	pool, database, err := setupDatabase(ctx, cfg.DB)
	if err != nil {
		return stores{}, err
	}
	s.closers = append(s.closers, func() error { pool.Close(); return nil }, database.Close)
	return stores{
		rounds:   postgres.NewRoundRepository(pool),
		archives: postgres.NewArchiveRepository(database),
	}, nil
}

func setupPublisher(cfg *Config) (events.Publisher, error) {
	if cfg.NATS.URL == "" {
		log.Info().Msg("NATS_URL not set, domain events are not published")
		return events.NopPublisher{}, nil
	}

	jsCfg := events.DefaultJetStreamConfig()
	jsCfg.URL = cfg.NATS.URL
	jsCfg.StreamName = cfg.NATS.Stream
	jsCfg.SubjectPrefix = cfg.NATS.SubjectPrefix

	publisher, err := events.NewJetStreamPublisher(jsCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create event publisher: %w", err)
	}
	return publisher, nil
}

// Start runs the background workers until ctx is cancelled
func (s *Services) Start(ctx context.Context) {
	go func() {
		if err := s.Gateway.Start(ctx); err != nil {
			log.Error().Err(err).Msg("gateway service failed")
		}
	}()
	go s.Dispatcher.Run(ctx)
	go s.Reaper.Run(ctx)
}

// Close releases the stores and the event bus connection, newest first
func (s *Services) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			log.Error().Err(err).Msg("failed to close resource")
		}
	}
}
