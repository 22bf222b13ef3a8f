package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"github.com/DenisKelolli/Golf-App/go/internal/dbconfig"
	"github.com/DenisKelolli/Golf-App/go/internal/round/postgres"
)

// setupDatabase opens the pgx pool used for live rounds and the database/sql handle used for
// archives, then applies the schema.
func setupDatabase(ctx context.Context, cfg dbconfig.Config) (*pgxpool.Pool, *sql.DB, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse database config: %w", err)
	}
	poolCfg.MaxConns = cfg.MaxConns

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("failed to ping database: %w", err)
	}

	database, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("failed to create database connection: %w", err)
	}
	if err := database.PingContext(ctx); err != nil {
		pool.Close()
		database.Close()
		return nil, nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := postgres.Migrate(ctx, database); err != nil {
		pool.Close()
		database.Close()
		return nil, nil, err
	}

	log.Info().
		Str("user", cfg.User).
		Str("host", cfg.Host).
		Int("port", cfg.Port).
		Str("database", cfg.Database).
		Msg("connected to database")
	return pool, database, nil
}
