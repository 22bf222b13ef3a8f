package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/DenisKelolli/Golf-App/go/internal/gateway"
	"github.com/DenisKelolli/Golf-App/go/internal/identity"
)

func newCORS(cfg *Config) *cors.Cors {
	return cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
		},
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedHeaders: []string{"*"},
	})
}

func setupServer(cfg *Config, services *Services, corsPolicy *cors.Cors) *http.Server {
	router := mux.NewRouter()

	// Register services
	registerServices(router, services)

	// Add health check endpoint
	setupHealthCheck(router)

	// identity → request log → routes, all behind CORS
	handler := corsPolicy.Handler(identity.Middleware(gateway.RequestLogger(router)))

	// Setup HTTP/2 server
	return &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           h2c.NewHandler(handler, &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}

func registerServices(router *mux.Router, services *Services) {
	// Register scorecard RPC service
	scorecardPath, scorecardHandler := services.Scorecard.Handler()
	router.PathPrefix(scorecardPath).Handler(scorecardHandler)

	// Register websocket and state routes
	services.Gateway.RegisterRoutes(router)
}

func setupHealthCheck(router *mux.Router) {
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			log.Error().Err(err).Msg("failed to write health check response")
		}
	})
}
