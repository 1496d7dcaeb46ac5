package gateway

import (
	"context"
	"net/http"

	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

// Service exposes the voter app to a local UI over REST and WebSocket
type Service struct {
	app               VoterApp
	config            Config
	connectionManager *ConnectionManager
	wsHandler         *WebSocketHandler
	stateHandler      *StateHandler
	health            healthChecks
}

// Config holds configuration for the gateway service
type Config struct {
	ConnectionConfig ConnectionConfig
	AllowedOrigins   []string
}

// DefaultConfig returns default configuration for the gateway
func DefaultConfig() Config {
	return Config{
		ConnectionConfig: DefaultConnectionConfig(),
		AllowedOrigins:   []string{"*"},
	}
}

// NewService creates a new gateway service for app
func NewService(config Config, app VoterApp) *Service {
	cm := NewConnectionManager(config.ConnectionConfig)
	return &Service{
		app:               app,
		config:            config,
		connectionManager: cm,
		wsHandler:         NewWebSocketHandler(cm, app),
		stateHandler:      NewStateHandler(app),
	}
}

// Start forwards view changes to the WebSocket clients until ctx is done
// or the app closes its feed.
func (s *Service) Start(ctx context.Context) error {
	log.Info().Msg("starting voter gateway service")

	cmCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go s.connectionManager.Start(cmCtx)

	views, unsubscribe := s.app.Subscribe()
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("voter gateway service shutting down")
			return nil
		case view, ok := <-views:
			if !ok {
				log.Info().Msg("view feed closed; voter gateway service stopping")
				return nil
			}
			s.connectionManager.Broadcast(view)
		}
	}
}

// RegisterRoutes registers the gateway HTTP routes
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	s.wsHandler.RegisterRoutes(mux)
	s.stateHandler.RegisterStateRoutes(mux)
	mux.HandleFunc("/health", s.HandleHealth)
	log.Info().Msg("voter gateway routes registered")
}

// Handler returns the routes wrapped in CORS and served over h2c.
func (s *Service) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)

	origins := s.config.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
		},
		AllowedOrigins: origins,
		AllowedHeaders: []string{"*"},
	})

	return h2c.NewHandler(c.Handler(mux), &http2.Server{})
}

// Stats returns statistics about the gateway connections
func (s *Service) Stats() ConnectionStats {
	return s.connectionManager.Stats()
}
