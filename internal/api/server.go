// Package api provides the HTTP entry point for sync triggers and status polling.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/creator-sync/internal/logging"
	"github.com/creator-sync/internal/models"
	"github.com/creator-sync/internal/service"
	"github.com/creator-sync/internal/types"
)

// SyncRunner runs and reports account syncs
type SyncRunner interface {
	SyncAccount(ctx context.Context, req service.SyncRequest) (*service.SyncResult, error)
	GetSyncStatus(ctx context.Context, scope models.Scope, accountID string) (*models.SyncStatusView, error)
}

// HistoryReader serves a video's snapshot history
type HistoryReader interface {
	History(ctx context.Context, scope models.Scope, platform types.Platform, videoID string, since time.Time, limit int) ([]*models.Snapshot, error)
}

// MembershipChecker answers whether a user belongs to an organization
type MembershipChecker interface {
	IsMember(ctx context.Context, orgID, userID string) (bool, error)
}

// Server represents the HTTP API server.
type Server struct {
	router     *mux.Router
	httpServer *http.Server
	sync       SyncRunner
	history    HistoryReader
	auth       *authorizer
	config     *ServerConfig
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Host              string
	Port              string
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	SchedulerSecret   string
	RequestsPerMinute int
	Burst             int
}

// NewServer creates a new API server instance.
func NewServer(config *ServerConfig, sync SyncRunner, history HistoryReader, members MembershipChecker) *Server {
	s := &Server{
		router:  mux.NewRouter(),
		sync:    sync,
		history: history,
		auth:    newAuthorizer(config.SchedulerSecret, members),
		config:  config,
	}

	s.setupRouter()
	return s
}

// setupRouter configures the router with middleware and routes
func (s *Server) setupRouter() {
	limiter := NewRateLimiter(s.config.RequestsPerMinute, s.config.Burst)

	// order matters: recovery must wrap everything after logging
	s.router.Use(LoggingMiddleware)
	s.router.Use(RecoveryMiddleware)
	s.router.Use(CORSMiddleware)
	s.router.Use(RateLimitMiddleware(limiter))
	s.router.Use(CompressionMiddleware)

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%s", s.config.Host, s.config.Port),
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}
}

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	api := s.router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/sync/account", s.handleSyncAccount).Methods(http.MethodPost, http.MethodOptions)

	project := api.PathPrefix("/orgs/{orgId}/projects/{projectId}").Subrouter()
	project.HandleFunc("/accounts/{accountId}/sync-status", s.handleSyncStatus).Methods(http.MethodGet)
	project.HandleFunc("/videos/{platform}/{videoId}/snapshots", s.handleSnapshots).Methods(http.MethodGet)
}

// Handler returns the root handler
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "creator-sync",
	})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	logging.Infof("Starting API server on %s", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	logging.Info("Shutting down API server...")
	return s.httpServer.Shutdown(ctx)
}
