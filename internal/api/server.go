// Package api exposes the battle engine over HTTP and hands websocket
// upgrades to the live hub.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/caseclash/backend/internal/battle"
	"github.com/caseclash/backend/internal/live"
	"github.com/caseclash/backend/internal/store"
)

// Server handles HTTP requests.
type Server struct {
	log    *zap.Logger
	engine *battle.Engine
	db     *store.SQLiteDB
	hub    *live.Hub
}

// NewServer creates a new API server.
func NewServer(log *zap.Logger, engine *battle.Engine, db *store.SQLiteDB, hub *live.Hub) *Server {
	return &Server{log: log, engine: engine, db: db, hub: hub}
}

// Routes sets up the HTTP routes.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Heartbeat("/health"))

	r.Get("/ws", s.handleWS)
	r.Get("/boxes", s.handleListBoxes)

	r.Route("/battles", func(r chi.Router) {
		r.Get("/", s.handleListBattles)
		r.Post("/", s.handleCreateBattle)
		r.Get("/{id}", s.handleGetBattle)
		r.Get("/{id}/fair", s.handleGetFair)
		r.Post("/{id}/join", s.handleJoinBattle)
		r.Post("/{id}/bot", s.handleCallBots)
		r.Post("/{id}/cancel", s.handleCancelBattle)
	})

	return r
}

// writeJSON writes a JSON response.
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError classifies err and writes the error envelope.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status, envelope := classify(err)
	if status == http.StatusInternalServerError {
		s.log.Error("request failed", zap.Error(err))
	}
	s.writeJSON(w, status, map[string]Error{"error": envelope})
}

// userID extracts the authenticated user. Session handling lives outside
// this subsystem; the gateway forwards the identity in a header.
func userID(r *http.Request) string {
	return r.Header.Get("X-User-ID")
}
