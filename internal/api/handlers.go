package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/caseclash/backend/internal/battle"
	"github.com/caseclash/backend/internal/live"
)

type createBattleRequest struct {
	PlayerCount int                   `json:"playerCount"`
	Mode        battle.Mode           `json:"mode"`
	Options     battle.Options        `json:"options"`
	Boxes       []battle.BoxSelection `json:"boxes"`
}

func (s *Server) handleCreateBattle(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	if uid == "" {
		s.writeJSON(w, http.StatusUnauthorized, map[string]Error{"error": {Type: ErrTypePrecondition, Message: "missing user identity"}})
		return
	}

	var req createBattleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]Error{"error": {Type: ErrTypeValidation, Message: "invalid request body"}})
		return
	}

	g, err := s.engine.CreateGame(r.Context(), battle.CreateParams{
		CreatorID:   uid,
		PlayerCount: req.PlayerCount,
		Mode:        req.Mode,
		Options:     req.Options,
		Boxes:       req.Boxes,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, live.ViewGame(g.Snapshot(), true))
}

type joinBattleRequest struct {
	Slot int `json:"slot"`
}

func (s *Server) handleJoinBattle(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	if uid == "" {
		s.writeJSON(w, http.StatusUnauthorized, map[string]Error{"error": {Type: ErrTypePrecondition, Message: "missing user identity"}})
		return
	}

	var req joinBattleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]Error{"error": {Type: ErrTypeValidation, Message: "invalid request body"}})
		return
	}

	g, err := s.engine.Join(r.Context(), chi.URLParam(r, "id"), uid, req.Slot)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, live.ViewGame(g.Snapshot(), true))
}

func (s *Server) handleCallBots(w http.ResponseWriter, r *http.Request) {
	g, err := s.engine.CallBots(r.Context(), chi.URLParam(r, "id"), userID(r))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, live.ViewGame(g.Snapshot(), true))
}

func (s *Server) handleCancelBattle(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.Cancel(r.Context(), chi.URLParam(r, "id"), userID(r)); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "canceled"})
}

// handleListBattles returns active games plus the recent completed ring,
// sanitized for public listing (no box items, commits sealed).
func (s *Server) handleListBattles(w http.ResponseWriter, r *http.Request) {
	reg := s.engine.Registry()

	var out struct {
		Active []live.GameView `json:"active"`
		Recent []live.GameView `json:"recent"`
	}
	for _, g := range reg.Active() {
		out.Active = append(out.Active, live.ViewGame(g.Snapshot(), false))
	}
	for _, g := range reg.History() {
		out.Recent = append(out.Recent, live.ViewGame(g.Snapshot(), false))
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetBattle(w http.ResponseWriter, r *http.Request) {
	snap, err := s.findBattle(r, chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, live.ViewGame(snap, true))
}

// handleGetFair serves the verification data for a battle: the commit hash
// always, the seeds once revealed, and every slot's recorded tickets.
func (s *Server) handleGetFair(w http.ResponseWriter, r *http.Request) {
	snap, err := s.findBattle(r, chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	view := live.ViewGame(snap, false)

	var out struct {
		ID    string         `json:"id"`
		State battle.State   `json:"state"`
		Fair  live.FairView  `json:"fair"`
		Bets  []live.BetView `json:"bets"`
	}
	out.ID = view.ID
	out.State = view.State
	out.Fair = view.Fair
	out.Bets = view.Bets
	s.writeJSON(w, http.StatusOK, out)
}

// findBattle resolves an id against the active registry, the recent-history
// ring, and finally the database, so completed games stay reachable.
func (s *Server) findBattle(r *http.Request, id string) (battle.GameSnapshot, error) {
	reg := s.engine.Registry()
	if g, err := reg.Get(id); err == nil {
		return g.Snapshot(), nil
	}
	for _, h := range reg.History() {
		if h.ID == id {
			return h.Snapshot(), nil
		}
	}
	g, err := s.db.GetGame(r.Context(), id)
	if err != nil {
		return battle.GameSnapshot{}, err
	}
	return g.Snapshot(), nil
}

func (s *Server) handleListBoxes(w http.ResponseWriter, r *http.Request) {
	boxes, err := s.db.ActiveBoxes(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	views := make([]live.BoxView, 0, len(boxes))
	for _, b := range boxes {
		views = append(views, live.ViewBox(b, true))
	}
	s.writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	s.hub.HandleWS(w, r, r.URL.Query().Get("user"))
}
