package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/mcdev12/prizevote/go/internal/voter"
	"github.com/mcdev12/prizevote/go/internal/voting"
	"github.com/rs/zerolog/log"
)

// VoterApp is what the gateway drives
type VoterApp interface {
	View() voter.View
	Select(candidateID int) voter.View
	SubmitVote(ctx context.Context) (voter.View, error)
	SubmitVoteFor(ctx context.Context, candidateID int) (voter.View, error)
	ContinueToNextRound() voter.View
	RefreshNow()
	Subscribe() (<-chan voter.View, func())
}

type candidateRequest struct {
	CandidateID *int `json:"candidate_id"`
}

type viewResponse struct {
	View  voter.View `json:"view"`
	Error string     `json:"error,omitempty"`
}

// StateHandler serves the view and the voting commands over HTTP
type StateHandler struct {
	app VoterApp
}

// NewStateHandler creates a new state handler
func NewStateHandler(app VoterApp) *StateHandler {
	return &StateHandler{app: app}
}

// HandleGetView handles GET /api/view
func (h *StateHandler) HandleGetView(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, h.app.View())
}

// HandleSelect handles POST /api/select
func (h *StateHandler) HandleSelect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	req, err := decodeCandidate(r)
	if err != nil || req.CandidateID == nil {
		writeJSON(w, http.StatusBadRequest, viewResponse{View: h.app.View(), Error: "candidate_id is required"})
		return
	}

	writeJSON(w, http.StatusOK, viewResponse{View: h.app.Select(*req.CandidateID)})
}

// HandleVote handles POST /api/vote. Without a body the pending selection is cast.
func (h *StateHandler) HandleVote(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	req, err := decodeCandidate(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, viewResponse{View: h.app.View(), Error: "invalid request body"})
		return
	}

	var view voter.View
	if req.CandidateID != nil {
		view, err = h.app.SubmitVoteFor(r.Context(), *req.CandidateID)
	} else {
		view, err = h.app.SubmitVote(r.Context())
	}
	if err != nil {
		writeJSON(w, voteStatusCode(err), viewResponse{View: view, Error: view.Error})
		return
	}
	writeJSON(w, http.StatusOK, viewResponse{View: view})
}

// HandleContinue handles POST /api/results/continue
func (h *StateHandler) HandleContinue(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, viewResponse{View: h.app.ContinueToNextRound()})
}

// HandleRefresh handles POST /api/refresh
func (h *StateHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	h.app.RefreshNow()
	w.WriteHeader(http.StatusAccepted)
}

// RegisterStateRoutes registers the view and command routes
func (h *StateHandler) RegisterStateRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/view", h.HandleGetView)
	mux.HandleFunc("/api/select", h.HandleSelect)
	mux.HandleFunc("/api/vote", h.HandleVote)
	mux.HandleFunc("/api/results/continue", h.HandleContinue)
	mux.HandleFunc("/api/refresh", h.HandleRefresh)
}

func decodeCandidate(r *http.Request) (candidateRequest, error) {
	var req candidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		return req, err
	}
	return req, nil
}

// voteStatusCode maps a rejected vote to its HTTP status.
func voteStatusCode(err error) int {
	switch {
	case errors.Is(err, voting.ErrNoSelection),
		errors.Is(err, voting.ErrNoTie),
		errors.Is(err, voting.ErrPresidentOnly):
		return http.StatusBadRequest
	case voting.CodeOf(err) == voting.CodeVotesExhausted,
		errors.Is(err, voting.ErrVotingClosed),
		voting.IsFatal(err):
		return http.StatusConflict
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	}
	return http.StatusBadGateway
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}
