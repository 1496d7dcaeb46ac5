package voter

import (
	"time"

	"github.com/mcdev12/prizevote/go/internal/models"
	"github.com/mcdev12/prizevote/go/internal/voting/round"
)

// Screen is the top-level screen a UI should show.
type Screen string

const (
	// ScreenSplash is shown while no session is active, or before the first load.
	ScreenSplash  Screen = "splash"
	ScreenVoting  Screen = "voting"
	ScreenResults Screen = "results"
	ScreenWinner  Screen = "winner"
)

// ResultsScreen holds the tallies shown between two rounds.
type ResultsScreen struct {
	Stage     int                  `json:"stage"`
	NextStage int                  `json:"next_stage"`
	Results   []models.StageResult `json:"results"`
	Error     string               `json:"error,omitempty"`
}

// View is an immutable, display-ready copy of the client state.
type View struct {
	Screen            Screen             `json:"screen"`
	State             round.State        `json:"state"`
	Actor             models.User        `json:"actor"`
	SessionID         int                `json:"session_id,omitempty"`
	Stage             int                `json:"stage"`
	Title             string             `json:"title"`
	WaitingMessage    string             `json:"waiting_message,omitempty"`
	VotesRemaining    int                `json:"votes_remaining"`
	IsTie             bool               `json:"is_tie"`
	CanVote           bool               `json:"can_vote"`
	Candidates        []models.Candidate `json:"candidates"`
	SelectedCandidate *int               `json:"selected_candidate,omitempty"`
	Winner            *models.Candidate  `json:"winner,omitempty"`
	Results           *ResultsScreen     `json:"results,omitempty"`
	Message           string             `json:"message,omitempty"`
	Error             string             `json:"error,omitempty"`
	// Fatal marks errors that mean the client is out of sync with the service.
	Fatal     bool      `json:"fatal,omitempty"`
	Polling   bool      `json:"polling"`
	UpdatedAt time.Time `json:"updated_at"`
}

func screenFor(state round.State, results *ResultsScreen) Screen {
	if results != nil {
		return ScreenResults
	}
	switch state {
	case round.StateUnknown, round.StateNoActiveSession:
		return ScreenSplash
	case round.StateWinnerAnnounced:
		return ScreenWinner
	}
	return ScreenVoting
}

func cloneResults(r *ResultsScreen) *ResultsScreen {
	if r == nil {
		return nil
	}
	out := *r
	out.Results = append([]models.StageResult(nil), r.Results...)
	return &out
}
