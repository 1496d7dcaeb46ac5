package ballot

import (
	"context"
	"fmt"
	"sync"

	"github.com/mcdev12/prizevote/go/internal/models"
	"github.com/mcdev12/prizevote/go/internal/voting"
	"github.com/mcdev12/prizevote/go/internal/voting/round"
	"github.com/rs/zerolog/log"
)

// VoteAPI defines what the gate needs from the voting service
type VoteAPI interface {
	Vote(ctx context.Context, candidateID, stage int) (*models.VoteReceipt, error)
}

// Refresher schedules an out-of-band status refresh
type Refresher interface {
	RefreshNow()
}

// Receipt describes an accepted vote.
type Receipt struct {
	CandidateID    int
	Stage          int
	VotesRemaining int
	Message        string
}

// Gate validates a selection against the current round before it is sent.
type Gate struct {
	api       VoteAPI
	machine   *round.Machine
	refresher Refresher

	mu        sync.Mutex
	selection *int
}

// NewGate creates a gate for machine. refresher may be nil.
func NewGate(api VoteAPI, machine *round.Machine, refresher Refresher) *Gate {
	return &Gate{
		api:       api,
		machine:   machine,
		refresher: refresher,
	}
}

// Select marks candidateID as the pending choice.
func (g *Gate) Select(candidateID int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.selection = &candidateID
}

// ClearSelection drops the pending choice.
func (g *Gate) ClearSelection() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.selection = nil
}

// Selection returns the pending choice.
func (g *Gate) Selection() (int, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.selection == nil {
		return 0, false
	}
	return *g.selection, true
}

// Submit votes for the pending choice.
func (g *Gate) Submit(ctx context.Context) (*Receipt, error) {
	id, ok := g.Selection()
	if !ok {
		return nil, voting.ErrNoSelection
	}
	return g.SubmitVote(ctx, id)
}

// SubmitVote casts a vote for candidateID in the current stage. Rule
// violations are rejected before any request is made. candidateID <= 0
// means nothing is selected.
func (g *Gate) SubmitVote(ctx context.Context, candidateID int) (*Receipt, error) {
	snap, state := g.machine.Current()
	if err := g.check(candidateID, snap, state); err != nil {
		log.Debug().
			Err(err).
			Int("candidate_id", candidateID).
			Int("stage", snap.Stage()).
			Msg("vote rejected locally")
		return nil, err
	}

	stage := snap.Stage()
	resp, err := g.api.Vote(ctx, candidateID, stage)
	if err != nil {
		if voting.CodeOf(err) == voting.CodeVotesExhausted {
			return nil, fmt.Errorf("%w (%v)", voting.ErrVotesExhausted, err)
		}
		return nil, err
	}
	if ctx.Err() != nil {
		// torn down while the request was in flight
		return nil, ctx.Err()
	}

	remaining, err := g.machine.RecordVote()
	if err != nil {
		return nil, err
	}
	g.ClearSelection()

	if g.refresher != nil {
		g.refresher.RefreshNow()
	}

	log.Info().
		Int("candidate_id", candidateID).
		Int("stage", stage).
		Int("votes_remaining", remaining).
		Msg("vote submitted")

	return &Receipt{
		CandidateID:    candidateID,
		Stage:          stage,
		VotesRemaining: remaining,
		Message:        resp.Message,
	}, nil
}

func (g *Gate) check(candidateID int, snap round.Snapshot, state round.State) error {
	if candidateID <= 0 {
		return voting.ErrNoSelection
	}
	if snap.Stage() == round.FinalStage {
		if !snap.Status.IsTie {
			return voting.ErrNoTie
		}
		if !g.machine.Actor().IsPresident {
			return voting.ErrPresidentOnly
		}
	}

	if state.CanVote() {
		return nil
	}
	if snap.Session != nil && snap.Status.VotesRemaining == 0 {
		return voting.ErrVotesExhausted
	}
	return fmt.Errorf("%w (%s)", voting.ErrVotingClosed, state)
}
