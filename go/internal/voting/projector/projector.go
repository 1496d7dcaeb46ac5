package projector

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/prizevote/go/internal/models"
	"github.com/mcdev12/prizevote/go/internal/voting"
	"github.com/mcdev12/prizevote/go/internal/voting/round"
	"github.com/rs/zerolog/log"
)

// StatusAPI defines the reads the projector needs from the voting service
type StatusAPI interface {
	CurrentSession(ctx context.Context) (*models.VotingSession, error)
	VotingStatus(ctx context.Context) (*models.VotingStatus, error)
	Candidates(ctx context.Context, stage int) ([]models.Candidate, error)
	Results(ctx context.Context, stage int) (*models.Results, error)
}

// ResultsSignal asks the caller to show the results of Stage before NextStage is displayed.
type ResultsSignal struct {
	SessionID int `json:"session_id"`
	Stage     int `json:"stage"`
	NextStage int `json:"next_stage"`
}

// Projection is the display-ready outcome of one refresh.
type Projection struct {
	Session     *models.VotingSession
	Status      models.VotingStatus
	Candidates  []models.Candidate
	ShowResults *ResultsSignal
	FetchedAt   time.Time
}

// NoActiveSession reports whether the service had no session to project.
func (p *Projection) NoActiveSession() bool {
	return p.Session == nil
}

// Snapshot converts the projection into the state machine input.
func (p *Projection) Snapshot() round.Snapshot {
	return round.Snapshot{Session: p.Session, Status: p.Status}
}

// Projector derives VotingStatus snapshots for one actor.
type Projector struct {
	api   StatusAPI
	actor models.User
	clock clockwork.Clock

	mu           sync.Mutex
	knownSession int
	knownStage   int
}

// New creates a projector for actor.
func New(api StatusAPI, actor models.User, clock clockwork.Clock) *Projector {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Projector{
		api:   api,
		actor: actor,
		clock: clock,
	}
}

// KnownStage returns the last committed stage.
func (p *Projector) KnownStage() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.knownStage
}

// Refresh reads the session, then the status, then the stage candidates.
// Refresh never changes the known stage; the caller records an accepted
// projection with Commit.
func (p *Projector) Refresh(ctx context.Context) (*Projection, error) {
	session, err := p.api.CurrentSession(ctx)
	if err != nil {
		if voting.IsNoActiveSession(err) {
			log.Debug().Msg("no active voting session")
			return &Projection{FetchedAt: p.clock.Now()}, nil
		}
		return nil, fmt.Errorf("failed to refresh session: %w", err)
	}

	status, err := p.api.VotingStatus(ctx)
	if err != nil {
		if voting.IsNoActiveSession(err) {
			// session closed between the two reads
			return &Projection{FetchedAt: p.clock.Now()}, nil
		}
		return nil, fmt.Errorf("failed to refresh voting status: %w", err)
	}

	candidates, err := p.api.Candidates(ctx, session.Stage)
	if err != nil {
		return nil, fmt.Errorf("failed to refresh candidates: %w", err)
	}

	signal, err := p.observe(session)
	if err != nil {
		return nil, err
	}

	proj := &Projection{
		Session:     session,
		Status:      *status,
		Candidates:  candidates,
		ShowResults: signal,
		FetchedAt:   p.clock.Now(),
	}
	p.fillText(proj)

	log.Debug().
		Int("session_id", session.ID).
		Int("stage", session.Stage).
		Int("votes_remaining", status.VotesRemaining).
		Bool("is_tie", status.IsTie).
		Bool("winner", status.HasWinner()).
		Int("candidates", len(candidates)).
		Msg("voting status refreshed")

	return proj, nil
}

// FetchResults reads the tallies shown between rounds.
func (p *Projector) FetchResults(ctx context.Context, stage int) (*models.Results, error) {
	results, err := p.api.Results(ctx, stage)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch results: %w", err)
	}
	return results, nil
}

// Commit records proj as the known session and stage. Until a projection
// is committed its results signal is raised again by the next refresh.
func (p *Projector) Commit(proj *Projection) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if proj.NoActiveSession() {
		p.knownSession = 0
		p.knownStage = 0
		return
	}
	if signal := proj.ShowResults; signal != nil {
		log.Info().
			Int("session_id", signal.SessionID).
			Int("stage", signal.Stage).
			Int("next_stage", signal.NextStage).
			Msg("stage advanced; showing results")
	}
	p.knownSession = proj.Session.ID
	p.knownStage = proj.Session.Stage
}

// observe compares session with the known stage and returns a signal when it advanced.
func (p *Projector) observe(session *models.VotingSession) (*ResultsSignal, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if session.ID != p.knownSession {
		return nil, nil
	}

	switch {
	case session.Stage < p.knownStage:
		return nil, fmt.Errorf("%w: session %d went from stage %d to %d", voting.ErrStageRegressed, session.ID, p.knownStage, session.Stage)
	case session.Stage > p.knownStage:
		return &ResultsSignal{
			SessionID: session.ID,
			Stage:     p.knownStage,
			NextStage: session.Stage,
		}, nil
	}
	return nil, nil
}

func (p *Projector) fillText(proj *Projection) {
	if proj.Status.Title != "" && (proj.Status.WaitingMessage != "" || !p.expectsWaiting(proj)) {
		return
	}
	title, waiting := round.Describe(
		proj.Session.Stage,
		proj.Status.VotesRemaining,
		proj.Status.IsTie,
		p.actor.IsPresident,
		proj.Status.HasWinner(),
	)
	if proj.Status.Title == "" {
		proj.Status.Title = title
	}
	if proj.Status.WaitingMessage == "" {
		proj.Status.WaitingMessage = waiting
	}
}

// expectsWaiting reports whether the status describes a state that waits on others.
func (p *Projector) expectsWaiting(proj *Projection) bool {
	state, err := round.Evaluate(round.Inputs{
		SessionPresent: true,
		Stage:          proj.Session.Stage,
		VotesRemaining: proj.Status.VotesRemaining,
		IsTie:          proj.Status.IsTie,
		IsPresident:    p.actor.IsPresident,
		WinnerPresent:  proj.Status.HasWinner(),
	})
	return err == nil && state.Waiting()
}
