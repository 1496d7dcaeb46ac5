package voter

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/prizevote/go/internal/models"
	"github.com/mcdev12/prizevote/go/internal/voting"
	"github.com/mcdev12/prizevote/go/internal/voting/ballot"
	"github.com/mcdev12/prizevote/go/internal/voting/events"
	"github.com/mcdev12/prizevote/go/internal/voting/poller"
	"github.com/mcdev12/prizevote/go/internal/voting/projector"
	"github.com/mcdev12/prizevote/go/internal/voting/round"
	"github.com/rs/zerolog/log"
)

// MsgVoteSubmitted is shown after the service accepted a vote.
const MsgVoteSubmitted = "Vote submitted successfully!"

const subscriberBuffer = 8

// VotingAPI is everything the app needs from the voting service
type VotingAPI interface {
	projector.StatusAPI
	ballot.VoteAPI
}

// Config tunes an App. Zero values pick the defaults.
type Config struct {
	PollInterval time.Duration
	Clock        clockwork.Clock
	Publisher    events.Publisher
}

// App is the voting client for one actor. It keeps a display-ready View
// in sync with the voting service and accepts the actor's votes.
type App struct {
	actor     models.User
	clock     clockwork.Clock
	machine   *round.Machine
	projector *projector.Projector
	poller    *poller.Poller
	gate      *ballot.Gate
	publisher events.Publisher

	mu          sync.RWMutex
	ctx         context.Context
	candidates  []models.Candidate
	results     *ResultsScreen
	message     string
	errMsg      string
	fatal       bool
	sessionID   int
	stopped     bool
	view        View
	subscribers map[uuid.UUID]chan View
}

// NewApp wires the round machine, projector, poller and vote gate for actor.
func NewApp(api VotingAPI, actor models.User, cfg Config) *App {
	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	publisher := cfg.Publisher
	if publisher == nil {
		publisher = events.NewLogPublisher()
	}

	a := &App{
		actor:       actor,
		clock:       clock,
		publisher:   publisher,
		subscribers: make(map[uuid.UUID]chan View),
	}
	a.machine = round.NewMachine(actor)
	a.projector = projector.New(api, actor, clock)
	a.poller = poller.New(a.projector, a.machine,
		poller.WithClock(clock),
		poller.WithInterval(cfg.PollInterval),
		poller.WithUpdateHandler(a.handleUpdate),
	)
	a.gate = ballot.NewGate(api, a.machine, a.poller)
	a.view = a.buildView()
	return a
}

// Actor returns the user the app votes as.
func (a *App) Actor() models.User {
	return a.actor
}

// Start loads the current status and keeps it in sync until ctx is done
// or Stop is called.
func (a *App) Start(ctx context.Context) error {
	a.mu.Lock()
	a.ctx = ctx
	a.mu.Unlock()

	log.Info().
		Int("user_id", a.actor.ID).
		Str("username", a.actor.Username).
		Bool("is_president", a.actor.IsPresident).
		Dur("interval", a.poller.Interval()).
		Msg("voter app started")

	return a.poller.Run(ctx)
}

// Stop tears the app down. Updates that arrive afterwards are dropped and
// subscriber channels are closed.
func (a *App) Stop() {
	a.poller.Stop()

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.stopped {
		return
	}
	a.stopped = true
	for id, ch := range a.subscribers {
		delete(a.subscribers, id)
		close(ch)
	}
	log.Info().Int("user_id", a.actor.ID).Msg("voter app stopped")
}

// View returns the latest view.
func (a *App) View() View {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.view
}

// Select marks candidateID as the pending choice.
func (a *App) Select(candidateID int) View {
	a.gate.Select(candidateID)

	a.mu.Lock()
	defer a.mu.Unlock()
	a.message = ""
	a.errMsg = ""
	a.refreshView()
	return a.view
}

// SubmitVote casts the pending choice. The returned view carries the
// success message or the error to show.
func (a *App) SubmitVote(ctx context.Context) (View, error) {
	a.mu.RLock()
	onResults := a.results != nil
	a.mu.RUnlock()

	var (
		receipt *ballot.Receipt
		err     error
	)
	if onResults {
		err = fmt.Errorf("%w (results are showing)", voting.ErrVotingClosed)
	} else {
		receipt, err = a.gate.Submit(ctx)
	}

	a.mu.Lock()
	if a.stopped {
		view := a.view
		a.mu.Unlock()
		return view, err
	}

	var evts []events.Event
	if err != nil {
		a.message = ""
		a.errMsg = voting.DisplayMessage(err, voting.MsgVoteFailed)
		a.fatal = voting.IsFatal(err)
		log.Warn().Err(err).Int("user_id", a.actor.ID).Msg("vote not submitted")
	} else {
		a.message = MsgVoteSubmitted
		a.errMsg = ""
		evts = a.newEvent(evts, events.EventTypeVoteCast, receipt.Stage, events.VoteCastPayload{
			UserID:         a.actor.ID,
			CandidateID:    receipt.CandidateID,
			Stage:          receipt.Stage,
			VotesRemaining: receipt.VotesRemaining,
			CastAt:         a.clock.Now(),
		})
	}
	a.refreshView()
	view := a.view
	a.mu.Unlock()

	a.publish(ctx, evts)
	return view, err
}

// SubmitVoteFor selects candidateID and casts it.
func (a *App) SubmitVoteFor(ctx context.Context, candidateID int) (View, error) {
	a.gate.Select(candidateID)
	return a.SubmitVote(ctx)
}

// ContinueToNextRound leaves the results screen.
func (a *App) ContinueToNextRound() View {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.results == nil {
		return a.view
	}

	log.Info().
		Int("stage", a.results.Stage).
		Int("next_stage", a.results.NextStage).
		Msg("continuing to next round")

	a.results = nil
	a.message = ""
	a.gate.ClearSelection()
	a.refreshView()
	return a.view
}

// RefreshNow asks for an immediate refresh without waiting for it.
func (a *App) RefreshNow() {
	a.poller.RefreshNow()
}

// Refresh runs one refresh cycle and returns the resulting view.
func (a *App) Refresh(ctx context.Context) (View, error) {
	_, err := a.poller.Tick(ctx)
	return a.View(), err
}

// Subscribe returns a channel receiving every new view, starting with the
// current one, and a func that cancels the subscription. Slow readers only
// miss intermediate views.
func (a *App) Subscribe() (<-chan View, func()) {
	ch := make(chan View, subscriberBuffer)

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.stopped {
		close(ch)
		return ch, func() {}
	}

	id := uuid.New()
	a.subscribers[id] = ch
	ch <- a.view

	return ch, func() {
		a.mu.Lock()
		defer a.mu.Unlock()
		if c, ok := a.subscribers[id]; ok {
			delete(a.subscribers, id)
			close(c)
		}
	}
}

func (a *App) handleUpdate(upd poller.Update) {
	var (
		evts   []events.Event
		signal *projector.ResultsSignal
	)

	a.mu.Lock()
	if a.stopped {
		a.mu.Unlock()
		return
	}
	ctx := a.runContext()

	if upd.Err != nil {
		a.errMsg = voting.DisplayMessage(upd.Err, voting.MsgLoadFailed)
		a.fatal = voting.IsFatal(upd.Err)
	} else {
		proj := upd.Projection
		a.errMsg = ""
		a.fatal = false
		a.candidates = proj.Candidates
		evts = a.collectEvents(upd)

		if upd.Transition.Stage != upd.Transition.PreviousStage {
			a.gate.ClearSelection()
			a.message = ""
		}
		if proj.NoActiveSession() {
			a.sessionID = 0
			a.results = nil
		} else {
			a.sessionID = proj.Session.ID
		}

		if proj.ShowResults != nil {
			signal = proj.ShowResults
			a.results = &ResultsScreen{
				Stage:     signal.Stage,
				NextStage: signal.NextStage,
			}
		}
	}
	a.refreshView()
	a.mu.Unlock()

	a.publish(ctx, evts)
	if signal != nil {
		a.loadResults(ctx, *signal)
	}
}

func (a *App) loadResults(ctx context.Context, signal projector.ResultsSignal) {
	results, err := a.projector.FetchResults(ctx, signal.Stage)

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.stopped || a.results == nil || a.results.Stage != signal.Stage {
		return
	}
	if err != nil {
		log.Warn().Err(err).Int("stage", signal.Stage).Msg("failed to load stage results")
		a.results.Error = voting.DisplayMessage(err, voting.MsgResultsFail)
	} else {
		a.results.Results = results.Results
	}
	a.refreshView()
}

// collectEvents must be called with a.mu held.
func (a *App) collectEvents(upd poller.Update) []events.Event {
	var evts []events.Event
	proj := upd.Projection
	now := a.clock.Now()

	if proj.NoActiveSession() {
		if a.sessionID != 0 {
			// the view still holds the stage of the lost session
			evts = a.newEventFor(evts, a.sessionID, events.EventTypeSessionLost, a.view.Stage, events.SessionLostPayload{
				LastStage:  a.view.Stage,
				ObservedAt: now,
			})
		}
		return evts
	}

	if signal := proj.ShowResults; signal != nil {
		evts = a.newEventFor(evts, proj.Session.ID, events.EventTypeRoundAdvanced, signal.NextStage, events.RoundAdvancedPayload{
			FromStage:  signal.Stage,
			ToStage:    signal.NextStage,
			ObservedAt: now,
		})
	}
	if upd.Transition.Changed() && upd.Transition.To == round.StateWinnerAnnounced && proj.Status.Winner != nil {
		evts = a.newEventFor(evts, proj.Session.ID, events.EventTypeWinnerAnnounced, proj.Session.Stage, events.WinnerAnnouncedPayload{
			Winner:      *proj.Status.Winner,
			Stage:       proj.Session.Stage,
			AnnouncedAt: now,
		})
	}
	return evts
}

func (a *App) newEvent(evts []events.Event, eventType events.EventType, stage int, payload interface{}) []events.Event {
	return a.newEventFor(evts, a.sessionID, eventType, stage, payload)
}

func (a *App) newEventFor(evts []events.Event, sessionID int, eventType events.EventType, stage int, payload interface{}) []events.Event {
	evt, err := events.NewEvent(eventType, sessionID, stage, a.clock.Now(), payload)
	if err != nil {
		log.Error().Err(err).Str("event_type", string(eventType)).Msg("failed to build event")
		return evts
	}
	return append(evts, evt)
}

func (a *App) publish(ctx context.Context, evts []events.Event) {
	for _, evt := range evts {
		if err := a.publisher.Publish(ctx, evt); err != nil {
			log.Warn().
				Err(err).
				Str("event_id", evt.ID.String()).
				Str("event_type", string(evt.Type)).
				Msg("failed to publish event")
		}
	}
}

// runContext must be called with a.mu held.
func (a *App) runContext() context.Context {
	if a.ctx == nil {
		return context.Background()
	}
	return a.ctx
}

// refreshView rebuilds the view and fans it out. Must be called with a.mu held.
func (a *App) refreshView() {
	a.view = a.buildView()
	for _, ch := range a.subscribers {
		select {
		case ch <- a.view:
		default:
			// drop the oldest pending view so the newest always lands
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- a.view:
			default:
			}
		}
	}
}

func (a *App) buildView() View {
	snap, state := a.machine.Current()
	screen := screenFor(state, a.results)

	v := View{
		Screen:         screen,
		State:          state,
		Actor:          a.actor,
		SessionID:      snap.SessionID(),
		Stage:          snap.Stage(),
		Title:          snap.Status.Title,
		WaitingMessage: snap.Status.WaitingMessage,
		VotesRemaining: snap.Status.VotesRemaining,
		IsTie:          snap.Status.IsTie,
		CanVote:        state.CanVote() && a.results == nil,
		Candidates:     []models.Candidate{},
		Winner:         snap.Status.Winner,
		Results:        cloneResults(a.results),
		Message:        a.message,
		Error:          a.errMsg,
		Fatal:          a.fatal,
		Polling:        a.poller.Waiting(),
		UpdatedAt:      a.clock.Now(),
	}
	if screen == ScreenVoting {
		v.Candidates = append(v.Candidates, a.candidates...)
	}
	if id, ok := a.gate.Selection(); ok {
		v.SelectedCandidate = &id
	}
	return v
}
