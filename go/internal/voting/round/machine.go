package round

import (
	"fmt"
	"sync"

	"github.com/mcdev12/prizevote/go/internal/models"
	"github.com/mcdev12/prizevote/go/internal/voting"
	"github.com/rs/zerolog/log"
)

// Snapshot is the authoritative client view of the election.
// A nil Session means no session is active.
type Snapshot struct {
	Session *models.VotingSession
	Status  models.VotingStatus
}

// Stage returns the session stage, or 0 without a session.
func (s Snapshot) Stage() int {
	if s.Session == nil {
		return 0
	}
	return s.Session.Stage
}

// SessionID returns the session id, or 0 without a session.
func (s Snapshot) SessionID() int {
	if s.Session == nil {
		return 0
	}
	return s.Session.ID
}

// Transition describes the effect of applying a snapshot.
type Transition struct {
	From          State
	To            State
	PreviousStage int
	Stage         int
}

// Changed reports whether the state changed.
func (t Transition) Changed() bool {
	return t.From != t.To
}

// StageAdvanced reports whether the stage moved forward within a session.
func (t Transition) StageAdvanced() bool {
	return t.PreviousStage > 0 && t.Stage > t.PreviousStage
}

// Machine owns the current snapshot and derived state for one actor.
// It is safe for concurrent use.
type Machine struct {
	mu       sync.RWMutex
	actor    models.User
	snapshot Snapshot
	state    State
}

// NewMachine creates a machine for actor. It starts in StateUnknown until
// the first snapshot is applied.
func NewMachine(actor models.User) *Machine {
	return &Machine{
		actor: actor,
		state: StateUnknown,
	}
}

// Actor returns the actor the machine evaluates rules for.
func (m *Machine) Actor() models.User {
	return m.actor
}

// CurrentState returns the current state.
func (m *Machine) CurrentState() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Snapshot returns a copy of the current snapshot.
func (m *Machine) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return copySnapshot(m.snapshot)
}

// Current returns the snapshot and the state derived from it, read together.
func (m *Machine) Current() (Snapshot, State) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return copySnapshot(m.snapshot), m.state
}

// CanVote reports whether the actor may vote right now.
func (m *Machine) CanVote() bool {
	return m.CurrentState().CanVote()
}

// ApplyStatus replaces the snapshot with snap and re-derives the state.
// On error the previous snapshot and state are kept.
func (m *Machine) ApplyStatus(snap Snapshot) (Transition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t := Transition{
		From:          m.state,
		PreviousStage: m.snapshot.Stage(),
		Stage:         snap.Stage(),
	}

	sameSession := snap.Session != nil && m.snapshot.Session != nil && snap.Session.ID == m.snapshot.Session.ID
	if !sameSession {
		t.PreviousStage = 0
	}

	if sameSession && snap.Stage() < m.snapshot.Stage() {
		t.To = m.state
		return t, fmt.Errorf("%w: session %d went from stage %d to %d", voting.ErrStageRegressed, snap.SessionID(), m.snapshot.Stage(), snap.Stage())
	}

	// a winner is final for the session it was announced in
	if sameSession && m.state == StateWinnerAnnounced && !snap.Status.HasWinner() {
		log.Warn().
			Int("session_id", snap.SessionID()).
			Int("stage", snap.Stage()).
			Msg("status dropped the announced winner; keeping it")
		snap.Status.Winner = m.snapshot.Status.Winner
	}

	next, err := Evaluate(m.inputs(snap))
	if err != nil {
		t.To = m.state
		return t, err
	}

	m.snapshot = copySnapshot(snap)
	m.state = next
	t.To = next

	if t.Changed() {
		log.Debug().
			Str("from", t.From.String()).
			Str("to", t.To.String()).
			Int("stage", t.Stage).
			Msg("voting state changed")
	}
	return t, nil
}

// RecordVote applies an accepted vote locally ahead of the next refresh.
// It returns the votes left; the count never drops below zero.
func (m *Machine) RecordVote() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.snapshot.Status.VotesRemaining > 0 {
		m.snapshot.Status.VotesRemaining--
	}

	next, err := Evaluate(m.inputs(m.snapshot))
	if err != nil {
		return m.snapshot.Status.VotesRemaining, err
	}
	m.state = next

	// the service title is stale once the count moved
	title, waiting := Describe(m.snapshot.Stage(), m.snapshot.Status.VotesRemaining, m.snapshot.Status.IsTie, m.actor.IsPresident, m.snapshot.Status.HasWinner())
	m.snapshot.Status.Title = title
	m.snapshot.Status.WaitingMessage = waiting

	return m.snapshot.Status.VotesRemaining, nil
}

func (m *Machine) inputs(snap Snapshot) Inputs {
	return Inputs{
		SessionPresent: snap.Session != nil,
		Stage:          snap.Stage(),
		VotesRemaining: snap.Status.VotesRemaining,
		IsTie:          snap.Status.IsTie,
		IsPresident:    m.actor.IsPresident,
		WinnerPresent:  snap.Status.HasWinner(),
	}
}

func copySnapshot(s Snapshot) Snapshot {
	out := Snapshot{Status: s.Status}
	if s.Session != nil {
		sess := *s.Session
		out.Session = &sess
	}
	if s.Status.Winner != nil {
		w := *s.Status.Winner
		out.Status.Winner = &w
	}
	return out
}
