package round

import (
	"fmt"

	"github.com/mcdev12/prizevote/go/internal/voting"
)

// State is the client-side position of the actor in the election.
type State int

const (
	StateUnknown State = iota
	StateNoActiveSession
	StateRound1Voting
	StateRound2Voting
	// StateWaitingForPeers: stage 1 or 2 with no votes left.
	StateWaitingForPeers
	StateRound3AwaitingTieCheck
	StateRound3PresidentTiebreak
	StateRound3NonPresidentWait
	StateCalculatingFinal
	StateWinnerAnnounced
)

const (
	FirstStage = 1
	// FinalStage is the tie-break stage.
	FinalStage = 3
)

var stateNames = map[State]string{
	StateUnknown:                 "UNKNOWN",
	StateNoActiveSession:         "NO_ACTIVE_SESSION",
	StateRound1Voting:            "ROUND_1_VOTING",
	StateRound2Voting:            "ROUND_2_VOTING",
	StateWaitingForPeers:         "WAITING_FOR_PEERS",
	StateRound3AwaitingTieCheck:  "ROUND_3_AWAITING_TIE_CHECK",
	StateRound3PresidentTiebreak: "ROUND_3_PRESIDENT_TIEBREAK",
	StateRound3NonPresidentWait:  "ROUND_3_NON_PRESIDENT_WAIT",
	StateCalculatingFinal:        "CALCULATING_FINAL",
	StateWinnerAnnounced:         "WINNER_ANNOUNCED",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// MarshalText lets views carry the label instead of the ordinal.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a label written by MarshalText.
func (s *State) UnmarshalText(text []byte) error {
	for state, name := range stateNames {
		if name == string(text) {
			*s = state
			return nil
		}
	}
	return fmt.Errorf("unknown voting state %q", text)
}

// CanVote reports whether a vote may be cast in s.
func (s State) CanVote() bool {
	switch s {
	case StateRound1Voting, StateRound2Voting, StateRound3PresidentTiebreak:
		return true
	}
	return false
}

// Waiting reports whether s depends on other participants or the service,
// which is when the client has to keep polling.
func (s State) Waiting() bool {
	switch s {
	case StateNoActiveSession,
		StateWaitingForPeers,
		StateRound3AwaitingTieCheck,
		StateRound3NonPresidentWait,
		StateCalculatingFinal:
		return true
	}
	return false
}

// Terminal reports whether no further transition is expected within the session.
func (s State) Terminal() bool {
	return s == StateWinnerAnnounced
}

// Inputs are the facts a state is derived from.
type Inputs struct {
	SessionPresent bool
	Stage          int
	VotesRemaining int
	IsTie          bool
	IsPresident    bool
	WinnerPresent  bool
}

// Evaluate derives the state for in. Rules are checked in precedence order;
// combinations outside the table return ErrInvalidTransition.
func Evaluate(in Inputs) (State, error) {
	if !in.SessionPresent {
		return StateNoActiveSession, nil
	}
	if in.WinnerPresent {
		return StateWinnerAnnounced, nil
	}
	if in.VotesRemaining < 0 {
		return StateUnknown, fmt.Errorf("%w: negative votes remaining (%d) in stage %d", voting.ErrInvalidTransition, in.VotesRemaining, in.Stage)
	}

	switch in.Stage {
	case 1, 2:
		if in.VotesRemaining == 0 {
			return StateWaitingForPeers, nil
		}
		if in.Stage == 1 {
			return StateRound1Voting, nil
		}
		return StateRound2Voting, nil

	case FinalStage:
		if !in.IsTie {
			return StateCalculatingFinal, nil
		}
		if !in.IsPresident {
			return StateRound3NonPresidentWait, nil
		}
		if in.VotesRemaining > 0 {
			return StateRound3PresidentTiebreak, nil
		}
		return StateRound3AwaitingTieCheck, nil
	}

	return StateUnknown, fmt.Errorf("%w: stage %d is outside 1..%d", voting.ErrInvalidTransition, in.Stage, FinalStage)
}
