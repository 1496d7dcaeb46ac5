package voting

import (
	"errors"

	"github.com/mcdev12/prizevote/go/clients"
)

// Code is the closed set of error conditions the voting service reports
// that the client reacts to specifically.
type Code string

const (
	CodeUnknown         Code = ""
	CodeNoActiveSession Code = "no_active_session"
	CodeVotesExhausted  Code = "votes_exhausted"
)

// Literal details sent by services that do not send a code yet.
const (
	detailNoActiveSession = "No active session found"
	detailVotesExhausted  = "You have already cast all your votes for this stage"
)

var (
	ErrNoActiveSession = errors.New("No active session found")
	ErrVotesExhausted  = errors.New("You have already cast all your votes for this stage.")

	ErrNoSelection   = errors.New("Please select a candidate to vote.")
	ErrNoTie         = errors.New("Voting in Round 3 is only allowed when there is a tie.")
	ErrPresidentOnly = errors.New("Only the president can vote in Round 3.")
	ErrVotingClosed  = errors.New("Voting is not open for you right now.")

	ErrStageRegressed    = errors.New("voting session stage went backwards")
	ErrInvalidTransition = errors.New("invalid voting state")
	ErrRefreshInFlight   = errors.New("refresh already in flight")
)

// Generic messages shown when nothing more specific is known.
const (
	MsgVoteFailed  = "Failed to submit vote."
	MsgLoadFailed  = "Failed to load voting data."
	MsgResultsFail = "Failed to load results."
)

// CodeOf classifies err into a Code. Errors the service did not produce map to CodeUnknown.
func CodeOf(err error) Code {
	if err == nil {
		return CodeUnknown
	}
	if errors.Is(err, ErrNoActiveSession) {
		return CodeNoActiveSession
	}
	if errors.Is(err, ErrVotesExhausted) {
		return CodeVotesExhausted
	}

	var apiErr *clients.APIError
	if !errors.As(err, &apiErr) {
		return CodeUnknown
	}
	switch Code(apiErr.Code) {
	case CodeNoActiveSession, CodeVotesExhausted:
		return Code(apiErr.Code)
	}
	switch apiErr.Detail {
	case detailNoActiveSession:
		return CodeNoActiveSession
	case detailVotesExhausted:
		return CodeVotesExhausted
	}
	return CodeUnknown
}

// IsNoActiveSession reports whether err is the expected "no session" condition.
func IsNoActiveSession(err error) bool {
	return CodeOf(err) == CodeNoActiveSession
}

// IsFatal reports whether err means the client state is out of sync with the service.
func IsFatal(err error) bool {
	return errors.Is(err, ErrInvalidTransition) || errors.Is(err, ErrStageRegressed)
}

var localErrors = []error{
	ErrNoSelection,
	ErrNoTie,
	ErrPresidentOnly,
	ErrVotingClosed,
}

// DisplayMessage converts err into the message shown to the user.
func DisplayMessage(err error, fallback string) string {
	if err == nil {
		return ""
	}
	for _, local := range localErrors {
		if errors.Is(err, local) {
			return local.Error()
		}
	}
	if CodeOf(err) == CodeVotesExhausted {
		return ErrVotesExhausted.Error()
	}
	if IsFatal(err) {
		return err.Error()
	}

	var apiErr *clients.APIError
	if errors.As(err, &apiErr) && apiErr.Detail != "" {
		return apiErr.Detail
	}
	return fallback
}
