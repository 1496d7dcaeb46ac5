package models

// VotingStatus is the latest status snapshot for the current actor and stage.
// It is recomputed on every poll and has no identity of its own.
type VotingStatus struct {
	Title          string     `json:"title"`
	VotesRemaining int        `json:"votes_remaining"`
	IsTie          bool       `json:"is_tie"`
	WaitingMessage string     `json:"waiting_message"`
	Winner         *Candidate `json:"winner"`
}

// HasWinner reports whether the snapshot announces a winner.
func (s VotingStatus) HasWinner() bool {
	return s.Winner != nil
}

// VoteReceipt is the body returned when a vote is accepted.
type VoteReceipt struct {
	Message string `json:"message"`
}
