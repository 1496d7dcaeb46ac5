package events

import (
	"time"

	"github.com/mcdev12/prizevote/go/internal/models"
)

// Event payload types published by the voter app

// VoteCastPayload is the payload for a VoteCast event
type VoteCastPayload struct {
	UserID         int       `json:"user_id"`
	CandidateID    int       `json:"candidate_id"`
	Stage          int       `json:"stage"`
	VotesRemaining int       `json:"votes_remaining"`
	CastAt         time.Time `json:"cast_at"`
}

// RoundAdvancedPayload is the payload for a RoundAdvanced event
type RoundAdvancedPayload struct {
	FromStage  int       `json:"from_stage"`
	ToStage    int       `json:"to_stage"`
	ObservedAt time.Time `json:"observed_at"`
}

// WinnerAnnouncedPayload is the payload for a WinnerAnnounced event
type WinnerAnnouncedPayload struct {
	Winner      models.Candidate `json:"winner"`
	Stage       int              `json:"stage"`
	AnnouncedAt time.Time        `json:"announced_at"`
}

// SessionLostPayload is the payload for a SessionLost event
type SessionLostPayload struct {
	LastStage  int       `json:"last_stage"`
	ObservedAt time.Time `json:"observed_at"`
}
