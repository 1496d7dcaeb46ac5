package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventType represents the type of voting event
type EventType string

const (
	EventTypeVoteCast        EventType = "VoteCast"
	EventTypeRoundAdvanced   EventType = "RoundAdvanced"
	EventTypeWinnerAnnounced EventType = "WinnerAnnounced"
	EventTypeSessionLost     EventType = "SessionLost"
)

// Event is the envelope every voting event is published in
type Event struct {
	ID         uuid.UUID       `json:"id"`
	Type       EventType       `json:"type"`
	SessionID  int             `json:"session_id"`
	Stage      int             `json:"stage"`
	OccurredAt time.Time       `json:"occurred_at"`
	Data       json.RawMessage `json:"data"`
}

// Publisher delivers events to interested observers
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// NewEvent wraps payload in an envelope with a fresh id.
func NewEvent(eventType EventType, sessionID, stage int, occurredAt time.Time, payload interface{}) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("failed to marshal %s payload: %w", eventType, err)
	}
	return Event{
		ID:         uuid.New(),
		Type:       eventType,
		SessionID:  sessionID,
		Stage:      stage,
		OccurredAt: occurredAt,
		Data:       data,
	}, nil
}

// Subject returns the subject event is published on under prefix.
func Subject(prefix string, event Event) string {
	return fmt.Sprintf("%s.session.%d.%s", prefix, event.SessionID, event.Type)
}
