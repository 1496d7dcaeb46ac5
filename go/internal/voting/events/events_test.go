package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/prizevote/go/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEvent(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	evt, err := NewEvent(EventTypeWinnerAnnounced, 7, 3, at, WinnerAnnouncedPayload{
		Winner:      models.Candidate{ID: 10, Name: "Ada"},
		Stage:       3,
		AnnouncedAt: at,
	})
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, evt.ID)
	assert.Equal(t, EventTypeWinnerAnnounced, evt.Type)
	assert.Equal(t, 7, evt.SessionID)
	assert.Equal(t, 3, evt.Stage)
	assert.Equal(t, at, evt.OccurredAt)

	var payload WinnerAnnouncedPayload
	require.NoError(t, json.Unmarshal(evt.Data, &payload))
	assert.Equal(t, "Ada", payload.Winner.Name)
}

func TestNewEventRejectsUnmarshalablePayload(t *testing.T) {
	_, err := NewEvent(EventTypeVoteCast, 1, 1, time.Now(), map[string]interface{}{"bad": make(chan int)})
	assert.Error(t, err)
}

func TestEventIDsAreUnique(t *testing.T) {
	a, err := NewEvent(EventTypeVoteCast, 1, 1, time.Now(), VoteCastPayload{})
	require.NoError(t, err)
	b, err := NewEvent(EventTypeVoteCast, 1, 1, time.Now(), VoteCastPayload{})
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestSubject(t *testing.T) {
	evt := Event{Type: EventTypeRoundAdvanced, SessionID: 4}
	assert.Equal(t, "voting.events.session.4.RoundAdvanced", Subject("voting.events", evt))
}

func TestDefaultJetStreamConfig(t *testing.T) {
	cfg := DefaultJetStreamConfig()
	assert.Equal(t, "VOTING_EVENTS", cfg.StreamName)
	assert.Equal(t, "voting.events", cfg.SubjectPrefix)
	assert.Equal(t, -1, cfg.MaxReconnects)
	assert.Equal(t, 2*time.Minute, cfg.DuplicateWindow)
}

func TestLogPublisher(t *testing.T) {
	var p Publisher = NewLogPublisher()
	evt, err := NewEvent(EventTypeSessionLost, 1, 2, time.Now(), SessionLostPayload{LastStage: 2})
	require.NoError(t, err)

	assert.NoError(t, p.Publish(context.Background(), evt))
	assert.NoError(t, p.Close())
}
