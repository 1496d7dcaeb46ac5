package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/test"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newJetStreamPublisher(t *testing.T) *JetStreamPublisher {
	t.Helper()
	opts := natsserver.DefaultTestOptions
	opts.Port = -1
	opts.JetStream = true
	opts.StoreDir = t.TempDir()
	srv := natsserver.RunServer(&opts)
	t.Cleanup(srv.Shutdown)

	cfg := DefaultJetStreamConfig()
	cfg.URL = srv.ClientURL()
	cfg.MaxReconnects = 0

	p, err := NewJetStreamPublisher(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { p.Close() })
	return p
}

func streamMsgs(t *testing.T, p *JetStreamPublisher) uint64 {
	t.Helper()
	stream, err := p.js.Stream(context.Background(), p.config.StreamName)
	require.NoError(t, err)
	info, err := stream.Info(context.Background())
	require.NoError(t, err)
	return info.State.Msgs
}

func TestJetStreamPublisherEnsuresStream(t *testing.T) {
	p := newJetStreamPublisher(t)
	assert.True(t, p.IsConnected())

	stream, err := p.js.Stream(context.Background(), "VOTING_EVENTS")
	require.NoError(t, err)
	cfg := stream.CachedInfo().Config
	assert.Equal(t, []string{"voting.events.>"}, cfg.Subjects)
	assert.Equal(t, 2*time.Minute, cfg.Duplicates)
	assert.Equal(t, jetstream.FileStorage, cfg.Storage)

	// creating it again keeps the existing stream
	require.NoError(t, p.ensureStream(context.Background()))
}

func TestJetStreamPublisherPublish(t *testing.T) {
	p := newJetStreamPublisher(t)
	ctx := context.Background()

	event, err := NewEvent(EventTypeRoundAdvanced, 7, 2, time.Now(), RoundAdvancedPayload{FromStage: 1, ToStage: 2})
	require.NoError(t, err)
	require.NoError(t, p.Publish(ctx, event))

	stream, err := p.js.Stream(ctx, p.config.StreamName)
	require.NoError(t, err)
	msg, err := stream.GetLastMsgForSubject(ctx, "voting.events.session.7.RoundAdvanced")
	require.NoError(t, err)

	var got Event
	require.NoError(t, json.Unmarshal(msg.Data, &got))
	assert.Equal(t, event.ID, got.ID)
	assert.Equal(t, EventTypeRoundAdvanced, got.Type)
	assert.Equal(t, 2, got.Stage)
	assert.JSONEq(t, string(event.Data), string(got.Data))
}

func TestJetStreamPublisherDeduplicatesByEventID(t *testing.T) {
	p := newJetStreamPublisher(t)
	ctx := context.Background()

	event, err := NewEvent(EventTypeSessionLost, 3, 1, time.Now(), SessionLostPayload{LastStage: 1})
	require.NoError(t, err)
	require.NoError(t, p.Publish(ctx, event))
	require.NoError(t, p.Publish(ctx, event))
	assert.Equal(t, uint64(1), streamMsgs(t, p))

	other, err := NewEvent(EventTypeSessionLost, 3, 1, time.Now(), SessionLostPayload{LastStage: 1})
	require.NoError(t, err)
	require.NoError(t, p.Publish(ctx, other))
	assert.Equal(t, uint64(2), streamMsgs(t, p))
}
