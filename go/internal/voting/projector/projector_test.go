package projector

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/prizevote/go/clients"
	"github.com/mcdev12/prizevote/go/internal/models"
	"github.com/mcdev12/prizevote/go/internal/voting"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	mu         sync.Mutex
	session    *models.VotingSession
	status     models.VotingStatus
	candidates map[int][]models.Candidate
	results    map[int][]models.StageResult

	sessionErr    error
	statusErr     error
	candidatesErr error
	calls         []string
}

func (f *fakeAPI) CurrentSession(ctx context.Context) (*models.VotingSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "session")
	if f.sessionErr != nil {
		return nil, f.sessionErr
	}
	if f.session == nil {
		return nil, &clients.APIError{StatusCode: 404, Detail: "No active session found"}
	}
	s := *f.session
	return &s, nil
}

func (f *fakeAPI) VotingStatus(ctx context.Context) (*models.VotingStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "status")
	if f.statusErr != nil {
		return nil, f.statusErr
	}
	s := f.status
	return &s, nil
}

func (f *fakeAPI) Candidates(ctx context.Context, stage int) ([]models.Candidate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "candidates")
	if f.candidatesErr != nil {
		return nil, f.candidatesErr
	}
	return f.candidates[stage], nil
}

func (f *fakeAPI) Results(ctx context.Context, stage int) (*models.Results, error) {
	return &models.Results{CurrentStage: stage, Results: f.results[stage]}, nil
}

func newFake(stage, votes int) *fakeAPI {
	return &fakeAPI{
		session: &models.VotingSession{ID: 1, Name: "Science Prize", IsActive: true, Stage: stage},
		status:  models.VotingStatus{VotesRemaining: votes},
		candidates: map[int][]models.Candidate{
			1: {{ID: 10, Name: "Ada"}, {ID: 11, Name: "Grace"}, {ID: 12, Name: "Rosalind"}, {ID: 13, Name: "Lise"}},
			2: {{ID: 10, Name: "Ada"}, {ID: 11, Name: "Grace"}},
			3: {{ID: 10, Name: "Ada"}, {ID: 11, Name: "Grace"}},
		},
		results: map[int][]models.StageResult{
			1: {{CandidateID: 10, Points: 9, Name: "Ada"}},
		},
	}
}

// refresh runs one refresh and commits it, as the poller does after the
// round machine accepts the snapshot.
func refresh(p *Projector) (*Projection, error) {
	proj, err := p.Refresh(context.Background())
	if err == nil {
		p.Commit(proj)
	}
	return proj, err
}

func TestRefreshReadsSessionBeforeStatus(t *testing.T) {
	api := newFake(1, 3)
	clock := clockwork.NewFakeClockAt(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	p := New(api, models.User{ID: 5}, clock)

	proj, err := refresh(p)
	require.NoError(t, err)

	assert.Equal(t, []string{"session", "status", "candidates"}, api.calls)
	assert.False(t, proj.NoActiveSession())
	assert.Equal(t, 1, proj.Session.Stage)
	assert.Len(t, proj.Candidates, 4)
	assert.Nil(t, proj.ShowResults)
	assert.Equal(t, clock.Now(), proj.FetchedAt)
	assert.Equal(t, 1, p.KnownStage())
}

func TestRefreshNoActiveSession(t *testing.T) {
	api := newFake(1, 3)
	api.session = nil
	p := New(api, models.User{ID: 5}, nil)

	proj, err := refresh(p)
	require.NoError(t, err)
	assert.True(t, proj.NoActiveSession())
	assert.Empty(t, proj.Candidates)
	// no further reads once the session is known to be absent
	assert.Equal(t, []string{"session"}, api.calls)
}

func TestRefreshSessionClosedBetweenReads(t *testing.T) {
	api := newFake(2, 1)
	api.statusErr = &clients.APIError{StatusCode: 404, Code: string(voting.CodeNoActiveSession)}
	p := New(api, models.User{ID: 5}, nil)

	proj, err := refresh(p)
	require.NoError(t, err)
	assert.True(t, proj.NoActiveSession())
	assert.Equal(t, 0, p.KnownStage())
}

func TestRefreshFailureKeepsKnownStage(t *testing.T) {
	api := newFake(1, 3)
	p := New(api, models.User{ID: 5}, nil)
	_, err := refresh(p)
	require.NoError(t, err)

	api.session.Stage = 2
	api.candidatesErr = errors.New("connection reset")
	_, err = refresh(p)
	require.Error(t, err)
	assert.Equal(t, 1, p.KnownStage())

	// the advance is reported once the refresh succeeds
	api.candidatesErr = nil
	proj, err := refresh(p)
	require.NoError(t, err)
	require.NotNil(t, proj.ShowResults)
	assert.Equal(t, ResultsSignal{SessionID: 1, Stage: 1, NextStage: 2}, *proj.ShowResults)
}

func TestRefreshStageAdvanceSignalsOnce(t *testing.T) {
	api := newFake(1, 0)
	p := New(api, models.User{ID: 5}, nil)
	_, err := refresh(p)
	require.NoError(t, err)

	api.session.Stage = 2
	api.status.VotesRemaining = 1
	proj, err := refresh(p)
	require.NoError(t, err)
	require.NotNil(t, proj.ShowResults)

	proj, err = refresh(p)
	require.NoError(t, err)
	assert.Nil(t, proj.ShowResults)
}

func TestRefreshNoSignalOnFirstObservation(t *testing.T) {
	api := newFake(2, 1)
	p := New(api, models.User{ID: 5}, nil)

	proj, err := refresh(p)
	require.NoError(t, err)
	assert.Nil(t, proj.ShowResults)
}

func TestRefreshNewSessionResets(t *testing.T) {
	api := newFake(3, 0)
	p := New(api, models.User{ID: 5}, nil)
	_, err := refresh(p)
	require.NoError(t, err)

	api.session = &models.VotingSession{ID: 2, IsActive: true, Stage: 1}
	api.status = models.VotingStatus{VotesRemaining: 3}
	proj, err := refresh(p)
	require.NoError(t, err)
	assert.Nil(t, proj.ShowResults)
	assert.Equal(t, 1, p.KnownStage())
}

func TestRefreshStageRegression(t *testing.T) {
	api := newFake(2, 1)
	p := New(api, models.User{ID: 5}, nil)
	_, err := refresh(p)
	require.NoError(t, err)

	api.session.Stage = 1
	_, err = refresh(p)
	assert.ErrorIs(t, err, voting.ErrStageRegressed)
	assert.Equal(t, 2, p.KnownStage())
}

func TestRefreshFillsMissingText(t *testing.T) {
	api := newFake(3, 1)
	api.status.IsTie = true
	p := New(api, models.User{ID: 5}, nil)

	proj, err := refresh(p)
	require.NoError(t, err)
	assert.Equal(t, "Round 3. Waiting for President to break the tie.", proj.Status.Title)
	assert.Equal(t, "The president will cast the deciding vote.", proj.Status.WaitingMessage)
}

func TestRefreshKeepsServiceText(t *testing.T) {
	api := newFake(1, 3)
	api.status.Title = "Round 1. Pick your favourite"
	p := New(api, models.User{ID: 5}, nil)

	proj, err := refresh(p)
	require.NoError(t, err)
	assert.Equal(t, "Round 1. Pick your favourite", proj.Status.Title)
	assert.Empty(t, proj.Status.WaitingMessage)
}

func TestRefreshWrapsTransientErrors(t *testing.T) {
	api := newFake(1, 3)
	api.sessionErr = &clients.APIError{StatusCode: 500, Detail: "boom"}
	p := New(api, models.User{ID: 5}, nil)

	_, err := refresh(p)
	require.Error(t, err)
	var apiErr *clients.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 500, apiErr.StatusCode)
}

func TestFetchResults(t *testing.T) {
	api := newFake(2, 1)
	p := New(api, models.User{ID: 5}, nil)

	results, err := p.FetchResults(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 1, results.CurrentStage)
	require.Len(t, results.Results, 1)
	assert.Equal(t, 9, results.Results[0].Points)
}

func TestRefreshWithoutCommitKeepsKnownStage(t *testing.T) {
	api := newFake(1, 0)
	p := New(api, models.User{ID: 5}, nil)
	_, err := refresh(p)
	require.NoError(t, err)

	api.session.Stage = 2
	api.status.VotesRemaining = 1
	for i := 0; i < 2; i++ {
		// not committed, e.g. rejected by the round machine
		proj, err := p.Refresh(context.Background())
		require.NoError(t, err)
		require.NotNil(t, proj.ShowResults)
		assert.Equal(t, ResultsSignal{SessionID: 1, Stage: 1, NextStage: 2}, *proj.ShowResults)
		assert.Equal(t, 1, p.KnownStage())
	}

	_, err = refresh(p)
	require.NoError(t, err)
	assert.Equal(t, 2, p.KnownStage())

	proj, err := refresh(p)
	require.NoError(t, err)
	assert.Nil(t, proj.ShowResults)
}

func TestCommitNoActiveSessionForgetsStage(t *testing.T) {
	api := newFake(2, 1)
	p := New(api, models.User{ID: 5}, nil)
	_, err := refresh(p)
	require.NoError(t, err)
	require.Equal(t, 2, p.KnownStage())

	api.session = nil
	proj, err := p.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, p.KnownStage())

	p.Commit(proj)
	assert.Equal(t, 0, p.KnownStage())
}

func TestRefreshIsIdempotent(t *testing.T) {
	tests := []struct {
		name        string
		stage       int
		votes       int
		isTie       bool
		isPresident bool
	}{
		{name: "round 1 voting", stage: 1, votes: 3},
		{name: "round 1 waiting", stage: 1, votes: 0},
		{name: "round 2 voting", stage: 2, votes: 1},
		{name: "president tiebreak", stage: 3, votes: 1, isTie: true, isPresident: true},
		{name: "non-president tie wait", stage: 3, votes: 0, isTie: true},
		{name: "calculating final", stage: 3, votes: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newFake(tt.stage, tt.votes)
			api.status.IsTie = tt.isTie
			p := New(api, models.User{ID: 5, IsPresident: tt.isPresident}, nil)

			first, err := refresh(p)
			require.NoError(t, err)

			for i := 0; i < 5; i++ {
				proj, err := refresh(p)
				require.NoError(t, err)
				assert.Equal(t, first.Status, proj.Status)
				assert.Equal(t, first.Candidates, proj.Candidates)
				assert.Nil(t, proj.ShowResults)
				assert.Equal(t, tt.stage, p.KnownStage())
			}
		})
	}
}
