// Package votingtest provides an in-memory voting service for tests.
package votingtest

import (
	"context"
	"sync"

	"github.com/mcdev12/prizevote/go/clients"
	"github.com/mcdev12/prizevote/go/internal/models"
)

// Vote is a vote the fake service accepted.
type Vote struct {
	CandidateID int
	Stage       int
}

// Service behaves like the voting service for a single actor. Accepted
// votes decrement VotesRemaining the way the real service does.
type Service struct {
	mu         sync.Mutex
	session    *models.VotingSession
	status     models.VotingStatus
	candidates map[int][]models.Candidate
	results    map[int][]models.StageResult
	votes      []Vote
	err        error
	resultsErr error
}

// NewService returns a service with no active session.
func NewService() *Service {
	return &Service{
		candidates: make(map[int][]models.Candidate),
		results:    make(map[int][]models.StageResult),
	}
}

// SetRound starts or moves the active session to stage with votes left for the actor.
func (s *Service) SetRound(sessionID, stage, votes int, isTie bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = &models.VotingSession{ID: sessionID, Name: "Science Prize", IsActive: true, Stage: stage}
	s.status = models.VotingStatus{VotesRemaining: votes, IsTie: isTie}
}

// EndSession removes the active session.
func (s *Service) EndSession() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = nil
	s.status = models.VotingStatus{}
}

// AnnounceWinner puts winner into every following status.
func (s *Service) AnnounceWinner(winner models.Candidate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status.Winner = &winner
}

func (s *Service) SetCandidates(stage int, candidates ...models.Candidate) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.candidates[stage] = candidates
}

func (s *Service) SetResults(stage int, results ...models.StageResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[stage] = results
}

// FailWith makes every call return err until it is called with nil.
func (s *Service) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// FailResultsWith makes only the results reads return err.
func (s *Service) FailResultsWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resultsErr = err
}

// Votes returns the accepted votes.
func (s *Service) Votes() []Vote {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Vote(nil), s.votes...)
}

func (s *Service) CurrentSession(ctx context.Context) (*models.VotingSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	if s.session == nil {
		return nil, noSession()
	}
	session := *s.session
	return &session, nil
}

func (s *Service) VotingStatus(ctx context.Context) (*models.VotingStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	if s.session == nil {
		return nil, noSession()
	}
	status := s.status
	if s.status.Winner != nil {
		w := *s.status.Winner
		status.Winner = &w
	}
	return &status, nil
}

func (s *Service) Candidates(ctx context.Context, stage int) ([]models.Candidate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return append([]models.Candidate(nil), s.candidates[stage]...), nil
}

func (s *Service) Results(ctx context.Context, stage int) (*models.Results, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	if s.resultsErr != nil {
		return nil, s.resultsErr
	}
	return &models.Results{
		CurrentStage: stage,
		Results:      append([]models.StageResult(nil), s.results[stage]...),
	}, nil
}

func (s *Service) Vote(ctx context.Context, candidateID, stage int) (*models.VoteReceipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	if s.session == nil {
		return nil, noSession()
	}
	if s.status.VotesRemaining <= 0 {
		return nil, &clients.APIError{
			Method:     "POST",
			StatusCode: 400,
			Detail:     "You have already cast all your votes for this stage",
		}
	}
	s.status.VotesRemaining--
	s.votes = append(s.votes, Vote{CandidateID: candidateID, Stage: stage})
	return &models.VoteReceipt{Message: "Vote cast successfully"}, nil
}

func noSession() error {
	return &clients.APIError{StatusCode: 404, Detail: "No active session found"}
}
