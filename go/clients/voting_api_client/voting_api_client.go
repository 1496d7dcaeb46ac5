package voting_api_client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/mcdev12/prizevote/go/clients"
	"github.com/mcdev12/prizevote/go/internal/models"
)

// VotingApiClient talks to the external voting service.
type VotingApiClient struct {
	*clients.BaseClient
}

// NewVotingApiClient creates a client for baseURL. The token is attached to
// every request; pass an empty token for unauthenticated calls such as Login.
func NewVotingApiClient(baseURL, token string) *VotingApiClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	client := &VotingApiClient{
		BaseClient: clients.NewBaseClient(baseURL),
	}
	client.SetBearerToken(token)
	return client
}

// Login exchanges credentials for an access token.
func (c *VotingApiClient) Login(ctx context.Context, username, password string) (*models.TokenResponse, error) {
	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)

	body, err := c.PostForm(ctx, TokenEndpoint, form)
	if err != nil {
		return nil, fmt.Errorf("failed to login: %w", err)
	}

	var token models.TokenResponse
	if err := decode(body, &token); err != nil {
		return nil, err
	}
	return &token, nil
}

// CurrentUser returns the actor the token belongs to.
func (c *VotingApiClient) CurrentUser(ctx context.Context) (*models.User, error) {
	body, err := c.Get(ctx, CurrentUserEndpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to get current user: %w", err)
	}

	var user models.User
	if err := decode(body, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// CurrentSession returns the active voting session.
func (c *VotingApiClient) CurrentSession(ctx context.Context) (*models.VotingSession, error) {
	body, err := c.Get(ctx, CurrentSessionEndpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to get current session: %w", err)
	}

	var session models.VotingSession
	if err := decode(body, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// VotingStatus returns the status snapshot for the authenticated actor.
func (c *VotingApiClient) VotingStatus(ctx context.Context) (*models.VotingStatus, error) {
	body, err := c.Get(ctx, VotingStatusEndpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to get voting status: %w", err)
	}

	var status models.VotingStatus
	if err := decode(body, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// Candidates returns the candidates eligible in stage.
func (c *VotingApiClient) Candidates(ctx context.Context, stage int) ([]models.Candidate, error) {
	body, err := c.Get(ctx, fmt.Sprintf(CandidatesEndpoint, stage))
	if err != nil {
		return nil, fmt.Errorf("failed to get candidates for stage %d: %w", stage, err)
	}

	var candidates []models.Candidate
	if err := decode(body, &candidates); err != nil {
		return nil, err
	}
	return candidates, nil
}

// Vote casts one vote for candidateID in stage.
func (c *VotingApiClient) Vote(ctx context.Context, candidateID, stage int) (*models.VoteReceipt, error) {
	body, err := c.Post(ctx, fmt.Sprintf(VoteEndpoint, candidateID, stage), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to vote for candidate %d in stage %d: %w", candidateID, stage, err)
	}

	var receipt models.VoteReceipt
	if len(body) > 0 {
		if err := decode(body, &receipt); err != nil {
			return nil, err
		}
	}
	return &receipt, nil
}

// Results returns the tallies of stage.
func (c *VotingApiClient) Results(ctx context.Context, stage int) (*models.Results, error) {
	body, err := c.Get(ctx, fmt.Sprintf(ResultsEndpoint, stage))
	if err != nil {
		return nil, fmt.Errorf("failed to get results for stage %d: %w", stage, err)
	}

	var results models.Results
	if err := decode(body, &results); err != nil {
		return nil, err
	}
	if results.CurrentStage == 0 {
		results.CurrentStage = stage
	}
	return &results, nil
}

func decode(body []byte, v interface{}) error {
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w, raw response: %s", err, string(body))
	}
	return nil
}
