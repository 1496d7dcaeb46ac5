package voting_api_client

const (
	// Base URL
	DefaultBaseURL = "http://localhost:8000"

	// Auth
	TokenEndpoint       = "/token"
	CurrentUserEndpoint = "/users/me"

	// Sessions
	CurrentSessionEndpoint = "/voting_sessions/current_session"

	// Voting
	VotingStatusEndpoint = "/voting/voting_status"
	CandidatesEndpoint   = "/voting/candidates/%d" // stage
	VoteEndpoint         = "/voting/vote/%d/%d"    // candidate id, stage
	ResultsEndpoint      = "/voting/results/%d"    // stage
)
