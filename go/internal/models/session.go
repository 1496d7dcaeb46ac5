package models

// VotingSession is the read-only copy of the session owned by the voting service.
type VotingSession struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	IsActive    bool   `json:"is_active"`
	Stage       int    `json:"stage"`
}
