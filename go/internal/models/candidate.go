package models

// Candidate represents a nominee that can receive votes in a stage.
type Candidate struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Photo       string `json:"photo"`
	Description string `json:"description"`
	Points      *int   `json:"points,omitempty"` // per-stage tally, when the service reports one
}
