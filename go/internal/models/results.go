package models

// StageResult holds one candidate's tally for a stage.
type StageResult struct {
	CandidateID int    `json:"candidate_id"`
	Points      int    `json:"points"`
	Name        string `json:"name"`
	Photo       string `json:"photo"`
	Description string `json:"description"`
	TotalPoints int    `json:"total_points"`
}

// Results is the response of the stage results endpoint.
type Results struct {
	CurrentStage int           `json:"current_stage"`
	Results      []StageResult `json:"results"`
}
