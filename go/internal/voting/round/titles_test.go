package round

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDescribe(t *testing.T) {
	tests := []struct {
		name        string
		stage       int
		votes       int
		tie         bool
		president   bool
		winner      bool
		wantTitle   string
		wantWaiting string
	}{
		{"first pick", 1, 3, false, false, false, "Round 1. Choose the 1st Winner (3 points) 🏆", ""},
		{"second pick", 1, 2, false, false, false, "Round 1. Choose the 2nd Winner (2 points) 🥈", ""},
		{"third pick", 1, 1, false, false, false, "Round 1. Choose the 3rd Winner (1 point) 🥉", ""},
		{"round 1 done", 1, 0, false, false, false, "Round 1. Voting Completed!", "Waiting for other users to finish voting..."},
		{"round 2", 2, 1, false, false, false, "Round 2. Choose the Winner (1 point) 🏆", ""},
		{"round 2 done", 2, 0, false, false, false, "Round 2. Voting Completed!", "Waiting for other users to finish voting..."},
		{"round 3 no tie", 3, 1, false, true, false, "Round 3. Calculating final results...", "The final results are being calculated."},
		{"round 3 non-president", 3, 1, true, false, false, "Round 3. Waiting for President to break the tie.", "The president will cast the deciding vote."},
		{"round 3 president", 3, 1, true, true, false, "Round 3. President Tie-Breaker (1 point).", ""},
		{"round 3 president voted", 3, 0, true, true, false, "Round 3. Voting Completed!", "Waiting for results to be processed..."},
		{"winner", 3, 0, true, true, true, "Voting Completed!", ""},
		{"unknown combination", 1, 7, false, false, false, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			title, waiting := Describe(tt.stage, tt.votes, tt.tie, tt.president, tt.winner)
			assert.Equal(t, tt.wantTitle, title)
			assert.Equal(t, tt.wantWaiting, waiting)
		})
	}
}
