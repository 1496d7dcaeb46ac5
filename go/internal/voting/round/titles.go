package round

import "fmt"

const (
	waitingForPeers     = "Waiting for other users to finish voting..."
	waitingForResults   = "Waiting for results to be processed..."
	waitingForPresident = "The president will cast the deciding vote."
	waitingForFinal     = "The final results are being calculated."
)

// stage 1 ballots are ranked: the first pick is worth three points
var stageOnePicks = map[int]string{
	3: "Choose the 1st Winner (3 points) 🏆",
	2: "Choose the 2nd Winner (2 points) 🥈",
	1: "Choose the 3rd Winner (1 point) 🥉",
}

// Describe returns the round title and waiting message for a status.
// It mirrors what the voting service reports and fills gaps when it does not.
func Describe(stage, votesRemaining int, isTie, isPresident, hasWinner bool) (title, waiting string) {
	if hasWinner {
		return "Voting Completed!", ""
	}

	prefix := fmt.Sprintf("Round %d. ", stage)
	completed := prefix + "Voting Completed!"

	switch stage {
	case 1:
		if votesRemaining == 0 {
			return completed, waitingForPeers
		}
		if pick, ok := stageOnePicks[votesRemaining]; ok {
			return prefix + pick, ""
		}
	case 2:
		if votesRemaining == 0 {
			return completed, waitingForPeers
		}
		if votesRemaining == 1 {
			return prefix + "Choose the Winner (1 point) 🏆", ""
		}
	case FinalStage:
		if !isTie {
			return prefix + "Calculating final results...", waitingForFinal
		}
		if !isPresident {
			return prefix + "Waiting for President to break the tie.", waitingForPresident
		}
		if votesRemaining == 0 {
			return completed, waitingForResults
		}
		if votesRemaining == 1 {
			return prefix + "President Tie-Breaker (1 point).", ""
		}
	}
	return "", ""
}
