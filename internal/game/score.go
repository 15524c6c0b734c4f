package game

import (
	"math"
	"slices"
	"time"

	"github.com/mkadlec/kviz-backend/internal"
)

// =============================================================================
// SCORING
// =============================================================================

// CalculateAnswerPoints scores a correct timed answer: a base amount scaled
// by how fast the answer landed within the question time, then shaved by
// answer position.
func CalculateAnswerPoints(timeTaken, timeLimit time.Duration, position int) int {
	const basePoints = 150

	fraction := 1.0
	if timeLimit > 0 {
		fraction = timeTaken.Seconds() / timeLimit.Seconds()
	}

	var speedMultiplier float64
	switch {
	case fraction < 0.25:
		speedMultiplier = 1.5
	case fraction < 0.5:
		speedMultiplier = 1.25
	case fraction < 0.75:
		speedMultiplier = 1.0
	default:
		speedMultiplier = 0.75
	}

	var posMultiplier float64
	switch position {
	case 1:
		posMultiplier = 1.0
	case 2:
		posMultiplier = 0.9
	case 3:
		posMultiplier = 0.8
	default:
		posMultiplier = 0.7
	}

	return int(basePoints * speedMultiplier * posMultiplier)
}

// sortedScoreboard returns player snapshots ordered by score descending.
// Caller holds game.Mu.
func sortedScoreboard(game *internal.Game) []*internal.PlayerSnapshot {
	snaps := game.PlayerSnapshots()
	slices.SortFunc(snaps, func(a, b *internal.PlayerSnapshot) int {
		return b.Score - a.Score
	})
	return snaps
}

// CalculateFinalResults compiles the leaderboard and awards from a finished
// game.
func CalculateFinalResults(game *internal.Game) internal.FinalResults {
	game.Mu.Lock()
	defer game.Mu.Unlock()
	results := internal.FinalResults{}

	playerData := make([]internal.AnswerResultData, 0, len(game.Players))
	for _, player := range game.Players {
		if player.IsHost {
			continue
		}
		playerData = append(playerData, internal.AnswerResultData{
			PlayerID: player.Id,
			Name:     player.Name,
			Points:   player.Score,
		})
	}

	slices.SortFunc(playerData, func(a, b internal.AnswerResultData) int {
		return b.Points - a.Points
	})
	for idx := range playerData {
		playerData[idx].Position = idx + 1
	}
	results.Leaderboard = playerData

	if len(playerData) > 0 {
		results.MVP = &playerData[0]
	}

	// Fastest single correct answer across all questions.
	results.FastestAnswer = &internal.AnswerResultData{TimeToAnswer: math.MaxInt64}
	for _, stat := range game.Stats {
		for _, answer := range stat.CorrectAnswers {
			if answer.AnswerTime < results.FastestAnswer.TimeToAnswer {
				results.FastestAnswer.PlayerID = answer.PlayerID
				results.FastestAnswer.Name = answer.Name
				results.FastestAnswer.TimeToAnswer = answer.AnswerTime
			}
		}
	}
	if results.FastestAnswer.TimeToAnswer == math.MaxInt64 {
		results.FastestAnswer = nil // no correct answers recorded
	}

	if game.TeamMode {
		results.TeamScores = game.TeamScores()
		if results.TeamScores[internal.TeamBlue] > results.TeamScores[internal.TeamRed] {
			results.WinningTeam = internal.TeamBlue
		} else if results.TeamScores[internal.TeamRed] > results.TeamScores[internal.TeamBlue] {
			results.WinningTeam = internal.TeamRed
		}
	}

	results.QuestionCount = len(game.Stats)
	results.TotalPlayers = len(playerData)

	return results
}
