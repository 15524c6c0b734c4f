package game

import (
	"log"

	"github.com/mkadlec/kviz-backend/internal"
)

// =============================================================================
// BROADCASTING & MESSAGING
// =============================================================================

func SafeBroadcastToGame[T any](game *internal.Game, msg internal.Message[T]) {
	// Snapshot connected players under lock, send outside it.
	game.Mu.RLock()
	players := make([]*internal.Player, 0, len(game.Players))
	for _, player := range game.Players {
		if player.IsConnected {
			players = append(players, player)
		}
	}
	game.Mu.RUnlock()

	successCount := 0
	for _, player := range players {
		if err := player.SafeWriteJSON(msg); err != nil {
			log.Printf("[Broadcast][Game:%s] failed for %s (%s): %v",
				game.Id, player.Id, player.Name, err)
			continue
		}
		successCount++
	}
	log.Printf("[Broadcast][Game:%s] %s sent to %d/%d players",
		game.Id, msg.Type, successCount, len(players))
}

func SafeBroadcastToGameExcept[T any](game *internal.Game, msg internal.Message[T], exclude *internal.Player) {
	game.Mu.RLock()
	players := make([]*internal.Player, 0, len(game.Players))
	for _, player := range game.Players {
		if player.IsConnected {
			players = append(players, player)
		}
	}
	game.Mu.RUnlock()

	successCount := 0
	for _, player := range players {
		if exclude != nil && player.Id == exclude.Id {
			continue
		}
		if err := player.SafeWriteJSON(msg); err != nil {
			log.Printf("[BroadcastExcept][Game:%s] failed for %s (%s): %v",
				game.Id, player.Id, player.Name, err)
			continue
		}
		successCount++
	}
	log.Printf("[BroadcastExcept][Game:%s] %s sent to %d players",
		game.Id, msg.Type, successCount)
}

// SendToHost writes to the host screen only; no-op when no host is attached.
func SendToHost[T any](game *internal.Game, msg internal.Message[T]) {
	game.Mu.RLock()
	var host *internal.Player
	for _, player := range game.Players {
		if player.IsHost && player.IsConnected {
			host = player
			break
		}
	}
	game.Mu.RUnlock()

	if host == nil {
		log.Printf("[SendToHost][Game:%s] no host attached, dropping %s", game.Id, msg.Type)
		return
	}
	if err := host.SafeWriteJSON(msg); err != nil {
		log.Printf("[SendToHost][Game:%s] failed: %v", game.Id, err)
	}
}

// SendToTeam writes to every connected member of one team.
func SendToTeam[T any](game *internal.Game, team internal.TeamColor, msg internal.Message[T]) {
	game.Mu.RLock()
	players := make([]*internal.Player, 0, len(game.Players))
	for _, player := range game.Players {
		if player.IsConnected && !player.IsHost && player.Team == team {
			players = append(players, player)
		}
	}
	game.Mu.RUnlock()

	for _, player := range players {
		if err := player.SafeWriteJSON(msg); err != nil {
			log.Printf("[SendToTeam][Game:%s] failed for %s: %v", game.Id, player.Name, err)
		}
	}
}

// BroadcastGameState sends the complete public state to everyone; late
// joiners get the same payload as a welcome message.
func BroadcastGameState(game *internal.Game) {
	state := SnapshotGameState(game)
	SafeBroadcastToGame(game, internal.Message[internal.GameStateData]{
		Type: "game_state_update",
		Data: state,
	})
}

// SnapshotGameState builds the broadcast-safe state under a read lock.
func SnapshotGameState(game *internal.Game) internal.GameStateData {
	game.Mu.RLock()
	defer game.Mu.RUnlock()

	state := internal.GameStateData{
		Phase:         game.Phase,
		QuestionIndex: game.CurrentIndex,
		QuestionCount: len(game.Questions),
		Players:       game.PlayerSnapshots(),
		TeamMode:      game.TeamMode,
		TeamScores:    game.TeamScores(),
	}
	if game.Runtime != nil {
		state.SubPhase = game.Runtime.SubPhase
		state.Question = game.Runtime.Question.ToPublic()
	}
	if game.Timer != nil && game.Timer.IsActive {
		remaining := game.Timer.Duration - Clock.Since(game.Timer.StartTime)
		if remaining < 0 {
			remaining = 0
		}
		state.TimeRemaining = remaining.Milliseconds()
	}
	return state
}
