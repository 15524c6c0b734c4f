package game

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/mkadlec/kviz-backend/internal"
	"github.com/mkadlec/kviz-backend/internal/utils"
)

// =============================================================================
// GAME REGISTRY
// =============================================================================

// GetGame returns the game for an id, or nil.
func GetGame(gameID string) *internal.Game {
	GamesMu.RLock()
	defer GamesMu.RUnlock()
	return Games[gameID]
}

// GetJoinableGame returns the id of a lobby-phase game with a free slot.
// Phones that join without a code land here.
func GetJoinableGame() string {
	GamesMu.RLock()
	defer GamesMu.RUnlock()

	for _, game := range Games {
		game.Mu.RLock()
		if game.Phase == internal.PhaseLobby && game.GetPlayerCount() < internal.MaxPlayersPerGame {
			gameID := game.Id
			game.Mu.RUnlock()
			log.Printf("[GetJoinableGame] found joinable game %s", gameID)
			return gameID
		}
		game.Mu.RUnlock()
	}

	log.Println("[GetJoinableGame] no joinable game found")
	return ""
}

// CreateGame registers a fresh lobby with a short join code.
func CreateGame(teamMode bool) *internal.Game {
	GamesMu.Lock()
	defer GamesMu.Unlock()

	code := utils.GenerateGameCode(4)
	for Games[code] != nil {
		code = utils.GenerateGameCode(4)
	}

	ctx, cancel := context.WithCancel(context.Background())
	game := &internal.Game{
		Id:           code,
		Players:      make(map[string]*internal.Player),
		Phase:        internal.PhaseLobby,
		CurrentIndex: -1,
		TeamMode:     teamMode,
		Stats:        make([]internal.QuestionStats, 0),
		Context:      ctx,
		Cancel:       cancel,
		CreatedAt:    Clock.Now(),
		Mu:           sync.RWMutex{},
	}
	Games[code] = game

	log.Printf("[CreateGame] created game %s (teamMode=%v)", code, teamMode)
	return game
}

// JoinGame reserves a player slot over REST. The phone opens the websocket
// afterwards with the returned player id. Empty gameID joins any open lobby,
// creating one if needed.
func JoinGame(gameID, name, color string, team internal.TeamColor) (*internal.Game, *internal.Player, error) {
	var game *internal.Game
	if gameID == "" {
		if id := GetJoinableGame(); id != "" {
			game = GetGame(id)
		} else {
			game = CreateGame(false)
		}
	} else {
		game = GetGame(gameID)
		if game == nil {
			return nil, nil, fmt.Errorf("game %s not found", gameID)
		}
	}

	game.Mu.Lock()
	defer game.Mu.Unlock()

	if game.Phase != internal.PhaseLobby {
		return nil, nil, fmt.Errorf("game %s already in progress", game.Id)
	}
	if game.GetPlayerCount() >= internal.MaxPlayersPerGame {
		return nil, nil, fmt.Errorf("game %s is full", game.Id)
	}

	for _, p := range game.Players {
		if !p.IsHost && p.Name == name {
			return nil, nil, fmt.Errorf("name %q is already taken", name)
		}
	}

	taken := game.TakenColors()
	if color != "" {
		if taken[color] {
			return nil, nil, fmt.Errorf("color %s is already taken", color)
		}
	} else {
		for _, c := range internal.PlayerColors {
			if !taken[c] {
				color = c
				break
			}
		}
		if color == "" {
			return nil, nil, fmt.Errorf("no colors left in game %s", game.Id)
		}
	}

	if game.TeamMode && team == internal.TeamNone {
		// Auto-balance: fill the smaller team.
		if len(game.TeamPlayers(internal.TeamBlue)) <= len(game.TeamPlayers(internal.TeamRed)) {
			team = internal.TeamBlue
		} else {
			team = internal.TeamRed
		}
	}
	if !game.TeamMode {
		team = internal.TeamNone
	}

	player := &internal.Player{
		Id:       uuid.NewString(),
		Name:     name,
		Color:    color,
		Team:     team,
		Game:     game,
		JoinedAt: Clock.Now(),
	}
	game.Players[player.Id] = player

	log.Printf("[JoinGame] reserved %s (%s) in game %s color=%s team=%s",
		player.Id, name, game.Id, color, team)
	return game, player, nil
}

// AttachPlayer binds a websocket to a reserved slot and announces the join.
func AttachPlayer(game *internal.Game, playerID string, conn *websocket.Conn) (*internal.Player, error) {
	game.Mu.Lock()
	player := game.Players[playerID]
	if player == nil {
		game.Mu.Unlock()
		return nil, fmt.Errorf("player %s not found, join first", playerID)
	}
	player.Conn = conn
	player.IsConnected = true

	joinedData := internal.PlayerJoinedData{
		Player:      player.Snapshot(),
		PlayerCount: game.GetPlayerCount(),
		CanStart:    game.CanStartGame(),
	}
	game.Mu.Unlock()

	SafeBroadcastToGameExcept(game, internal.Message[internal.PlayerJoinedData]{
		Type: "player_joined",
		Data: joinedData,
	}, player)

	// Late joiner catches up from the state snapshot.
	welcome := internal.Message[internal.GameStateData]{
		Type: "welcome_msg",
		Data: SnapshotGameState(game),
	}
	if err := player.SafeWriteJSON(welcome); err != nil {
		log.Printf("[AttachPlayer] game=%s: failed to send state to %s: %v",
			game.Id, player.Name, err)
		return nil, err
	}
	if strokes := canvasReplay(game); len(strokes) > 0 {
		_ = player.SafeWriteJSON(internal.Message[[]internal.Stroke]{
			Type: "canvas_replay",
			Data: strokes,
		})
	}

	log.Printf("[AttachPlayer] game=%s: %s (%s) connected", game.Id, player.Id, player.Name)
	return player, nil
}

// AttachHost binds the host screen connection. Hosts never appear on the
// scoreboard and never answer.
func AttachHost(game *internal.Game, conn *websocket.Conn) *internal.Player {
	host := &internal.Player{
		Id:          uuid.NewString(),
		Name:        "host",
		IsHost:      true,
		IsConnected: true,
		Conn:        conn,
		Game:        game,
		JoinedAt:    Clock.Now(),
	}

	game.Mu.Lock()
	game.Players[host.Id] = host
	game.Mu.Unlock()

	welcome := internal.Message[internal.GameStateData]{
		Type: "welcome_msg",
		Data: SnapshotGameState(game),
	}
	if err := host.SafeWriteJSON(welcome); err != nil {
		log.Printf("[AttachHost] game=%s: failed to send state: %v", game.Id, err)
	}
	if strokes := canvasReplay(game); len(strokes) > 0 {
		_ = host.SafeWriteJSON(internal.Message[[]internal.Stroke]{
			Type: "canvas_replay",
			Data: strokes,
		})
	}

	log.Printf("[AttachHost] game=%s: host screen connected", game.Id)
	return host
}

// removePlayer handles a dropped connection.
func removePlayer(player *internal.Player) {
	game := player.Game
	if game == nil {
		log.Printf("[removePlayer] %s (%s) has no game reference, skipping",
			player.Id, player.Name)
		return
	}

	game.Mu.Lock()
	player.IsConnected = false
	player.Conn = nil
	if player.IsHost || !game.HasGameStarted {
		// Hosts and lobby players are dropped outright; mid-game players are
		// kept for reconnects and scoreboard continuity.
		delete(game.Players, player.Id)
	}
	playerCount := game.GetPlayerCount()
	hostLeft := player.IsHost
	leftData := internal.PlayerLeftData{
		PlayerID:    player.Id,
		Name:        player.Name,
		PlayerCount: playerCount,
	}
	game.Mu.Unlock()

	log.Printf("[removePlayer] game=%s: %s (%s) disconnected, %d players remain",
		game.Id, player.Id, player.Name, playerCount)

	if !hostLeft {
		// Let the active handler react (word chain skips the turn, others
		// may end the question early).
		notifyDisconnect(game, player)
		SafeBroadcastToGame(game, internal.Message[internal.PlayerLeftData]{
			Type: "player_left",
			Data: leftData,
		})
	}

	if playerCount == 0 && !hasConnectedHost(game) {
		CleanupGame(game)
	}
}

func hasConnectedHost(game *internal.Game) bool {
	game.Mu.RLock()
	defer game.Mu.RUnlock()
	for _, p := range game.Players {
		if p.IsHost && p.IsConnected {
			return true
		}
	}
	return false
}

// CleanupGame cancels timers, closes sockets and drops the game.
func CleanupGame(game *internal.Game) {
	log.Printf("[CleanupGame] cleaning up game %s", game.Id)

	game.Mu.Lock()
	if game.Cancel != nil {
		game.Cancel()
		game.Cancel = nil
	}
	for _, player := range game.Players {
		if player.Conn != nil {
			_ = player.Conn.Close()
		}
	}
	game.Players = map[string]*internal.Player{}
	game.Runtime = nil
	game.Timer = nil
	game.Mu.Unlock()

	GamesMu.Lock()
	delete(Games, game.Id)
	GamesMu.Unlock()

	log.Printf("[CleanupGame] game %s removed", game.Id)
}

// AvailableColors lists palette entries not claimed in the game. Unknown or
// empty game id returns the whole palette.
func AvailableColors(gameID string) []string {
	game := GetGame(gameID)
	if game == nil {
		return internal.PlayerColors
	}

	game.Mu.RLock()
	taken := game.TakenColors()
	game.Mu.RUnlock()

	free := make([]string, 0, len(internal.PlayerColors))
	for _, c := range internal.PlayerColors {
		if !taken[c] {
			free = append(free, c)
		}
	}
	return free
}
