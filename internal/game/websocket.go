package game

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"

	"github.com/mkadlec/kviz-backend/internal"
)

// =============================================================================
// GLOBAL VARIABLES
// =============================================================================

var (
	Upgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}

	// Game registry
	Games   = make(map[string]*internal.Game)
	GamesMu sync.RWMutex

	// Clock drives all phase timers; tests swap in a fake clock.
	Clock clockwork.Clock = clockwork.NewRealClock()

	// SaveResults persists final standings when set (wired to the store in
	// main). Nil is fine, the game just isn't recorded.
	SaveResults func(g *internal.Game, results internal.FinalResults)
)

// =============================================================================
// WEBSOCKET CONNECTION HANDLING
// =============================================================================

// HandleWebSocket upgrades the event channel for a phone or a host screen.
// Players must have joined via POST /join first; the player_id query param
// ties the socket to the reserved slot. Host screens pass role=host instead.
func HandleWebSocket(w http.ResponseWriter, r *http.Request, gameID string) {
	conn, err := Upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println("[HandleWebSocket] upgrade failed:", err)
		return
	}

	game := GetGame(gameID)
	if game == nil {
		log.Printf("[HandleWebSocket] unknown game %s, closing", gameID)
		_ = conn.WriteJSON(internal.Message[any]{
			Type: "error",
			Data: map[string]any{"message": "game not found"},
		})
		conn.Close()
		return
	}

	var player *internal.Player
	if r.URL.Query().Get("role") == "host" {
		player = AttachHost(game, conn)
	} else {
		playerID := r.URL.Query().Get("player_id")
		player, err = AttachPlayer(game, playerID, conn)
		if err != nil {
			log.Printf("[HandleWebSocket] game=%s: attach failed: %v", gameID, err)
			_ = conn.WriteJSON(internal.Message[any]{
				Type: "error",
				Data: map[string]any{"message": err.Error()},
			})
			conn.Close()
			return
		}
	}

	go handleMessages(player)
}

// handleMessages processes incoming websocket messages for one connection.
func handleMessages(player *internal.Player) {
	defer func() {
		player.Conn.Close()
		removePlayer(player)
	}()
	log.Printf("[handleMessages] started for %s (%s) in game %s",
		player.Id, player.Name, player.Game.Id)

	for {
		_, rawMessage, err := player.Conn.ReadMessage()
		if err != nil {
			log.Printf("[handleMessages] read error for %s: %v", player.Name, err)
			break
		}

		var baseMsg internal.Message[json.RawMessage]
		if err := json.Unmarshal(rawMessage, &baseMsg); err != nil {
			log.Printf("[handleMessages] failed to parse base message: %v", err)
			continue
		}

		log.Printf("[handleMessages] game=%s: %s from %s",
			player.Game.Id, baseMsg.Type, player.Name)

		switch baseMsg.Type {
		case "submit_answer":
			// Per-question-type payload, the active handler parses it.
			DispatchAnswer(player, baseMsg.Data)

		case "drawing_update":
			// Stroke traffic; the drawing handler relays it for the whole
			// question instead of gating on answered-once.
			DispatchAnswer(player, baseMsg.Data)

		case "start_game":
			go StartGame(player.Game, !player.IsHost)

		case "next_question":
			if player.IsHost {
				go NextQuestion(player.Game)
			}

		case "reset_game":
			if player.IsHost {
				go ResetGame(player.Game)
			}

		default:
			log.Printf("[handleMessages] game=%s: unhandled message type %q",
				player.Game.Id, baseMsg.Type)
		}
	}
}

// DispatchAnswer routes a submission to the handler of the active question.
func DispatchAnswer(player *internal.Player, raw json.RawMessage) {
	game := player.Game
	if game == nil {
		return
	}

	game.Mu.RLock()
	var qt internal.QuestionType
	ok := game.Phase == internal.PhaseQuestion && game.Runtime != nil
	if ok {
		qt = game.Runtime.Question.Type
	}
	game.Mu.RUnlock()

	if !ok {
		log.Printf("[DispatchAnswer] game=%s: no active question, dropping answer from %s",
			game.Id, player.Name)
		return
	}
	if player.IsHost {
		log.Printf("[DispatchAnswer] game=%s: host cannot answer", game.Id)
		return
	}

	handler, err := Factory.Get(qt)
	if err != nil {
		log.Printf("[DispatchAnswer] game=%s: %v", game.Id, err)
		return
	}
	handler.HandleAnswer(player, raw)
}
