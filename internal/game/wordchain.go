package game

import (
	"encoding/json"
	"log"
	"slices"
	"time"

	"github.com/mkadlec/kviz-backend/internal"
	"github.com/mkadlec/kviz-backend/internal/utils"
)

// =============================================================================
// QUESTION HANDLER - WORD CHAIN (turn-based elimination)
// =============================================================================

// wordChainHandler runs the turn-based chain: players take turns (join order)
// submitting a word that starts with the last letter of the previous one.
// Missing the turn clock eliminates the player; the last player standing
// takes a survival bonus. There is no overall question clock, only the
// per-turn one.
type wordChainHandler struct{}

func init() {
	Factory.Register(&wordChainHandler{})
}

const (
	wordChainTurnDuration = 15 * time.Second
	wordChainWordPts      = 20
	wordChainWinPts       = 250
	wordChainMinLen       = 2
)

type wordChainState struct {
	order    []string // playerIDs in turn order
	turnIdx  int
	lastWord string
	used     map[string]bool
	words    map[string]int // playerID -> accepted words
	chain    []string
	winner   string
}

func (h *wordChainHandler) Type() internal.QuestionType { return internal.QuestionWordChain }

func (h *wordChainHandler) Begin(game *internal.Game, q *internal.Question) {
	game.Mu.Lock()
	players := game.ActivePlayers()
	slices.SortFunc(players, func(a, b *internal.Player) int {
		return a.JoinedAt.Compare(b.JoinedAt)
	})
	order := make([]string, 0, len(players))
	names := make([]string, 0, len(players))
	for _, p := range players {
		order = append(order, p.Id)
		names = append(names, p.Name)
	}
	state := &wordChainState{
		order:    order,
		lastWord: q.FirstWord,
		used:     map[string]bool{utils.NormalizeAnswer(q.FirstWord): true},
		words:    make(map[string]int),
		chain:    []string{q.FirstWord},
	}
	game.Runtime.State = state
	public := q.ToPublic()
	game.Mu.Unlock()

	log.Printf("[wordChainHandler] game=%s: chain starts with %q, %d players",
		game.Id, q.FirstWord, len(order))

	SafeBroadcastToGame(game, internal.Message[any]{
		Type: "question",
		Data: map[string]any{
			"question":   public,
			"first_word": q.FirstWord,
			"turn_order": names,
		},
	})

	h.announceTurn(game)
}

// announceTurn broadcasts whose turn it is and arms the turn clock.
func (h *wordChainHandler) announceTurn(game *internal.Game) {
	game.Mu.RLock()
	if game.Phase != internal.PhaseQuestion || game.Runtime == nil {
		game.Mu.RUnlock()
		return
	}
	state, ok := game.Runtime.State.(*wordChainState)
	if !ok || len(state.order) == 0 {
		game.Mu.RUnlock()
		return
	}
	currentID := state.order[state.turnIdx]
	current := game.Players[currentID]
	name := ""
	if current != nil {
		name = current.Name
	}
	lastWord := state.lastWord
	game.Mu.RUnlock()

	SafeBroadcastToGame(game, internal.Message[any]{
		Type: "word_chain_turn",
		Data: map[string]any{
			"player_id": currentID,
			"name":      name,
			"last_word": lastWord,
			"seconds":   int(wordChainTurnDuration.Seconds()),
		},
	})

	StartPhaseTimer(game, wordChainTurnDuration, func() {
		h.turnExpired(game, currentID)
	})
}

func (h *wordChainHandler) HandleAnswer(player *internal.Player, raw json.RawMessage) {
	game := player.Game

	var submit internal.WordChainWord
	if err := json.Unmarshal(raw, &submit); err != nil {
		log.Printf("[wordChainHandler] game=%s: malformed word from %s: %v",
			game.Id, player.Name, err)
		return
	}
	word := utils.NormalizeAnswer(submit.Word)

	game.Mu.Lock()
	if game.Phase != internal.PhaseQuestion || game.Runtime == nil {
		game.Mu.Unlock()
		return
	}
	state, ok := game.Runtime.State.(*wordChainState)
	if !ok || state.winner != "" {
		game.Mu.Unlock()
		return
	}
	if state.order[state.turnIdx] != player.Id || player.IsEliminated {
		game.Mu.Unlock()
		return
	}

	player.TotalAnswers++
	if reason := h.rejectWord(state, word); reason != "" {
		game.Mu.Unlock()
		log.Printf("[wordChainHandler] game=%s: %s sent %q, rejected (%s)",
			game.Id, player.Name, word, reason)
		// Rejection is private; the turn clock keeps running so retries are
		// possible.
		_ = player.SafeWriteJSON(internal.Message[any]{
			Type: "word_rejected",
			Data: map[string]any{"word": submit.Word, "reason": reason},
		})
		return
	}

	state.used[word] = true
	state.chain = append(state.chain, submit.Word)
	state.lastWord = submit.Word
	state.words[player.Id]++
	player.Score += wordChainWordPts
	player.CorrectAnswers++
	h.advanceTurn(game, state)
	chainLen := len(state.chain)
	update := h.buildUpdate(game, state)
	game.Mu.Unlock()

	log.Printf("[wordChainHandler] game=%s: %s played %q (chain length %d)",
		game.Id, player.Name, submit.Word, chainLen)

	SafeBroadcastToGame(game, internal.Message[any]{
		Type: "word_chain_update",
		Data: update,
	})

	h.announceTurn(game)
}

// rejectWord validates a submission against the chain. Returns an empty
// string when the word is playable. Caller holds game.Mu.
func (h *wordChainHandler) rejectWord(state *wordChainState, word string) string {
	runes := []rune(word)
	if len(runes) < wordChainMinLen {
		return "too_short"
	}
	if state.used[word] {
		return "already_used"
	}
	last := []rune(utils.NormalizeAnswer(state.lastWord))
	if len(last) > 0 && runes[0] != last[len(last)-1] {
		return "wrong_letter"
	}
	return ""
}

// turnExpired knocks out the player whose clock ran down. currentID pins the
// expiry to the turn that armed it.
func (h *wordChainHandler) turnExpired(game *internal.Game, currentID string) {
	game.Mu.Lock()
	if game.Phase != internal.PhaseQuestion || game.Runtime == nil {
		game.Mu.Unlock()
		return
	}
	state, ok := game.Runtime.State.(*wordChainState)
	if !ok || state.winner != "" || state.order[state.turnIdx] != currentID {
		game.Mu.Unlock()
		return
	}

	player := game.Players[currentID]
	name := currentID
	if player != nil {
		player.IsEliminated = true
		name = player.Name
	}
	h.advanceTurn(game, state)
	done := h.settleIfWinner(game, state)
	update := h.buildUpdate(game, state)
	game.Mu.Unlock()

	log.Printf("[wordChainHandler] game=%s: %s ran out of time and is out", game.Id, name)

	SafeBroadcastToGame(game, internal.Message[any]{
		Type: "word_chain_update",
		Data: update,
	})

	if done {
		FinishQuestion(game)
		return
	}
	h.announceTurn(game)
}

// HandleDisconnect removes a dropped player from the rotation so the chain
// never waits on an empty chair.
func (h *wordChainHandler) HandleDisconnect(game *internal.Game, player *internal.Player) {
	game.Mu.Lock()
	if game.Phase != internal.PhaseQuestion || game.Runtime == nil {
		game.Mu.Unlock()
		return
	}
	state, ok := game.Runtime.State.(*wordChainState)
	if !ok || state.winner != "" || !slices.Contains(state.order, player.Id) {
		game.Mu.Unlock()
		return
	}

	wasTheirTurn := state.order[state.turnIdx] == player.Id
	player.IsEliminated = true
	if wasTheirTurn {
		h.advanceTurn(game, state)
	}
	done := h.settleIfWinner(game, state)
	update := h.buildUpdate(game, state)
	game.Mu.Unlock()

	log.Printf("[wordChainHandler] game=%s: %s disconnected and leaves the chain",
		game.Id, player.Name)

	SafeBroadcastToGame(game, internal.Message[any]{
		Type: "word_chain_update",
		Data: update,
	})

	if done {
		FinishQuestion(game)
		return
	}
	if wasTheirTurn {
		h.announceTurn(game)
	}
}

// advanceTurn moves turnIdx to the next surviving player. Caller holds
// game.Mu.
func (h *wordChainHandler) advanceTurn(game *internal.Game, state *wordChainState) {
	for i := 0; i < len(state.order); i++ {
		state.turnIdx = (state.turnIdx + 1) % len(state.order)
		p := game.Players[state.order[state.turnIdx]]
		if p != nil && !p.IsEliminated && p.IsConnected {
			return
		}
	}
}

// settleIfWinner awards the survival bonus once a single player remains.
// Returns true when the question should finish. Caller holds game.Mu.
func (h *wordChainHandler) settleIfWinner(game *internal.Game, state *wordChainState) bool {
	var alive []*internal.Player
	for _, id := range state.order {
		p := game.Players[id]
		if p != nil && !p.IsEliminated && p.IsConnected {
			alive = append(alive, p)
		}
	}
	if len(alive) > 1 {
		return false
	}
	if len(alive) == 1 {
		winner := alive[0]
		winner.Score += wordChainWinPts
		state.winner = winner.Id
	}
	return true
}

// buildUpdate snapshots the chain for broadcast. Caller holds game.Mu.
func (h *wordChainHandler) buildUpdate(game *internal.Game, state *wordChainState) map[string]any {
	standings := make([]map[string]any, 0, len(state.order))
	for _, id := range state.order {
		p := game.Players[id]
		if p == nil {
			continue
		}
		standings = append(standings, map[string]any{
			"player_id":  p.Id,
			"name":       p.Name,
			"words":      state.words[id],
			"eliminated": p.IsEliminated || !p.IsConnected,
		})
	}
	chain := make([]string, len(state.chain))
	copy(chain, state.chain)
	return map[string]any{
		"chain":     chain,
		"last_word": state.lastWord,
		"standings": standings,
		"winner":    state.winner,
	}
}

func (h *wordChainHandler) Finish(game *internal.Game) internal.QuestionEndData {
	game.Mu.Lock()
	defer game.Mu.Unlock()

	end := internal.QuestionEndData{
		QuestionIndex: game.CurrentIndex,
		Type:          internal.QuestionWordChain,
	}
	if game.Runtime == nil {
		return end
	}
	state, ok := game.Runtime.State.(*wordChainState)
	if !ok {
		return end
	}
	end.CorrectAnswer = state.chain
	for _, id := range state.order {
		p := game.Players[id]
		if p == nil || state.words[id] == 0 {
			continue
		}
		points := state.words[id] * wordChainWordPts
		if id == state.winner {
			points += wordChainWinPts
		}
		end.CorrectAnswers = append(end.CorrectAnswers, internal.PlayerAnswer{
			PlayerID:  p.Id,
			Name:      p.Name,
			IsCorrect: true,
			Points:    points,
		})
		end.TotalAnswers += state.words[id]
	}
	return end
}
