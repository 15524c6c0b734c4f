package game

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/mkadlec/kviz-backend/internal"
)

func wordChainQuiz() *internal.Quiz {
	return &internal.Quiz{
		Id:   "chain-quiz",
		Name: "Slovní fotbal",
		Questions: []internal.Question{
			{
				Id:        "q1",
				Type:      internal.QuestionWordChain,
				Text:      "Slovní fotbal!",
				FirstWord: "pes",
			},
		},
	}
}

func wordMsg(word string) json.RawMessage {
	return json.RawMessage(fmt.Sprintf(`{"word":%q}`, word))
}

func chainState(t *testing.T, g *internal.Game) *wordChainState {
	t.Helper()
	g.Mu.RLock()
	defer g.Mu.RUnlock()
	if g.Runtime == nil {
		t.Fatal("no runtime")
	}
	state, ok := g.Runtime.State.(*wordChainState)
	if !ok {
		t.Fatalf("runtime state is %T", g.Runtime.State)
	}
	return state
}

func TestWordChainRejectWord(t *testing.T) {
	h := &wordChainHandler{}
	state := &wordChainState{
		lastWord: "pes",
		used:     map[string]bool{"pes": true, "sova": true},
	}

	tests := []struct {
		word string
		want string
	}{
		{word: "sova", want: "already_used"},
		{word: "s", want: "too_short"},
		{word: "kolo", want: "wrong_letter"},
		{word: "slon", want: ""},
	}
	for _, tt := range tests {
		if got := h.rejectWord(state, tt.word); got != tt.want {
			t.Errorf("rejectWord(%q) = %q, want %q", tt.word, got, tt.want)
		}
	}
}

func TestWordChainFlow(t *testing.T) {
	withFakeClock(t)
	g, players := newTestGame(t, 3)

	if err := ActivateQuiz(g, wordChainQuiz()); err != nil {
		t.Fatal(err)
	}
	if err := StartGame(g, false); err != nil {
		t.Fatal(err)
	}

	state := chainState(t, g)
	if len(state.order) != 3 || state.order[0] != players[0].Id {
		t.Fatalf("turn order = %v, want join order starting with %s",
			state.order, players[0].Id)
	}

	handler, err := Factory.Get(internal.QuestionWordChain)
	if err != nil {
		t.Fatal(err)
	}

	// Out of turn: silently dropped.
	handler.HandleAnswer(players[1], wordMsg("sova"))
	if players[1].Score != 0 || state.words[players[1].Id] != 0 {
		t.Error("out-of-turn word was accepted")
	}

	// Wrong first letter keeps the turn with the same player.
	handler.HandleAnswer(players[0], wordMsg("kolo"))
	if state.turnIdx != 0 {
		t.Error("rejected word advanced the turn")
	}

	handler.HandleAnswer(players[0], wordMsg("sova"))
	handler.HandleAnswer(players[1], wordMsg("auto"))
	handler.HandleAnswer(players[2], wordMsg("okno"))

	if players[0].Score != wordChainWordPts {
		t.Errorf("player0 score = %d, want %d", players[0].Score, wordChainWordPts)
	}
	if state.lastWord != "okno" || len(state.chain) != 4 {
		t.Errorf("chain = %v, last = %q", state.chain, state.lastWord)
	}
	if state.order[state.turnIdx] != players[0].Id {
		t.Error("rotation did not come back to the first player")
	}
}

func TestWordChainEliminationAndWinner(t *testing.T) {
	withFakeClock(t)
	g, players := newTestGame(t, 3)

	if err := ActivateQuiz(g, wordChainQuiz()); err != nil {
		t.Fatal(err)
	}
	if err := StartGame(g, false); err != nil {
		t.Fatal(err)
	}

	h, err := Factory.Get(internal.QuestionWordChain)
	if err != nil {
		t.Fatal(err)
	}
	handler := h.(*wordChainHandler)
	state := chainState(t, g)

	handler.turnExpired(g, players[0].Id)
	if !players[0].IsEliminated {
		t.Fatal("expired player not eliminated")
	}
	if state.order[state.turnIdx] != players[1].Id {
		t.Error("turn did not move to the next player")
	}

	// Stale expiry for an already-passed turn is ignored.
	handler.turnExpired(g, players[0].Id)
	if players[1].IsEliminated {
		t.Error("stale expiry eliminated the wrong player")
	}

	handler.turnExpired(g, players[1].Id)

	// One player left: survival bonus and question settles.
	if players[2].Score != wordChainWinPts {
		t.Errorf("winner score = %d, want %d", players[2].Score, wordChainWinPts)
	}
	g.Mu.RLock()
	defer g.Mu.RUnlock()
	if g.Phase != internal.PhaseResults {
		t.Errorf("phase = %s, want %s", g.Phase, internal.PhaseResults)
	}
}

func TestWordChainDisconnectSkipsTurn(t *testing.T) {
	withFakeClock(t)
	g, players := newTestGame(t, 3)

	if err := ActivateQuiz(g, wordChainQuiz()); err != nil {
		t.Fatal(err)
	}
	if err := StartGame(g, false); err != nil {
		t.Fatal(err)
	}

	h, err := Factory.Get(internal.QuestionWordChain)
	if err != nil {
		t.Fatal(err)
	}
	handler := h.(*wordChainHandler)
	state := chainState(t, g)

	players[0].IsConnected = false
	handler.HandleDisconnect(g, players[0])

	if !players[0].IsEliminated {
		t.Error("disconnected player still in the chain")
	}
	if state.order[state.turnIdx] != players[1].Id {
		t.Errorf("turn holder = %s, want %s", state.order[state.turnIdx], players[1].Id)
	}
}
