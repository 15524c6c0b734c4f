package game

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/mkadlec/kviz-backend/internal"
)

// newTestGame registers a lobby with connectionless players; SafeWriteJSON
// drops writes on a nil conn, so broadcasts are harmless in tests.
func newTestGame(t *testing.T, playerCount int) (*internal.Game, []*internal.Player) {
	t.Helper()
	g := CreateGame(false)
	t.Cleanup(func() { CleanupGame(g) })

	players := make([]*internal.Player, 0, playerCount)
	for i := 0; i < playerCount; i++ {
		p := &internal.Player{
			Id:          fmt.Sprintf("p%d", i),
			Name:        fmt.Sprintf("player%d", i),
			Game:        g,
			IsConnected: true,
			JoinedAt:    Clock.Now().Add(time.Duration(i) * time.Millisecond),
		}
		g.Players[p.Id] = p
		players = append(players, p)
	}
	return g, players
}

// withFakeClock swaps the package clock for the duration of a test. Tests
// using it must not run in parallel.
func withFakeClock(t *testing.T) *clockwork.FakeClock {
	t.Helper()
	fc := clockwork.NewFakeClock()
	old := Clock
	Clock = fc
	t.Cleanup(func() { Clock = old })
	return fc
}

func abcdQuiz() *internal.Quiz {
	return &internal.Quiz{
		Id:   "test-quiz",
		Name: "Testovací kvíz",
		Questions: []internal.Question{
			{
				Id:            "q1",
				Type:          internal.QuestionABCD,
				Text:          "Hlavní město ČR?",
				Options:       []string{"Brno", "Praha", "Ostrava"},
				CorrectOption: 1,
				TimeLimit:     30,
			},
		},
	}
}

func TestActivateQuizValidation(t *testing.T) {
	g, _ := newTestGame(t, 2)

	if err := ActivateQuiz(g, &internal.Quiz{Id: "empty"}); err == nil {
		t.Error("empty quiz should be rejected")
	}

	bad := &internal.Quiz{
		Id:        "bad",
		Questions: []internal.Question{{Type: internal.QuestionType("karaoke")}},
	}
	if err := ActivateQuiz(g, bad); err == nil {
		t.Error("unknown question type should be rejected")
	}

	if err := ActivateQuiz(g, abcdQuiz()); err != nil {
		t.Fatalf("valid quiz rejected: %v", err)
	}
	if g.QuizID != "test-quiz" || len(g.Questions) != 1 {
		t.Errorf("quiz not loaded: id=%s questions=%d", g.QuizID, len(g.Questions))
	}
}

func TestStartGameGuards(t *testing.T) {
	g, _ := newTestGame(t, 1)

	if err := StartGame(g, false); err == nil {
		t.Error("start without a quiz should fail")
	}

	if err := ActivateQuiz(g, abcdQuiz()); err != nil {
		t.Fatal(err)
	}
	if err := StartGame(g, false); err == nil {
		t.Errorf("start with %d player should fail", g.GetPlayerCount())
	}
}

func TestChoiceQuestionFlow(t *testing.T) {
	withFakeClock(t)
	g, players := newTestGame(t, 2)

	if err := ActivateQuiz(g, abcdQuiz()); err != nil {
		t.Fatal(err)
	}
	if err := StartGame(g, false); err != nil {
		t.Fatal(err)
	}

	g.Mu.RLock()
	phase := g.Phase
	g.Mu.RUnlock()
	if phase != internal.PhaseQuestion {
		t.Fatalf("phase after start = %s, want %s", phase, internal.PhaseQuestion)
	}

	// One right, one wrong; second answer closes the question.
	DispatchAnswer(players[0], json.RawMessage(`{"option":1}`))
	DispatchAnswer(players[1], json.RawMessage(`{"option":0}`))

	g.Mu.RLock()
	phase = g.Phase
	stats := len(g.Stats)
	score0, score1 := players[0].Score, players[1].Score
	g.Mu.RUnlock()

	if phase != internal.PhaseResults {
		t.Errorf("phase after everyone answered = %s, want %s", phase, internal.PhaseResults)
	}
	if stats != 1 {
		t.Errorf("stats entries = %d, want 1", stats)
	}
	g.Mu.RLock()
	if g.Stats[0].StartTime.IsZero() || g.Stats[0].EndTime.IsZero() {
		t.Errorf("stats missing question timing: %+v", g.Stats[0])
	}
	g.Mu.RUnlock()
	// Instant first correct answer on a fake clock.
	if score0 != 225 {
		t.Errorf("correct player score = %d, want 225", score0)
	}
	if score1 != 0 {
		t.Errorf("wrong player score = %d, want 0", score1)
	}
}

func TestAnswerBeforeTimerArmed(t *testing.T) {
	withFakeClock(t)
	g, players := newTestGame(t, 2)

	if err := ActivateQuiz(g, abcdQuiz()); err != nil {
		t.Fatal(err)
	}
	if err := StartGame(g, false); err != nil {
		t.Fatal(err)
	}

	// A fast answer can land while the question broadcast is still in
	// flight, before the phase timer exists. Timing must come from the
	// question itself, not the timer.
	g.Mu.Lock()
	g.Timer = nil
	g.Mu.Unlock()

	DispatchAnswer(players[0], json.RawMessage(`{"option":1}`))

	if players[0].Score != 225 {
		t.Errorf("score = %d, want 225", players[0].Score)
	}
	if !players[0].HasAnswered {
		t.Error("answer without a running timer was dropped")
	}
}

func TestAnswerRejectedOutsideQuestionPhase(t *testing.T) {
	withFakeClock(t)
	g, players := newTestGame(t, 2)

	// Lobby: nothing to answer.
	DispatchAnswer(players[0], json.RawMessage(`{"option":1}`))
	if players[0].TotalAnswers != 0 {
		t.Error("lobby answer must be dropped")
	}

	if err := ActivateQuiz(g, abcdQuiz()); err != nil {
		t.Fatal(err)
	}
	if err := StartGame(g, false); err != nil {
		t.Fatal(err)
	}

	// Re-submits are idempotent.
	DispatchAnswer(players[0], json.RawMessage(`{"option":1}`))
	DispatchAnswer(players[0], json.RawMessage(`{"option":0}`))
	if players[0].TotalAnswers != 1 {
		t.Errorf("TotalAnswers = %d, want 1", players[0].TotalAnswers)
	}
	if players[0].Score != 225 {
		t.Errorf("re-submit changed the score: %d", players[0].Score)
	}
}

func TestFinishQuestionIdempotent(t *testing.T) {
	withFakeClock(t)
	g, _ := newTestGame(t, 2)

	if err := ActivateQuiz(g, abcdQuiz()); err != nil {
		t.Fatal(err)
	}
	if err := StartGame(g, false); err != nil {
		t.Fatal(err)
	}

	FinishQuestion(g)
	FinishQuestion(g) // time_up racing everyone-answered

	g.Mu.RLock()
	defer g.Mu.RUnlock()
	if len(g.Stats) != 1 {
		t.Errorf("stats entries = %d, want 1", len(g.Stats))
	}
}

func TestLastQuestionEndsGame(t *testing.T) {
	withFakeClock(t)
	g, players := newTestGame(t, 2)

	if err := ActivateQuiz(g, abcdQuiz()); err != nil {
		t.Fatal(err)
	}
	if err := StartGame(g, false); err != nil {
		t.Fatal(err)
	}

	DispatchAnswer(players[0], json.RawMessage(`{"option":1}`))
	DispatchAnswer(players[1], json.RawMessage(`{"option":1}`))
	ShowScoreboard(g)
	NextQuestion(g) // single-question quiz, so this ends the game

	g.Mu.RLock()
	defer g.Mu.RUnlock()
	if g.Phase != internal.PhaseEnded {
		t.Errorf("phase = %s, want %s", g.Phase, internal.PhaseEnded)
	}
}

func TestResetGame(t *testing.T) {
	withFakeClock(t)
	g, players := newTestGame(t, 2)

	if err := ActivateQuiz(g, abcdQuiz()); err != nil {
		t.Fatal(err)
	}
	if err := StartGame(g, false); err != nil {
		t.Fatal(err)
	}
	DispatchAnswer(players[0], json.RawMessage(`{"option":1}`))

	ResetGame(g)

	g.Mu.RLock()
	defer g.Mu.RUnlock()
	if g.Phase != internal.PhaseLobby {
		t.Errorf("phase = %s, want %s", g.Phase, internal.PhaseLobby)
	}
	if g.HasGameStarted {
		t.Error("HasGameStarted survived the reset")
	}
	if len(g.Players) != 2 {
		t.Errorf("players dropped on reset: %d", len(g.Players))
	}
	for _, p := range players {
		if p.Score != 0 || p.HasAnswered {
			t.Errorf("player %s state survived reset: score=%d answered=%v",
				p.Name, p.Score, p.HasAnswered)
		}
	}
}

func TestPhaseTimerExpiry(t *testing.T) {
	fc := withFakeClock(t)
	g, _ := newTestGame(t, 2)

	expired := make(chan struct{})
	StartPhaseTimer(g, 10*time.Second, func() { close(expired) })

	// Timer goroutine holds a ticker and the expiry timer.
	fc.BlockUntil(2)
	fc.Advance(11 * time.Second)

	select {
	case <-expired:
	case <-time.After(2 * time.Second):
		t.Fatal("onExpire not called after advancing past the duration")
	}
}

func TestPhaseTimerCancelSuppressesExpiry(t *testing.T) {
	fc := withFakeClock(t)
	g, _ := newTestGame(t, 2)

	expired := make(chan struct{})
	StartPhaseTimer(g, 10*time.Second, func() { close(expired) })
	fc.BlockUntil(2)

	CancelPhaseTimer(g)
	fc.Advance(11 * time.Second)

	select {
	case <-expired:
		t.Fatal("onExpire ran after cancellation")
	case <-time.After(100 * time.Millisecond):
	}
}
