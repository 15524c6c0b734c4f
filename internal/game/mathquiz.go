package game

import (
	"encoding/json"
	"log"
	"math"

	"github.com/mkadlec/kviz-backend/internal"
)

// =============================================================================
// QUESTION HANDLER - MATH QUIZ (equation survival)
// =============================================================================

// mathHandler runs the survival mode: every player works through the same
// equation sequence at their own pace, a wrong answer burns a life, and
// running out of lives eliminates the player. The question ends when the
// timer expires or everyone has finished or been eliminated.
type mathHandler struct{}

func init() {
	Factory.Register(&mathHandler{})
}

const (
	mathQuizLives   = 3
	mathEquationPts = 50
	mathProgressPts = 25
	resultTolerance = 1e-6
)

type mathState struct {
	progress map[string]int // playerID -> next equation index
	finished []internal.PlayerAnswer
}

func (h *mathHandler) Type() internal.QuestionType { return internal.QuestionMathQuiz }

func (h *mathHandler) Begin(game *internal.Game, q *internal.Question) {
	game.Mu.Lock()
	game.Runtime.State = &mathState{progress: make(map[string]int)}
	for _, p := range game.ActivePlayers() {
		p.Lives = mathQuizLives
	}
	public := q.ToPublic()
	// Equation texts go out up front; results stay server-side.
	equations := make([]string, len(q.Equations))
	for i, eq := range q.Equations {
		equations[i] = eq.Text
	}
	game.Mu.Unlock()

	SafeBroadcastToGame(game, internal.Message[any]{
		Type: "question",
		Data: map[string]any{
			"question":  public,
			"equations": equations,
			"lives":     mathQuizLives,
		},
	})

	StartPhaseTimer(game, q.Duration(), func() {
		QuestionTimeUp(game)
	})
}

func (h *mathHandler) HandleAnswer(player *internal.Player, raw json.RawMessage) {
	game := player.Game

	var answer internal.MathAnswer
	if err := json.Unmarshal(raw, &answer); err != nil {
		log.Printf("[mathHandler] game=%s: malformed answer from %s: %v",
			game.Id, player.Name, err)
		return
	}

	game.Mu.Lock()
	if game.Phase != internal.PhaseQuestion || game.Runtime == nil {
		game.Mu.Unlock()
		return
	}
	state, ok := game.Runtime.State.(*mathState)
	if !ok || player.HasAnswered {
		game.Mu.Unlock()
		return
	}

	q := game.Runtime.Question
	current := state.progress[player.Id]
	if answer.Sequence != current || current >= len(q.Equations) {
		game.Mu.Unlock()
		log.Printf("[mathHandler] game=%s: %s answered sequence %d, expected %d",
			game.Id, player.Name, answer.Sequence, current)
		return
	}

	player.TotalAnswers++
	correct := math.Abs(answer.Value-q.Equations[current].Result) < resultTolerance
	if correct {
		state.progress[player.Id] = current + 1
		player.Score += mathEquationPts
		player.CorrectAnswers++

		if state.progress[player.Id] == len(q.Equations) {
			// Finished the whole run; bonus by finish position.
			player.HasAnswered = true
			timeTaken := Clock.Since(game.Runtime.StartedAt)
			bonus := 0
			switch len(state.finished) {
			case 0:
				bonus = 200
			case 1:
				bonus = 100
			case 2:
				bonus = 50
			}
			player.Score += bonus
			state.finished = append(state.finished, internal.PlayerAnswer{
				PlayerID:   player.Id,
				Name:       player.Name,
				AnswerTime: timeTaken.Milliseconds(),
				IsCorrect:  true,
				Points:     len(q.Equations)*mathEquationPts + bonus,
			})
			log.Printf("[mathHandler] game=%s: %s finished the run (bonus=%d)",
				game.Id, player.Name, bonus)
		}
	} else {
		player.Lives--
		if player.Lives <= 0 {
			player.Lives = 0
			player.IsEliminated = true
			player.HasAnswered = true
			log.Printf("[mathHandler] game=%s: %s is out of lives", game.Id, player.Name)
		}
	}

	update := h.buildUpdate(game, state)
	everyoneDone := game.HasEveryoneAnswered()
	game.Mu.Unlock()

	// The submitting player learns whether the equation was right; everyone
	// gets the standings.
	_ = player.SafeWriteJSON(internal.Message[any]{
		Type: "math_answer_result",
		Data: map[string]any{
			"sequence": answer.Sequence,
			"correct":  correct,
		},
	})
	SafeBroadcastToGame(game, internal.Message[any]{
		Type: "math_quiz_update",
		Data: update,
	})

	if everyoneDone {
		log.Printf("[mathHandler] game=%s: everyone finished or eliminated, settling", game.Id)
		FinishQuestion(game)
	}
}

// buildUpdate snapshots per-player survival standings. Caller holds game.Mu.
func (h *mathHandler) buildUpdate(game *internal.Game, state *mathState) map[string]any {
	standings := make([]map[string]any, 0, len(game.Players))
	for _, p := range game.ActivePlayers() {
		standings = append(standings, map[string]any{
			"player_id":  p.Id,
			"name":       p.Name,
			"progress":   state.progress[p.Id],
			"lives":      p.Lives,
			"eliminated": p.IsEliminated,
		})
	}
	return map[string]any{"standings": standings}
}

func (h *mathHandler) Finish(game *internal.Game) internal.QuestionEndData {
	game.Mu.Lock()
	defer game.Mu.Unlock()

	end := internal.QuestionEndData{
		QuestionIndex: game.CurrentIndex,
		Type:          internal.QuestionMathQuiz,
	}
	if game.Runtime == nil {
		return end
	}
	q := game.Runtime.Question
	state, ok := game.Runtime.State.(*mathState)
	if !ok {
		return end
	}

	results := make([]internal.Equation, len(q.Equations))
	copy(results, q.Equations)
	end.CorrectAnswer = results
	end.CorrectAnswers = state.finished

	// Survivors who ran out of time keep a progress consolation.
	for _, p := range game.ActivePlayers() {
		if p.IsEliminated || state.progress[p.Id] == len(q.Equations) {
			continue
		}
		p.Score += mathProgressPts * state.progress[p.Id] / max(len(q.Equations), 1)
		end.TotalAnswers++
	}
	end.TotalAnswers += len(state.finished)
	return end
}
