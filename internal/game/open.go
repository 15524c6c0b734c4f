package game

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/mkadlec/kviz-backend/internal"
	"github.com/mkadlec/kviz-backend/internal/utils"
)

// =============================================================================
// QUESTION HANDLER - OPEN ANSWER (progressive letter reveal)
// =============================================================================

// openHandler runs free-text questions. The answer mask starts fully hidden
// and letters are revealed on a schedule as time burns down; players can
// retry until they hit the answer, so later (cheaper) answers trade speed
// points for revealed hints.
type openHandler struct{}

func init() {
	Factory.Register(&openHandler{})
}

type openState struct {
	revealed int // reveal slots currently open
	attempts map[string]int
	correct  []internal.PlayerAnswer
}

func (h *openHandler) Type() internal.QuestionType { return internal.QuestionOpenAnswer }

func (h *openHandler) Begin(game *internal.Game, q *internal.Question) {
	game.Mu.Lock()
	game.Runtime.State = &openState{attempts: make(map[string]int)}
	public := q.ToPublic()
	public.Masked = utils.CreateInitialMask(q.Answer)
	game.Mu.Unlock()

	SafeBroadcastToGame(game, internal.Message[*internal.QuestionPublic]{
		Type: "question",
		Data: public,
	})

	StartPhaseTimer(game, q.Duration(), func() {
		QuestionTimeUp(game)
	})

	game.Mu.RLock()
	var timerCtx context.Context
	if game.Timer != nil {
		timerCtx = game.Timer.Context
	}
	game.Mu.RUnlock()
	if timerCtx != nil {
		go h.runRevealLoop(game, q, timerCtx)
	}
}

// runRevealLoop pushes letter_reveal events whenever the schedule opens new
// slots. Bound to the phase timer context so early settling stops it.
func (h *openHandler) runRevealLoop(game *internal.Game, q *internal.Question, ctx context.Context) {
	ticker := Clock.NewTicker(1 * time.Second)
	defer ticker.Stop()

	revealable := utils.RevealableLetterCount(q.Answer)
	limit := q.Duration()
	started := Clock.Now()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
		}

		elapsed := Clock.Since(started)
		due := 0
		for i := 0; i < revealable; i++ {
			if !utils.ShouldRevealLetter(elapsed, limit, i, revealable) {
				break
			}
			due++
		}

		game.Mu.Lock()
		if game.Phase != internal.PhaseQuestion || game.Runtime == nil {
			game.Mu.Unlock()
			return
		}
		state, ok := game.Runtime.State.(*openState)
		if !ok || due <= state.revealed {
			game.Mu.Unlock()
			continue
		}
		state.revealed = due
		masked := utils.ApplyRevealMask(q.Answer, due)
		game.Mu.Unlock()

		log.Printf("[openHandler] game=%s: revealing %d/%d letters", game.Id, due, revealable)
		SafeBroadcastToGame(game, internal.Message[any]{
			Type: "letter_reveal",
			Data: map[string]any{
				"masked":   masked,
				"revealed": due,
			},
		})
	}
}

func (h *openHandler) HandleAnswer(player *internal.Player, raw json.RawMessage) {
	game := player.Game

	var answer internal.OpenAnswer
	if err := json.Unmarshal(raw, &answer); err != nil {
		log.Printf("[openHandler] game=%s: malformed answer from %s: %v",
			game.Id, player.Name, err)
		return
	}

	game.Mu.Lock()
	if game.Phase != internal.PhaseQuestion || game.Runtime == nil {
		game.Mu.Unlock()
		return
	}
	state, ok := game.Runtime.State.(*openState)
	if !ok {
		game.Mu.Unlock()
		return
	}
	if player.HasAnswered {
		game.Mu.Unlock()
		return
	}

	q := game.Runtime.Question
	state.attempts[player.Id]++
	player.TotalAnswers++
	correct := utils.NormalizeAnswer(answer.Text) == utils.NormalizeAnswer(q.Answer)

	if !correct {
		attempts := state.attempts[player.Id]
		game.Mu.Unlock()
		log.Printf("[openHandler] game=%s: %s guessed wrong (attempt %d)",
			game.Id, player.Name, attempts)
		// Wrong guesses go back to the guesser only; no letters leak.
		_ = player.SafeWriteJSON(internal.Message[any]{
			Type: "answer_incorrect",
			Data: map[string]any{"attempts": attempts},
		})
		return
	}

	timeTaken := Clock.Since(game.Runtime.StartedAt)
	position := len(state.correct) + 1
	points := CalculateAnswerPoints(timeTaken, q.Duration(), position)
	player.Score += points
	player.CorrectAnswers++
	player.HasAnswered = true
	player.LastAnswerTime = Clock.Now()
	state.correct = append(state.correct, internal.PlayerAnswer{
		PlayerID:   player.Id,
		Name:       player.Name,
		AnswerTime: timeTaken.Milliseconds(),
		IsCorrect:  true,
		Points:     points,
	})
	everyoneDone := game.HasEveryoneAnswered()
	game.Mu.Unlock()

	log.Printf("[openHandler] game=%s: %s solved it (pos=%d points=%d)",
		game.Id, player.Name, position, points)

	SafeBroadcastToGame(game, internal.Message[internal.AnswerResultData]{
		Type: "answer_result",
		Data: internal.AnswerResultData{
			PlayerID:     player.Id,
			Name:         player.Name,
			IsCorrect:    true,
			Points:       points,
			Position:     position,
			TimeToAnswer: timeTaken.Milliseconds(),
		},
	})

	if everyoneDone {
		log.Printf("[openHandler] game=%s: everyone solved it, settling early", game.Id)
		FinishQuestion(game)
	}
}

func (h *openHandler) Finish(game *internal.Game) internal.QuestionEndData {
	game.Mu.Lock()
	defer game.Mu.Unlock()

	if game.Runtime == nil {
		return internal.QuestionEndData{QuestionIndex: game.CurrentIndex, Type: internal.QuestionOpenAnswer}
	}
	q := game.Runtime.Question
	end := internal.QuestionEndData{
		QuestionIndex: game.CurrentIndex,
		Type:          internal.QuestionOpenAnswer,
		CorrectAnswer: q.Answer,
	}
	if state, ok := game.Runtime.State.(*openState); ok {
		end.CorrectAnswers = state.correct
		for _, n := range state.attempts {
			end.TotalAnswers += n
		}
	}
	return end
}
