package game

import (
	"encoding/json"
	"log"

	"github.com/mkadlec/kviz-backend/internal"
)

// =============================================================================
// QUESTION HANDLER - MULTIPLE CHOICE (abcd, true_false)
// =============================================================================

// choiceHandler serves abcd and true_false; the two differ only in the
// option list shown on the host screen.
type choiceHandler struct {
	qt internal.QuestionType
}

func init() {
	Factory.Register(&choiceHandler{qt: internal.QuestionABCD})
	Factory.Register(&choiceHandler{qt: internal.QuestionTrueFalse})
}

// trueFalseOptions is the fixed option pair rendered for true_false.
var trueFalseOptions = []string{"Pravda", "Lež"}

type choiceState struct {
	answers map[string]int // playerID -> chosen option
	correct []internal.PlayerAnswer
}

func (h *choiceHandler) Type() internal.QuestionType { return h.qt }

func (h *choiceHandler) Begin(game *internal.Game, q *internal.Question) {
	game.Mu.Lock()
	game.Runtime.State = &choiceState{answers: make(map[string]int)}
	public := q.ToPublic()
	if h.qt == internal.QuestionTrueFalse {
		public.Options = trueFalseOptions
	}
	game.Mu.Unlock()

	SafeBroadcastToGame(game, internal.Message[*internal.QuestionPublic]{
		Type: "question",
		Data: public,
	})

	StartPhaseTimer(game, q.Duration(), func() {
		QuestionTimeUp(game)
	})
}

func (h *choiceHandler) HandleAnswer(player *internal.Player, raw json.RawMessage) {
	game := player.Game

	var answer internal.ChoiceAnswer
	if err := json.Unmarshal(raw, &answer); err != nil {
		log.Printf("[choiceHandler] game=%s: malformed answer from %s: %v",
			game.Id, player.Name, err)
		return
	}

	game.Mu.Lock()
	if game.Phase != internal.PhaseQuestion || game.Runtime == nil {
		game.Mu.Unlock()
		return
	}
	state, ok := game.Runtime.State.(*choiceState)
	if !ok {
		game.Mu.Unlock()
		return
	}
	if player.HasAnswered {
		game.Mu.Unlock()
		log.Printf("[choiceHandler] game=%s: %s already answered, ignoring", game.Id, player.Name)
		return
	}

	q := game.Runtime.Question
	optionCount := len(q.Options)
	if h.qt == internal.QuestionTrueFalse {
		optionCount = len(trueFalseOptions)
	}
	if answer.Option < 0 || answer.Option >= optionCount {
		game.Mu.Unlock()
		log.Printf("[choiceHandler] game=%s: %s chose out-of-range option %d",
			game.Id, player.Name, answer.Option)
		return
	}

	state.answers[player.Id] = answer.Option
	player.HasAnswered = true
	player.LastAnswerTime = Clock.Now()
	player.TotalAnswers++

	timeTaken := Clock.Since(game.Runtime.StartedAt)
	if answer.Option == q.CorrectOption {
		position := len(state.correct) + 1
		points := CalculateAnswerPoints(timeTaken, q.Duration(), position)
		player.Score += points
		player.CorrectAnswers++
		state.correct = append(state.correct, internal.PlayerAnswer{
			PlayerID:   player.Id,
			Name:       player.Name,
			AnswerTime: timeTaken.Milliseconds(),
			IsCorrect:  true,
			Points:     points,
		})
	}

	answeredCount := len(state.answers)
	everyoneDone := game.HasEveryoneAnswered()
	game.Mu.Unlock()

	log.Printf("[choiceHandler] game=%s: %s answered option %d (%d answers in)",
		game.Id, player.Name, answer.Option, answeredCount)

	// Correctness stays hidden until the reveal; only the count goes out.
	SafeBroadcastToGame(game, internal.Message[any]{
		Type: "answer_received",
		Data: map[string]any{
			"player_id":      player.Id,
			"answered_count": answeredCount,
		},
	})

	if everyoneDone {
		log.Printf("[choiceHandler] game=%s: everyone answered, settling early", game.Id)
		FinishQuestion(game)
	}
}

func (h *choiceHandler) Finish(game *internal.Game) internal.QuestionEndData {
	game.Mu.Lock()
	defer game.Mu.Unlock()

	if game.Runtime == nil {
		return internal.QuestionEndData{QuestionIndex: game.CurrentIndex, Type: h.qt}
	}
	q := game.Runtime.Question
	end := internal.QuestionEndData{
		QuestionIndex: game.CurrentIndex,
		Type:          h.qt,
		CorrectAnswer: q.CorrectOption,
	}
	if state, ok := game.Runtime.State.(*choiceState); ok {
		end.CorrectAnswers = state.correct
		end.TotalAnswers = len(state.answers)
	}
	return end
}
