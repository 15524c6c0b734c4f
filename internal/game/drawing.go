package game

import (
	"encoding/json"
	"log"
	"slices"

	"github.com/mkadlec/kviz-backend/internal"
	"github.com/mkadlec/kviz-backend/internal/utils"
)

// =============================================================================
// QUESTION HANDLER - DRAWING (one draws, the rest guess)
// =============================================================================

// drawHandler runs the pictionary round. One player gets the secret word and
// draws on the shared canvas; everyone else sees the masked word and guesses
// by text. The drawer earns points per correct guesser, guessers score like
// an open answer. The drawer rotates with the question index so repeated
// drawing rounds pick different players.
type drawHandler struct{}

func init() {
	Factory.Register(&drawHandler{})
}

const drawerPtsPerGuess = 50

type drawingState struct {
	drawerID string
	strokes  []internal.Stroke
	correct  []internal.PlayerAnswer
	attempts map[string]int
}

func (h *drawHandler) Type() internal.QuestionType { return internal.QuestionDrawing }

func (h *drawHandler) Begin(game *internal.Game, q *internal.Question) {
	game.Mu.Lock()
	players := game.ActivePlayers()
	slices.SortFunc(players, func(a, b *internal.Player) int {
		return a.JoinedAt.Compare(b.JoinedAt)
	})
	if len(players) == 0 {
		game.Mu.Unlock()
		log.Printf("[drawHandler] game=%s: no players to draw, skipping", game.Id)
		FinishQuestion(game)
		return
	}
	drawer := players[game.CurrentIndex%len(players)]
	// The drawer is out of the guessing pool, so everyone-answered means all
	// guessers are done.
	drawer.HasAnswered = true
	game.Runtime.State = &drawingState{
		drawerID: drawer.Id,
		attempts: make(map[string]int),
	}
	public := q.ToPublic()
	public.Masked = utils.CreateInitialMask(q.DrawWord)
	game.Mu.Unlock()

	log.Printf("[drawHandler] game=%s: %s draws %q", game.Id, drawer.Name, q.DrawWord)

	SafeBroadcastToGameExcept(game, internal.Message[any]{
		Type: "question",
		Data: map[string]any{
			"question":  public,
			"drawer_id": drawer.Id,
			"drawer":    drawer.Name,
		},
	}, drawer)
	// Only the drawer learns the word.
	_ = drawer.SafeWriteJSON(internal.Message[any]{
		Type: "draw_word",
		Data: map[string]any{
			"word":      q.DrawWord,
			"question":  public,
			"drawer_id": drawer.Id,
		},
	})

	StartPhaseTimer(game, q.Duration(), func() {
		QuestionTimeUp(game)
	})
}

// HandleAnswer receives both canvas traffic from the drawer and text guesses
// from everyone else; the sender's role decides the interpretation.
func (h *drawHandler) HandleAnswer(player *internal.Player, raw json.RawMessage) {
	game := player.Game

	game.Mu.RLock()
	drawerID := ""
	if game.Runtime != nil {
		if state, ok := game.Runtime.State.(*drawingState); ok {
			drawerID = state.drawerID
		}
	}
	game.Mu.RUnlock()

	if player.Id == drawerID {
		h.handleStroke(player, raw)
		return
	}
	h.handleGuess(player, raw)
}

func (h *drawHandler) handleStroke(player *internal.Player, raw json.RawMessage) {
	game := player.Game

	var stroke internal.Stroke
	if err := json.Unmarshal(raw, &stroke); err != nil {
		log.Printf("[drawHandler] game=%s: malformed stroke from %s: %v",
			game.Id, player.Name, err)
		return
	}
	switch stroke.Type {
	case internal.StrokeDraw, internal.StrokeFill, internal.StrokeClear:
	default:
		log.Printf("[drawHandler] game=%s: unknown stroke type %q", game.Id, stroke.Type)
		return
	}
	internal.ClampStroke(&stroke)

	game.Mu.Lock()
	if game.Phase != internal.PhaseQuestion || game.Runtime == nil {
		game.Mu.Unlock()
		return
	}
	state, ok := game.Runtime.State.(*drawingState)
	if !ok || state.drawerID != player.Id {
		game.Mu.Unlock()
		return
	}
	if stroke.Type == internal.StrokeClear {
		state.strokes = state.strokes[:0]
	} else {
		state.strokes = append(state.strokes, stroke)
	}
	game.Mu.Unlock()

	SafeBroadcastToGameExcept(game, internal.Message[internal.Stroke]{
		Type: "drawing_update",
		Data: stroke,
	}, player)
}

func (h *drawHandler) handleGuess(player *internal.Player, raw json.RawMessage) {
	game := player.Game

	var guess internal.OpenAnswer
	if err := json.Unmarshal(raw, &guess); err != nil {
		log.Printf("[drawHandler] game=%s: malformed guess from %s: %v",
			game.Id, player.Name, err)
		return
	}

	game.Mu.Lock()
	if game.Phase != internal.PhaseQuestion || game.Runtime == nil {
		game.Mu.Unlock()
		return
	}
	state, ok := game.Runtime.State.(*drawingState)
	if !ok || player.HasAnswered {
		game.Mu.Unlock()
		return
	}

	q := game.Runtime.Question
	state.attempts[player.Id]++
	player.TotalAnswers++
	if utils.NormalizeAnswer(guess.Text) != utils.NormalizeAnswer(q.DrawWord) {
		attempts := state.attempts[player.Id]
		game.Mu.Unlock()
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
	// The drawer earns per guesser as guesses land.
	if drawer := game.Players[state.drawerID]; drawer != nil {
		drawer.Score += drawerPtsPerGuess
	}
	everyoneDone := game.HasEveryoneAnswered()
	game.Mu.Unlock()

	log.Printf("[drawHandler] game=%s: %s guessed the word (pos=%d points=%d)",
		game.Id, player.Name, position, points)

	// The word itself stays hidden for the players still guessing.
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
		log.Printf("[drawHandler] game=%s: all guessers done, settling", game.Id)
		FinishQuestion(game)
	}
}

// canvasReplay returns the current canvas so a reconnecting client can redraw
// the picture. Empty outside a drawing question.
func canvasReplay(game *internal.Game) []internal.Stroke {
	game.Mu.RLock()
	defer game.Mu.RUnlock()
	if game.Runtime == nil {
		return nil
	}
	state, ok := game.Runtime.State.(*drawingState)
	if !ok {
		return nil
	}
	strokes := make([]internal.Stroke, len(state.strokes))
	copy(strokes, state.strokes)
	return strokes
}

func (h *drawHandler) Finish(game *internal.Game) internal.QuestionEndData {
	game.Mu.Lock()
	defer game.Mu.Unlock()

	end := internal.QuestionEndData{
		QuestionIndex: game.CurrentIndex,
		Type:          internal.QuestionDrawing,
	}
	if game.Runtime == nil {
		return end
	}
	q := game.Runtime.Question
	end.CorrectAnswer = q.DrawWord
	if state, ok := game.Runtime.State.(*drawingState); ok {
		end.CorrectAnswers = state.correct
		for _, n := range state.attempts {
			end.TotalAnswers += n
		}
	}
	return end
}
