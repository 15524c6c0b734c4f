package game

import (
	"fmt"
	"log"

	"github.com/mkadlec/kviz-backend/internal"
)

// =============================================================================
// GAME FLOW - LOBBY & QUESTION LIFECYCLE
// =============================================================================

// ActivateQuiz loads a question set into a lobby game. Every question type
// must have a registered handler; a bad set is rejected here, not mid-game.
func ActivateQuiz(game *internal.Game, quiz *internal.Quiz) error {
	for _, q := range quiz.Questions {
		if _, err := Factory.Get(q.Type); err != nil {
			return fmt.Errorf("quiz %s: %w", quiz.Id, err)
		}
	}
	if len(quiz.Questions) == 0 {
		return fmt.Errorf("quiz %s has no questions", quiz.Id)
	}

	game.Mu.Lock()
	if game.Phase != internal.PhaseLobby {
		game.Mu.Unlock()
		return fmt.Errorf("game %s is not in lobby", game.Id)
	}
	game.QuizID = quiz.Id
	game.QuizName = quiz.Name
	game.Questions = quiz.Questions
	game.CurrentIndex = -1
	game.Mu.Unlock()

	log.Printf("[ActivateQuiz] game=%s: activated quiz %s (%d questions)",
		game.Id, quiz.Id, len(quiz.Questions))

	SafeBroadcastToGame(game, internal.Message[any]{
		Type: "quiz_activated",
		Data: map[string]any{
			"quiz_id":        quiz.Id,
			"quiz_name":      quiz.Name,
			"question_count": len(quiz.Questions),
		},
	})
	return nil
}

// StartGame begins play. remote marks a start triggered from a phone, which
// additionally pings the host screen so it can switch views.
func StartGame(game *internal.Game, remote bool) error {
	game.Mu.Lock()
	if game.HasGameStarted {
		game.Mu.Unlock()
		return fmt.Errorf("game %s already started", game.Id)
	}
	if !game.CanStartGame() {
		count := game.GetPlayerCount()
		hasQuiz := len(game.Questions) > 0
		game.Mu.Unlock()
		log.Printf("[StartGame] game=%s: cannot start (%d/%d players, quiz loaded=%v)",
			game.Id, count, internal.MinPlayersToStart, hasQuiz)
		return fmt.Errorf("not enough players or no quiz activated")
	}

	game.HasGameStarted = true
	game.CurrentIndex = -1
	game.Stats = make([]internal.QuestionStats, 0, len(game.Questions))
	game.ResetPlayerAnswerState()

	startedData := map[string]any{
		"game_id":        game.Id,
		"quiz_name":      game.QuizName,
		"question_count": len(game.Questions),
		"players":        game.PlayerSnapshots(),
	}
	game.Mu.Unlock()

	log.Printf("[StartGame] game=%s: starting (remote=%v)", game.Id, remote)

	SafeBroadcastToGame(game, internal.Message[any]{
		Type: "game_started",
		Data: startedData,
	})
	if remote {
		SendToHost(game, internal.Message[any]{
			Type: "game_started_remote",
			Data: startedData,
		})
	}

	NextQuestion(game)
	return nil
}

// NextQuestion advances to the following question or ends the game. Driven
// by the host (REST or websocket) from the scoreboard phase, and internally
// right after game start.
func NextQuestion(game *internal.Game) {
	game.Mu.Lock()
	if !game.HasGameStarted || game.Phase == internal.PhaseEnded {
		game.Mu.Unlock()
		log.Printf("[NextQuestion] game=%s: not running, ignoring", game.Id)
		return
	}
	if game.Phase == internal.PhaseQuestion {
		game.Mu.Unlock()
		log.Printf("[NextQuestion] game=%s: question still open, ignoring", game.Id)
		return
	}
	next := game.CurrentIndex + 1
	last := next >= len(game.Questions)
	game.Mu.Unlock()

	if last {
		EndGame(game)
		return
	}
	StartQuestion(game, next)
}

// StartQuestion hands the game to the question's handler.
func StartQuestion(game *internal.Game, index int) {
	game.Mu.Lock()
	if index < 0 || index >= len(game.Questions) {
		game.Mu.Unlock()
		log.Printf("[StartQuestion] game=%s: index %d out of range", game.Id, index)
		return
	}
	game.CurrentIndex = index
	question := &game.Questions[index]
	game.Phase = internal.PhaseQuestion
	game.Runtime = &internal.QuestionRuntime{Question: question, StartedAt: Clock.Now()}
	game.ResetPlayerAnswerState()
	game.Mu.Unlock()

	handler, err := Factory.Get(question.Type)
	if err != nil {
		// ActivateQuiz validated the set; this means a handler was
		// unregistered at runtime.
		log.Printf("[StartQuestion] game=%s: %v, skipping question", game.Id, err)
		game.Mu.Lock()
		game.Phase = internal.PhaseScoreboard
		game.Mu.Unlock()
		NextQuestion(game)
		return
	}

	log.Printf("[StartQuestion] game=%s: question %d/%d type=%s",
		game.Id, index+1, len(game.Questions), question.Type)
	handler.Begin(game, question)
}

// QuestionTimeUp is the default phase-timer expiry: tell everyone the clock
// ran out, then settle the question.
func QuestionTimeUp(game *internal.Game) {
	SafeBroadcastToGame(game, internal.Message[any]{
		Type: "time_up",
		Data: map[string]any{"game_id": game.Id},
	})
	FinishQuestion(game)
}

// FinishQuestion closes the question phase exactly once (time_up and
// everyone-answered can race) and publishes results.
func FinishQuestion(game *internal.Game) {
	game.Mu.Lock()
	if game.Phase != internal.PhaseQuestion || game.Runtime == nil {
		game.Mu.Unlock()
		return
	}
	game.Phase = internal.PhaseResults
	question := game.Runtime.Question
	startedAt := game.Runtime.StartedAt
	game.Mu.Unlock()

	CancelPhaseTimer(game)

	handler, err := Factory.Get(question.Type)
	if err != nil {
		log.Printf("[FinishQuestion] game=%s: %v", game.Id, err)
		return
	}
	end := handler.Finish(game)

	game.Mu.Lock()
	game.Stats = append(game.Stats, internal.QuestionStats{
		QuestionIndex:  game.CurrentIndex,
		Type:           question.Type,
		CorrectAnswers: end.CorrectAnswers,
		TotalAnswers:   end.TotalAnswers,
		StartTime:      startedAt,
		EndTime:        Clock.Now(),
	})
	end.Scoreboard = sortedScoreboard(game)
	end.IsLastQuestion = game.CurrentIndex == len(game.Questions)-1
	game.Mu.Unlock()

	log.Printf("[FinishQuestion] game=%s: question %d settled, %d correct",
		game.Id, end.QuestionIndex, len(end.CorrectAnswers))

	SafeBroadcastToGame(game, internal.Message[internal.QuestionEndData]{
		Type: "question_end",
		Data: end,
	})

	StartPhaseTimer(game, internal.ResultsPhaseDuration, func() {
		ShowScoreboard(game)
	})
}

// ShowScoreboard switches to the between-questions standings. The host
// advances from here with next_question.
func ShowScoreboard(game *internal.Game) {
	game.Mu.Lock()
	if game.Phase != internal.PhaseResults {
		game.Mu.Unlock()
		return
	}
	game.Phase = internal.PhaseScoreboard
	game.Runtime = nil
	scoreboard := sortedScoreboard(game)
	teamScores := game.TeamScores()
	game.Mu.Unlock()

	SafeBroadcastToGame(game, internal.Message[any]{
		Type: "scoreboard",
		Data: map[string]any{
			"scoreboard":  scoreboard,
			"team_scores": teamScores,
		},
	})
}

// EndGame publishes the final standings and parks the game until reset.
func EndGame(game *internal.Game) {
	game.Mu.Lock()
	if game.Phase == internal.PhaseEnded {
		game.Mu.Unlock()
		return
	}
	game.Phase = internal.PhaseEnded
	game.Runtime = nil
	game.Mu.Unlock()

	CancelPhaseTimer(game)

	results := CalculateFinalResults(game)
	log.Printf("[EndGame] game=%s: broadcasting final results", game.Id)

	SafeBroadcastToGame(game, internal.Message[internal.FinalResults]{
		Type: "game_ended",
		Data: results,
	})

	if SaveResults != nil {
		go SaveResults(game, results)
	}
}

// ResetGame returns the game to the lobby, keeping players but wiping all
// progress.
func ResetGame(game *internal.Game) {
	CancelPhaseTimer(game)

	game.Mu.Lock()
	game.Phase = internal.PhaseLobby
	game.HasGameStarted = false
	game.CurrentIndex = -1
	game.Runtime = nil
	game.Stats = make([]internal.QuestionStats, 0)
	for _, player := range game.Players {
		player.Score = 0
		player.TotalAnswers = 0
		player.CorrectAnswers = 0
		player.ResetQuestionState()
	}
	game.Mu.Unlock()

	log.Printf("[ResetGame] game=%s: reset to lobby", game.Id)

	SafeBroadcastToGame(game, internal.Message[any]{
		Type: "game_reset",
		Data: map[string]any{"game_id": game.Id},
	})
	BroadcastGameState(game)
}

// disconnectAware handlers get told when a player drops mid-question.
type disconnectAware interface {
	HandleDisconnect(game *internal.Game, player *internal.Player)
}

func notifyDisconnect(game *internal.Game, player *internal.Player) {
	game.Mu.RLock()
	var qt internal.QuestionType
	active := game.Phase == internal.PhaseQuestion && game.Runtime != nil
	if active {
		qt = game.Runtime.Question.Type
	}
	everyoneDone := active && game.HasEveryoneAnswered()
	game.Mu.RUnlock()

	if !active {
		return
	}

	if handler, err := Factory.Get(qt); err == nil {
		if aware, ok := handler.(disconnectAware); ok {
			aware.HandleDisconnect(game, player)
			return
		}
	}

	// A departure can leave everyone-remaining answered.
	if everyoneDone {
		log.Printf("[notifyDisconnect] game=%s: all remaining players answered, settling", game.Id)
		FinishQuestion(game)
	}
}
