package game

import (
	"encoding/json"
	"log"
	"math"
	"slices"
	"time"

	"github.com/mkadlec/kviz-backend/internal"
	"github.com/mkadlec/kviz-backend/internal/utils"
)

// =============================================================================
// QUESTION HANDLER - GUESS A NUMBER (two-phase team voting)
// =============================================================================

// numberHandler runs estimation questions in two phases. Phase one
// ("guessing"): every player submits a number and team averages are computed.
// Phase two ("voting", team mode only): the showing team's average goes on
// the host screen and the other team votes whether the true answer is more
// or less. Without two populated teams the voting phase is skipped and
// scoring falls back to closest-individual.
type numberHandler struct{}

func init() {
	Factory.Register(&numberHandler{})
}

const (
	subPhaseGuessing = "guessing"
	subPhaseVoting   = "voting"

	votingPhaseDuration = 15 * time.Second

	voteMore = "more"
	voteLess = "less"
)

type numberState struct {
	guesses    map[string]float64 // playerID -> guess
	guessTimes map[string]time.Duration
	averages   map[internal.TeamColor]float64
	shownTeam  internal.TeamColor
	votingTeam internal.TeamColor
	votes      map[string]string // playerID -> more/less
	teamPlay   bool
}

func (h *numberHandler) Type() internal.QuestionType { return internal.QuestionGuessNumber }

func (h *numberHandler) Begin(game *internal.Game, q *internal.Question) {
	game.Mu.Lock()
	teamPlay := game.TeamMode &&
		len(game.TeamPlayers(internal.TeamBlue)) > 0 &&
		len(game.TeamPlayers(internal.TeamRed)) > 0
	game.Runtime.State = &numberState{
		guesses:    make(map[string]float64),
		guessTimes: make(map[string]time.Duration),
		votes:      make(map[string]string),
		teamPlay:   teamPlay,
	}
	game.Runtime.SubPhase = subPhaseGuessing
	public := q.ToPublic()
	game.Mu.Unlock()

	SafeBroadcastToGame(game, internal.Message[*internal.QuestionPublic]{
		Type: "question",
		Data: public,
	})

	StartPhaseTimer(game, q.Duration(), func() {
		h.closeGuessing(game)
	})
}

func (h *numberHandler) HandleAnswer(player *internal.Player, raw json.RawMessage) {
	game := player.Game

	game.Mu.RLock()
	subPhase := ""
	if game.Runtime != nil {
		subPhase = game.Runtime.SubPhase
	}
	game.Mu.RUnlock()

	switch subPhase {
	case subPhaseGuessing:
		h.handleGuess(player, raw)
	case subPhaseVoting:
		h.handleVote(player, raw)
	}
}

func (h *numberHandler) handleGuess(player *internal.Player, raw json.RawMessage) {
	game := player.Game

	var answer internal.NumberAnswer
	if err := json.Unmarshal(raw, &answer); err != nil {
		log.Printf("[numberHandler] game=%s: malformed guess from %s: %v",
			game.Id, player.Name, err)
		return
	}

	game.Mu.Lock()
	if game.Phase != internal.PhaseQuestion || game.Runtime == nil {
		game.Mu.Unlock()
		return
	}
	state, ok := game.Runtime.State.(*numberState)
	if !ok || game.Runtime.SubPhase != subPhaseGuessing || player.HasAnswered {
		game.Mu.Unlock()
		return
	}

	state.guesses[player.Id] = answer.Value
	state.guessTimes[player.Id] = Clock.Since(game.Runtime.StartedAt)
	player.HasAnswered = true
	player.LastAnswerTime = Clock.Now()
	player.TotalAnswers++
	everyoneDone := game.HasEveryoneAnswered()
	count := len(state.guesses)
	game.Mu.Unlock()

	log.Printf("[numberHandler] game=%s: %s guessed %v (%d in)",
		game.Id, player.Name, answer.Value, count)

	SafeBroadcastToGame(game, internal.Message[any]{
		Type: "answer_received",
		Data: map[string]any{
			"player_id":      player.Id,
			"answered_count": count,
		},
	})

	if everyoneDone {
		CancelPhaseTimer(game)
		h.closeGuessing(game)
	}
}

// closeGuessing settles phase one: either transitions into team voting or
// finishes the question outright.
func (h *numberHandler) closeGuessing(game *internal.Game) {
	game.Mu.Lock()
	if game.Phase != internal.PhaseQuestion || game.Runtime == nil {
		game.Mu.Unlock()
		return
	}
	state, ok := game.Runtime.State.(*numberState)
	if !ok || game.Runtime.SubPhase != subPhaseGuessing {
		game.Mu.Unlock()
		return
	}

	if !state.teamPlay {
		game.Mu.Unlock()
		FinishQuestion(game)
		return
	}

	// Team averages from phase one.
	state.averages = make(map[internal.TeamColor]float64)
	for _, team := range []internal.TeamColor{internal.TeamBlue, internal.TeamRed} {
		values := make([]float64, 0)
		for _, p := range game.TeamPlayers(team) {
			if guess, ok := state.guesses[p.Id]; ok {
				values = append(values, guess)
			}
		}
		state.averages[team] = utils.TeamAverage(values)
	}

	// Teams alternate roles question by question so neither side always
	// votes.
	if game.CurrentIndex%2 == 0 {
		state.shownTeam, state.votingTeam = internal.TeamBlue, internal.TeamRed
	} else {
		state.shownTeam, state.votingTeam = internal.TeamRed, internal.TeamBlue
	}
	game.Runtime.SubPhase = subPhaseVoting

	// Voting team answers again in phase two.
	for _, p := range game.TeamPlayers(state.votingTeam) {
		p.HasAnswered = false
	}

	transition := map[string]any{
		"sub_phase":     subPhaseVoting,
		"shown_team":    state.shownTeam,
		"shown_average": state.averages[state.shownTeam],
		"voting_team":   state.votingTeam,
	}
	game.Mu.Unlock()

	log.Printf("[numberHandler] game=%s: voting phase, %s average shown, %s votes",
		game.Id, transition["shown_team"], transition["voting_team"])

	SafeBroadcastToGame(game, internal.Message[any]{
		Type: "number_vote_phase",
		Data: transition,
	})

	StartPhaseTimer(game, votingPhaseDuration, func() {
		QuestionTimeUp(game)
	})
}

func (h *numberHandler) handleVote(player *internal.Player, raw json.RawMessage) {
	game := player.Game

	var vote internal.NumberVote
	if err := json.Unmarshal(raw, &vote); err != nil {
		log.Printf("[numberHandler] game=%s: malformed vote from %s: %v",
			game.Id, player.Name, err)
		return
	}
	if vote.Vote != voteMore && vote.Vote != voteLess {
		log.Printf("[numberHandler] game=%s: %s sent invalid vote %q",
			game.Id, player.Name, vote.Vote)
		return
	}

	game.Mu.Lock()
	if game.Phase != internal.PhaseQuestion || game.Runtime == nil {
		game.Mu.Unlock()
		return
	}
	state, ok := game.Runtime.State.(*numberState)
	if !ok || game.Runtime.SubPhase != subPhaseVoting {
		game.Mu.Unlock()
		return
	}
	if player.Team != state.votingTeam || player.HasAnswered {
		game.Mu.Unlock()
		return
	}

	state.votes[player.Id] = vote.Vote
	player.HasAnswered = true
	player.TotalAnswers++

	allVoted := true
	for _, p := range game.TeamPlayers(state.votingTeam) {
		if !p.HasAnswered {
			allVoted = false
			break
		}
	}
	game.Mu.Unlock()

	log.Printf("[numberHandler] game=%s: %s voted %s", game.Id, player.Name, vote.Vote)

	if allVoted {
		log.Printf("[numberHandler] game=%s: whole team voted, settling", game.Id)
		FinishQuestion(game)
	}
}

// averagePoints maps the shown team's relative error onto a point award.
func averagePoints(average, answer float64) int {
	scale := math.Max(math.Abs(answer), 1)
	errPct := math.Abs(average-answer) / scale
	switch {
	case errPct <= 0.05:
		return 200
	case errPct <= 0.15:
		return 150
	case errPct <= 0.30:
		return 100
	case errPct <= 0.50:
		return 50
	default:
		return 0
	}
}

func (h *numberHandler) Finish(game *internal.Game) internal.QuestionEndData {
	game.Mu.Lock()
	defer game.Mu.Unlock()

	if game.Runtime == nil {
		return internal.QuestionEndData{QuestionIndex: game.CurrentIndex, Type: internal.QuestionGuessNumber}
	}
	q := game.Runtime.Question
	end := internal.QuestionEndData{
		QuestionIndex: game.CurrentIndex,
		Type:          internal.QuestionGuessNumber,
		CorrectAnswer: q.NumberAnswer,
	}
	state, ok := game.Runtime.State.(*numberState)
	if !ok {
		return end
	}
	end.TotalAnswers = len(state.guesses) + len(state.votes)

	if state.teamPlay && state.averages != nil {
		// Shown team scores on the accuracy of its average.
		points := averagePoints(state.averages[state.shownTeam], q.NumberAnswer)
		for _, p := range game.TeamPlayers(state.shownTeam) {
			p.Score += points
		}

		// Voters score when their more/less call is right. An exact match
		// counts both ways.
		correctVote := voteLess
		if q.NumberAnswer > state.averages[state.shownTeam] {
			correctVote = voteMore
		}
		exact := q.NumberAnswer == state.averages[state.shownTeam]
		for _, p := range game.TeamPlayers(state.votingTeam) {
			if v, ok := state.votes[p.Id]; ok && (exact || v == correctVote) {
				p.Score += 100
				p.CorrectAnswers++
				end.CorrectAnswers = append(end.CorrectAnswers, internal.PlayerAnswer{
					PlayerID:  p.Id,
					Name:      p.Name,
					IsCorrect: true,
					Points:    100,
				})
			}
		}
		return end
	}

	// Free-for-all: closest three guesses score.
	type rankedGuess struct {
		player *internal.Player
		diff   float64
	}
	ranked := make([]rankedGuess, 0, len(state.guesses))
	for id, guess := range state.guesses {
		if p := game.Players[id]; p != nil {
			ranked = append(ranked, rankedGuess{player: p, diff: math.Abs(guess - q.NumberAnswer)})
		}
	}
	slices.SortFunc(ranked, func(a, b rankedGuess) int {
		switch {
		case a.diff < b.diff:
			return -1
		case a.diff > b.diff:
			return 1
		default:
			return 0
		}
	})
	awards := []int{200, 100, 50}
	for i, rg := range ranked {
		if i >= len(awards) {
			break
		}
		rg.player.Score += awards[i]
		rg.player.CorrectAnswers++
		end.CorrectAnswers = append(end.CorrectAnswers, internal.PlayerAnswer{
			PlayerID:   rg.player.Id,
			Name:       rg.player.Name,
			AnswerTime: state.guessTimes[rg.player.Id].Milliseconds(),
			IsCorrect:  true,
			Points:     awards[i],
		})
	}
	return end
}
