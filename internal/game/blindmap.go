package game

import (
	"encoding/json"
	"log"
	"time"

	"github.com/mkadlec/kviz-backend/internal"
	"github.com/mkadlec/kviz-backend/internal/utils"
)

// =============================================================================
// QUESTION HANDLER - BLIND MAP (anagram + location phases)
// =============================================================================

// blindMapHandler runs geography questions in two phases. Phase one
// ("anagram"): the city name is scrambled and players unscramble it for a
// bonus. Phase two ("map"): the name is revealed and everyone drops a pin on
// the blind map; distance to the real coordinates decides the points. The
// map phase starts when the anagram timer expires or everyone solved it,
// whether or not anyone actually did.
type blindMapHandler struct{}

func init() {
	Factory.Register(&blindMapHandler{})
}

const (
	subPhaseAnagram = "anagram"
	subPhaseMap     = "map"

	anagramSolvePts = 50
	anagramFirstPts = 25
)

type blindMapState struct {
	anagram   string
	solvers   []internal.PlayerAnswer
	mapStart  time.Time // when the pin-drop phase opened
	locations map[string]internal.LocationAnswer
	locTimes  map[string]int64
}

func (h *blindMapHandler) Type() internal.QuestionType { return internal.QuestionBlindMap }

func (h *blindMapHandler) Begin(game *internal.Game, q *internal.Question) {
	anagram := utils.GenerateAnagram(q.City)

	game.Mu.Lock()
	game.Runtime.State = &blindMapState{
		anagram:   anagram,
		locations: make(map[string]internal.LocationAnswer),
		locTimes:  make(map[string]int64),
	}
	game.Runtime.SubPhase = subPhaseAnagram
	public := q.ToPublic()
	public.Anagram = anagram
	game.Mu.Unlock()

	log.Printf("[blindMapHandler] game=%s: anagram phase, %q -> %q",
		game.Id, q.City, anagram)

	SafeBroadcastToGame(game, internal.Message[*internal.QuestionPublic]{
		Type: "question",
		Data: public,
	})

	StartPhaseTimer(game, q.Duration(), func() {
		h.transitionToMap(game)
	})
}

func (h *blindMapHandler) HandleAnswer(player *internal.Player, raw json.RawMessage) {
	game := player.Game

	game.Mu.RLock()
	subPhase := ""
	if game.Runtime != nil {
		subPhase = game.Runtime.SubPhase
	}
	game.Mu.RUnlock()

	switch subPhase {
	case subPhaseAnagram:
		h.handleAnagram(player, raw)
	case subPhaseMap:
		h.handleLocation(player, raw)
	}
}

func (h *blindMapHandler) handleAnagram(player *internal.Player, raw json.RawMessage) {
	game := player.Game

	var answer internal.AnagramAnswer
	if err := json.Unmarshal(raw, &answer); err != nil {
		log.Printf("[blindMapHandler] game=%s: malformed anagram answer from %s: %v",
			game.Id, player.Name, err)
		return
	}

	game.Mu.Lock()
	if game.Phase != internal.PhaseQuestion || game.Runtime == nil {
		game.Mu.Unlock()
		return
	}
	state, ok := game.Runtime.State.(*blindMapState)
	if !ok || game.Runtime.SubPhase != subPhaseAnagram || player.HasAnswered {
		game.Mu.Unlock()
		return
	}

	q := game.Runtime.Question
	player.TotalAnswers++
	if utils.NormalizeAnswer(answer.Text) != utils.NormalizeAnswer(q.City) {
		game.Mu.Unlock()
		_ = player.SafeWriteJSON(internal.Message[any]{
			Type: "answer_incorrect",
			Data: map[string]any{"sub_phase": subPhaseAnagram},
		})
		return
	}

	points := anagramSolvePts
	if len(state.solvers) == 0 {
		points += anagramFirstPts
	}
	player.Score += points
	player.CorrectAnswers++
	player.HasAnswered = true
	timeTaken := Clock.Since(game.Runtime.StartedAt)
	state.solvers = append(state.solvers, internal.PlayerAnswer{
		PlayerID:   player.Id,
		Name:       player.Name,
		AnswerTime: timeTaken.Milliseconds(),
		IsCorrect:  true,
		Points:     points,
	})
	everyoneDone := game.HasEveryoneAnswered()
	game.Mu.Unlock()

	log.Printf("[blindMapHandler] game=%s: %s solved the anagram (points=%d)",
		game.Id, player.Name, points)

	SafeBroadcastToGame(game, internal.Message[any]{
		Type: "anagram_solved",
		Data: map[string]any{
			"player_id": player.Id,
			"name":      player.Name,
		},
	})

	if everyoneDone {
		CancelPhaseTimer(game)
		h.transitionToMap(game)
	}
}

// transitionToMap reveals the city and opens the pin-drop phase.
func (h *blindMapHandler) transitionToMap(game *internal.Game) {
	game.Mu.Lock()
	if game.Phase != internal.PhaseQuestion || game.Runtime == nil {
		game.Mu.Unlock()
		return
	}
	state, ok := game.Runtime.State.(*blindMapState)
	if !ok || game.Runtime.SubPhase != subPhaseAnagram {
		game.Mu.Unlock()
		return
	}
	game.Runtime.SubPhase = subPhaseMap
	state.mapStart = Clock.Now()
	q := game.Runtime.Question
	for _, p := range game.ActivePlayers() {
		p.HasAnswered = false
	}
	transition := map[string]any{
		"sub_phase": subPhaseMap,
		"city":      q.City,
		"map_scope": q.MapScope,
		"solvers":   len(state.solvers),
	}
	game.Mu.Unlock()

	log.Printf("[blindMapHandler] game=%s: map phase for %q", game.Id, q.City)

	SafeBroadcastToGame(game, internal.Message[any]{
		Type: "blind_map_phase_transition",
		Data: transition,
	})

	StartPhaseTimer(game, q.Duration(), func() {
		QuestionTimeUp(game)
	})
}

func (h *blindMapHandler) handleLocation(player *internal.Player, raw json.RawMessage) {
	game := player.Game

	var answer internal.LocationAnswer
	if err := json.Unmarshal(raw, &answer); err != nil {
		log.Printf("[blindMapHandler] game=%s: malformed location from %s: %v",
			game.Id, player.Name, err)
		return
	}

	game.Mu.Lock()
	if game.Phase != internal.PhaseQuestion || game.Runtime == nil {
		game.Mu.Unlock()
		return
	}
	state, ok := game.Runtime.State.(*blindMapState)
	if !ok || game.Runtime.SubPhase != subPhaseMap || player.HasAnswered {
		game.Mu.Unlock()
		return
	}

	state.locations[player.Id] = answer
	state.locTimes[player.Id] = Clock.Since(state.mapStart).Milliseconds()
	player.HasAnswered = true
	player.TotalAnswers++
	count := len(state.locations)
	everyoneDone := game.HasEveryoneAnswered()
	game.Mu.Unlock()

	log.Printf("[blindMapHandler] game=%s: %s dropped a pin (%d in)",
		game.Id, player.Name, count)

	SafeBroadcastToGame(game, internal.Message[any]{
		Type: "answer_received",
		Data: map[string]any{
			"player_id":      player.Id,
			"answered_count": count,
		},
	})

	if everyoneDone {
		log.Printf("[blindMapHandler] game=%s: all pins in, settling", game.Id)
		FinishQuestion(game)
	}
}

// distancePoints converts pin distance into points; the Czech map is judged
// tighter than the Europe map.
func distancePoints(km float64, scope internal.MapScope) int {
	thresholds := []struct {
		km  float64
		pts int
	}{
		{20, 200}, {50, 150}, {100, 100}, {200, 50},
	}
	if scope == internal.MapEurope {
		thresholds = []struct {
			km  float64
			pts int
		}{
			{50, 200}, {150, 150}, {300, 100}, {600, 50},
		}
	}
	for _, t := range thresholds {
		if km <= t.km {
			return t.pts
		}
	}
	return 0
}

func (h *blindMapHandler) Finish(game *internal.Game) internal.QuestionEndData {
	game.Mu.Lock()
	defer game.Mu.Unlock()

	end := internal.QuestionEndData{
		QuestionIndex: game.CurrentIndex,
		Type:          internal.QuestionBlindMap,
	}
	if game.Runtime == nil {
		return end
	}
	q := game.Runtime.Question
	end.CorrectAnswer = map[string]any{
		"city": q.City,
		"lat":  q.Lat,
		"lon":  q.Lon,
	}
	state, ok := game.Runtime.State.(*blindMapState)
	if !ok {
		return end
	}

	for id, loc := range state.locations {
		p := game.Players[id]
		if p == nil {
			continue
		}
		km := utils.HaversineKm(loc.Lat, loc.Lon, q.Lat, q.Lon)
		points := distancePoints(km, q.MapScope)
		p.Score += points
		if points > 0 {
			p.CorrectAnswers++
			end.CorrectAnswers = append(end.CorrectAnswers, internal.PlayerAnswer{
				PlayerID:   p.Id,
				Name:       p.Name,
				AnswerTime: state.locTimes[id],
				IsCorrect:  true,
				Points:     points,
			})
		}
	}
	end.TotalAnswers = len(state.locations)
	return end
}
