package game

import (
	"context"
	"log"
	"time"

	"github.com/mkadlec/kviz-backend/internal"
)

// =============================================================================
// TIMER MANAGEMENT
// =============================================================================

// StartPhaseTimer replaces any running phase timer with a new one. The timer
// goroutine ticks out timer_update every second and runs onExpire exactly
// once on natural expiry; cancellation (early completion, reset) suppresses
// the callback. All time arithmetic goes through Clock so tests can drive a
// fake clock.
func StartPhaseTimer(game *internal.Game, duration time.Duration, onExpire func()) {
	CancelPhaseTimer(game)

	game.Mu.Lock()
	parent := game.Context
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	game.Timer = &internal.GameTimer{
		StartTime: Clock.Now(),
		Duration:  duration,
		IsActive:  true,
		Context:   ctx,
		Cancel:    cancel,
	}
	game.Mu.Unlock()

	log.Printf("[StartPhaseTimer] game=%s: timer started for %v", game.Id, duration)

	go func() {
		ticker := Clock.NewTicker(1 * time.Second)
		defer ticker.Stop()
		expiry := Clock.After(duration)

		for {
			select {
			case <-ticker.Chan():
				BroadcastTimerUpdate(game)

			case <-expiry:
				game.Mu.Lock()
				active := game.Timer != nil && game.Timer.Context == ctx
				if active {
					game.Timer.IsActive = false
				}
				game.Mu.Unlock()

				if active {
					log.Printf("[StartPhaseTimer] game=%s: timer expired after %v", game.Id, duration)
					// Separate goroutine so the timer goroutine exits cleanly.
					go onExpire()
				}
				return

			case <-ctx.Done():
				log.Printf("[StartPhaseTimer] game=%s: timer cancelled before expiry", game.Id)
				return
			}
		}
	}()
}

// BroadcastTimerUpdate sends current countdown state to all players.
func BroadcastTimerUpdate(game *internal.Game) {
	if game == nil {
		return
	}

	game.Mu.Lock()
	if game.Timer == nil || !game.Timer.IsActive {
		game.Mu.Unlock()
		return
	}

	remaining := game.Timer.Duration - Clock.Since(game.Timer.StartTime)
	if remaining < 0 {
		remaining = 0
	}
	game.Timer.TimeRemaining = remaining

	timerUpdateData := internal.TimerUpdateData{
		TimeRemaining: remaining.Milliseconds(),
		Phase:         game.Phase,
		IsActive:      true,
	}
	game.Mu.Unlock()

	SafeBroadcastToGame(game, internal.Message[internal.TimerUpdateData]{
		Type: "timer_update",
		Data: timerUpdateData,
	})
}

// CancelPhaseTimer stops the current phase timer, if any.
func CancelPhaseTimer(game *internal.Game) {
	if game == nil {
		return
	}

	game.Mu.Lock()
	if game.Timer == nil || !game.Timer.IsActive {
		game.Mu.Unlock()
		return
	}

	if game.Timer.Cancel != nil {
		game.Timer.Cancel()
	}
	game.Timer.IsActive = false
	game.Timer.TimeRemaining = 0

	timerUpdateData := internal.TimerUpdateData{
		TimeRemaining: 0,
		Phase:         game.Phase,
		IsActive:      false,
	}
	game.Mu.Unlock()

	log.Printf("[CancelPhaseTimer] game=%s: timer cancelled", game.Id)

	SafeBroadcastToGame(game, internal.Message[internal.TimerUpdateData]{
		Type: "timer_update",
		Data: timerUpdateData,
	})
}
