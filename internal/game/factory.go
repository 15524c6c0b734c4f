package game

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/mkadlec/kviz-backend/internal"
)

// =============================================================================
// QUESTION HANDLER FACTORY
// =============================================================================

// QuestionHandler is the per-question-type state machine. Handlers are
// stateless singletons; per-question state lives in game.Runtime.State so a
// handler instance can serve every game at once.
//
// Begin enters the question: it seeds Runtime.State, broadcasts the public
// question payload and starts the phase timer. HandleAnswer validates and
// applies one submission; it must ignore answers outside the question phase
// and idempotently drop re-submits. Finish is called exactly once after the
// question phase closed (time up, everyone answered, or host skip) and
// returns the settled results.
type QuestionHandler interface {
	Type() internal.QuestionType
	Begin(game *internal.Game, q *internal.Question)
	HandleAnswer(player *internal.Player, raw json.RawMessage)
	Finish(game *internal.Game) internal.QuestionEndData
}

// HandlerFactory maps question types to their handlers.
type HandlerFactory struct {
	mu       sync.RWMutex
	handlers map[internal.QuestionType]QuestionHandler
}

// Factory is the process-wide registry; handlers self-register in init.
var Factory = &HandlerFactory{
	handlers: make(map[internal.QuestionType]QuestionHandler),
}

func (f *HandlerFactory) Register(h QuestionHandler) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[h.Type()] = h
}

func (f *HandlerFactory) Get(qt internal.QuestionType) (QuestionHandler, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	h, ok := f.handlers[qt]
	if !ok {
		return nil, fmt.Errorf("no handler registered for question type %q", qt)
	}
	return h, nil
}

func (f *HandlerFactory) RegisteredTypes() []internal.QuestionType {
	f.mu.RLock()
	defer f.mu.RUnlock()
	types := make([]internal.QuestionType, 0, len(f.handlers))
	for qt := range f.handlers {
		types = append(types, qt)
	}
	return types
}
