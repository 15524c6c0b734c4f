package game

import (
	"slices"
	"testing"

	"github.com/mkadlec/kviz-backend/internal"
)

func TestFactoryHasAllQuestionTypes(t *testing.T) {
	want := []internal.QuestionType{
		internal.QuestionABCD,
		internal.QuestionTrueFalse,
		internal.QuestionOpenAnswer,
		internal.QuestionGuessNumber,
		internal.QuestionMathQuiz,
		internal.QuestionBlindMap,
		internal.QuestionWordChain,
		internal.QuestionDrawing,
	}

	registered := Factory.RegisteredTypes()
	for _, qt := range want {
		if !slices.Contains(registered, qt) {
			t.Errorf("no handler registered for %s", qt)
		}
	}

	for _, qt := range want {
		h, err := Factory.Get(qt)
		if err != nil {
			t.Fatalf("Get(%s): %v", qt, err)
		}
		if h.Type() != qt {
			t.Errorf("handler for %s reports type %s", qt, h.Type())
		}
	}
}

func TestFactoryUnknownType(t *testing.T) {
	if _, err := Factory.Get("karaoke"); err == nil {
		t.Error("unknown type must return an error")
	}
}
