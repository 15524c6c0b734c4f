package utils

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/mkadlec/kviz-backend/internal"
)

// ReadQuizFile parses one YAML quiz definition.
func ReadQuizFile(filePath string) (*internal.Quiz, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("unable to read quiz file %s: %w", filePath, err)
	}

	var quiz internal.Quiz
	if err := yaml.Unmarshal(data, &quiz); err != nil {
		return nil, fmt.Errorf("unable to parse quiz file %s: %w", filePath, err)
	}

	if quiz.Id == "" {
		quiz.Id = filepath.Base(filePath)
	}

	valid := make([]internal.Question, 0, len(quiz.Questions))
	for _, q := range quiz.Questions {
		if err := ValidateQuestion(&q); err != nil {
			log.Printf("[ReadQuizFile] %s: skipping question %q: %v", filePath, q.Id, err)
			continue
		}
		valid = append(valid, q)
	}
	quiz.Questions = valid

	return &quiz, nil
}

// LoadQuizDir loads every *.yaml/*.yml quiz under dir. Missing dir is not an
// error; the server can run purely off the database.
func LoadQuizDir(dir string) []internal.Quiz {
	entries, err := os.ReadDir(dir)
	if err != nil {
		log.Printf("[LoadQuizDir] no quiz directory at %s: %v", dir, err)
		return nil
	}

	var quizzes []internal.Quiz
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		quiz, err := ReadQuizFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			log.Printf("[LoadQuizDir] skipping %s: %v", entry.Name(), err)
			continue
		}
		quizzes = append(quizzes, *quiz)
	}

	log.Printf("[LoadQuizDir] loaded %d quizzes from %s", len(quizzes), dir)
	return quizzes
}

// ValidateQuestion checks that the payload carries what its type needs.
func ValidateQuestion(q *internal.Question) error {
	switch q.Type {
	case internal.QuestionABCD:
		if len(q.Options) < 2 {
			return fmt.Errorf("abcd question needs at least 2 options, got %d", len(q.Options))
		}
		if q.CorrectOption < 0 || q.CorrectOption >= len(q.Options) {
			return fmt.Errorf("correct_option %d out of range", q.CorrectOption)
		}
	case internal.QuestionTrueFalse:
		if q.CorrectOption < 0 || q.CorrectOption > 1 {
			return fmt.Errorf("true_false correct_option must be 0 or 1")
		}
	case internal.QuestionOpenAnswer:
		if q.Answer == "" {
			return fmt.Errorf("open_answer question needs an answer")
		}
	case internal.QuestionGuessNumber:
		// zero is a legal answer, nothing to check
	case internal.QuestionMathQuiz:
		if len(q.Equations) == 0 {
			return fmt.Errorf("math_quiz question needs equations")
		}
	case internal.QuestionBlindMap:
		if q.City == "" {
			return fmt.Errorf("blind_map question needs a city")
		}
		if q.MapScope != internal.MapCzech && q.MapScope != internal.MapEurope {
			return fmt.Errorf("blind_map question needs map_scope cz or eu")
		}
	case internal.QuestionWordChain:
		if q.FirstWord == "" {
			return fmt.Errorf("word_chain question needs a first_word")
		}
	case internal.QuestionDrawing:
		if q.DrawWord == "" {
			return fmt.Errorf("drawing question needs a draw_word")
		}
	default:
		return fmt.Errorf("unknown question type %q", q.Type)
	}
	return nil
}
