package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mkadlec/kviz-backend/internal"
)

const sampleQuiz = `
id: vlastiveda
name: Vlastivěda
questions:
  - id: q1
    type: abcd
    text: Hlavní město ČR?
    options: [Brno, Praha, Ostrava]
    correct_option: 1
  - id: q2
    type: open_answer
    text: Nejvyšší hora?
    answer: Sněžka
    time_limit: 20
  - id: q3
    type: abcd
    text: Rozbitá otázka bez možností
`

func TestReadQuizFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vlastiveda.yaml")
	if err := os.WriteFile(path, []byte(sampleQuiz), 0o644); err != nil {
		t.Fatal(err)
	}

	quiz, err := ReadQuizFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if quiz.Id != "vlastiveda" || quiz.Name != "Vlastivěda" {
		t.Errorf("quiz header = %q/%q", quiz.Id, quiz.Name)
	}
	// The broken third question is dropped, not fatal.
	if len(quiz.Questions) != 2 {
		t.Fatalf("questions = %d, want 2", len(quiz.Questions))
	}
	if quiz.Questions[0].CorrectOption != 1 {
		t.Errorf("correct_option = %d", quiz.Questions[0].CorrectOption)
	}
	if quiz.Questions[1].TimeLimit != 20 {
		t.Errorf("time_limit = %d", quiz.Questions[1].TimeLimit)
	}
}

func TestLoadQuizDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.yaml"), []byte(sampleQuiz), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignore me"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "broken.yaml"), []byte("{ unclosed"), 0o644); err != nil {
		t.Fatal(err)
	}

	quizzes := LoadQuizDir(dir)
	if len(quizzes) != 1 {
		t.Fatalf("quizzes = %d, want 1", len(quizzes))
	}

	if got := LoadQuizDir(filepath.Join(dir, "missing")); got != nil {
		t.Errorf("missing dir = %v, want nil", got)
	}
}

func TestValidateQuestion(t *testing.T) {
	tests := []struct {
		name    string
		q       internal.Question
		wantErr bool
	}{
		{
			name: "valid abcd",
			q: internal.Question{Type: internal.QuestionABCD,
				Options: []string{"a", "b"}, CorrectOption: 1},
		},
		{
			name:    "abcd out of range",
			q:       internal.Question{Type: internal.QuestionABCD, Options: []string{"a", "b"}, CorrectOption: 5},
			wantErr: true,
		},
		{
			name:    "open answer without answer",
			q:       internal.Question{Type: internal.QuestionOpenAnswer},
			wantErr: true,
		},
		{
			name: "guess number zero is legal",
			q:    internal.Question{Type: internal.QuestionGuessNumber},
		},
		{
			name:    "blind map needs scope",
			q:       internal.Question{Type: internal.QuestionBlindMap, City: "Praha"},
			wantErr: true,
		},
		{
			name: "blind map valid",
			q: internal.Question{Type: internal.QuestionBlindMap,
				City: "Praha", MapScope: internal.MapCzech},
		},
		{
			name:    "word chain needs first word",
			q:       internal.Question{Type: internal.QuestionWordChain},
			wantErr: true,
		},
		{
			name:    "unknown type",
			q:       internal.Question{Type: "karaoke"},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateQuestion(&tt.q)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateQuestion() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
