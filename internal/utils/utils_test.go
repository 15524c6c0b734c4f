package utils

import (
	"math"
	"strings"
	"testing"
	"time"
)

func TestCreateInitialMask(t *testing.T) {
	tests := []struct {
		name   string
		answer string
		want   string
	}{
		{name: "single word", answer: "Praha", want: "_ _ _ _ _"},
		{name: "two words keep the gap", answer: "New York", want: "_ _ _   _ _ _ _"},
		{name: "empty", answer: "", want: ""},
		{name: "diacritics count as letters", answer: "Plzeň", want: "_ _ _ _ _"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CreateInitialMask(tt.answer); got != tt.want {
				t.Errorf("CreateInitialMask(%q) = %q, want %q", tt.answer, got, tt.want)
			}
		})
	}
}

func TestRevealableLetterCount(t *testing.T) {
	if got := RevealableLetterCount("New York"); got != 7 {
		t.Errorf("RevealableLetterCount(\"New York\") = %d, want 7", got)
	}
	if got := RevealableLetterCount(""); got != 0 {
		t.Errorf("RevealableLetterCount(\"\") = %d, want 0", got)
	}
}

func TestShouldRevealLetter(t *testing.T) {
	// 6 revealable letters, 30s limit: at most 4 slots ever open, evenly
	// between 20% and 85% of the time.
	const revealable = 6
	limit := 30 * time.Second

	tests := []struct {
		name    string
		elapsed time.Duration
		index   int
		want    bool
	}{
		{name: "nothing at start", elapsed: 0, index: 0, want: false},
		{name: "first slot still closed at a third", elapsed: 10 * time.Second, index: 0, want: false},
		{name: "first slot open past its threshold", elapsed: 11 * time.Second, index: 0, want: true},
		{name: "second slot not yet", elapsed: 11 * time.Second, index: 1, want: false},
		{name: "all four slots at full time", elapsed: 30 * time.Second, index: 3, want: true},
		{name: "slot beyond the cap never opens", elapsed: 30 * time.Second, index: 4, want: false},
		{name: "negative index", elapsed: 30 * time.Second, index: -1, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ShouldRevealLetter(tt.elapsed, limit, tt.index, revealable)
			if got != tt.want {
				t.Errorf("ShouldRevealLetter(%v, %v, %d, %d) = %v, want %v",
					tt.elapsed, limit, tt.index, revealable, got, tt.want)
			}
		})
	}

	if ShouldRevealLetter(time.Second, 0, 0, revealable) {
		t.Error("zero limit must never reveal")
	}
}

func TestApplyRevealMask(t *testing.T) {
	tests := []struct {
		answer   string
		revealed int
		want     string
	}{
		{answer: "praha", revealed: 0, want: "_ _ _ _ _"},
		{answer: "praha", revealed: 2, want: "p r _ _ _"},
		{answer: "new york", revealed: 4, want: "n e w   y _ _ _"},
		{answer: "praha", revealed: 99, want: "p r a h a"},
	}
	for _, tt := range tests {
		if got := ApplyRevealMask(tt.answer, tt.revealed); got != tt.want {
			t.Errorf("ApplyRevealMask(%q, %d) = %q, want %q",
				tt.answer, tt.revealed, got, tt.want)
		}
	}
}

func TestNormalizeAnswer(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "  New  york ", want: "new york"},
		{in: "PRAHA", want: "praha"},
		{in: "\tKutná\n Hora ", want: "kutná hora"},
		{in: "", want: ""},
	}
	for _, tt := range tests {
		if got := NormalizeAnswer(tt.in); got != tt.want {
			t.Errorf("NormalizeAnswer(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTeamAverage(t *testing.T) {
	if got := TeamAverage(nil); got != 0 {
		t.Errorf("TeamAverage(nil) = %v, want 0", got)
	}
	if got := TeamAverage([]float64{2, 4}); got != 3 {
		t.Errorf("TeamAverage({2,4}) = %v, want 3", got)
	}
}

func TestHaversineKm(t *testing.T) {
	// Prague -> Brno is roughly 185 km as the crow flies.
	got := HaversineKm(50.0755, 14.4378, 49.1951, 16.6068)
	if math.Abs(got-185) > 10 {
		t.Errorf("Prague->Brno = %.1f km, want ~185", got)
	}

	if got := HaversineKm(50, 14, 50, 14); got != 0 {
		t.Errorf("identical points = %v, want 0", got)
	}
}

func TestGenerateGameCode(t *testing.T) {
	code := GenerateGameCode(4)
	if len(code) != 4 {
		t.Fatalf("GenerateGameCode(4) = %q, want 4 characters", code)
	}
	for _, c := range code {
		if !strings.ContainsRune(gameCodeAlphabet, c) {
			t.Errorf("code %q contains %q outside the alphabet", code, c)
		}
	}
}

func TestGenerateID(t *testing.T) {
	id := GenerateID(16)
	if len(id) != 32 {
		t.Errorf("GenerateID(16) = %q, want 32 hex characters", id)
	}
	if id == GenerateID(16) {
		t.Error("two generated ids collided")
	}
}
