package utils

import (
	mrand "math/rand"
	"strings"
	"unicode"
)

// =============================================================================
// ANAGRAM HELPERS (blind map, phase one)
// =============================================================================

// letterCounts builds a case-insensitive rune frequency table, ignoring
// spaces. Diacritics are kept as-is: "Plzeň" must be solved with the ň.
func letterCounts(s string) map[rune]int {
	counts := make(map[rune]int)
	for _, r := range strings.ToLower(s) {
		if unicode.IsSpace(r) {
			continue
		}
		counts[r]++
	}
	return counts
}

// IsValidAnagram reports whether candidate uses exactly the letters of
// original, ignoring case and spacing.
func IsValidAnagram(original, candidate string) bool {
	oc := letterCounts(original)
	cc := letterCounts(candidate)
	if len(oc) != len(cc) {
		return false
	}
	for r, n := range oc {
		if cc[r] != n {
			return false
		}
	}
	return true
}

// GenerateAnagram shuffles the letters of word with Fisher-Yates, preserving
// space positions. Retries a few times so short words don't come back
// unshuffled; a word of repeated letters may still return itself.
func GenerateAnagram(word string) string {
	runes := []rune(word)

	letters := make([]rune, 0, len(runes))
	for _, r := range runes {
		if !unicode.IsSpace(r) {
			letters = append(letters, r)
		}
	}
	if len(letters) < 2 {
		return word
	}

	shuffled := make([]rune, len(letters))
	for attempt := 0; attempt < 10; attempt++ {
		copy(shuffled, letters)
		for i := len(shuffled) - 1; i > 0; i-- {
			j := mrand.Intn(i + 1)
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		}
		if string(shuffled) != string(letters) {
			break
		}
	}

	out := make([]rune, 0, len(runes))
	next := 0
	for _, r := range runes {
		if unicode.IsSpace(r) {
			out = append(out, r)
			continue
		}
		out = append(out, shuffled[next])
		next++
	}
	return strings.ToUpper(string(out))
}
