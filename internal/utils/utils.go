package utils

import (
	"crypto/rand"
	"encoding/hex"
	"math"
	mrand "math/rand"
	"strings"
	"time"
)

// =============================================================================
// UTILITY FUNCTIONS
// =============================================================================

// Progressive reveal tuning. Letters start appearing after a fifth of the
// question time and the last hint lands at 85%; at most two thirds of the
// letters are ever given away.
const (
	RevealStartFraction = 0.20
	RevealEndFraction   = 0.85
	MaxRevealRatio      = 2.0 / 3.0
)

// CreateInitialMask converts an answer to underscores, preserving spaces so
// the host screen shows word boundaries. "New York" -> "_ _ _   _ _ _ _".
func CreateInitialMask(answer string) string {
	if answer == "" {
		return ""
	}
	runes := []rune(answer)
	masked := make([]string, 0, len(runes))
	for _, r := range runes {
		if r == ' ' {
			masked = append(masked, " ")
		} else {
			masked = append(masked, "_")
		}
	}
	return strings.Join(masked, " ")
}

// RevealableLetterCount counts positions the reveal schedule may uncover
// (everything except spaces).
func RevealableLetterCount(answer string) int {
	count := 0
	for _, r := range answer {
		if r != ' ' {
			count++
		}
	}
	return count
}

// ShouldRevealLetter decides whether the reveal slot at index (0-based, over
// the revealable letters) is uncovered at the given elapsed fraction of the
// question time. Slots open evenly between RevealStartFraction and
// RevealEndFraction, and slots beyond MaxRevealRatio never open.
func ShouldRevealLetter(elapsed, limit time.Duration, index, revealable int) bool {
	if limit <= 0 || revealable <= 0 || index < 0 {
		return false
	}
	maxToReveal := int(math.Floor(float64(revealable) * MaxRevealRatio))
	if index >= maxToReveal {
		return false
	}
	fraction := elapsed.Seconds() / limit.Seconds()
	threshold := RevealStartFraction +
		(RevealEndFraction-RevealStartFraction)*float64(index+1)/float64(maxToReveal)
	return fraction >= threshold
}

// ApplyRevealMask rebuilds the masked answer with the first revealed slots
// uncovered, in reveal-schedule order (left to right, skipping spaces).
func ApplyRevealMask(answer string, revealed int) string {
	if answer == "" {
		return ""
	}
	runes := []rune(answer)
	out := make([]string, 0, len(runes))
	slot := 0
	for _, r := range runes {
		if r == ' ' {
			out = append(out, " ")
			continue
		}
		if slot < revealed {
			out = append(out, string(r))
		} else {
			out = append(out, "_")
		}
		slot++
	}
	return strings.Join(out, " ")
}

// NormalizeAnswer lowercases, trims and collapses interior whitespace so
// "  New  york " matches "new york".
func NormalizeAnswer(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// TeamAverage returns the mean of submitted guesses; 0 with no guesses.
func TeamAverage(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// HaversineKm is the great-circle distance between two coordinates, used to
// score blind-map guesses.
func HaversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	const earthRadiusKm = 6371.0
	toRad := func(deg float64) float64 { return deg * math.Pi / 180 }

	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(a))
}

// GenerateID returns a hex id of n bytes entropy (2n characters).
func GenerateID(n int) string {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		// crypto/rand only fails when the OS entropy source is broken
		return strings.Repeat("0", n*2)
	}
	return hex.EncodeToString(b)
}

const gameCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// GenerateGameCode returns a short join code typed on phones, ambiguous
// characters excluded.
func GenerateGameCode(length int) string {
	b := make([]byte, length)
	for i := range b {
		b[i] = gameCodeAlphabet[mrand.Intn(len(gameCodeAlphabet))]
	}
	return string(b)
}
