// Package similarity scores how alike two sentences are.
package similarity

import (
	"math"
	"strings"
)

// DefaultThreshold is the score at or above which sentences count as similar.
const DefaultThreshold = 0.7

// Method names the scoring algorithm in API responses.
const Method = "simulated (word overlap)"

// Jaccard returns |A∩B| / |A∪B| over the lowercase whitespace-separated
// words of a and b, rounded to 4 decimal places. Either side having no
// words scores 0.
func Jaccard(a, b string) float64 {
	wa := words(a)
	wb := words(b)
	if len(wa) == 0 || len(wb) == 0 {
		return 0
	}

	inter := 0
	for w := range wa {
		if wb[w] {
			inter++
		}
	}
	union := len(wa) + len(wb) - inter
	return Round4(float64(inter) / float64(union))
}

// Round4 rounds to 4 decimal places, ties to even.
func Round4(v float64) float64 {
	return math.RoundToEven(v*1e4) / 1e4
}

func words(s string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(s)) {
		set[w] = true
	}
	return set
}
