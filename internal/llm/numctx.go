package llm

import (
	"math"
	"unicode/utf8"
)

const (
	charactersPerToken  = 3.5
	answerReserveTokens = 1024
)

// contextWindow sizes num_ctx from the prompt length when dynamic sizing is
// enabled: estimated prompt tokens plus an answer reserve, rounded up to a
// power of two and capped at the configured maximum.
func contextWindow(configured int, dynamic bool, system string, user string) int {
	if !dynamic || configured <= 0 {
		return configured
	}
	characters := utf8.RuneCountInString(system) + utf8.RuneCountInString(user)
	estimated := int(math.Ceil(float64(characters)/charactersPerToken)) + answerReserveTokens
	rounded := roundUpToPowerOfTwo(estimated)
	if rounded < configured {
		return rounded
	}
	return configured
}

func roundUpToPowerOfTwo(n int) int {
	power := 1
	for power < n {
		power <<= 1
	}
	return power
}
