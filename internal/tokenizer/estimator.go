// Package tokenizer provides local token estimation, offline counting, and budget governance.
package tokenizer

import "regexp"

var wordPattern = regexp.MustCompile(`\w+`)

// EstimateTokens estimates the token count of a text string.
// Uses the rule of thumb: ~4 characters per token.
func EstimateTokens(text string) int {
	if len(text) == 0 {
		return 0
	}
	return (len(text) + 3) / 4
}

// WordCount counts \w+ runs, matching how the backend counts words.
func WordCount(text string) int {
	return len(wordPattern.FindAllStringIndex(text, -1))
}

// CharCount returns the number of runes in text.
func CharCount(text string) int {
	return len([]rune(text))
}
