// Package chunker simulates sliding-window chunking over whitespace-delimited words.
package chunker

import (
	"errors"
	"strings"
)

// Defaults used by the CLI and the chunk endpoint when no values are given.
const (
	DefaultSize    = 200
	DefaultOverlap = 20
)

var (
	// ErrInvalidSize is returned when size is not positive.
	ErrInvalidSize = errors.New("chunk size must be positive")
	// ErrInvalidOverlap is returned when overlap is negative.
	ErrInvalidOverlap = errors.New("overlap cannot be negative")
)

// Step returns the window stride. It is never below 1, so overlap >= size
// degrades to a one-word stride instead of looping forever.
func Step(size, overlap int) int {
	step := size - overlap
	if step < 1 {
		return 1
	}
	return step
}

// Split cuts text into windows of up to size words, each starting step words
// after the previous one. Empty text yields no chunks.
func Split(text string, size, overlap int) ([]string, error) {
	if size <= 0 {
		return nil, ErrInvalidSize
	}
	if overlap < 0 {
		return nil, ErrInvalidOverlap
	}
	words := strings.Fields(text)
	step := Step(size, overlap)

	chunks := make([]string, 0, Count(len(words), size, overlap))
	for i := 0; i < len(words); i += step {
		end := i + size
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, strings.Join(words[i:end], " "))
	}
	return chunks, nil
}

// Count returns how many windows Split produces for n words: ceil(n/step).
func Count(n, size, overlap int) int {
	if n <= 0 || size <= 0 || overlap < 0 {
		return 0
	}
	step := Step(size, overlap)
	return (n + step - 1) / step
}
