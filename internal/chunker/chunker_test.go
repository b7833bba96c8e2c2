package chunker

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func words(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf("w%d", i)
	}
	return strings.Join(parts, " ")
}

func TestSplit_Basic(t *testing.T) {
	chunks, err := Split("a b c d e f g", 3, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"a b c", "c d e", "e f g", "g"}, chunks)
}

func TestSplit_NoOverlap(t *testing.T) {
	chunks, err := Split("a  b\nc\td", 2, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"a b", "c d"}, chunks)
}

func TestSplit_OverlapNotBelowSize(t *testing.T) {
	// step clamps to 1: one window per word.
	chunks, err := Split("a b c", 2, 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"a b", "b c", "c"}, chunks)

	chunks, err = Split("a b c", 2, 2)
	require.NoError(t, err)
	assert.Len(t, chunks, 3)
}

func TestSplit_Empty(t *testing.T) {
	chunks, err := Split("   \n ", 10, 2)
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestSplit_InvalidArgs(t *testing.T) {
	_, err := Split("a b", 0, 0)
	assert.ErrorIs(t, err, ErrInvalidSize)
	_, err = Split("a b", -3, 0)
	assert.ErrorIs(t, err, ErrInvalidSize)
	_, err = Split("a b", 3, -1)
	assert.ErrorIs(t, err, ErrInvalidOverlap)
}

func TestSplit_CoversAllWords(t *testing.T) {
	for _, tc := range []struct{ n, size, overlap int }{
		{1, 1, 0}, {10, 3, 1}, {450, 200, 20}, {7, 7, 0}, {9, 4, 3},
	} {
		text := words(tc.n)
		chunks, err := Split(text, tc.size, tc.overlap)
		require.NoError(t, err)

		assert.Len(t, chunks, Count(tc.n, tc.size, tc.overlap), "n=%d size=%d overlap=%d", tc.n, tc.size, tc.overlap)
		assert.True(t, strings.HasPrefix(chunks[0], "w0"))
		assert.True(t, strings.HasSuffix(chunks[len(chunks)-1], fmt.Sprintf("w%d", tc.n-1)))
		for _, c := range chunks {
			assert.LessOrEqual(t, len(strings.Fields(c)), tc.size)
		}
	}
}

func TestCount(t *testing.T) {
	assert.Equal(t, 3, Count(450, 200, 20))
	assert.Equal(t, 0, Count(0, 200, 20))
	assert.Equal(t, 5, Count(5, 1, 1))
	assert.Equal(t, 0, Count(5, 0, 0))
}
