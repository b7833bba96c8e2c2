package visualize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenize(t *testing.T) {
	assert.Equal(t, []string{"Hello", ",", "world", "!", "it", "'", "s", "_ok_", "42"},
		Tokenize("Hello, world! it's _ok_ 42"))
	assert.Empty(t, Tokenize("   \n"))
}

func TestRender_Colors(t *testing.T) {
	v := Render("a b c d", 0)
	require.Len(t, v.Spans, 4)
	assert.Equal(t, "blue", v.Spans[0].Color)
	assert.Equal(t, "green", v.Spans[1].Color)
	assert.Equal(t, "amber", v.Spans[2].Color)
	assert.Equal(t, "blue", v.Spans[3].Color)
	assert.Equal(t, 0, v.Hidden)
}

func TestRender_Limit(t *testing.T) {
	text := strings.Repeat("tok ", 650)
	v := Render(text, 0)
	assert.Len(t, v.Spans, DefaultLimit)
	assert.Equal(t, 650, v.Total)
	assert.Equal(t, 50, v.Hidden)

	v = Render(text, 10)
	assert.Len(t, v.Spans, 10)
	assert.Equal(t, 640, v.Hidden)
}
