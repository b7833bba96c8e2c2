package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseChat(t *testing.T) {
	msgs, err := ParseChat([]byte(`[
		{"role": "system", "content": "Be brief."},
		{"content": ["Hello", "there"]},
		{"role": "assistant", "content": null}
	]`))
	require.NoError(t, err)
	require.Len(t, msgs, 3)

	assert.Equal(t, "system: Be brief.\nuser: Hello there\nassistant: ", NormalizeChat(msgs))
}

func TestParseChat_NotArray(t *testing.T) {
	_, err := ParseChat([]byte(`{"role":"user"}`))
	assert.ErrorIs(t, err, ErrNotMessageArray)

	_, err = ParseChat([]byte(`not json`))
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotMessageArray)
}

func TestNormalizeChat_MixedParts(t *testing.T) {
	msgs, err := ParseChat([]byte(`[{"role":"user","content":[
		"a",
		{"type":"text","text":"describe this"},
		{"type":"image_url","image_url":{"url":"x.png"}},
		1
	]}]`))
	require.NoError(t, err)
	assert.Equal(t, `user: a describe this {"type":"image_url","image_url":{"url":"x.png"}} 1`, NormalizeChat(msgs))
}

func TestChatTokens(t *testing.T) {
	r := ChatTokens(3, 40)
	assert.Equal(t, 14, r.Overhead)
	assert.Equal(t, 54, r.Tokens)
	assert.Equal(t, 2, ChatOverhead(0))
}
