package export

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Manjussha/tokenbench/internal/backend"
	"github.com/Manjussha/tokenbench/internal/pricing"
)

func sample() *backend.CountResult {
	return &backend.CountResult{
		Files: []backend.FileStat{
			{Name: "a.txt", TokenCount: 1200, Words: 900, Chars: 5000},
			{Name: "docs.zip/b, c.md", TokenCount: 30, Words: 20, Chars: 100},
		},
		TotalTokens: 1230,
	}
}

func TestCSV(t *testing.T) {
	out, err := CSV(sample())
	require.NoError(t, err)
	assert.Equal(t, "Filename,Tokens,Words,Chars\n"+
		"a.txt,1200,900,5000\n"+
		"\"docs.zip/b, c.md\",30,20,100\n", string(out))
}

func TestJSON(t *testing.T) {
	out, err := JSON(sample())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(out), "{\n  \"files\": [\n    {\n      \"name\": \"a.txt\""))

	var back backend.CountResult
	require.NoError(t, json.Unmarshal(out, &back))
	assert.Equal(t, 1230, back.TotalTokens)
}

func TestSummary(t *testing.T) {
	assert.Equal(t, "Total tokens: 1230\na.txt: 1200\ndocs.zip/b, c.md: 30", Summary(sample()))
	assert.Equal(t, "Total tokens: 0", Summary(&backend.CountResult{}))
}

func TestMarkdown(t *testing.T) {
	md := Markdown(sample(), "cl100k_base", pricing.DefaultModels())
	assert.Contains(t, md, "**Total tokens:** 1,230 across 2 file(s)")
	assert.Contains(t, md, "| a.txt | 1,200 | 900 | 5,000 |")
	assert.Contains(t, md, "- text: 1")
	assert.Contains(t, md, "- markdown: 1")
	assert.Contains(t, md, "Gemini 1.5 Pro (cheapest)")
}

func TestRender(t *testing.T) {
	for _, f := range []string{FormatCSV, FormatJSON, FormatMarkdown} {
		out, err := Render(f, sample(), "gpt2", nil)
		require.NoError(t, err, f)
		assert.NotEmpty(t, out)
		assert.NotEmpty(t, FileName(f))
		assert.NotEmpty(t, ContentType(f))
	}
	_, err := Render("xml", sample(), "", nil)
	assert.Error(t, err)
}
