// Package visualize splits text into word and punctuation spans for color-coded display.
// The spans approximate tokens for illustration only; real counts come from the backend.
package visualize

import "regexp"

// DefaultLimit caps how many spans are rendered.
const DefaultLimit = 600

// Colors cycle across consecutive spans.
var Colors = []string{"blue", "green", "amber"}

var tokenPattern = regexp.MustCompile(`\w+|[^\s\w]`)

// Span is one rendered piece of text.
type Span struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
	Color string `json:"color"`
}

// View is the rendered result: at most Limit spans plus a count of the rest.
type View struct {
	Spans  []Span `json:"spans"`
	Total  int    `json:"total"`
	Hidden int    `json:"hidden"`
}

// Tokenize returns every word run and every single non-space, non-word character.
func Tokenize(text string) []string {
	out := tokenPattern.FindAllString(text, -1)
	if out == nil {
		return []string{}
	}
	return out
}

// Render tokenizes text and keeps the first limit spans.
// A non-positive limit selects DefaultLimit.
func Render(text string, limit int) View {
	if limit <= 0 {
		limit = DefaultLimit
	}
	tokens := Tokenize(text)
	shown := tokens
	if len(shown) > limit {
		shown = shown[:limit]
	}
	spans := make([]Span, len(shown))
	for i, tok := range shown {
		spans[i] = Span{Index: i, Text: tok, Color: Colors[i%len(Colors)]}
	}
	return View{Spans: spans, Total: len(tokens), Hidden: len(tokens) - len(shown)}
}
