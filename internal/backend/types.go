// Package backend is the client for the external tokenizer service.
package backend

import (
	"context"
	"encoding/json"

	"github.com/Manjussha/tokenbench/internal/intake"
)

// FileStat is one counted file. Zip members are named "<archive>/<member>".
type FileStat struct {
	Name       string `json:"name"`
	TokenCount int    `json:"token_count"`
	Words      int    `json:"words"`
	Chars      int    `json:"chars"`
}

// CountResult is the /api/count-tokens response.
type CountResult struct {
	Files       []FileStat `json:"files"`
	TotalTokens int        `json:"total_tokens"`
}

// File returns the stat with the given name.
func (r *CountResult) File(name string) (FileStat, bool) {
	if r == nil {
		return FileStat{}, false
	}
	for _, f := range r.Files {
		if f.Name == name {
			return f, true
		}
	}
	return FileStat{}, false
}

// Names lists the counted file names in order.
func (r *CountResult) Names() []string {
	if r == nil {
		return nil
	}
	names := make([]string, len(r.Files))
	for i, f := range r.Files {
		names[i] = f.Name
	}
	return names
}

// AnalyzeResult is the /analyze response.
type AnalyzeResult struct {
	TokenCount int   `json:"token_count"`
	WordCount  int   `json:"word_count"`
	Tokens     []int `json:"tokens"`
}

// BatchItem is one entry of a /batch_tokenize response.
type BatchItem struct {
	TokenCount int `json:"token_count"`
	WordCount  int `json:"word_count"`
}

// BatchResult is the /batch_tokenize response.
type BatchResult struct {
	Results []BatchItem `json:"results"`
}

// CompareResult is the /compare_tokenizers response. A value is either a
// token count or an error string such as "Invalid encoding".
type CompareResult struct {
	Results map[string]CompareValue `json:"results"`
}

// CompareValue holds a count or an error message.
type CompareValue struct {
	Count int
	Error string
}

// MarshalJSON writes the count as a number or the error as a string.
func (v CompareValue) MarshalJSON() ([]byte, error) {
	if v.Error != "" {
		return json.Marshal(v.Error)
	}
	return json.Marshal(v.Count)
}

// UnmarshalJSON accepts a number or a string.
func (v *CompareValue) UnmarshalJSON(b []byte) error {
	var n float64
	if err := json.Unmarshal(b, &n); err == nil {
		*v = CompareValue{Count: int(n)}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	*v = CompareValue{Error: s}
	return nil
}

// ProgressFunc receives upload progress as a whole percentage.
type ProgressFunc func(percent int)

// Counter is the set of tokenizer operations the workspace depends on.
// Client talks to the remote service; Local counts in-process.
type Counter interface {
	CountTokens(ctx context.Context, files []intake.File, encoding string, progress ProgressFunc) (*CountResult, error)
	Analyze(ctx context.Context, text, encoding string) (*AnalyzeResult, error)
	Batch(ctx context.Context, texts []string, encoding string) (*BatchResult, error)
	Compare(ctx context.Context, text string, encodings []string) (*CompareResult, error)
}
