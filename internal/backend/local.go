package backend

import (
	"context"
	"errors"
	"fmt"
	"log"
	"unicode/utf8"

	"github.com/Manjussha/tokenbench/internal/apperr"
	"github.com/Manjussha/tokenbench/internal/intake"
	"github.com/Manjussha/tokenbench/internal/tokenizer"
)

// Local answers Counter calls in-process with tiktoken. It cannot open zip
// archives; those need the remote service.
type Local struct {
	counter *tokenizer.LocalCounter
}

// NewLocal wraps a LocalCounter. A nil counter uses tiktoken-go directly.
func NewLocal(counter *tokenizer.LocalCounter) *Local {
	if counter == nil {
		counter = tokenizer.NewLocalCounter()
	}
	return &Local{counter: counter}
}

// CountTokens counts each text file. Unknown encodings fall back to cl100k_base.
func (l *Local) CountTokens(ctx context.Context, files []intake.File, encoding string, progress ProgressFunc) (*CountResult, error) {
	if len(files) == 0 {
		return nil, apperr.Validation("No files selected")
	}
	if !tokenizer.Known(encoding) {
		encoding = "cl100k_base"
	}
	out := &CountResult{Files: make([]FileStat, 0, len(files))}
	for i, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, apperr.Cancelled("Upload aborted", err)
		}
		if intake.IsArchive(f.Name) {
			return nil, apperr.Request(fmt.Sprintf("%s: zip archives need the tokenizer backend", f.Name), nil)
		}
		text := decodeText(f.Content)
		n, _ := l.counter.Count(text, encoding)
		out.Files = append(out.Files, FileStat{
			Name:       f.Name,
			TokenCount: n,
			Words:      tokenizer.WordCount(text),
			Chars:      tokenizer.CharCount(text),
		})
		out.TotalTokens += n
		if progress != nil {
			progress((i + 1) * 100 / len(files))
		}
	}
	return out, nil
}

// Analyze counts one text. Token ids are not returned locally.
func (l *Local) Analyze(ctx context.Context, text, encoding string) (*AnalyzeResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperr.Cancelled("", err)
	}
	if text == "" {
		return nil, apperr.Request("No text provided", nil)
	}
	if !tokenizer.Known(encoding) {
		return nil, apperr.Request("Invalid encoding: "+encoding, nil)
	}
	n, _ := l.counter.Count(text, encoding)
	return &AnalyzeResult{TokenCount: n, WordCount: tokenizer.WordCount(text), Tokens: []int{}}, nil
}

// Batch counts each text.
func (l *Local) Batch(ctx context.Context, texts []string, encoding string) (*BatchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperr.Cancelled("", err)
	}
	if !tokenizer.Known(encoding) {
		return nil, apperr.Request("Invalid encoding: "+encoding, nil)
	}
	out := &BatchResult{Results: make([]BatchItem, len(texts))}
	for i, t := range texts {
		n, _ := l.counter.Count(t, encoding)
		out.Results[i] = BatchItem{TokenCount: n, WordCount: tokenizer.WordCount(t)}
	}
	return out, nil
}

// Compare counts text under each encoding.
func (l *Local) Compare(ctx context.Context, text string, encodings []string) (*CompareResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperr.Cancelled("", err)
	}
	out := &CompareResult{Results: make(map[string]CompareValue, len(encodings))}
	for name, v := range l.counter.Compare(text, encodings) {
		switch n := v.(type) {
		case int:
			out.Results[name] = CompareValue{Count: n}
		case string:
			out.Results[name] = CompareValue{Error: n}
		}
	}
	return out, nil
}

// decodeText reads UTF-8, falling back to Latin-1 like the backend does.
func decodeText(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}
	runes := make([]rune, len(b))
	for i, c := range b {
		runes[i] = rune(c)
	}
	return string(runes)
}

// Fallback uses the remote Client and switches to Local when the backend is unreachable.
type Fallback struct {
	Remote Counter
	Local  Counter
}

func (f *Fallback) useLocal(err error, op string) bool {
	if err == nil || !errors.Is(err, ErrUnreachable) {
		return false
	}
	log.Printf("backend.Fallback: %s: backend unreachable, counting locally: %v", op, errors.Unwrap(err))
	return true
}

// CountTokens tries the remote service first.
func (f *Fallback) CountTokens(ctx context.Context, files []intake.File, encoding string, progress ProgressFunc) (*CountResult, error) {
	res, err := f.Remote.CountTokens(ctx, files, encoding, progress)
	if f.useLocal(err, "CountTokens") {
		return f.Local.CountTokens(ctx, files, encoding, progress)
	}
	return res, err
}

// Analyze tries the remote service first.
func (f *Fallback) Analyze(ctx context.Context, text, encoding string) (*AnalyzeResult, error) {
	res, err := f.Remote.Analyze(ctx, text, encoding)
	if f.useLocal(err, "Analyze") {
		return f.Local.Analyze(ctx, text, encoding)
	}
	return res, err
}

// Batch tries the remote service first.
func (f *Fallback) Batch(ctx context.Context, texts []string, encoding string) (*BatchResult, error) {
	res, err := f.Remote.Batch(ctx, texts, encoding)
	if f.useLocal(err, "Batch") {
		return f.Local.Batch(ctx, texts, encoding)
	}
	return res, err
}

// Compare tries the remote service first.
func (f *Fallback) Compare(ctx context.Context, text string, encodings []string) (*CompareResult, error) {
	res, err := f.Remote.Compare(ctx, text, encodings)
	if f.useLocal(err, "Compare") {
		return f.Local.Compare(ctx, text, encodings)
	}
	return res, err
}
