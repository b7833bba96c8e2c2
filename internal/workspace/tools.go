package workspace

import (
	"context"
	"encoding/json"
	"log"
	"strings"

	"github.com/Manjussha/tokenbench/internal/apperr"
	"github.com/Manjussha/tokenbench/internal/backend"
	"github.com/Manjussha/tokenbench/internal/chunker"
	"github.com/Manjussha/tokenbench/internal/export"
	"github.com/Manjussha/tokenbench/internal/intake"
	"github.com/Manjussha/tokenbench/internal/pricing"
	"github.com/Manjussha/tokenbench/internal/store"
	"github.com/Manjussha/tokenbench/internal/tokenizer"
	"github.com/Manjussha/tokenbench/internal/visualize"
)

// Comparison is one file counted under every comparison encoding.
type Comparison struct {
	FileName string                          `json:"file_name"`
	Results  map[string]backend.CompareValue `json:"results"`
}

// Batch row states.
const (
	BatchPending = "Pending"
	BatchDone    = "Done"
	BatchError   = "Error"
)

// BatchRow is the batch status of one queued file.
type BatchRow struct {
	FileName   string `json:"fileName"`
	Status     string `json:"status"`
	TokenCount int    `json:"token_count,omitempty"`
	WordCount  int    `json:"word_count,omitempty"`
}

// Compare counts one queued file under ComparisonEncodings. An empty name
// selects the first queued file.
func (w *Workspace) Compare(ctx context.Context, name string) (*Comparison, error) {
	f, err := w.find(name)
	if err != nil {
		return nil, err
	}
	text := processedText(f, w.settings(ctx).Preprocess)
	res, err := w.deps.Counter.Compare(ctx, text, ComparisonEncodings)
	if err != nil {
		return nil, err
	}
	cmp := &Comparison{FileName: f.Name, Results: res.Results}

	w.mu.Lock()
	w.comparison = cmp
	encoding := w.encoding
	w.mu.Unlock()

	raw, _ := json.Marshal(res.Results)
	w.addHistory(ctx, store.HistoryEntry{
		Type:        store.EntryCompare,
		Tokenizer:   encoding,
		FileNames:   []string{f.Name},
		TotalTokens: res.Results[encoding].Count,
		Results:     raw,
	})
	return cmp, nil
}

// Batch counts every queued file in one backend call. Rows start Pending and
// end Done, or all Error when the call fails.
func (w *Workspace) Batch(ctx context.Context) ([]BatchRow, error) {
	w.mu.Lock()
	if len(w.queue) == 0 {
		w.mu.Unlock()
		return nil, apperr.Validation("No files queued")
	}
	files := append([]intake.File(nil), w.queue...)
	encoding := w.encoding
	rows := make([]BatchRow, len(files))
	for i, f := range files {
		rows[i] = BatchRow{FileName: f.Name, Status: BatchPending}
	}
	w.batch = rows
	w.mu.Unlock()

	opts := w.settings(ctx).Preprocess
	texts := make([]string, len(files))
	for i, f := range files {
		texts[i] = processedText(f, opts)
	}

	res, err := w.deps.Counter.Batch(ctx, texts, encoding)
	if err != nil {
		failed := make([]BatchRow, len(files))
		for i, f := range files {
			failed[i] = BatchRow{FileName: f.Name, Status: BatchError}
		}
		w.setBatch(failed)
		return failed, err
	}

	done := make([]BatchRow, len(files))
	total := 0
	for i, f := range files {
		done[i] = BatchRow{FileName: f.Name, Status: BatchDone}
		if i < len(res.Results) {
			done[i].TokenCount = res.Results[i].TokenCount
			done[i].WordCount = res.Results[i].WordCount
			total += res.Results[i].TokenCount
		}
	}
	w.setBatch(done)

	raw, _ := json.Marshal(done)
	names := make([]string, len(files))
	for i, f := range files {
		names[i] = f.Name
	}
	w.addHistory(ctx, store.HistoryEntry{
		Type:        store.EntryBatch,
		Tokenizer:   encoding,
		FileNames:   names,
		TotalTokens: total,
		Results:     raw,
	})
	return done, nil
}

func (w *Workspace) setBatch(rows []BatchRow) {
	w.mu.Lock()
	w.batch = rows
	w.mu.Unlock()
}

// GenerateChunks splits a queued file into overlapping word windows.
func (w *Workspace) GenerateChunks(ctx context.Context, name string, size, overlap int) ([]string, error) {
	if size <= 0 || overlap < 0 {
		return nil, apperr.Validation("Chunk size must be positive and overlap cannot be negative.")
	}
	f, err := w.find(name)
	if err != nil {
		return nil, err
	}
	chunks, err := chunker.Split(processedText(f, w.settings(ctx).Preprocess), size, overlap)
	if err != nil {
		return nil, apperr.Validation(err.Error())
	}
	w.mu.Lock()
	w.chunks = chunks
	w.mu.Unlock()
	return chunks, nil
}

// Visualize renders a queued file as color-coded spans.
func (w *Workspace) Visualize(ctx context.Context, name string, limit int) (visualize.View, error) {
	f, err := w.find(name)
	if err != nil {
		return visualize.View{}, err
	}
	return visualize.Render(processedText(f, w.settings(ctx).Preprocess), limit), nil
}

// AnalyzeText counts free text with the selected encoding.
func (w *Workspace) AnalyzeText(ctx context.Context, text string) (*backend.AnalyzeResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, apperr.Validation("Enter some text")
	}
	return w.deps.Counter.Analyze(ctx, text, w.Tokenizer())
}

// ChatCalc counts a JSON array of chat messages plus framing overhead.
func (w *Workspace) ChatCalc(ctx context.Context, raw []byte) (pricing.ChatResult, error) {
	msgs, err := pricing.ParseChat(raw)
	if err != nil {
		return pricing.ChatResult{}, apperr.Validation(err.Error())
	}
	res, err := w.deps.Counter.Analyze(ctx, pricing.NormalizeChat(msgs), w.Tokenizer())
	if err != nil {
		return pricing.ChatResult{}, err
	}
	return pricing.ChatTokens(len(msgs), res.TokenCount), nil
}

// Diff compares two files of the last analysis.
func (w *Workspace) Diff(left, right string) (pricing.Diff, error) {
	a := w.Analysis()
	if a == nil {
		return pricing.Diff{}, apperr.Validation("Run an analysis before comparing files.")
	}
	l, ok := a.File(left)
	if !ok {
		return pricing.Diff{}, apperr.Validation("Select file A from the analysis")
	}
	r, ok := a.File(right)
	if !ok {
		return pricing.Diff{}, apperr.Validation("Select file B from the analysis")
	}
	return pricing.DiffTokens(l.Name, l.TokenCount, r.Name, r.TokenCount), nil
}

// FileTypes is the file-type distribution of the last analysis.
func (w *Workspace) FileTypes() []intake.KindCount {
	a := w.Analysis()
	if a == nil {
		return []intake.KindCount{}
	}
	return intake.Distribution(a.Names())
}

// Summary is the copyable text of the last analysis.
func (w *Workspace) Summary() (string, error) {
	a := w.Analysis()
	if a == nil {
		return "", apperr.Validation("Run an analysis first")
	}
	return export.Summary(a), nil
}

// CostMatrix prices the last analysis under every model.
func (w *Workspace) CostMatrix(models []pricing.Model) []pricing.ModelCost {
	total := 0
	if a := w.Analysis(); a != nil {
		total = a.TotalTokens
	}
	return pricing.Matrix(total, models)
}

// Budget compares the last analysis cost at inputRate with the stored budget.
// A non-positive rate selects pricing.DefaultInputRate.
func (w *Workspace) Budget(ctx context.Context, inputRate float64) tokenizer.BudgetStatus {
	if inputRate <= 0 {
		inputRate = pricing.DefaultInputRate
	}
	total := 0
	if a := w.Analysis(); a != nil {
		total = a.TotalTokens
	}
	return tokenizer.Status(pricing.EstimateCost(total, inputRate), w.settings(ctx).Budget)
}

func (w *Workspace) addHistory(ctx context.Context, e store.HistoryEntry) {
	if _, err := w.deps.History.Add(context.WithoutCancel(ctx), e); err != nil {
		log.Printf("workspace.addHistory: %v", err)
	}
}
