package workspace

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/Manjussha/tokenbench/internal/apperr"
	"github.com/Manjussha/tokenbench/internal/backend"
	"github.com/Manjussha/tokenbench/internal/intake"
	"github.com/Manjussha/tokenbench/internal/notify"
	"github.com/Manjussha/tokenbench/internal/preprocess"
	"github.com/Manjussha/tokenbench/internal/pricing"
	"github.com/Manjussha/tokenbench/internal/store"
	"github.com/Manjussha/tokenbench/internal/tokenizer"
	"github.com/Manjussha/tokenbench/internal/ws"
)

// ErrAnalysisRunning is returned when an analysis is already in flight.
var ErrAnalysisRunning = apperr.Validation("An analysis is already running")

// Report is the outcome of a committed analysis.
type Report struct {
	*backend.CountResult
	Tokenizer string                 `json:"tokenizer"`
	Cost      float64                `json:"cost"`
	Budget    tokenizer.BudgetStatus `json:"budget"`
	ProjectID string                 `json:"project_id,omitempty"`
}

// Analyze preprocesses the queue, submits it for counting and commits the
// result. Only one analysis runs at a time; Cancel aborts it. A failed or
// cancelled analysis leaves the previous analysis, history and projects untouched.
func (w *Workspace) Analyze(ctx context.Context) (*Report, error) {
	w.mu.Lock()
	if w.cancel != nil {
		w.mu.Unlock()
		return nil, ErrAnalysisRunning
	}
	if len(w.queue) == 0 {
		w.mu.Unlock()
		return nil, apperr.Validation("No files queued")
	}
	files := append([]intake.File(nil), w.queue...)
	encoding := w.encoding
	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.mu.Unlock()

	defer func() {
		cancel()
		w.mu.Lock()
		w.cancel = nil
		w.committed = false
		w.mu.Unlock()
	}()

	settings := w.settings(ctx)
	processed := make([]intake.File, len(files))
	for i, f := range files {
		content, _ := preprocess.File(f.Name, f.Content, settings.Preprocess)
		processed[i] = intake.NewFile(f.Name, content)
	}

	progress := func(pct int) {
		if w.deps.Events != nil {
			w.deps.Events.Progress(pct)
		}
	}
	progress(0)

	result, err := w.deps.Counter.CountTokens(ctx, processed, encoding, progress)

	// Cancel runs under w.mu, so checking ctx here decides atomically
	// whether the result is committed or the cancel wins.
	w.mu.Lock()
	if err == nil && ctx.Err() != nil {
		err = apperr.Cancelled("Upload aborted", ctx.Err())
	}
	if err == nil {
		w.analysis = result
		w.analyzedAs = encoding
		w.committed = true
	}
	w.mu.Unlock()
	if err != nil {
		w.fail(err)
		return nil, err
	}

	report := &Report{
		CountResult: result,
		Tokenizer:   encoding,
		Cost:        pricing.EstimateCost(result.TotalTokens, pricing.DefaultInputRate),
	}
	w.record(ctx, report, settings.Budget)
	w.publish(ws.TypeAnalysisComplete, report)
	return report, nil
}

// Cancel aborts the in-flight analysis. It reports whether one was running
// and had not yet committed its result.
func (w *Workspace) Cancel() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cancel == nil || w.committed {
		return false
	}
	w.cancel()
	return true
}

// Analyzing reports whether an analysis is in flight.
func (w *Workspace) Analyzing() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.cancel != nil
}

func (w *Workspace) fail(err error) {
	if apperr.Is(err, apperr.KindCancelled) || errors.Is(err, context.Canceled) {
		log.Printf("workspace.Analyze: cancelled")
		w.publish(ws.TypeAnalysisCancelled, map[string]string{"message": "The request was aborted."})
		return
	}
	log.Printf("workspace.Analyze: %v", err)
	msg := err.Error()
	if msg == "" {
		msg = "Please try again."
	}
	w.publish(ws.TypeAnalysisFailed, map[string]string{"message": msg})
}

// record stores the committed analysis in history, the active project and
// usage, then runs the budget watchdog. Storage errors are logged; the
// analysis itself already succeeded.
func (w *Workspace) record(ctx context.Context, r *Report, budget float64) {
	ctx = context.WithoutCancel(ctx)
	names := r.Names()

	results, err := json.Marshal(r.Files)
	if err != nil {
		log.Printf("workspace.record: marshal files: %v", err)
	}
	if _, err := w.deps.History.Add(ctx, store.HistoryEntry{
		Type:        store.EntryAnalyze,
		Tokenizer:   r.Tokenizer,
		FileNames:   names,
		TotalTokens: r.TotalTokens,
		Results:     results,
	}); err != nil {
		log.Printf("workspace.record: history: %v", err)
	}

	if projectID, err := w.deps.Projects.EnsureActive(ctx); err != nil {
		log.Printf("workspace.record: project: %v", err)
	} else if _, err := w.deps.Projects.AddRun(ctx, projectID, store.ProjectRun{
		Summary:     RunSummary(r.CountResult),
		TotalTokens: r.TotalTokens,
		Tokenizer:   r.Tokenizer,
	}); err != nil {
		log.Printf("workspace.record: project run: %v", err)
	} else {
		r.ProjectID = projectID
	}

	if w.deps.Usage != nil {
		if err := w.deps.Usage.RecordUsage(ctx, r.Tokenizer, r.TotalTokens, r.Cost); err != nil {
			log.Printf("workspace.record: usage: %v", err)
		}
	}

	if w.deps.Watchdog != nil {
		status, escalated := w.deps.Watchdog.Check("analysis", r.Cost, budget)
		r.Budget = status
		if escalated {
			w.publish(ws.TypeBudgetWarn, status)
		}
	} else {
		r.Budget = tokenizer.Status(r.Cost, budget)
	}

	if w.deps.Notifier != nil {
		w.deps.Notifier.Send(notify.EventAnalysisComplete, notify.AnalysisSummary{
			Tokenizer:   r.Tokenizer,
			Files:       names,
			TotalTokens: r.TotalTokens,
			Cost:        r.Cost,
			Project:     r.ProjectID,
		})
	}
}

// RunSummary lists the first three files as "name: N tokens".
func RunSummary(r *backend.CountResult) string {
	files := r.Files
	if len(files) > 3 {
		files = files[:3]
	}
	parts := make([]string, len(files))
	for i, f := range files {
		parts[i] = fmt.Sprintf("%s: %s tokens", f.Name, humanize.Comma(int64(f.TokenCount)))
	}
	return strings.Join(parts, ", ")
}
