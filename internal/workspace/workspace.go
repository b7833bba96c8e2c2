// Package workspace holds the application state: the upload queue, the
// selected encoding and the results of the last analysis, comparison, batch
// and chunking runs. Every mutation goes through a method on Workspace.
package workspace

import (
	"context"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/Manjussha/tokenbench/internal/apperr"
	"github.com/Manjussha/tokenbench/internal/backend"
	"github.com/Manjussha/tokenbench/internal/intake"
	"github.com/Manjussha/tokenbench/internal/preprocess"
	"github.com/Manjussha/tokenbench/internal/store"
	"github.com/Manjussha/tokenbench/internal/tokenizer"
	"github.com/Manjussha/tokenbench/internal/ws"
)

// ComparisonEncodings are the encodings every comparison runs against.
var ComparisonEncodings = []string{"cl100k_base", "p50k_base", "r50k_base", "gpt2"}

// Events receives live updates. *ws.Hub satisfies it.
type Events interface {
	Progress(pct int)
	Publish(typ string, data interface{})
}

// UsageRecorder persists per-analysis usage. *db.DB satisfies it.
type UsageRecorder interface {
	RecordUsage(ctx context.Context, encoding string, tokens int, cost float64) error
}

// Deps are the collaborators a Workspace needs. Counter, History, Projects
// and Settings are required; the rest may be nil.
type Deps struct {
	Counter         backend.Counter
	Validator       *intake.Validator
	History         *store.History
	Projects        *store.Projects
	Settings        *store.SettingsStore
	Usage           UsageRecorder
	Watchdog        *tokenizer.Watchdog
	Notifier        tokenizer.Notifier
	Events          Events
	DefaultEncoding string
}

// QueuedFile describes one file waiting in the queue.
type QueuedFile struct {
	Index     int    `json:"index"`
	Name      string `json:"name"`
	Size      int64  `json:"size"`
	SizeLabel string `json:"size_label"`
	Kind      string `json:"kind"`
}

// QueueView is the queue plus its totals.
type QueueView struct {
	Files      []QueuedFile `json:"files"`
	TotalBytes string       `json:"total_bytes"`
	Tokenizer  string       `json:"tokenizer"`
	Analyzing  bool         `json:"analyzing"`
}

// Workspace is the single source of truth for one user's session.
type Workspace struct {
	deps Deps

	mu         sync.Mutex
	queue      []intake.File
	encoding   string
	analysis   *backend.CountResult
	analyzedAs string
	comparison *Comparison
	batch      []BatchRow
	chunks     []string
	cancel     context.CancelFunc
	committed  bool // the in-flight analysis can no longer be cancelled
}

// New creates a Workspace.
func New(deps Deps) *Workspace {
	if deps.Validator == nil {
		deps.Validator = intake.NewValidator(0)
	}
	if deps.DefaultEncoding == "" {
		deps.DefaultEncoding = "cl100k_base"
	}
	return &Workspace{deps: deps, encoding: deps.DefaultEncoding}
}

// AddFiles validates files and appends the accepted ones to the queue.
func (w *Workspace) AddFiles(files []intake.File) ([]intake.File, []intake.Rejection) {
	accepted, rejected := w.deps.Validator.Validate(files)
	if len(accepted) > 0 {
		w.mu.Lock()
		w.queue = append(w.queue, accepted...)
		w.mu.Unlock()
		w.publish(ws.TypeQueueChanged, nil)
	}
	return accepted, rejected
}

// RemoveFile drops the file at index.
func (w *Workspace) RemoveFile(index int) error {
	w.mu.Lock()
	if index < 0 || index >= len(w.queue) {
		w.mu.Unlock()
		return apperr.Validation("File unavailable")
	}
	w.queue = append(w.queue[:index:index], w.queue[index+1:]...)
	w.mu.Unlock()
	w.publish(ws.TypeQueueChanged, nil)
	return nil
}

// ClearQueue empties the queue and every result derived from it.
func (w *Workspace) ClearQueue() {
	w.mu.Lock()
	w.queue = nil
	w.analysis = nil
	w.analyzedAs = ""
	w.comparison = nil
	w.batch = nil
	w.chunks = nil
	w.mu.Unlock()
	w.publish(ws.TypeQueueChanged, nil)
}

// SetTokenizer selects the encoding used by later runs.
func (w *Workspace) SetTokenizer(encoding string) error {
	encoding = strings.TrimSpace(encoding)
	if !tokenizer.Known(encoding) {
		return apperr.Validation("Unknown encoding: " + encoding)
	}
	w.mu.Lock()
	w.encoding = encoding
	w.mu.Unlock()
	return nil
}

// Tokenizer returns the selected encoding.
func (w *Workspace) Tokenizer() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.encoding
}

// Queue returns a snapshot of the queue.
func (w *Workspace) Queue() QueueView {
	w.mu.Lock()
	defer w.mu.Unlock()
	files := make([]QueuedFile, len(w.queue))
	for i, f := range w.queue {
		files[i] = QueuedFile{
			Index:     i,
			Name:      f.Name,
			Size:      f.Size,
			SizeLabel: intake.FormatBytes(f.Size),
			Kind:      intake.Kind(f.Name),
		}
	}
	return QueueView{
		Files:      files,
		TotalBytes: intake.FormatBytes(intake.TotalBytes(w.queue)),
		Tokenizer:  w.encoding,
		Analyzing:  w.cancel != nil,
	}
}

// Analysis returns the last committed analysis, or nil.
func (w *Workspace) Analysis() *backend.CountResult {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.analysis
}

// AnalyzedWith returns the encoding of the last committed analysis.
func (w *Workspace) AnalyzedWith() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.analyzedAs
}

// Comparison returns the last comparison, or nil.
func (w *Workspace) Comparison() *Comparison {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.comparison
}

// BatchRows returns a copy of the last batch rows.
func (w *Workspace) BatchRows() []BatchRow {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]BatchRow(nil), w.batch...)
}

// Chunks returns the last generated chunks.
func (w *Workspace) Chunks() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.chunks...)
}

// settings loads the stored settings, falling back to defaults on error.
func (w *Workspace) settings(ctx context.Context) store.Settings {
	s, _ := w.deps.Settings.Load(ctx)
	return s
}

// find returns the queued file called name, or the first queued file when name is empty.
func (w *Workspace) find(name string) (intake.File, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.queue) == 0 {
		return intake.File{}, apperr.Validation("No files queued")
	}
	if name == "" {
		return w.queue[0], nil
	}
	for _, f := range w.queue {
		if f.Name == name {
			return f, nil
		}
	}
	return intake.File{}, apperr.Validation("File unavailable")
}

// processedText applies the preprocessing options to f and decodes it as UTF-8.
func processedText(f intake.File, opts preprocess.Options) string {
	content, _ := preprocess.File(f.Name, f.Content, opts)
	if utf8.Valid(content) {
		return string(content)
	}
	return strings.ToValidUTF8(string(content), "�")
}

func (w *Workspace) publish(typ string, data interface{}) {
	if w.deps.Events != nil {
		w.deps.Events.Publish(typ, data)
	}
}
