// Package intake validates files before they join the analysis queue.
package intake

import (
	"strings"

	"github.com/dustin/go-humanize"
)

// DefaultMaxTextBytes caps .txt and .md uploads.
const DefaultMaxTextBytes int64 = 10 * 1024 * 1024

// Rejection reasons.
const (
	ReasonUnsupported = "unsupported file type"
	ReasonTooLarge    = "file too large"
	ReasonEmptyName   = "missing file name"
)

// File is an uploaded file held in memory.
type File struct {
	Name    string `json:"name"`
	Size    int64  `json:"size"`
	Content []byte `json:"-"`
}

// NewFile builds a File from its name and content.
func NewFile(name string, content []byte) File {
	return File{Name: name, Size: int64(len(content)), Content: content}
}

// Rejection explains why a file was not accepted.
type Rejection struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// Validator applies the extension allow-list and the text size cap.
type Validator struct {
	MaxTextBytes int64
}

// NewValidator returns a Validator. A non-positive cap selects DefaultMaxTextBytes.
func NewValidator(maxTextBytes int64) *Validator {
	if maxTextBytes <= 0 {
		maxTextBytes = DefaultMaxTextBytes
	}
	return &Validator{MaxTextBytes: maxTextBytes}
}

// Validate splits files into accepted and rejected, preserving input order.
func (v *Validator) Validate(files []File) ([]File, []Rejection) {
	accepted := make([]File, 0, len(files))
	var rejected []Rejection
	for _, f := range files {
		if reason := v.Check(f); reason != "" {
			rejected = append(rejected, Rejection{Name: f.Name, Reason: reason})
			continue
		}
		accepted = append(accepted, f)
	}
	return accepted, rejected
}

// Check returns the rejection reason for f, or "" when f is acceptable.
func (v *Validator) Check(f File) string {
	if strings.TrimSpace(f.Name) == "" {
		return ReasonEmptyName
	}
	switch {
	case IsArchive(f.Name):
		return ""
	case IsText(f.Name):
		if f.Size > v.MaxTextBytes {
			return ReasonTooLarge
		}
		return ""
	default:
		return ReasonUnsupported
	}
}

// IsText reports whether name has a .txt or .md extension.
func IsText(name string) bool {
	lower := strings.ToLower(strings.TrimSpace(name))
	return strings.HasSuffix(lower, ".txt") || strings.HasSuffix(lower, ".md")
}

// IsArchive reports whether name has a .zip extension.
func IsArchive(name string) bool {
	return strings.HasSuffix(strings.ToLower(strings.TrimSpace(name)), ".zip")
}

// Kind classifies a file name for the file-type distribution.
// A name without a dot is classified by the whole name, so "Makefile" is text.
func Kind(name string) string {
	switch ext(name) {
	case "":
		return "other"
	case "md", "markdown":
		return "markdown"
	case "js", "ts", "tsx", "py", "java", "cs", "go":
		return "code"
	case "json", "yaml", "yml", "csv":
		return "data"
	case "zip":
		return "archive"
	default:
		return "text"
	}
}

// KindCount is one slice of the file-type distribution.
type KindCount struct {
	Type  string `json:"type"`
	Value int    `json:"value"`
}

// Distribution counts names per Kind in first-seen order.
func Distribution(names []string) []KindCount {
	out := []KindCount{}
	index := make(map[string]int)
	for _, n := range names {
		k := Kind(n)
		if i, ok := index[k]; ok {
			out[i].Value++
			continue
		}
		index[k] = len(out)
		out = append(out, KindCount{Type: k, Value: 1})
	}
	return out
}

// FormatBytes renders n as a human readable size, e.g. "1.5 MiB".
func FormatBytes(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.IBytes(uint64(n))
}

// TotalBytes sums the sizes of files.
func TotalBytes(files []File) int64 {
	var total int64
	for _, f := range files {
		total += f.Size
	}
	return total
}

func ext(name string) string {
	name = strings.TrimSpace(name)
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	return strings.ToLower(name)
}
