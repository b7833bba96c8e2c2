// Package preprocess applies the user's text clean-up options before files
// are sent for counting.
package preprocess

import (
	"regexp"
	"strings"
)

// Options selects which transformations run. Field names match the stored settings blob.
type Options struct {
	StripHTML           bool `json:"stripHtml"`
	RedactEmails        bool `json:"redactEmails"`
	NormalizeWhitespace bool `json:"normalizeWhitespace"`
}

// Defaults returns the options used when nothing has been saved.
func Defaults() Options {
	return Options{NormalizeWhitespace: true}
}

// RedactedEmail replaces every matched address.
const RedactedEmail = "[REDACTED_EMAIL]"

var (
	htmlTag    = regexp.MustCompile(`<[^>]*>`)
	email      = regexp.MustCompile(`(?i)[A-Z0-9._%+-]+@[A-Z0-9.-]+\.[A-Z]{2,}`)
	whitespace = regexp.MustCompile(`\s+`)
)

// Text applies opts to s in a fixed order: tags, emails, whitespace.
func Text(s string, opts Options) string {
	if opts.StripHTML {
		s = htmlTag.ReplaceAllString(s, " ")
	}
	if opts.RedactEmails {
		s = email.ReplaceAllString(s, RedactedEmail)
	}
	if opts.NormalizeWhitespace {
		s = strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
	}
	return s
}

// IsArchive reports whether name is a zip archive. Archives are never rewritten.
func IsArchive(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), ".zip")
}

// File returns the processed content for a named file and whether it changed.
// Archives and unchanged text come back as the original bytes.
func File(name string, content []byte, opts Options) ([]byte, bool) {
	if IsArchive(name) {
		return content, false
	}
	in := string(content)
	out := Text(in, opts)
	if out == in {
		return content, false
	}
	return []byte(out), true
}
