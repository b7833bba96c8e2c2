// Package export renders an analysis as CSV, JSON, a plain-text summary or a Markdown report.
package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/dustin/go-humanize"

	"github.com/Manjussha/tokenbench/internal/backend"
	"github.com/Manjussha/tokenbench/internal/intake"
	"github.com/Manjussha/tokenbench/internal/pricing"
)

// Formats accepted by Render.
const (
	FormatCSV      = "csv"
	FormatJSON     = "json"
	FormatMarkdown = "md"
)

// File names suggested for downloads.
var fileNames = map[string]string{
	FormatCSV:      "token-report.csv",
	FormatJSON:     "token-report.json",
	FormatMarkdown: "token-report.md",
}

var contentTypes = map[string]string{
	FormatCSV:      "text/csv",
	FormatJSON:     "application/json",
	FormatMarkdown: "text/markdown; charset=utf-8",
}

// FileName returns the download name for format.
func FileName(format string) string { return fileNames[format] }

// ContentType returns the MIME type for format.
func ContentType(format string) string { return contentTypes[format] }

// CSV writes a header row and one row per file.
func CSV(a *backend.CountResult) ([]byte, error) {
	var b bytes.Buffer
	writer := csv.NewWriter(&b)
	if err := writer.Write([]string{"Filename", "Tokens", "Words", "Chars"}); err != nil {
		return nil, fmt.Errorf("export.CSV: header: %w", err)
	}
	for _, f := range a.Files {
		record := []string{
			f.Name,
			strconv.Itoa(f.TokenCount),
			strconv.Itoa(f.Words),
			strconv.Itoa(f.Chars),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("export.CSV: record: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("export.CSV: flush: %w", err)
	}
	return b.Bytes(), nil
}

// JSON writes the analysis indented by two spaces.
func JSON(a *backend.CountResult) ([]byte, error) {
	out, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("export.JSON: %w", err)
	}
	return out, nil
}

// Summary is the copyable text: a total line and one "name: tokens" line per file.
func Summary(a *backend.CountResult) string {
	lines := make([]string, 0, len(a.Files)+1)
	lines = append(lines, fmt.Sprintf("Total tokens: %d", a.TotalTokens))
	for _, f := range a.Files {
		lines = append(lines, fmt.Sprintf("%s: %d", f.Name, f.TokenCount))
	}
	return strings.Join(lines, "\n")
}

// Markdown builds a report with a file table, the file-type distribution and
// the cost matrix for models.
func Markdown(a *backend.CountResult, encoding string, models []pricing.Model) string {
	var b strings.Builder
	b.WriteString("# Token report\n\n")
	if encoding != "" {
		fmt.Fprintf(&b, "Encoding: `%s`\n\n", encoding)
	}
	fmt.Fprintf(&b, "**Total tokens:** %s across %d file(s)\n\n", humanize.Comma(int64(a.TotalTokens)), len(a.Files))

	b.WriteString("| File | Tokens | Words | Chars |\n")
	b.WriteString("|---|---:|---:|---:|\n")
	for _, f := range a.Files {
		fmt.Fprintf(&b, "| %s | %s | %s | %s |\n", escapeCell(f.Name),
			humanize.Comma(int64(f.TokenCount)), humanize.Comma(int64(f.Words)), humanize.Comma(int64(f.Chars)))
	}

	if dist := intake.Distribution(a.Names()); len(dist) > 0 {
		b.WriteString("\n## File types\n\n")
		for _, d := range dist {
			fmt.Fprintf(&b, "- %s: %d\n", d.Type, d.Value)
		}
	}

	if len(models) > 0 {
		b.WriteString("\n## Estimated input cost\n\n")
		b.WriteString("| Model | Context | $/1M in | Estimated |\n")
		b.WriteString("|---|---|---:|---:|\n")
		for _, m := range pricing.Matrix(a.TotalTokens, models) {
			name := escapeCell(m.Name)
			if m.Cheapest {
				name += " (cheapest)"
			}
			fmt.Fprintf(&b, "| %s | %s | %.2f | $%.4f |\n", name, m.Context, m.InputCost, m.Estimated)
		}
	}
	return b.String()
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

// Render produces the bytes for format.
func Render(format string, a *backend.CountResult, encoding string, models []pricing.Model) ([]byte, error) {
	switch format {
	case FormatCSV:
		return CSV(a)
	case FormatJSON:
		return JSON(a)
	case FormatMarkdown:
		return []byte(Markdown(a, encoding, models)), nil
	default:
		return nil, fmt.Errorf("export.Render: unknown format %q", format)
	}
}

// RenderTerminal styles Markdown for a terminal, returning the input unchanged if rendering fails.
func RenderTerminal(markdown string, width int) string {
	if width <= 0 {
		width = 100
	}
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(width))
	if err != nil {
		return markdown
	}
	out, err := r.Render(markdown)
	if err != nil {
		return markdown
	}
	return strings.TrimSpace(out)
}
