package cli

import (
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

var (
	styleTitle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	styleSuccess = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	styleError   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	styleDim     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	styleZone    = map[string]lipgloss.Style{
		"GREEN":  lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		"YELLOW": lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
		"ORANGE": lipgloss.NewStyle().Foreground(lipgloss.Color("208")),
		"RED":    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9")),
	}
	styleSpan = map[string]lipgloss.Style{
		"blue":  lipgloss.NewStyle().Background(lipgloss.Color("17")).Foreground(lipgloss.Color("153")),
		"green": lipgloss.NewStyle().Background(lipgloss.Color("22")).Foreground(lipgloss.Color("157")),
		"amber": lipgloss.NewStyle().Background(lipgloss.Color("94")).Foreground(lipgloss.Color("229")),
	}
)

// isTTY reports whether w is a terminal. Styling is skipped otherwise so
// piped output stays plain.
func isTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// termWidth returns the terminal width of w, or 100.
func termWidth(w io.Writer) int {
	if f, ok := w.(*os.File); ok {
		if width, _, err := term.GetSize(int(f.Fd())); err == nil && width > 0 {
			return width
		}
	}
	return 100
}

// paint renders text with s when out is a terminal.
func paint(out io.Writer, s lipgloss.Style, text string) string {
	if !isTTY(out) {
		return text
	}
	return s.Render(text)
}

func renderZone(out io.Writer, zone string) string {
	if s, ok := styleZone[zone]; ok {
		return paint(out, s, "["+zone+"]")
	}
	return "[" + zone + "]"
}
