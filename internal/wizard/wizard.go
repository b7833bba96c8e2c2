// Package wizard provides the interactive terminal setup wizard for tokenbench.
// Invoke with: tokenbench setup
package wizard

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"golang.org/x/term"

	"github.com/Manjussha/tokenbench/internal/platform"
	"github.com/Manjussha/tokenbench/internal/tokenizer"
)

// Answers holds all values collected during the wizard. Field tags match the
// keys config.LoadFile reads.
type Answers struct {
	Port            string    `toml:"port"`
	BackendURL      string    `toml:"backend_url"`
	LocalFallback   bool      `toml:"local_fallback"`
	DefaultEncoding string    `toml:"default_encoding"`
	DefaultBudget   float64   `toml:"default_budget"`
	AccessKey       string    `toml:"-"`
	Telegram        *telegram `toml:"telegram,omitempty"`
}

type telegram struct {
	Token  string `toml:"token"`
	ChatID int64  `toml:"chat_id"`
}

// Wizard reads answers from in and writes prompts to out.
type Wizard struct {
	in  *bufio.Reader
	out io.Writer
	// secret reads a line without echo when stdin is a terminal.
	secret func() (string, error)
	// probe checks a backend URL; nil skips the check.
	probe func(url string) error
	// portFree reports whether a port can be bound; nil skips the check.
	portFree func(port int) bool
	// eof is set once in is exhausted so re-prompt loops can stop.
	eof bool
}

// New returns a Wizard on the process's stdin and stdout.
func New() *Wizard {
	w := &Wizard{in: bufio.NewReader(os.Stdin), out: os.Stdout, probe: probeBackend, portFree: portFree}
	w.secret = func() (string, error) {
		fd := int(os.Stdin.Fd())
		if !term.IsTerminal(fd) {
			return w.readLine(), nil
		}
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(w.out)
		return string(b), err
	}
	return w
}

// NewWith returns a Wizard on arbitrary streams with no port or backend checks.
func NewWith(in io.Reader, out io.Writer) *Wizard {
	w := &Wizard{in: bufio.NewReader(in), out: out}
	w.secret = func() (string, error) { return w.readLine(), nil }
	return w
}

// ── Entry point ───────────────────────────────────────────────────────────────

// Run executes the interactive setup and writes the answers to path as TOML.
// The access key is never written to the file; it is read from the environment.
func (w *Wizard) Run(path, version string) (*Answers, error) {
	w.banner(version)

	a := &Answers{}
	var err error
	a.Port = w.stepPort()
	a.BackendURL, a.LocalFallback = w.stepBackend()
	a.DefaultEncoding, a.DefaultBudget = w.stepCounting()
	if a.AccessKey, err = w.stepAccessKey(); err != nil {
		return nil, fmt.Errorf("wizard: access key: %w", err)
	}
	a.Telegram = w.stepTelegram()

	if !w.confirm(a, path) {
		fmt.Fprintln(w.out, "\n  Cancelled. No changes made.")
		return nil, nil
	}
	if err := Write(path, a); err != nil {
		return nil, fmt.Errorf("wizard: %w", err)
	}

	fmt.Fprintln(w.out)
	fmt.Fprintln(w.out, "  "+c("\033[32m", "✓")+" "+path+" saved. Run tokenbench serve to start.")
	if a.AccessKey != "" {
		fmt.Fprintln(w.out, "  Export ACCESS_KEY before starting the server to require the key.")
	}
	return a, nil
}

func (w *Wizard) banner(version string) {
	fmt.Fprintln(w.out)
	fmt.Fprintln(w.out, c("\033[36m", "  tokenbench "+version+" setup"))
	fmt.Fprintln(w.out, "  Press Enter to accept defaults, Ctrl+C to cancel.")
}

func (w *Wizard) step(n int, title string) {
	fmt.Fprintln(w.out)
	fmt.Fprintln(w.out, c("\033[33m", fmt.Sprintf("━━━  %d / 5  %s  ━━━", n, title)))
}

// ── Steps ─────────────────────────────────────────────────────────────────────

func (w *Wizard) stepPort() string {
	w.step(1, "PORT")
	for {
		p := w.promptInt("HTTP port [8080]", 1, 65535, 8080)
		if w.portFree == nil || w.portFree(p) || w.eof {
			return strconv.Itoa(p)
		}
		fmt.Fprintf(w.out, "  Port %d is in use. Pick another.\n", p)
	}
}

func (w *Wizard) stepBackend() (string, bool) {
	w.step(2, "TOKENIZER BACKEND")
	url := strings.TrimRight(w.prompt("Backend URL [http://localhost:5000]", "http://localhost:5000"), "/")
	if w.probe != nil {
		if err := w.probe(url); err != nil {
			fmt.Fprintln(w.out, "  "+c("\033[31m", "✗")+" Backend unreachable: "+err.Error())
		} else {
			fmt.Fprintln(w.out, "  "+c("\033[32m", "✓")+" Backend is healthy.")
		}
	}
	fallback := w.promptYesNo("Count locally when the backend is down? [Y/n]", true)
	return url, fallback
}

func (w *Wizard) stepCounting() (string, float64) {
	w.step(3, "COUNTING")
	var encoding string
	for {
		encoding = w.prompt("Default encoding [cl100k_base]", "cl100k_base")
		if tokenizer.Known(encoding) {
			break
		}
		fmt.Fprintf(w.out, "  Choose one of: %s\n", strings.Join(tokenizer.Encodings, ", "))
	}
	for {
		s := w.prompt("Budget target in USD [50]", "50")
		b, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err == nil && b >= 0 {
			return encoding, b
		}
		fmt.Fprintln(w.out, "  Enter a non-negative number.")
	}
}

func (w *Wizard) stepAccessKey() (string, error) {
	w.step(4, "ACCESS KEY")
	fmt.Fprintln(w.out, "  Mutating API calls can require a Bearer key. Leave blank to disable.")
	for {
		fmt.Fprint(w.out, "  Key: ")
		key, err := w.secret()
		if err != nil {
			return "", err
		}
		if key == "" {
			return "", nil
		}
		fmt.Fprint(w.out, "  Confirm: ")
		confirm, err := w.secret()
		if err != nil {
			return "", err
		}
		if key == confirm {
			return key, nil
		}
		fmt.Fprintln(w.out, "  "+c("\033[31m", "✗")+" Keys do not match. Try again.")
	}
}

func (w *Wizard) stepTelegram() *telegram {
	w.step(5, "TELEGRAM (optional)")
	token := strings.TrimSpace(w.prompt("Bot token (blank to skip)", ""))
	if token == "" {
		return nil
	}
	var chatID int64
	for {
		s := strings.TrimSpace(w.prompt("Admin chat ID", ""))
		id, err := strconv.ParseInt(s, 10, 64)
		if err == nil && id != 0 {
			chatID = id
			break
		}
		if w.eof {
			return nil
		}
		fmt.Fprintln(w.out, "  Enter the numeric chat ID.")
	}
	return &telegram{Token: token, ChatID: chatID}
}

func (w *Wizard) confirm(a *Answers, path string) bool {
	fmt.Fprintln(w.out)
	fmt.Fprintln(w.out, "  Port:       "+a.Port)
	fmt.Fprintln(w.out, "  Backend:    "+a.BackendURL)
	fmt.Fprintln(w.out, "  Encoding:   "+a.DefaultEncoding)
	fmt.Fprintf(w.out, "  Budget:     $%.2f\n", a.DefaultBudget)
	fmt.Fprintln(w.out, "  Access key: "+dash(mask(a.AccessKey)))
	if a.Telegram != nil {
		fmt.Fprintln(w.out, "  Telegram:   chat "+strconv.FormatInt(a.Telegram.ChatID, 10))
	}
	return w.promptYesNo("Write "+path+"? [Y/n]", true)
}

// Write encodes a as TOML at path, creating parent directories.
func Write(path string, a *Answers) error {
	if err := platform.EnsureDir(filepath.Dir(path)); err != nil {
		return fmt.Errorf("Write: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("Write: %w", err)
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(a); err != nil {
		return fmt.Errorf("Write: encode: %w", err)
	}
	return nil
}

// ── Dashboard URLs ────────────────────────────────────────────────────────────

// DashboardURLs lists LAN IPs plus localhost for port.
func DashboardURLs(port string) []string {
	var urls []string
	if ifaces, err := net.Interfaces(); err == nil {
		for _, iface := range ifaces {
			if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
				continue
			}
			addrs, _ := iface.Addrs()
			for _, addr := range addrs {
				var ip net.IP
				switch v := addr.(type) {
				case *net.IPNet:
					ip = v.IP
				case *net.IPAddr:
					ip = v.IP
				}
				if ip4 := ip.To4(); ip4 != nil && !ip4.IsLoopback() {
					urls = append(urls, fmt.Sprintf("http://%s:%s", ip4, port))
				}
			}
		}
	}
	return append(urls, fmt.Sprintf("http://localhost:%s", port))
}

// PrintDashboardURLs prints DashboardURLs. Called on every server start.
func PrintDashboardURLs(out io.Writer, port string) {
	urls := DashboardURLs(port)
	fmt.Fprintln(out)
	fmt.Fprintf(out, "  Dashboard → %s\n", urls[0])
	for _, u := range urls[1:] {
		fmt.Fprintf(out, "              %s\n", u)
	}
	fmt.Fprintln(out)
}

// ── Input helpers ─────────────────────────────────────────────────────────────

func (w *Wizard) readLine() string {
	line, err := w.in.ReadString('\n')
	if err != nil {
		w.eof = true
	}
	return strings.TrimRight(line, "\r\n")
}

func (w *Wizard) prompt(label, defaultVal string) string {
	fmt.Fprintf(w.out, "  %s: ", label)
	line := w.readLine()
	if strings.TrimSpace(line) == "" {
		return defaultVal
	}
	return line
}

func (w *Wizard) promptInt(label string, min, max, defaultVal int) int {
	for {
		s := w.prompt(label, strconv.Itoa(defaultVal))
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err == nil && n >= min && n <= max {
			return n
		}
		if w.eof {
			return defaultVal
		}
		fmt.Fprintf(w.out, "  Enter a number between %d and %d.\n", min, max)
	}
}

func (w *Wizard) promptYesNo(label string, defaultVal bool) bool {
	s := strings.ToLower(strings.TrimSpace(w.prompt(label, "")))
	switch s {
	case "y", "yes":
		return true
	case "n", "no":
		return false
	default:
		return defaultVal
	}
}

func portFree(port int) bool {
	ln, err := net.Listen("tcp", ":"+strconv.Itoa(port))
	if err != nil {
		return false
	}
	ln.Close()
	return true
}

func probeBackend(url string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("health returned %d", resp.StatusCode)
	}
	return nil
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	return strings.Repeat("•", 8)
}

func dash(s string) string {
	if s == "" {
		return c("\033[90m", "—")
	}
	return s
}

func supportsColor() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

func c(ansi, text string) string {
	if !supportsColor() {
		return text
	}
	return ansi + text + "\033[0m"
}
