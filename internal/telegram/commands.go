package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Manjussha/tokenbench/internal/db"
	"github.com/Manjussha/tokenbench/internal/store"
)

// CommandHandler answers bot commands from the stored history, projects and usage.
type CommandHandler struct {
	database *db.DB
	history  *store.History
	projects *store.Projects
	health   func() string
	timeout  time.Duration
}

// NewCommandHandler creates a CommandHandler. Any dependency may be nil;
// the matching command then reports that it is unavailable.
func NewCommandHandler(database *db.DB, history *store.History, projects *store.Projects, health func() string) *CommandHandler {
	return &CommandHandler{
		database: database,
		history:  history,
		projects: projects,
		health:   health,
		timeout:  5 * time.Second,
	}
}

// Respond returns the reply text for a command.
func (h *CommandHandler) Respond(command, args string) string {
	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()
	switch command {
	case "status":
		return h.status()
	case "history":
		return h.recent(ctx, args)
	case "projects":
		return h.listProjects(ctx)
	case "usage":
		return h.usage(ctx)
	case "help", "start":
		return helpText
	default:
		return "Unknown command. Use /help for a list of commands."
	}
}

const helpText = `*tokenbench Commands*

/status - Backend health
/history [n] - Recent analyses
/projects - Projects and run counts
/usage - Tokens counted today
/help - This help`

func (h *CommandHandler) status() string {
	if h.health == nil {
		return "Health checks are disabled."
	}
	return "*Backend*\n\n" + escape(h.health())
}

func (h *CommandHandler) recent(ctx context.Context, args string) string {
	if h.history == nil {
		return "History is unavailable."
	}
	n := 5
	if v, err := strconv.Atoi(strings.TrimSpace(args)); err == nil && v > 0 && v <= 20 {
		n = v
	}
	entries, err := h.history.List(ctx)
	if err != nil {
		return "Error fetching history."
	}
	if len(entries) == 0 {
		return "_No analyses yet._"
	}
	if len(entries) > n {
		entries = entries[:n]
	}
	var sb strings.Builder
	sb.WriteString("*Recent analyses*\n\n")
	for _, e := range entries {
		fmt.Fprintf(&sb, "%s `%s` %s tokens (%s)\n",
			humanize.Time(e.Date), e.Tokenizer, humanize.Comma(int64(e.TotalTokens)), e.Type)
	}
	return sb.String()
}

func (h *CommandHandler) listProjects(ctx context.Context) string {
	if h.projects == nil {
		return "Projects are unavailable."
	}
	list, err := h.projects.List(ctx)
	if err != nil {
		return "Error fetching projects."
	}
	if len(list) == 0 {
		return "_No projects yet._"
	}
	active, _ := h.projects.ActiveID(ctx)
	var sb strings.Builder
	sb.WriteString("*Projects*\n\n")
	for _, p := range list {
		marker := ""
		if p.ID == active {
			marker = " (active)"
		}
		fmt.Fprintf(&sb, "%s%s: %d run(s)\n", escape(p.Name), marker, len(p.Runs))
	}
	return sb.String()
}

func (h *CommandHandler) usage(ctx context.Context) string {
	if h.database == nil {
		return "Usage tracking is unavailable."
	}
	days, err := h.database.UsageSince(ctx, time.Now().Format("2006-01-02"))
	if err != nil {
		return "Error fetching usage."
	}
	if len(days) == 0 {
		return "_Nothing counted today._"
	}
	var sb strings.Builder
	sb.WriteString("*Today*\n\n")
	for _, d := range days {
		fmt.Fprintf(&sb, "`%s` %d run(s), %s tokens, $%.4f\n", d.Encoding, d.Runs, humanize.Comma(int64(d.Tokens)), d.Cost)
	}
	return sb.String()
}

// escape protects free text from Telegram's legacy Markdown parser.
func escape(s string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeMarkdown, s)
}
