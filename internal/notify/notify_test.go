package notify

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Manjussha/tokenbench/internal/tokenizer"
)

type fakeSender struct {
	msgs []string
	err  error
}

func (f *fakeSender) Send(msg string) error {
	f.msgs = append(f.msgs, msg)
	return f.err
}

type fakeFirer struct {
	events []string
}

func (f *fakeFirer) Fire(event string, _ interface{}) {
	f.events = append(f.events, event)
}

func TestDispatcher_Send(t *testing.T) {
	tg := &fakeSender{}
	wh := &fakeFirer{}
	d := New(tg, wh)

	d.Send(EventAnalysisComplete, AnalysisSummary{Tokenizer: "gpt2", Files: []string{"a", "b"}, TotalTokens: 12345, Cost: 0.37035})
	assert.Equal(t, []string{`\[analysis.complete] 12,345 tokens across 2 file(s) with gpt2 ($0.3704)`}, tg.msgs)
	assert.Equal(t, []string{EventAnalysisComplete}, wh.events)
}

func TestDispatcher_TelegramErrorDoesNotStopWebhook(t *testing.T) {
	tg := &fakeSender{err: errors.New("down")}
	wh := &fakeFirer{}
	New(tg, wh).Send("x", nil)
	assert.Len(t, wh.events, 1)
}

func TestDispatcher_NilAdapters(t *testing.T) {
	assert.NotPanics(t, func() {
		New(nil, nil).Send("x", 1)
		New(nil, nil).SendTelegram("x")
		var d *Dispatcher
		d.Send("x", 1)
	})
}

func TestFormatEvent(t *testing.T) {
	assert.Equal(t, `\[e]`, FormatEvent("e", nil))
	assert.Equal(t, `\[e] 3`, FormatEvent("e", 3))

	over := tokenizer.Status(2, 1)
	assert.Equal(t, `\[budget.exceeded] `+over.Message, FormatEvent(tokenizer.EventBudgetExceeded, over))

	warn := tokenizer.Status(0.7, 1)
	assert.Contains(t, FormatEvent(tokenizer.EventBudgetWarning, warn), "70%")
}

func TestFormatEvent_MarkdownSafe(t *testing.T) {
	msg := FormatEvent(EventAnalysisComplete, AnalysisSummary{
		Tokenizer:   "cl100k_base",
		Files:       []string{"notes_v2.md"},
		TotalTokens: 1200,
	})
	assert.Contains(t, msg, `cl100k\_base`)

	// Every Markdown control character must be escaped or the Bot API
	// rejects the message with "can't parse entities".
	for i, r := range msg {
		if strings.ContainsRune("_*`[", r) {
			assert.True(t, i > 0 && msg[i-1] == '\\', "unescaped %q at %d in %q", r, i, msg)
		}
	}
}
