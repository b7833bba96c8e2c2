// Package notify provides a notification dispatcher that routes events to configured adapters.
package notify

import (
	"fmt"
	"log"

	"github.com/dustin/go-humanize"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Sender can send a plain text message.
type Sender interface {
	Send(msg string) error
}

// WebhookFirer can fire a webhook event.
type WebhookFirer interface {
	Fire(event string, payload interface{})
}

// Analysis completion event.
const EventAnalysisComplete = "analysis.complete"

// AnalysisSummary is the payload of EventAnalysisComplete.
type AnalysisSummary struct {
	Tokenizer   string   `json:"tokenizer"`
	Files       []string `json:"files"`
	TotalTokens int      `json:"total_tokens"`
	Cost        float64  `json:"cost"`
	Project     string   `json:"project,omitempty"`
}

// Dispatcher routes notification events to Telegram and webhooks.
type Dispatcher struct {
	telegram Sender
	webhook  WebhookFirer
}

// New creates a Dispatcher. Both telegram and webhook may be nil (disabled).
func New(telegram Sender, webhook WebhookFirer) *Dispatcher {
	return &Dispatcher{telegram: telegram, webhook: webhook}
}

// Send dispatches a notification event to all configured adapters.
func (d *Dispatcher) Send(event string, payload interface{}) {
	if d == nil {
		return
	}
	if d.telegram != nil {
		if err := d.telegram.Send(FormatEvent(event, payload)); err != nil {
			log.Printf("notify: telegram send: %v", err)
		}
	}
	if d.webhook != nil {
		d.webhook.Fire(event, payload)
	}
}

// SendTelegram sends a message only via Telegram.
func (d *Dispatcher) SendTelegram(msg string) {
	if d == nil || d.telegram == nil {
		return
	}
	if err := d.telegram.Send(msg); err != nil {
		log.Printf("notify: telegram: %v", err)
	}
}

// messager is implemented by payloads that carry their own human text.
type messager interface {
	Text() string
}

// FormatEvent renders an event as a one-line chat message, escaped for
// Telegram's legacy Markdown.
func FormatEvent(event string, payload interface{}) string {
	var msg string
	switch p := payload.(type) {
	case AnalysisSummary:
		msg = fmt.Sprintf("[%s] %s tokens across %d file(s) with %s ($%.4f)",
			event, humanize.Comma(int64(p.TotalTokens)), len(p.Files), p.Tokenizer, p.Cost)
	case messager:
		msg = fmt.Sprintf("[%s] %s", event, p.Text())
	case nil:
		msg = fmt.Sprintf("[%s]", event)
	default:
		msg = fmt.Sprintf("[%s] %v", event, payload)
	}
	return tgbotapi.EscapeText(tgbotapi.ModeMarkdown, msg)
}
