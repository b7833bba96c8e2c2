package pricing

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrNotMessageArray is returned when chat input is not a JSON array.
var ErrNotMessageArray = errors.New("JSON must be an array of messages.")

// Message is one chat turn. Content may be a string or an array of parts.
type Message struct {
	Role    *string         `json:"role"`
	Content json.RawMessage `json:"content"`
}

// ParseChat decodes a JSON array of messages.
func ParseChat(data []byte) ([]Message, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		if !json.Valid(trimmed) {
			return nil, fmt.Errorf("pricing.ParseChat: invalid JSON")
		}
		return nil, ErrNotMessageArray
	}
	var msgs []Message
	if err := json.Unmarshal(trimmed, &msgs); err != nil {
		return nil, fmt.Errorf("pricing.ParseChat: %w", err)
	}
	return msgs, nil
}

// ChatOverhead approximates per-message framing: 4 tokens each plus 2 for priming.
func ChatOverhead(messages int) int {
	return messages*4 + 2
}

// NormalizeChat renders messages as "role: content" lines for counting.
// A missing role counts as user; array content is joined with spaces.
func NormalizeChat(msgs []Message) string {
	lines := make([]string, len(msgs))
	for i, m := range msgs {
		role := "user"
		if m.Role != nil {
			role = *m.Role
		}
		lines[i] = role + ": " + contentText(m.Content)
	}
	return strings.Join(lines, "\n")
}

func contentText(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var parts []json.RawMessage
	if err := json.Unmarshal(raw, &parts); err == nil {
		out := make([]string, len(parts))
		for i, p := range parts {
			out[i] = partText(p)
		}
		return strings.Join(out, " ")
	}
	return string(raw)
}

// partText returns a string part as is and the text field of an
// OpenAI-style {"type":"text","text":...} part. Anything else counts as raw JSON.
func partText(p json.RawMessage) string {
	var s string
	if err := json.Unmarshal(p, &s); err == nil {
		return s
	}
	var obj struct {
		Text *string `json:"text"`
	}
	if err := json.Unmarshal(p, &obj); err == nil && obj.Text != nil {
		return *obj.Text
	}
	return string(p)
}

// ChatResult is the token total for a conversation.
type ChatResult struct {
	Messages int `json:"messages"`
	Counted  int `json:"counted"`
	Overhead int `json:"overhead"`
	Tokens   int `json:"tokens"`
}

// ChatTokens adds framing overhead to the counted tokens of the normalized text.
func ChatTokens(messages, counted int) ChatResult {
	overhead := ChatOverhead(messages)
	return ChatResult{
		Messages: messages,
		Counted:  counted,
		Overhead: overhead,
		Tokens:   counted + overhead,
	}
}
