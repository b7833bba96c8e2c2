package tokenizer

import (
	"fmt"
	"log"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// Encodings offered for comparison, in display order.
var Encodings = []string{"cl100k_base", "p50k_base", "r50k_base", "gpt2"}

// InvalidEncoding is the per-encoding value reported for unknown names.
const InvalidEncoding = "Invalid encoding"

// Encoder turns text into token ids.
type Encoder interface {
	Encode(text string, allowedSpecial []string, disallowedSpecial []string) []int
}

// LoadFunc loads an encoder by tiktoken encoding name.
type LoadFunc func(name string) (Encoder, error)

func loadTiktoken(name string) (Encoder, error) {
	enc, err := tiktoken.GetEncoding(name)
	if err != nil {
		return nil, err
	}
	return enc, nil
}

// LocalCounter counts tokens in-process with tiktoken encodings.
// When an encoding cannot be loaded (unknown name, no network for the BPE
// ranks) it falls back to EstimateTokens and reports the count as inexact.
type LocalCounter struct {
	load LoadFunc

	mu       sync.Mutex
	encoders map[string]Encoder
	failed   map[string]error
}

// NewLocalCounter creates a LocalCounter backed by tiktoken-go.
func NewLocalCounter() *LocalCounter {
	return NewLocalCounterWith(loadTiktoken)
}

// NewLocalCounterWith creates a LocalCounter with a custom loader.
func NewLocalCounterWith(load LoadFunc) *LocalCounter {
	return &LocalCounter{
		load:     load,
		encoders: make(map[string]Encoder),
		failed:   make(map[string]error),
	}
}

// Known reports whether name is one of the supported encodings.
func Known(name string) bool {
	for _, e := range Encodings {
		if e == name {
			return true
		}
	}
	return false
}

// tiktoken-go has no separate gpt2 table; r50k_base uses the same ranks.
func tiktokenName(name string) string {
	if name == "gpt2" {
		return "r50k_base"
	}
	return name
}

func (c *LocalCounter) encoder(name string) (Encoder, error) {
	if !Known(name) {
		return nil, fmt.Errorf("tokenizer.encoder: %s: %s", InvalidEncoding, name)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if enc, ok := c.encoders[name]; ok {
		return enc, nil
	}
	if err, ok := c.failed[name]; ok {
		return nil, err
	}
	enc, err := c.load(tiktokenName(name))
	if err != nil {
		err = fmt.Errorf("tokenizer.encoder: load %s: %w", name, err)
		log.Printf("%v (falling back to estimate)", err)
		c.failed[name] = err
		return nil, err
	}
	c.encoders[name] = enc
	return enc, nil
}

// Count returns the token count of text and whether it is exact.
// Special tokens such as <|endoftext|> are counted rather than rejected.
func (c *LocalCounter) Count(text, encoding string) (int, bool) {
	if text == "" {
		return 0, true
	}
	enc, err := c.encoder(encoding)
	if err != nil {
		return EstimateTokens(text), false
	}
	return len(enc.Encode(text, []string{"all"}, nil)), true
}

// Compare counts text under each encoding. Unknown encodings map to InvalidEncoding.
func (c *LocalCounter) Compare(text string, encodings []string) map[string]interface{} {
	out := make(map[string]interface{}, len(encodings))
	for _, name := range encodings {
		if !Known(name) {
			out[name] = InvalidEncoding
			continue
		}
		n, _ := c.Count(text, name)
		out[name] = n
	}
	return out
}
