// Package webhook fires outbound webhook events to the configured URLs.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"
)

// Dispatcher posts events to a fixed list of URLs.
type Dispatcher struct {
	urls   []string
	client *http.Client
	delays []time.Duration // waits before each retry
	sleep  func(time.Duration)
	wg     sync.WaitGroup
}

// New creates a Dispatcher with a default HTTP client. Empty URLs are ignored.
func New(urls []string) *Dispatcher {
	var kept []string
	for _, u := range urls {
		if u != "" {
			kept = append(kept, u)
		}
	}
	return &Dispatcher{
		urls:   kept,
		client: &http.Client{Timeout: 10 * time.Second},
		delays: []time.Duration{500 * time.Millisecond, time.Second, 2 * time.Second},
		sleep:  time.Sleep,
	}
}

// Payload is the JSON body sent to webhook URLs.
type Payload struct {
	Event     string      `json:"event"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// Enabled reports whether any URL is configured.
func (d *Dispatcher) Enabled() bool { return d != nil && len(d.urls) > 0 }

// Fire sends an event to every URL in the background.
// A failed delivery is retried 3x with exponential backoff (500ms, 1s, 2s).
func (d *Dispatcher) Fire(event string, data interface{}) {
	if !d.Enabled() {
		return
	}
	body, err := json.Marshal(Payload{Event: event, Timestamp: time.Now(), Data: data})
	if err != nil {
		log.Printf("webhook.Fire: marshal: %v", err)
		return
	}
	for _, url := range d.urls {
		d.wg.Add(1)
		go func(url string) {
			defer d.wg.Done()
			d.fireOne(url, body)
		}(url)
	}
}

// Wait blocks until every in-flight delivery has finished.
func (d *Dispatcher) Wait() {
	if d != nil {
		d.wg.Wait()
	}
}

func (d *Dispatcher) fireOne(url string, body []byte) {
	for i := 0; i <= len(d.delays); i++ {
		if i > 0 {
			d.sleep(d.delays[i-1])
		}
		status, err := d.post(context.Background(), url, body)
		if err == nil && status < 400 {
			return
		}
		log.Printf("webhook.fireOne: attempt %d to %s: status=%d err=%v", i+1, url, status, err)
	}
}

func (d *Dispatcher) post(ctx context.Context, url string, body []byte) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, 8*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("webhook.post: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := d.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("webhook.post: do: %w", err)
	}
	defer resp.Body.Close()
	return resp.StatusCode, nil
}

// Test posts a single test payload to url without retrying.
func (d *Dispatcher) Test(ctx context.Context, url string) error {
	body, _ := json.Marshal(Payload{
		Event:     "webhook.test",
		Timestamp: time.Now(),
		Data:      map[string]string{"message": "This is a test from tokenbench"},
	})
	status, err := d.post(ctx, url, body)
	if err != nil {
		return fmt.Errorf("webhook.Test: post: %w", err)
	}
	if status >= 400 {
		return fmt.Errorf("webhook.Test: server returned %d", status)
	}
	return nil
}
