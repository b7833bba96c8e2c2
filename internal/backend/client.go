package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Manjussha/tokenbench/internal/apperr"
	"github.com/Manjussha/tokenbench/internal/intake"
	"github.com/Manjussha/tokenbench/internal/limiter"
)

const _defaultTimeout = 60 * time.Second

// Backend paths.
const (
	PathCountTokens = "/api/count-tokens"
	PathAnalyze     = "/analyze"
	PathBatch       = "/batch_tokenize"
	PathCompare     = "/compare_tokenizers"
	PathHealth      = "/health"
)

// ErrUnreachable marks failures where the backend could not be reached at all.
var ErrUnreachable = errors.New("tokenizer backend unreachable")

// Client calls the tokenizer backend. Zero value is not valid; use NewClient.
// Requests are never retried.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *limiter.Limiter
}

// NewClient builds a Client. baseURL is the service root; a trailing slash is dropped.
// If httpClient is nil a client with a 60s timeout is used. lim may be nil.
func NewClient(baseURL string, httpClient *http.Client, lim *limiter.Limiter) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: _defaultTimeout}
	}
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: httpClient,
		limiter:    lim,
	}
}

// BaseURL returns the configured service root.
func (c *Client) BaseURL() string { return c.baseURL }

// URL joins path onto the base URL.
func (c *Client) URL(path string) string { return c.baseURL + path }

// HTTPClient exposes the underlying client for pass-through proxying.
func (c *Client) HTTPClient() *http.Client { return c.httpClient }

// Wait applies the client-side rate limit.
func (c *Client) Wait(ctx context.Context) error {
	return c.limiter.Wait(ctx)
}

// CountTokens uploads files as multipart form fields file0..fileN plus
// encoding, reporting upload progress as whole percentages.
func (c *Client) CountTokens(ctx context.Context, files []intake.File, encoding string, progress ProgressFunc) (*CountResult, error) {
	if len(files) == 0 {
		return nil, apperr.Validation("No files selected")
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for i, f := range files {
		part, err := mw.CreateFormFile(fmt.Sprintf("file%d", i), f.Name)
		if err != nil {
			return nil, fmt.Errorf("backend.CountTokens: form file: %w", err)
		}
		if _, err := part.Write(f.Content); err != nil {
			return nil, fmt.Errorf("backend.CountTokens: write %s: %w", f.Name, err)
		}
	}
	if err := mw.WriteField("encoding", encoding); err != nil {
		return nil, fmt.Errorf("backend.CountTokens: encoding field: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("backend.CountTokens: close form: %w", err)
	}

	if err := c.Wait(ctx); err != nil {
		return nil, apperr.Cancelled("Upload aborted", err)
	}

	size := int64(body.Len())
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL(PathCountTokens),
		newProgressReader(&body, size, progress))
	if err != nil {
		return nil, fmt.Errorf("backend.CountTokens: request: %w", err)
	}
	req.ContentLength = size
	req.Header.Set("Content-Type", mw.FormDataContentType())
	c.setRequestID(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, apperr.Cancelled("Upload aborted", err)
		}
		return nil, apperr.Request("Network error during upload", errors.Join(ErrUnreachable, err))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		if ctx.Err() != nil {
			return nil, apperr.Cancelled("Upload aborted", err)
		}
		return nil, apperr.Request("Network error during upload", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := errorMessage(raw)
		if msg == "" {
			msg = fmt.Sprintf("Upload failed (%d)", resp.StatusCode)
		}
		return nil, statusError(resp.StatusCode, msg)
	}

	var out struct {
		CountResult
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, apperr.Request("Failed to parse response", err)
	}
	if out.Error != "" {
		return nil, apperr.Request(out.Error, nil)
	}
	if out.Files == nil {
		out.Files = []FileStat{}
	}
	return &out.CountResult, nil
}

// Analyze tokenizes a single text.
func (c *Client) Analyze(ctx context.Context, text, encoding string) (*AnalyzeResult, error) {
	var out AnalyzeResult
	if err := c.postJSON(ctx, PathAnalyze, map[string]interface{}{
		"text":     text,
		"encoding": encoding,
	}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Batch tokenizes several texts with one encoding. Results are in input order.
func (c *Client) Batch(ctx context.Context, texts []string, encoding string) (*BatchResult, error) {
	var out BatchResult
	if err := c.postJSON(ctx, PathBatch, map[string]interface{}{
		"texts":    texts,
		"encoding": encoding,
	}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Compare counts one text under several encodings.
func (c *Client) Compare(ctx context.Context, text string, encodings []string) (*CompareResult, error) {
	var out CompareResult
	if err := c.postJSON(ctx, PathCompare, map[string]interface{}{
		"text":      text,
		"encodings": encodings,
	}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Health checks backend liveness and returns the round-trip latency.
func (c *Client) Health(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL(PathHealth), nil)
	if err != nil {
		return 0, fmt.Errorf("backend.Health: request: %w", err)
	}
	c.setRequestID(req)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("backend.Health: %w", errors.Join(ErrUnreachable, err))
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, fmt.Errorf("backend.Health: %w: HTTP %d", ErrUnreachable, resp.StatusCode)
	}
	return time.Since(start), nil
}

// postJSON sends body and decodes the response into out.
// A body that is not JSON is "Invalid server response"; a non-2xx status or
// an "error" field becomes a request error carrying that message.
func (c *Client) postJSON(ctx context.Context, path string, body interface{}, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("backend.postJSON %s: marshal: %w", path, err)
	}
	if err := c.Wait(ctx); err != nil {
		return apperr.Cancelled("", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL(path), bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("backend.postJSON %s: request: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.setRequestID(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return apperr.Cancelled("", err)
		}
		return apperr.Request("Request failed", errors.Join(ErrUnreachable, err))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		if ctx.Err() != nil {
			return apperr.Cancelled("", err)
		}
		return apperr.Request("Request failed", err)
	}

	var envelope struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return apperr.Request("Invalid server response", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 || envelope.Error != "" {
		msg := envelope.Error
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		if msg == "" {
			msg = "Request failed"
		}
		return statusError(resp.StatusCode, msg)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return apperr.Request("Invalid server response", err)
	}
	return nil
}

func (c *Client) setRequestID(req *http.Request) {
	req.Header.Set("X-Request-ID", uuid.NewString())
}

// statusError wraps a failed status, tagging rate limit responses.
func statusError(status int, msg string) error {
	var cause error
	if limiter.DetectLimit(status, msg) {
		cause = &limiter.ErrRateLimit{Status: status, Message: msg}
	}
	return apperr.Request(msg, cause)
}

// errorMessage extracts {"error": "..."} from a body, or returns the trimmed text.
func errorMessage(raw []byte) string {
	var envelope struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Error != "" {
		return envelope.Error
	}
	return strings.TrimSpace(string(raw))
}
