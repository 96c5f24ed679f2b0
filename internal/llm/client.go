package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/callwarden/callwarden/internal/logger"
)

// ErrUnavailable means the hosted evaluator is not reachable or the
// configured model is missing. Recoverable: the next availability check may
// flip it back.
var ErrUnavailable = errors.New("hosted evaluator unavailable")

// ProtocolError means the provider responded but its payload failed the
// output contract. The caller degrades to the deterministic path.
type ProtocolError struct {
	Reason string
	Err    error
}

func (e *ProtocolError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("provider protocol error: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("provider protocol error: %s", e.Reason)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// Client is the adapter to a local Ollama instance. Model and availability
// are guarded by a read/write lock: Evaluate takes the read side, while
// CheckAvailability and SetModel take the write side.
type Client struct {
	endpoint   string
	httpClient *http.Client
	logger     *logger.Logger

	mu        sync.RWMutex
	model     string
	available bool
}

// NewClient creates an adapter for the given Ollama endpoint and model
func NewClient(endpoint, model string, timeout time.Duration, log *logger.Logger) *Client {
	if endpoint == "" {
		endpoint = "http://localhost:11434"
	}
	if model == "" {
		model = "llama3.2:1b"
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	return &Client{
		endpoint:   endpoint,
		model:      model,
		httpClient: &http.Client{Timeout: timeout},
		logger:     log.WithComponent("llm"),
	}
}

// Available reports the result of the last availability check
func (c *Client) Available() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.available
}

// Model returns the currently configured model name
func (c *Client) Model() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.model
}

// Endpoint returns the provider endpoint
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Status returns the adapter's current status snapshot
func (c *Client) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Status{Available: c.available, Model: c.model, Endpoint: c.endpoint}
}

// SetModel changes the configured model and forces unavailability until the
// next explicit availability check.
func (c *Client) SetModel(model string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.model = model
	c.available = false
}

// CheckAvailability probes the provider's model listing. If the configured
// model is absent it attempts a model pull and treats its success as
// availability. Any network failure or non-success status yields
// unavailable.
func (c *Client) CheckAvailability(ctx context.Context) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"/api/tags", nil)
	if err != nil {
		c.available = false
		return false
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("Provider not available, running in rules-only mode", zap.Error(err))
		c.available = false
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("Provider returned non-success status", zap.Int("status", resp.StatusCode))
		c.available = false
		return false
	}

	var tags tagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		c.logger.Warn("Failed to parse model listing", zap.Error(err))
		c.available = false
		return false
	}

	family := strings.SplitN(c.model, ":", 2)[0]
	for _, m := range tags.Models {
		if strings.HasPrefix(m.Name, family) {
			c.available = true
			c.logger.Info("Hosted evaluator connected", zap.String("model", c.model))
			return true
		}
	}

	c.logger.Warn("Configured model not installed, attempting pull", zap.String("model", c.model))
	c.available = c.pullModel(ctx)
	return c.available
}

// pullModel asks the provider to fetch the configured model. Caller holds
// the write lock.
func (c *Client) pullModel(ctx context.Context) bool {
	body, err := json.Marshal(pullRequest{Name: c.model, Stream: false})
	if err != nil {
		return false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/api/pull", bytes.NewReader(body))
	if err != nil {
		return false
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("Model pull failed", zap.Error(err))
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("Model pull returned non-success status", zap.Int("status", resp.StatusCode))
		return false
	}

	c.logger.Info("Model pulled", zap.String("model", c.model))
	return true
}

// Evaluate sends the transcript and metadata to the provider under the
// strict JSON output contract. There is no partial-result mode and no
// internal retry: any transport, status, or contract failure is returned as
// an error for the caller to fall back on.
func (c *Client) Evaluate(ctx context.Context, metadataText, transcript, renderedCatalog string) (*Response, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.available {
		return nil, ErrUnavailable
	}

	reqBody := generateRequest{
		Model:  c.model,
		Prompt: fmt.Sprintf("CALL METADATA:\n%s\n\nTRANSCRIPT:\n%s\n\nAnalyze and return JSON:", metadataText, transcript),
		System: systemPrompt(renderedCatalog),
		Stream: false,
		Format: "json",
		Options: generateOptions{
			Temperature: 0.1,
			TopP:        0.9,
			NumPredict:  2048,
		},
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal generate request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create generate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("generate request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, &ProtocolError{Reason: fmt.Sprintf("status %d", resp.StatusCode)}
	}

	var generated generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&generated); err != nil {
		return nil, &ProtocolError{Reason: "unparsable provider envelope", Err: err}
	}

	var out Response
	if err := json.Unmarshal([]byte(generated.Response), &out); err != nil {
		return nil, &ProtocolError{Reason: "model output failed schema", Err: err}
	}

	return &out, nil
}
