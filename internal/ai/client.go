// Package ai streams chat turns through an AI proxy with automatic
// claude -> openai fallback, extracts in-band control markers, and provides
// best-effort summary and sentiment analysis with local heuristics behind
// the remote calls.
package ai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"connectchat/internal/domain"
)

const (
	defaultMaxTokens   = 1024
	defaultTemperature = 0.7
	defaultHTTPTimeout = 120 * time.Second

	// Max SSE line size. Provider deltas are small; this guards against a
	// misbehaving proxy.
	maxSSELineBytes = 1024 * 1024
)

// Config configures the AI streaming client.
type Config struct {
	ProxyBaseURL     string
	PrimaryProvider  string
	FallbackProvider string
	MaxTokens        int
	Temperature      float64
	SystemPrompt     string
	HTTPClient       *http.Client
	Logger           *slog.Logger
}

// Client implements domain.AIAgent against the AI proxy HTTP API.
type Client struct {
	baseURL      string
	primary      string
	fallback     string
	maxTokens    int
	temperature  float64
	systemPrompt string
	client       *http.Client
	logger       *slog.Logger

	mu        sync.RWMutex
	current   string
	available bool
}

// NewClient creates an AI client. Zero-value config fields get defaults
// (claude primary, openai fallback).
func NewClient(cfg Config) *Client {
	if cfg.PrimaryProvider == "" {
		cfg.PrimaryProvider = domain.ProviderClaude
	}
	if cfg.FallbackProvider == "" {
		cfg.FallbackProvider = domain.ProviderOpenAI
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultMaxTokens
	}
	if cfg.Temperature <= 0 {
		cfg.Temperature = defaultTemperature
	}
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = DefaultSystemPrompt
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = SharedHTTPClient(defaultHTTPTimeout)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Client{
		baseURL:      strings.TrimRight(cfg.ProxyBaseURL, "/"),
		primary:      cfg.PrimaryProvider,
		fallback:     cfg.FallbackProvider,
		maxTokens:    cfg.MaxTokens,
		temperature:  cfg.Temperature,
		systemPrompt: cfg.SystemPrompt,
		client:       cfg.HTTPClient,
		logger:       cfg.Logger,
		current:      cfg.PrimaryProvider,
		available:    true,
	}
}

// CurrentProvider reports the provider used by the most recent exchange.
func (c *Client) CurrentProvider() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

// Available reports whether the last exchange reached any provider.
func (c *Client) Available() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.available
}

func (c *Client) setProvider(p string) {
	c.mu.Lock()
	c.current = p
	c.mu.Unlock()
}

func (c *Client) setAvailable(ok bool) {
	c.mu.Lock()
	c.available = ok
	c.mu.Unlock()
}

// chatRequest is the AI proxy chat endpoint request body.
type chatRequest struct {
	Messages     []domain.ConversationMessage `json:"messages"`
	Provider     string                       `json:"provider"`
	Stream       bool                         `json:"stream"`
	MaxTokens    int                          `json:"maxTokens"`
	Temperature  float64                      `json:"temperature"`
	SystemPrompt string                       `json:"systemPrompt,omitempty"`
	SessionID    string                       `json:"sessionId,omitempty"`
}

// ProcessMessageStream sends a chat turn and streams chunks back. The primary
// provider is tried first; on failure a provider-switch notice is emitted and
// the whole exchange is retried against the fallback. Exactly one chunk with
// Done set is delivered on every path, then the channel closes.
func (c *Client) ProcessMessageStream(ctx context.Context, userMessage string, convCtx domain.ConversationContext) <-chan domain.AIStreamChunk {
	out := make(chan domain.AIStreamChunk, 16)

	go func() {
		defer close(out)

		messages := make([]domain.ConversationMessage, 0, len(convCtx.Messages)+1)
		messages = append(messages, convCtx.Messages...)
		messages = append(messages, domain.ConversationMessage{
			Role:      domain.ConvRoleUser,
			Content:   userMessage,
			Timestamp: time.Now().UnixMilli(),
		})

		c.setProvider(c.primary)
		err := c.streamFromProvider(ctx, c.primary, messages, convCtx.SessionID, out)
		if err == nil {
			c.setAvailable(true)
			return
		}
		c.logger.Warn("primary provider failed, switching to fallback",
			"primary", c.primary,
			"fallback", c.fallback,
			"error", err,
		)

		// Switch to the fallback before notifying so the notice names the
		// provider the next chunks come from.
		c.setProvider(c.fallback)
		if !emit(ctx, out, domain.AIStreamChunk{
			Error:    fmt.Sprintf("Primary provider unavailable, switching to %s...", c.fallback),
			Provider: c.fallback,
		}) {
			return
		}

		err = c.streamFromProvider(ctx, c.fallback, messages, convCtx.SessionID, out)
		if err == nil {
			c.setAvailable(true)
			return
		}
		c.logger.Error("fallback provider failed", "provider", c.fallback, "error", err)
		c.setAvailable(false)

		// Terminal chunk is mandatory even on give-up so callers can reset
		// their processing state.
		emit(ctx, out, domain.AIStreamChunk{
			Error:    "AI service unavailable. Please try again later or speak with an agent.",
			Done:     true,
			Provider: c.fallback,
		})
	}()

	return out
}

// streamFromProvider performs one streaming exchange. It returns an error
// only when the caller should retry on another provider; once a terminal
// chunk has been emitted it always returns nil.
func (c *Client) streamFromProvider(ctx context.Context, provider string, messages []domain.ConversationMessage, sessionID string, out chan<- domain.AIStreamChunk) error {
	body := chatRequest{
		Messages:     messages,
		Provider:     provider,
		Stream:       true,
		MaxTokens:    c.maxTokens,
		Temperature:  c.temperature,
		SystemPrompt: c.systemPrompt + escalationInstructions,
		SessionID:    sessionID,
	}
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/api/v1/chat/stream", bytes.NewReader(jsonBody))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("X-Provider", provider)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s request: %w", provider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%s stream %d: %s", provider, resp.StatusCode, string(respBody))
	}

	var full strings.Builder
	var markers markerState
	received := false
	skipped := 0

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), maxSSELineBytes)

	for scanner.Scan() {
		data, ok := sseData(scanner.Text())
		if !ok {
			continue
		}
		if data == sseDoneSentinel {
			break
		}

		var chunk domain.AIStreamChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			// Never surface malformed payloads as text.
			skipped++
			c.logger.Warn("skipping unparseable SSE chunk",
				"provider", provider,
				"data", truncate(data, 50),
				"error", err,
			)
			continue
		}
		chunk.Provider = provider
		received = true

		if chunk.Delta != "" {
			full.WriteString(chunk.Delta)
			markers.scan(full.String())
		}

		if chunk.Done {
			mergeMarkers(&chunk, markers)
			emit(ctx, out, chunk)
			if skipped > 0 {
				c.logger.Info("stream completed with skipped chunks", "provider", provider, "skipped", skipped)
			}
			return nil
		}

		if !emit(ctx, out, chunk) {
			return nil
		}
	}

	if err := scanner.Err(); err != nil && full.Len() == 0 {
		return fmt.Errorf("%s stream read: %w", provider, err)
	}
	if !received {
		return fmt.Errorf("%s stream ended without content (%d undecodable chunks)", provider, skipped)
	}

	// Stream ended without an explicit done chunk; synthesize the terminal
	// chunk from the locally detected markers.
	terminal := domain.AIStreamChunk{Done: true, Provider: provider}
	mergeMarkers(&terminal, markers)
	emit(ctx, out, terminal)
	return nil
}

// mergeMarkers folds locally detected markers into a terminal chunk when the
// proxy did not report them itself.
func mergeMarkers(chunk *domain.AIStreamChunk, markers markerState) {
	if !chunk.ShouldEscalate && markers.shouldEscalate {
		chunk.ShouldEscalate = true
		chunk.EscalationReason = markers.escalationReason
	}
	if len(chunk.SuggestedReplies) == 0 {
		chunk.SuggestedReplies = markers.suggestedReplies
	}
}

// emit delivers a chunk unless the consumer is gone. Returns false when the
// context was cancelled.
func emit(ctx context.Context, out chan<- domain.AIStreamChunk, chunk domain.AIStreamChunk) bool {
	select {
	case out <- chunk:
		return true
	case <-ctx.Done():
		return false
	}
}

// ProcessMessage collects the streaming exchange into a single response.
// The confidence value is a fixed placeholder, not a computed signal.
func (c *Client) ProcessMessage(ctx context.Context, userMessage string, convCtx domain.ConversationContext) (*domain.AIResponse, error) {
	var buffer strings.Builder
	var final domain.AIStreamChunk
	var lastError string

	for chunk := range c.ProcessMessageStream(ctx, userMessage, convCtx) {
		if chunk.Delta != "" {
			buffer.WriteString(chunk.Delta)
		}
		if chunk.Error != "" {
			lastError = chunk.Error
		}
		if chunk.Done {
			final = chunk
		}
	}

	if buffer.Len() == 0 && lastError != "" {
		return nil, errors.New(lastError)
	}

	return &domain.AIResponse{
		ResponseText:     domain.StripControlMarkers(buffer.String()),
		ShouldEscalate:   final.ShouldEscalate,
		EscalationReason: final.EscalationReason,
		SuggestedReplies: final.SuggestedReplies,
		Confidence:       0.85,
		Provider:         c.CurrentProvider(),
	}, nil
}

// HealthCheck probes both providers. The active provider is the primary when
// healthy, otherwise the fallback, otherwise the primary as a default label.
func (c *Client) HealthCheck(ctx context.Context) domain.HealthStatus {
	primaryOK := c.checkProviderHealth(ctx, c.primary)
	fallbackOK := c.checkProviderHealth(ctx, c.fallback)

	active := c.primary
	if !primaryOK && fallbackOK {
		active = c.fallback
	}

	c.mu.Lock()
	c.available = primaryOK || fallbackOK
	c.current = active
	c.mu.Unlock()

	return domain.HealthStatus{
		PrimaryAvailable:  primaryOK,
		FallbackAvailable: fallbackOK,
		ActiveProvider:    active,
	}
}

func (c *Client) checkProviderHealth(ctx context.Context, provider string) bool {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/api/v1/health", nil)
	if err != nil {
		return false
	}
	req.Header.Set("X-Provider", provider)

	resp, err := c.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
