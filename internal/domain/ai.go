package domain

import (
	"context"
	"regexp"
	"strings"
)

// AI provider names. Claude is the primary provider, OpenAI the fallback.
const (
	ProviderClaude = "claude"
	ProviderOpenAI = "openai"
)

// AIStreamChunk is one unit of streaming AI output. Field names match the
// SSE wire format emitted by the AI proxy.
type AIStreamChunk struct {
	Delta            string   `json:"delta,omitempty"`
	Done             bool     `json:"done,omitempty"`
	ShouldEscalate   bool     `json:"shouldEscalate,omitempty"`
	EscalationReason string   `json:"escalationReason,omitempty"`
	SuggestedReplies []string `json:"suggestedReplies,omitempty"`
	Error            string   `json:"error,omitempty"`
	Provider         string   `json:"provider,omitempty"`
}

var (
	escalateMarkerPattern     = regexp.MustCompile(`\[ESCALATE:[^\]]*\]`)
	quickRepliesMarkerPattern = regexp.MustCompile(`\[QUICK_REPLIES:[^\]]*\]`)
)

// StripControlMarkers removes the in-band control markers from AI response
// text. The markers drive escalation and quick replies and must never be
// shown to the user.
func StripControlMarkers(text string) string {
	text = escalateMarkerPattern.ReplaceAllString(text, "")
	text = quickRepliesMarkerPattern.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}

// AIResponse is a complete response assembled from a stream or a
// non-streaming call.
type AIResponse struct {
	ResponseText     string
	ShouldEscalate   bool
	EscalationReason string
	SuggestedReplies []string
	// Confidence is a fixed placeholder (0.85) until the proxy reports a
	// real signal. Callers must not treat it as model confidence.
	Confidence float64
	Provider   string
	Usage      *TokenUsage
}

// TokenUsage tracks token consumption for a completion.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Sentiment classifications produced by remote or local analysis.
const (
	SentimentPositive   = "positive"
	SentimentNeutral    = "neutral"
	SentimentNegative   = "negative"
	SentimentFrustrated = "frustrated"
)

// SentimentResult is the outcome of sentiment analysis over user messages.
type SentimentResult struct {
	Sentiment  string   `json:"sentiment"`
	Confidence float64  `json:"confidence"`
	Indicators []string `json:"indicators,omitempty"`
}

// HealthStatus reports provider reachability. ActiveProvider is the primary
// when healthy, otherwise the fallback, otherwise the primary as a default
// label.
type HealthStatus struct {
	PrimaryAvailable  bool
	FallbackAvailable bool
	ActiveProvider    string
}

// AIAgent is the interface the orchestration layer uses for AI operations.
// Streaming is the primary path; ProcessMessage collects the stream for
// callers that cannot consume chunks incrementally.
type AIAgent interface {
	// ProcessMessageStream sends a chat turn and streams chunks back.
	// The returned channel is closed after exactly one chunk with Done set.
	ProcessMessageStream(ctx context.Context, userMessage string, convCtx ConversationContext) <-chan AIStreamChunk

	// ProcessMessage collects the stream into a single response.
	ProcessMessage(ctx context.Context, userMessage string, convCtx ConversationContext) (*AIResponse, error)

	// HealthCheck probes primary then fallback provider reachability.
	HealthCheck(ctx context.Context) HealthStatus

	// GenerateSummary produces a handover summary, falling back to a local
	// heuristic when the remote call fails.
	GenerateSummary(ctx context.Context, convCtx ConversationContext) string

	// AnalyzeSentiment classifies customer sentiment, falling back to a
	// local keyword heuristic when the remote call fails.
	AnalyzeSentiment(ctx context.Context, convCtx ConversationContext) SentimentResult

	// CurrentProvider reports which provider is active (changes on fallback).
	CurrentProvider() string
}
