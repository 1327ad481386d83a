package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"reflect"
	"strings"
	"testing"

	"connectchat/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// sseHandler writes the given lines as an SSE response.
func sseHandler(t *testing.T, lines ...string) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/chat/stream" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		for _, line := range lines {
			fmt.Fprintf(w, "%s\n", line)
		}
	}
}

func chunkLine(t *testing.T, chunk domain.AIStreamChunk) string {
	t.Helper()
	data, err := json.Marshal(chunk)
	if err != nil {
		t.Fatal(err)
	}
	return "data: " + string(data)
}

func collect(t *testing.T, ch <-chan domain.AIStreamChunk) []domain.AIStreamChunk {
	t.Helper()
	var chunks []domain.AIStreamChunk
	for chunk := range ch {
		chunks = append(chunks, chunk)
	}
	return chunks
}

func TestProcessMessageStream_DeltasAndDone(t *testing.T) {
	srv := httptest.NewServer(sseHandler(t,
		chunkLine(t, domain.AIStreamChunk{Delta: "Hello, "}),
		chunkLine(t, domain.AIStreamChunk{Delta: "how can I help?"}),
		chunkLine(t, domain.AIStreamChunk{Done: true}),
		"data: [DONE]",
	))
	defer srv.Close()

	c := NewClient(Config{ProxyBaseURL: srv.URL, Logger: testLogger()})
	chunks := collect(t, c.ProcessMessageStream(context.Background(), "hi", domain.ConversationContext{}))

	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d: %+v", len(chunks), chunks)
	}
	if chunks[0].Delta != "Hello, " || chunks[1].Delta != "how can I help?" {
		t.Fatalf("deltas wrong: %+v", chunks)
	}
	if !chunks[2].Done {
		t.Fatal("terminal chunk missing Done")
	}
	if chunks[2].Provider != domain.ProviderClaude {
		t.Fatalf("provider = %q", chunks[2].Provider)
	}
	if c.CurrentProvider() != domain.ProviderClaude {
		t.Fatalf("current provider = %q", c.CurrentProvider())
	}
}

func TestProcessMessageStream_LocalMarkerDetection(t *testing.T) {
	// The proxy reports no flags; the client detects the markers in the
	// accumulated text and folds them into the terminal chunk.
	srv := httptest.NewServer(sseHandler(t,
		chunkLine(t, domain.AIStreamChunk{Delta: "Let me get someone. [ESCALATE: refund request]"}),
		chunkLine(t, domain.AIStreamChunk{Delta: " [QUICK_REPLIES: Yes please | No thanks]"}),
		chunkLine(t, domain.AIStreamChunk{Done: true}),
	))
	defer srv.Close()

	c := NewClient(Config{ProxyBaseURL: srv.URL, Logger: testLogger()})
	chunks := collect(t, c.ProcessMessageStream(context.Background(), "refund", domain.ConversationContext{}))

	final := chunks[len(chunks)-1]
	if !final.Done {
		t.Fatalf("last chunk not terminal: %+v", final)
	}
	if !final.ShouldEscalate || final.EscalationReason != "refund request" {
		t.Fatalf("escalation not detected: %+v", final)
	}
	if !reflect.DeepEqual(final.SuggestedReplies, []string{"Yes please", "No thanks"}) {
		t.Fatalf("replies = %v", final.SuggestedReplies)
	}
}

func TestProcessMessageStream_ProxyFlagsWin(t *testing.T) {
	srv := httptest.NewServer(sseHandler(t,
		chunkLine(t, domain.AIStreamChunk{Delta: "text"}),
		chunkLine(t, domain.AIStreamChunk{Done: true, ShouldEscalate: true, EscalationReason: "from proxy"}),
	))
	defer srv.Close()

	c := NewClient(Config{ProxyBaseURL: srv.URL, Logger: testLogger()})
	chunks := collect(t, c.ProcessMessageStream(context.Background(), "hi", domain.ConversationContext{}))

	final := chunks[len(chunks)-1]
	if final.EscalationReason != "from proxy" {
		t.Fatalf("proxy-reported reason overwritten: %+v", final)
	}
}

func TestProcessMessageStream_FallbackOnPrimaryFailure(t *testing.T) {
	var calls []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		provider := r.Header.Get("X-Provider")
		calls = append(calls, provider)
		if provider == domain.ProviderClaude {
			http.Error(w, "upstream overloaded", http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprintln(w, chunkLine(t, domain.AIStreamChunk{Delta: "fallback answer"}))
		fmt.Fprintln(w, chunkLine(t, domain.AIStreamChunk{Done: true}))
	}))
	defer srv.Close()

	c := NewClient(Config{ProxyBaseURL: srv.URL, Logger: testLogger()})
	chunks := collect(t, c.ProcessMessageStream(context.Background(), "hi", domain.ConversationContext{}))

	if !reflect.DeepEqual(calls, []string{domain.ProviderClaude, domain.ProviderOpenAI}) {
		t.Fatalf("provider call order = %v", calls)
	}

	// First chunk is the switch notice naming the fallback.
	if chunks[0].Error == "" || !strings.Contains(chunks[0].Error, domain.ProviderOpenAI) {
		t.Fatalf("switch notice missing or wrong: %+v", chunks[0])
	}
	if chunks[0].Done {
		t.Fatal("switch notice must not be terminal")
	}

	final := chunks[len(chunks)-1]
	if !final.Done || final.Provider != domain.ProviderOpenAI {
		t.Fatalf("terminal chunk wrong: %+v", final)
	}
	if c.CurrentProvider() != domain.ProviderOpenAI {
		t.Fatalf("current provider = %q", c.CurrentProvider())
	}
}

func TestProcessMessageStream_BothProvidersFail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(Config{ProxyBaseURL: srv.URL, Logger: testLogger()})
	chunks := collect(t, c.ProcessMessageStream(context.Background(), "hi", domain.ConversationContext{}))

	terminal := 0
	for _, chunk := range chunks {
		if chunk.Done {
			terminal++
		}
	}
	if terminal != 1 {
		t.Fatalf("expected exactly one terminal chunk, got %d: %+v", terminal, chunks)
	}
	final := chunks[len(chunks)-1]
	if !final.Done || final.Error == "" {
		t.Fatalf("terminal chunk must carry the give-up error: %+v", final)
	}
	if c.Available() {
		t.Fatal("client should report unavailable after total failure")
	}
}

func TestProcessMessageStream_MalformedChunksSkipped(t *testing.T) {
	srv := httptest.NewServer(sseHandler(t,
		chunkLine(t, domain.AIStreamChunk{Delta: "good "}),
		"data: {not json at all",
		chunkLine(t, domain.AIStreamChunk{Delta: "text"}),
		chunkLine(t, domain.AIStreamChunk{Done: true}),
	))
	defer srv.Close()

	c := NewClient(Config{ProxyBaseURL: srv.URL, Logger: testLogger()})
	chunks := collect(t, c.ProcessMessageStream(context.Background(), "hi", domain.ConversationContext{}))

	var text strings.Builder
	for _, chunk := range chunks {
		text.WriteString(chunk.Delta)
	}
	if text.String() != "good text" {
		t.Fatalf("malformed chunk leaked into text: %q", text.String())
	}
}

func TestProcessMessageStream_EndWithoutDoneSynthesizesTerminal(t *testing.T) {
	srv := httptest.NewServer(sseHandler(t,
		chunkLine(t, domain.AIStreamChunk{Delta: "partial answer [ESCALATE: ok]"}),
	))
	defer srv.Close()

	c := NewClient(Config{ProxyBaseURL: srv.URL, Logger: testLogger()})
	chunks := collect(t, c.ProcessMessageStream(context.Background(), "hi", domain.ConversationContext{}))

	final := chunks[len(chunks)-1]
	if !final.Done {
		t.Fatalf("no synthesized terminal chunk: %+v", chunks)
	}
	if !final.ShouldEscalate {
		t.Fatalf("markers lost on synthesized terminal: %+v", final)
	}
}

func TestProcessMessage_CollectsStream(t *testing.T) {
	srv := httptest.NewServer(sseHandler(t,
		chunkLine(t, domain.AIStreamChunk{Delta: "All set. [QUICK_REPLIES: Thanks | More help]"}),
		chunkLine(t, domain.AIStreamChunk{Done: true}),
	))
	defer srv.Close()

	c := NewClient(Config{ProxyBaseURL: srv.URL, Logger: testLogger()})
	resp, err := c.ProcessMessage(context.Background(), "hi", domain.ConversationContext{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.ResponseText != "All set." {
		t.Fatalf("text = %q", resp.ResponseText)
	}
	if !reflect.DeepEqual(resp.SuggestedReplies, []string{"Thanks", "More help"}) {
		t.Fatalf("replies = %v", resp.SuggestedReplies)
	}
	if resp.Confidence != 0.85 {
		t.Fatalf("confidence = %v", resp.Confidence)
	}
}

func TestProcessMessage_TotalFailureReturnsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(Config{ProxyBaseURL: srv.URL, Logger: testLogger()})
	if _, err := c.ProcessMessage(context.Background(), "hi", domain.ConversationContext{}); err == nil {
		t.Fatal("expected error when no provider produced text")
	}
}

func TestHealthCheck(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/health" {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("X-Provider") == domain.ProviderClaude {
			http.Error(w, "down", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(Config{ProxyBaseURL: srv.URL, Logger: testLogger()})
	status := c.HealthCheck(context.Background())

	if status.PrimaryAvailable {
		t.Fatal("primary should be down")
	}
	if !status.FallbackAvailable {
		t.Fatal("fallback should be up")
	}
	if status.ActiveProvider != domain.ProviderOpenAI {
		t.Fatalf("active = %q", status.ActiveProvider)
	}
}
