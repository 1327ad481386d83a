package ai

import (
	"strings"
	"testing"

	"connectchat/internal/domain"
)

func userMessages(texts ...string) domain.ConversationContext {
	var msgs []domain.ConversationMessage
	for _, t := range texts {
		msgs = append(msgs, domain.ConversationMessage{Role: domain.ConvRoleUser, Content: t})
	}
	return domain.ConversationContext{Messages: msgs}
}

func TestLocalSentiment_Frustrated(t *testing.T) {
	result := LocalSentiment(userMessages("This is absolutely terrible, I hate it, worst support ever"))

	if result.Sentiment != domain.SentimentFrustrated {
		t.Fatalf("sentiment = %q, want frustrated", result.Sentiment)
	}
	if result.Confidence != 0.8 {
		t.Fatalf("confidence = %v, want 0.8", result.Confidence)
	}
	for _, want := range []string{"terrible", "hate", "worst"} {
		found := false
		for _, ind := range result.Indicators {
			if ind == want {
				found = true
			}
		}
		if !found {
			t.Fatalf("indicator %q missing from %v", want, result.Indicators)
		}
	}
}

func TestLocalSentiment_Polarity(t *testing.T) {
	tests := []struct {
		name       string
		texts      []string
		sentiment  string
		confidence float64
	}{
		{"positive", []string{"thanks, that was great"}, domain.SentimentPositive, 0.6},
		{"mixed", []string{"this is awful and also good"}, domain.SentimentNeutral, 0.5},
		{"single negative", []string{"this is unacceptable"}, domain.SentimentNegative, 0.6},
		{"neutral", []string{"where is my order"}, domain.SentimentNeutral, 0.5},
		{"empty", nil, domain.SentimentNeutral, 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := LocalSentiment(userMessages(tt.texts...))
			if result.Sentiment != tt.sentiment {
				t.Fatalf("sentiment = %q, want %q", result.Sentiment, tt.sentiment)
			}
			if result.Confidence != tt.confidence {
				t.Fatalf("confidence = %v, want %v", result.Confidence, tt.confidence)
			}
		})
	}
}

func TestLocalSentiment_AssistantMessagesIgnored(t *testing.T) {
	ctx := domain.ConversationContext{Messages: []domain.ConversationMessage{
		{Role: domain.ConvRoleAssistant, Content: "I'm terrible, awful, the worst"},
		{Role: domain.ConvRoleUser, Content: "where is my order"},
	}}
	result := LocalSentiment(ctx)
	if result.Sentiment != domain.SentimentNeutral {
		t.Fatalf("assistant text leaked into sentiment: %q", result.Sentiment)
	}
}

func TestLocalSummary_NoMessages(t *testing.T) {
	got := LocalSummary(domain.ConversationContext{})
	if got != "New conversation, no messages exchanged yet." {
		t.Fatalf("summary = %q", got)
	}
}

func TestLocalSummary_CountsAndRecentTopics(t *testing.T) {
	got := LocalSummary(userMessages("one", "two", "three", "four", "five"))

	if !strings.Contains(got, "5 messages") {
		t.Fatalf("summary missing count: %q", got)
	}
	// Only the last three user messages appear as topics.
	if strings.Contains(got, "one") || strings.Contains(got, "two;") {
		t.Fatalf("summary includes old topics: %q", got)
	}
	for _, topic := range []string{"three", "four", "five"} {
		if !strings.Contains(got, topic) {
			t.Fatalf("summary missing topic %q: %q", topic, got)
		}
	}
}

func TestLocalSummary_TruncatesLongTopics(t *testing.T) {
	long := strings.Repeat("a", 80)
	got := LocalSummary(userMessages(long))
	if !strings.Contains(got, strings.Repeat("a", 50)+"...") {
		t.Fatalf("long topic not truncated: %q", got)
	}
	if strings.Contains(got, strings.Repeat("a", 51)) {
		t.Fatalf("topic longer than 50 chars: %q", got)
	}
}
