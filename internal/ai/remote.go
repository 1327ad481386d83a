package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"connectchat/internal/domain"
)

type summaryRequest struct {
	Messages []domain.ConversationMessage `json:"messages"`
	Provider string                       `json:"provider"`
}

type sentimentRequest struct {
	Messages []domain.ConversationMessage `json:"messages"`
}

// GenerateSummary asks the proxy for a handover summary. Any failure falls
// back to the local heuristic; this call never errors.
func (c *Client) GenerateSummary(ctx context.Context, convCtx domain.ConversationContext) string {
	body, err := c.postJSON(ctx, "/api/v1/summarize", summaryRequest{
		Messages: convCtx.Messages,
		Provider: c.CurrentProvider(),
	})
	if err != nil {
		c.logger.Warn("remote summary failed, using local fallback", "error", err)
		return LocalSummary(convCtx)
	}
	return string(body)
}

// AnalyzeSentiment asks the proxy to classify customer sentiment. Any
// failure falls back to the local keyword heuristic; this call never errors.
func (c *Client) AnalyzeSentiment(ctx context.Context, convCtx domain.ConversationContext) domain.SentimentResult {
	body, err := c.postJSON(ctx, "/api/v1/sentiment", sentimentRequest{Messages: convCtx.Messages})
	if err != nil {
		c.logger.Warn("remote sentiment failed, using local fallback", "error", err)
		return LocalSentiment(convCtx)
	}

	var result domain.SentimentResult
	if err := json.Unmarshal(body, &result); err != nil {
		c.logger.Warn("sentiment response undecodable, using local fallback", "error", err)
		return LocalSentiment(convCtx)
	}
	return result
}

func (c *Client) postJSON(ctx context.Context, path string, payload any) ([]byte, error) {
	jsonBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+path, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%s returned %d: %s", path, resp.StatusCode, string(respBody))
	}

	return io.ReadAll(resp.Body)
}
