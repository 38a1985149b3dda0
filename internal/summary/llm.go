package summary

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const (
	anthropicEndpoint = "https://api.anthropic.com/v1/messages"
	anthropicVersion  = "2023-06-01"
	llmModel          = "claude-3-haiku-20240307"
	llmMaxTokens      = 150
	llmTimeout        = 20 * time.Second
	llmMaxDescRunes   = 1000
)

// LLMClient 调用 Anthropic Messages API 生成两句话的收听推荐
type LLMClient struct {
	apiKey   string
	model    string
	endpoint string
	client   *http.Client
}

func NewLLMClient(apiKey string) *LLMClient {
	return &LLMClient{
		apiKey:   apiKey,
		model:    llmModel,
		endpoint: anthropicEndpoint,
		client:   &http.Client{Timeout: llmTimeout},
	}
}

type messagesRequest struct {
	Model     string        `json:"model"`
	MaxTokens int           `json:"max_tokens"`
	Messages  []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// Summarize 请求模型给单集写"值不值得听"的两句话
func (c *LLMClient) Summarize(ctx context.Context, show, title, description string) (string, error) {
	desc := description
	if desc == "" {
		desc = "No description available"
	} else if rs := []rune(desc); len(rs) > llmMaxDescRunes {
		desc = string(rs[:llmMaxDescRunes])
	}

	prompt := fmt.Sprintf(`You're a podcast recommendation assistant. Based on this episode info, write exactly 2 sentences in a casual, helpful tone answering "Is it worth listening to?"

Podcast: %s
Episode Title: %s
Description: %s

Be specific about who the guest is (if mentioned) and what makes this episode interesting. Keep it concise and engaging.`, show, title, desc)

	body, err := json.Marshal(messagesRequest{
		Model:     c.model,
		MaxTokens: llmMaxTokens,
		Messages:  []chatMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("api returned status %d", resp.StatusCode)
	}

	var mr messagesResponse
	if err := json.NewDecoder(resp.Body).Decode(&mr); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	for _, block := range mr.Content {
		if block.Type == "text" && strings.TrimSpace(block.Text) != "" {
			return strings.TrimSpace(block.Text), nil
		}
	}
	return "", fmt.Errorf("empty content in response")
}
