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

const extractTimeout = 25 * time.Second

// ExtractClient 调用 page-extract sidecar 抓取文章正文，
// 用于给只有标题的头条补一段摘录
type ExtractClient struct {
	baseURL string
	client  *http.Client
}

func NewExtractClient(baseURL string) *ExtractClient {
	return &ExtractClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: extractTimeout},
	}
}

type extractRequest struct {
	URL      string `json:"url"`
	MaxChars int    `json:"maxChars"`
}

type extractResponse struct {
	OK    bool   `json:"ok"`
	Text  string `json:"text"`
	Error string `json:"error"`
}

func (c *ExtractClient) Extract(ctx context.Context, pageURL string, maxChars int) (string, error) {
	body, err := json.Marshal(extractRequest{URL: pageURL, MaxChars: maxChars})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/extract", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("extract request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var er extractResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	// sidecar 把抓取失败编码在 body 里，HTTP 层面仍是 200
	if !er.OK {
		return "", fmt.Errorf("extract failed: %s", er.Error)
	}
	return strings.TrimSpace(er.Text), nil
}
