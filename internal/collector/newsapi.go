package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/primendon/dailycut/internal/logging"
)

const (
	newsAPIEndpoint      = "https://newsapi.org/v2/everything"
	newsAPIMaxRespBytes  = 512 * 1024 // 512KB，单页 10 条绰绰有余
	newsAPIClientTimeout = 10 * time.Second
	newsAPIPageSize      = 10
)

// 查询只用最近档期的前几个颁奖礼，条目太多会稀释相关度
var newsAPIAwardShows = []string{
	"Golden Globes",
	"SAG Awards",
	"BAFTA",
	"Oscars",
	"Academy Awards",
}

// NewsAPIFetcher 通过 NewsAPI 拉取颁奖季新闻头条
type NewsAPIFetcher struct {
	apiKey   string
	endpoint string
	budget   *Budget
	client   *http.Client
	log      logging.Logger
}

func NewNewsAPIFetcher(apiKey string, budget *Budget, log logging.Logger) *NewsAPIFetcher {
	return &NewsAPIFetcher{
		apiKey:   apiKey,
		endpoint: newsAPIEndpoint,
		budget:   budget,
		client:   &http.Client{Timeout: newsAPIClientTimeout},
		log:      log,
	}
}

func (n *NewsAPIFetcher) Name() string {
	return "newsapi_awards"
}

func (n *NewsAPIFetcher) Kind() SourceKind {
	return KindHeadline
}

func (n *NewsAPIFetcher) Enabled() bool {
	return n.apiKey != ""
}

type newsAPIResp struct {
	Status   string `json:"status"`
	Code     string `json:"code"`
	Message  string `json:"message"`
	Articles []struct {
		Source struct {
			Name string `json:"name"`
		} `json:"source"`
		Title       string    `json:"title"`
		Description string    `json:"description"`
		URL         string    `json:"url"`
		URLToImage  string    `json:"urlToImage"`
		PublishedAt time.Time `json:"publishedAt"`
	} `json:"articles"`
}

func (n *NewsAPIFetcher) Fetch(ctx context.Context, q QueryContext) ([]RawRecord, error) {
	if !n.Enabled() || !q.AwardMode {
		return nil, nil
	}
	if !n.budget.Allow() {
		n.log.Warnf("newsapi: request budget exhausted, skipping this cycle")
		return nil, nil
	}

	params := url.Values{}
	params.Set("q", strings.Join(newsAPIAwardShows, " OR "))
	params.Set("language", "en")
	params.Set("sortBy", "publishedAt")
	params.Set("pageSize", strconv.Itoa(newsAPIPageSize))
	params.Set("apiKey", n.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("newsapi: build request: %w", err)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("newsapi: fetch headlines: %w", err)
	}
	defer resp.Body.Close()

	var data newsAPIResp
	if err := json.NewDecoder(io.LimitReader(resp.Body, newsAPIMaxRespBytes)).Decode(&data); err != nil {
		return nil, fmt.Errorf("newsapi: decode response: %w", err)
	}
	// 出错时返回 status=error 和原因，HTTP 状态码不可靠
	if data.Status != "ok" {
		return nil, fmt.Errorf("newsapi: %s: %s", data.Code, data.Message)
	}

	out := make([]RawRecord, 0, len(data.Articles))
	for _, a := range data.Articles {
		if a.Title == "" || a.URL == "" {
			continue
		}
		source := a.Source.Name
		if source == "" {
			source = "News"
		}
		out = append(out, RawRecord{
			Kind:        KindHeadline,
			SourceName:  source,
			Title:       a.Title,
			URL:         a.URL,
			Description: a.Description,
			PublishedAt: a.PublishedAt,
			Thumbnail:   a.URLToImage,
		})
	}
	return out, nil
}
