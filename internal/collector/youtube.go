package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/primendon/dailycut/internal/logging"
)

const (
	ytSearchEndpoint   = "https://www.googleapis.com/youtube/v3/search"
	ytMaxResponseBytes = 1 << 20 // 1MB
	ytClientTimeout    = 10 * time.Second
	ytConcurrency      = 3
	ytResultsPerQuery  = 8
	ytMaxItems         = 10
)

// 访谈常驻频道，出现即收录，不再做相关性判断
var ytPriorityChannels = []string{
	"The Tonight Show Starring Jimmy Fallon",
	"The Late Show with Stephen Colbert",
	"Late Night with Seth Meyers",
	"Jimmy Kimmel Live",
	"The Late Late Show with James Corden",
	"The Drew Barrymore Show",
	"The Kelly Clarkson Show",
	"The Jennifer Hudson Show",
	"Good Morning America",
	"TODAY",
	"CBS Mornings",
	"Variety",
	"Vanity Fair",
	"The Hollywood Reporter",
	"Entertainment Tonight",
	"Access Hollywood",
	"E! News",
	"Hot Ones",
	"Wired",
	"GQ",
	"W Magazine",
	"Elle",
	"Vogue",
	"60 Minutes",
	"The View",
}

// 命中即整条丢弃的低质内容关键词
var ytExcludedTerms = []string{
	"kids", "children", "cartoon", "animation", "animated",
	"nursery", "rhyme", "toddler", "baby", "peppa",
	"cocomelon", "paw patrol", "sesame street",
	"toy", "unboxing", "gameplay", "playthrough",
	"reaction video", "fan made", "parody",
	"meme", "tiktok compilation", "shorts compilation",
	"asmr", "mukbang", "10 hours",
}

// 剧名消歧：纯剧名搜索会命中同名无关内容，补充播出平台和主演
var ytShowContext = map[string]string{
	"the bear":            "The Bear FX Hulu TV show",
	"succession":          "Succession HBO TV show",
	"the office":          "The Office TV show cast",
	"friends":             "Friends TV show reunion",
	"wednesday":           "Wednesday Netflix Jenna Ortega",
	"euphoria":            "Euphoria HBO Zendaya",
	"house of the dragon": "House of the Dragon HBO",
	"the last of us":      "The Last of Us HBO Pedro Pascal",
	"yellowjackets":       "Yellowjackets Showtime",
	"abbott elementary":   "Abbott Elementary ABC Quinta Brunson",
}

// YouTubeFetcher 按用户兴趣搜索最近的名人访谈视频
type YouTubeFetcher struct {
	apiKey   string
	endpoint string
	budget   *Budget
	client   *http.Client
	log      logging.Logger
}

func NewYouTubeFetcher(apiKey string, budget *Budget, log logging.Logger) *YouTubeFetcher {
	return &YouTubeFetcher{
		apiKey:   apiKey,
		endpoint: ytSearchEndpoint,
		budget:   budget,
		client:   &http.Client{Timeout: ytClientTimeout},
		log:      log,
	}
}

func (y *YouTubeFetcher) Name() string {
	return "youtube_interviews"
}

func (y *YouTubeFetcher) Kind() SourceKind {
	return KindInterview
}

func (y *YouTubeFetcher) Enabled() bool {
	return y.apiKey != ""
}

type ytVideo struct {
	title       string
	description string
	url         string
	thumbnail   string
	channel     string
	published   time.Time
	priority    bool
}

func (y *YouTubeFetcher) Fetch(ctx context.Context, q QueryContext) ([]RawRecord, error) {
	if !y.Enabled() || len(q.Interests) == 0 {
		return nil, nil
	}

	lookback := q.Lookback
	if lookback <= 0 {
		lookback = 48 * time.Hour
	}
	publishedAfter := time.Now().UTC().Add(-lookback)

	type queryResult struct {
		videos []ytVideo
		err    error
		ran    bool
	}

	// 每个兴趣一次搜索，槽位按兴趣序写入，保证后续去重顺序确定
	results := make([]queryResult, len(q.Interests))
	var wg sync.WaitGroup
	sem := make(chan struct{}, ytConcurrency)

	for i, interest := range q.Interests {
		if !y.budget.Allow() {
			y.log.Warnf("youtube: request budget exhausted, %d interests skipped", len(q.Interests)-i)
			break
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(idx int, interest string) {
			defer wg.Done()
			defer func() { <-sem }()

			videos, err := y.search(ctx, buildSearchQuery(interest), publishedAfter)
			results[idx] = queryResult{videos: videos, err: err, ran: true}
		}(i, interest)
	}
	wg.Wait()

	var (
		picked   []ytVideo
		seenURLs = make(map[string]bool)
		ran      int
		failed   int
	)
	for i, res := range results {
		if !res.ran {
			continue
		}
		ran++
		if res.err != nil {
			failed++
			y.log.Warnf("youtube: search %q: %v", q.Interests[i], res.err)
			continue
		}
		interest := q.Interests[i]
		for _, v := range res.videos {
			if seenURLs[v.url] {
				continue
			}
			// 相关性不够的普通频道丢弃，常驻频道放行
			if !isRelevantInterview(v.title, v.description, interest) && !v.priority {
				continue
			}
			if matchesAnyTerm(v.title+" "+v.description, q.Blocked) {
				continue
			}
			seenURLs[v.url] = true
			picked = append(picked, v)
		}
	}

	if ran > 0 && failed == ran {
		return nil, fmt.Errorf("youtube: all %d searches failed", failed)
	}

	// 常驻频道优先，然后按发布时间倒序，最后用 URL 定序
	sort.SliceStable(picked, func(i, j int) bool {
		if picked[i].priority != picked[j].priority {
			return picked[i].priority
		}
		if !picked[i].published.Equal(picked[j].published) {
			return picked[i].published.After(picked[j].published)
		}
		return picked[i].url < picked[j].url
	})
	if len(picked) > ytMaxItems {
		picked = picked[:ytMaxItems]
	}

	out := make([]RawRecord, 0, len(picked))
	for _, v := range picked {
		score := 0.0
		if v.priority {
			score = 1.0
		}
		out = append(out, RawRecord{
			Kind:        KindInterview,
			SourceName:  v.channel,
			Title:       v.title,
			URL:         v.url,
			Description: v.description,
			PublishedAt: v.published,
			Thumbnail:   v.thumbnail,
			Score:       score,
			Extra: map[string]any{
				"priorityChannel": v.priority,
			},
		})
	}
	return out, nil
}

type ytSearchResp struct {
	Items []struct {
		ID struct {
			VideoID string `json:"videoId"`
		} `json:"id"`
		Snippet struct {
			Title        string    `json:"title"`
			Description  string    `json:"description"`
			ChannelTitle string    `json:"channelTitle"`
			PublishedAt  time.Time `json:"publishedAt"`
			Thumbnails   map[string]struct {
				URL string `json:"url"`
			} `json:"thumbnails"`
		} `json:"snippet"`
	} `json:"items"`
}

func (y *YouTubeFetcher) search(ctx context.Context, query string, publishedAfter time.Time) ([]ytVideo, error) {
	params := url.Values{}
	params.Set("part", "snippet")
	params.Set("q", query)
	params.Set("type", "video")
	params.Set("maxResults", strconv.Itoa(ytResultsPerQuery))
	params.Set("order", "date")
	params.Set("key", y.apiKey)
	params.Set("relevanceLanguage", "en")
	params.Set("safeSearch", "moderate")
	params.Set("publishedAfter", publishedAfter.Format(time.RFC3339))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, y.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := y.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var data ytSearchResp
	if err := json.NewDecoder(io.LimitReader(resp.Body, ytMaxResponseBytes)).Decode(&data); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	videos := make([]ytVideo, 0, len(data.Items))
	for _, it := range data.Items {
		if it.ID.VideoID == "" {
			continue
		}
		thumbs := make(map[string]string, len(it.Snippet.Thumbnails))
		for quality, t := range it.Snippet.Thumbnails {
			thumbs[quality] = t.URL
		}
		videos = append(videos, ytVideo{
			title:       it.Snippet.Title,
			description: it.Snippet.Description,
			url:         "https://www.youtube.com/watch?v=" + it.ID.VideoID,
			thumbnail:   bestThumbnail(thumbs),
			channel:     it.Snippet.ChannelTitle,
			published:   it.Snippet.PublishedAt,
			priority:    isPriorityChannel(it.Snippet.ChannelTitle),
		})
	}
	return videos, nil
}

// bestThumbnail 按清晰度从高到低取第一个可用的封面
func bestThumbnail(thumbnails map[string]string) string {
	for _, quality := range []string{"maxres", "high", "medium", "default"} {
		if u, ok := thumbnails[quality]; ok && u != "" {
			return u
		}
	}
	return ""
}

func isPriorityChannel(channel string) bool {
	lower := strings.ToLower(channel)
	for _, p := range ytPriorityChannels {
		if strings.Contains(lower, strings.ToLower(p)) {
			return true
		}
	}
	return false
}

// buildSearchQuery 已知剧名先替换为消歧写法，再统一追加 interview 关键词
func buildSearchQuery(interest string) string {
	base := interest
	if ctx, ok := ytShowContext[strings.ToLower(strings.TrimSpace(interest))]; ok {
		base = ctx
	}
	return base + " interview"
}

// isRelevantInterview 标题必须真的在说这个兴趣：
// 多词兴趣至少命中姓氏或两个词，单词兴趣必须出现在标题里
func isRelevantInterview(title, description, interest string) bool {
	titleLower := strings.ToLower(title)
	combined := titleLower + " " + strings.ToLower(description)

	for _, excluded := range ytExcludedTerms {
		if strings.Contains(combined, excluded) {
			return false
		}
	}

	words := strings.Fields(strings.ToLower(interest))
	switch {
	case len(words) > 1:
		if strings.Contains(titleLower, words[len(words)-1]) {
			return true
		}
		matches := 0
		for _, w := range words {
			if strings.Contains(titleLower, w) {
				matches++
			}
		}
		need := 2
		if len(words) < need {
			need = len(words)
		}
		return matches >= need
	case len(words) == 1:
		return strings.Contains(titleLower, words[0])
	default:
		return false
	}
}

// matchesAnyTerm 大小写不敏感的子串匹配，空列表恒为 false
func matchesAnyTerm(text string, terms []string) bool {
	if len(terms) == 0 {
		return false
	}
	lower := strings.ToLower(text)
	for _, t := range terms {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(t)) {
			return true
		}
	}
	return false
}
