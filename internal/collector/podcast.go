package collector

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/primendon/dailycut/internal/logging"
)

const (
	podcastMaxResponseBytes = 2 << 20 // 2MB，节目 RSS 带完整 show notes
	podcastClientTimeout    = 10 * time.Second
	podcastEpisodesPerFeed  = 5
	podcastUserAgent        = "DailyCut/1.0 (podcast digest)"
)

type podcastShow struct {
	name           string
	feedURL        string
	spotifyShow    string // Spotify show ID，用于节目主页直达链接
	youtubeChannel string // 主发 YouTube 的节目用频道 ID，链接也走 YouTube
}

// 固定节目单，公开 RSS 不需要凭证
var podcastShows = []podcastShow{
	{name: "SmartLess", feedURL: "https://feeds.simplecast.com/4T39_jAj", spotifyShow: "1bJRgaFZHuzifad4IAApFR"},
	{name: "Conan O'Brien Needs a Friend", feedURL: "https://feeds.simplecast.com/dHoohVNH", spotifyShow: "4fIONMwaYRqfSClxLzzFNH"},
	{name: "Armchair Expert", feedURL: "https://feeds.megaphone.fm/armchair-expert", spotifyShow: "6kAsbP8pxwaU2kPibKTuHE"},
	{name: "Good Hang with Amy Poehler", feedURL: "https://feeds.simplecast.com/LdQjTvPL", youtubeChannel: "UCp0hYYBW6IMayGgR-WeoCvQ"},
}

// PodcastFetcher 轮询固定节目单的公开 RSS，产出回看窗口内的新单集
type PodcastFetcher struct {
	shows  []podcastShow
	budget *Budget
	parser *gofeed.Parser
	client *http.Client
	log    logging.Logger
}

func NewPodcastFetcher(budget *Budget, log logging.Logger) *PodcastFetcher {
	return &PodcastFetcher{
		shows:  podcastShows,
		budget: budget,
		parser: gofeed.NewParser(),
		client: &http.Client{Timeout: podcastClientTimeout},
		log:    log,
	}
}

func (p *PodcastFetcher) Name() string {
	return "podcasts"
}

func (p *PodcastFetcher) Kind() SourceKind {
	return KindPodcastSummary
}

// Enabled 公开 RSS 不依赖凭证，始终开启
func (p *PodcastFetcher) Enabled() bool {
	return true
}

func (p *PodcastFetcher) Fetch(ctx context.Context, q QueryContext) ([]RawRecord, error) {
	lookback := q.Lookback
	if lookback <= 0 {
		lookback = 48 * time.Hour
	}
	cutoff := time.Now().UTC().Add(-lookback)

	var (
		out    []RawRecord
		failed int
	)
	for _, show := range p.shows {
		if !p.budget.Allow() {
			p.log.Warnf("podcasts: request budget exhausted, remaining shows skipped")
			break
		}
		recs, err := p.fetchShow(ctx, show, cutoff)
		if err != nil {
			failed++
			p.log.Warnf("podcasts: fetch %s: %v", show.name, err)
			continue
		}
		out = append(out, recs...)
	}

	// 单个节目失败只跳过，全军覆没才算源失败
	if len(out) == 0 && failed == len(p.shows) && failed > 0 {
		return nil, fmt.Errorf("podcasts: all %d feeds failed", failed)
	}
	return out, nil
}

func (p *PodcastFetcher) fetchShow(ctx context.Context, show podcastShow, cutoff time.Time) ([]RawRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, show.feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", podcastUserAgent)
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml, text/xml, */*")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, podcastMaxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read feed: %w", err)
	}

	feed, err := p.parser.ParseString(string(body))
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	items := feed.Items
	if len(items) > podcastEpisodesPerFeed {
		items = items[:podcastEpisodesPerFeed]
	}

	var out []RawRecord
	for _, it := range items {
		var published time.Time
		if it.PublishedParsed != nil {
			published = *it.PublishedParsed
		} else if it.UpdatedParsed != nil {
			published = *it.UpdatedParsed
		}
		if published.IsZero() || published.Before(cutoff) {
			continue
		}

		desc := it.Description
		if desc == "" {
			desc = it.Content
		}

		out = append(out, RawRecord{
			Kind:        KindPodcastSummary,
			SourceName:  show.name,
			Title:       it.Title,
			URL:         episodeLink(show, it.Title),
			Description: desc,
			PublishedAt: published,
			Thumbnail:   episodeThumbnail(feed, it),
			Extra: map[string]any{
				"show":        show.name,
				"showURL":     showLink(show),
				"episodePage": it.Link,
			},
		})
	}
	return out, nil
}

// episodeLink 节目本身不提供稳定的播放页链接，
// 统一生成平台搜索链接，查询词为「节目名 + 单集标题」
func episodeLink(show podcastShow, episodeTitle string) string {
	query := url.QueryEscape(show.name + " " + episodeTitle)
	if show.youtubeChannel != "" {
		return "https://www.youtube.com/results?search_query=" + query
	}
	return "https://open.spotify.com/search/" + query
}

// showLink 节目主页，单集链接只能搜索时给用户一个稳定入口
func showLink(show podcastShow) string {
	if show.youtubeChannel != "" {
		return "https://www.youtube.com/channel/" + show.youtubeChannel
	}
	return "https://open.spotify.com/show/" + show.spotifyShow
}

// episodeThumbnail 单集封面优先，退回节目封面
func episodeThumbnail(feed *gofeed.Feed, it *gofeed.Item) string {
	if it.ITunesExt != nil && it.ITunesExt.Image != "" {
		return it.ITunesExt.Image
	}
	if it.Image != nil && it.Image.URL != "" {
		return it.Image.URL
	}
	if feed.ITunesExt != nil && feed.ITunesExt.Image != "" {
		return feed.ITunesExt.Image
	}
	if feed.Image != nil {
		return feed.Image.URL
	}
	return ""
}
