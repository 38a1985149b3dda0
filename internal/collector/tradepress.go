package collector

import (
	"context"
	"fmt"
	"html"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"

	"github.com/primendon/dailycut/internal/logging"
)

const (
	tradeRequestTimeout = 8 * time.Second
	tradeMaxBodyBytes   = 2 << 20 // 2MB，防止超大 HTML
	tradeUserAgent      = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

type tradeSite struct {
	name          string
	url           string
	baseURL       string // 相对链接补全，为空表示只收绝对链接
	domains       []string
	cardSelector  string
	titleSelector string
	linkContains  []string // href 必须包含其中之一，空为不限
	minTitleLen   int
	maxItems      int
}

// 行业媒体的颁奖季栏目，列表页结构各不相同，选择器按站点单独维护
var tradeSites = []tradeSite{
	{
		name:          "Variety",
		url:           "https://variety.com/v/awards/",
		baseURL:       "https://variety.com",
		domains:       []string{"variety.com", "www.variety.com"},
		cardSelector:  "article, .c-card, .o-card",
		titleSelector: "h3, h2, .c-title, .o-card__title",
		maxItems:      5,
	},
	{
		name:          "The Hollywood Reporter",
		url:           "https://www.hollywoodreporter.com/t/awards/",
		baseURL:       "https://www.hollywoodreporter.com",
		domains:       []string{"www.hollywoodreporter.com", "hollywoodreporter.com"},
		cardSelector:  "article, .lrv-u-flex, .c-card",
		titleSelector: "h3, h2, .c-title",
		linkContains:  []string{"/awards/", "hollywoodreporter"},
		minTitleLen:   10,
		maxItems:      5,
	},
	{
		name:          "Deadline",
		url:           "https://deadline.com/category/awards/",
		domains:       []string{"deadline.com", "www.deadline.com"},
		cardSelector:  "article, .c-card",
		titleSelector: "h2, h3, .entry-title, .c-title",
		linkContains:  []string{"deadline.com"},
		minTitleLen:   10,
		maxItems:      5,
	},
	{
		name:          "Entertainment Weekly",
		url:           "https://ew.com/awards/",
		baseURL:       "https://ew.com",
		domains:       []string{"ew.com", "www.ew.com"},
		cardSelector:  "article, .card, .mntl-card",
		titleSelector: "h3, h2, .card__title, span.card__title",
		minTitleLen:   10,
		maxItems:      4,
	},
	{
		name:          "IndieWire",
		url:           "https://www.indiewire.com/c/awards/",
		baseURL:       "https://www.indiewire.com",
		domains:       []string{"www.indiewire.com", "indiewire.com"},
		cardSelector:  "article, .c-card",
		titleSelector: "h2, h3, .c-title",
		minTitleLen:   10,
		maxItems:      4,
	},
}

// TradePressFetcher 抓取行业媒体颁奖季栏目的头条，colly 解析失败时退回正则提取
type TradePressFetcher struct {
	sites  []tradeSite
	budget *Budget
	log    logging.Logger
}

func NewTradePressFetcher(budget *Budget, log logging.Logger) *TradePressFetcher {
	return &TradePressFetcher{
		sites:  tradeSites,
		budget: budget,
		log:    log,
	}
}

func (t *TradePressFetcher) Name() string {
	return "trade_press"
}

func (t *TradePressFetcher) Kind() SourceKind {
	return KindHeadline
}

// Enabled 公开页面抓取不依赖凭证，始终开启
func (t *TradePressFetcher) Enabled() bool {
	return true
}

func (t *TradePressFetcher) Fetch(ctx context.Context, q QueryContext) ([]RawRecord, error) {
	if !q.AwardMode {
		return nil, nil
	}

	var (
		out   []RawRecord
		empty int
	)
	for _, site := range t.sites {
		// 预算按站点计，正则兜底与 colly 同属一次逻辑抓取
		if !t.budget.Allow() {
			t.log.Warnf("trade press: request budget exhausted, remaining sites skipped")
			break
		}
		items := t.scrapeSite(site)
		if len(items) == 0 {
			items = t.fallbackScrape(ctx, site)
		}
		if len(items) == 0 {
			empty++
			continue
		}
		out = append(out, items...)
	}

	if len(out) == 0 && empty == len(t.sites) && empty > 0 {
		return nil, fmt.Errorf("trade press: all %d sites returned nothing", empty)
	}
	return out, nil
}

func (t *TradePressFetcher) scrapeSite(site tradeSite) []RawRecord {
	opts := []colly.CollectorOption{colly.UserAgent(tradeUserAgent)}
	if len(site.domains) > 0 {
		opts = append(opts, colly.AllowedDomains(site.domains...))
	}
	c := colly.NewCollector(opts...)
	c.SetRequestTimeout(tradeRequestTimeout)

	var results []RawRecord
	seen := make(map[string]bool)
	// 列表页不带发布时间，用抓取时间近似
	now := time.Now()

	c.OnHTML(site.cardSelector, func(e *colly.HTMLElement) {
		if len(results) >= site.maxItems {
			return
		}
		title := strings.TrimSpace(e.DOM.Find(site.titleSelector).First().Text())
		if len(title) <= site.minTitleLen {
			return
		}
		link := findCardLink(e.DOM, site)
		if link == "" || seen[link] {
			return
		}
		seen[link] = true
		results = append(results, RawRecord{
			Kind:        KindHeadline,
			SourceName:  site.name,
			Title:       title,
			URL:         link,
			PublishedAt: now,
			Thumbnail:   cardThumbnail(e.DOM),
		})
	})

	if err := c.Visit(site.url); err != nil {
		t.log.Warnf("trade press: visit %s: %v", site.name, err)
		return nil
	}
	return results
}

// findCardLink 在卡片内找第一个满足站点过滤条件的链接并补全为绝对地址
func findCardLink(card *goquery.Selection, site tradeSite) string {
	var link string
	card.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href := strings.TrimSpace(a.AttrOr("href", ""))
		if href == "" {
			return true
		}
		if len(site.linkContains) > 0 && !containsAnySub(href, site.linkContains) {
			return true
		}
		link = href
		return false
	})
	return resolveSiteLink(link, site)
}

func resolveSiteLink(link string, site tradeSite) string {
	if link == "" {
		return ""
	}
	if strings.HasPrefix(link, "http") {
		return link
	}
	if site.baseURL == "" {
		return ""
	}
	return site.baseURL + link
}

func containsAnySub(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// cardThumbnail 懒加载站点会把真实地址放在 data-src / data-lazy-src
func cardThumbnail(card *goquery.Selection) string {
	img := card.Find("img").First()
	if img.Length() == 0 {
		return ""
	}
	for _, attr := range []string{"src", "data-src", "data-lazy-src"} {
		if v := strings.TrimSpace(img.AttrOr(attr, "")); v != "" {
			return v
		}
	}
	return ""
}

// fallbackScrape 备用：直接 GET 后用正则从 HTML 中提取标题链接
func (t *TradePressFetcher) fallbackScrape(ctx context.Context, site tradeSite) []RawRecord {
	body, err := t.httpGet(ctx, site.url)
	if err != nil || body == "" {
		return nil
	}

	now := time.Now()
	var results []RawRecord
	for _, art := range parseHeadlineLinks(body, site) {
		results = append(results, RawRecord{
			Kind:        KindHeadline,
			SourceName:  site.name,
			Title:       art.title,
			URL:         art.url,
			PublishedAt: now,
		})
	}
	if len(results) > 0 {
		t.log.Infof("trade press: %s parsed via fallback, %d items", site.name, len(results))
	}
	return results
}

func (t *TradePressFetcher) httpGet(ctx context.Context, rawURL string) (string, error) {
	client := &http.Client{Timeout: tradeRequestTimeout}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", tradeUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := client.Do(req)
	if err != nil {
		t.log.Warnf("trade press: fallback get %s: %v", rawURL, err)
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", nil
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, tradeMaxBodyBytes))
	if err != nil {
		return "", err
	}
	return string(body), nil
}

type tradeArticle struct {
	title string
	url   string
}

// 格式1: <h2/h3><a href="...">标题</a></h2>
var tradeHeadingLinkRe = regexp.MustCompile(`<h[23][^>]*>\s*<a\s+[^>]*href="([^"]+)"[^>]*>([^<]+)</a>`)

// 格式2: <a href="..."><h2/h3>标题</h2></a>（部分站点链接包住标题）
var tradeLinkHeadingRe = regexp.MustCompile(`<a\s+[^>]*href="([^"]+)"[^>]*>\s*<h[23][^>]*>([^<]+)</h[23]>`)

// parseHeadlineLinks 从 HTML 中解析标题链接（两种嵌套格式兼容）
func parseHeadlineLinks(htmlBody string, site tradeSite) []tradeArticle {
	seen := make(map[string]bool)
	var list []tradeArticle

	collect := func(matches [][]string) {
		for _, m := range matches {
			if len(list) >= site.maxItems {
				break
			}
			if len(m) != 3 {
				continue
			}
			href := resolveSiteLink(strings.TrimSpace(m[1]), site)
			title := strings.TrimSpace(html.UnescapeString(m[2]))
			if href == "" || seen[href] {
				continue
			}
			if len(title) <= site.minTitleLen || len(title) > 300 {
				continue
			}
			if len(site.linkContains) > 0 && !containsAnySub(href, site.linkContains) {
				continue
			}
			seen[href] = true
			list = append(list, tradeArticle{title: title, url: href})
		}
	}

	collect(tradeHeadingLinkRe.FindAllStringSubmatch(htmlBody, -1))
	if len(list) < site.maxItems {
		collect(tradeLinkHeadingRe.FindAllStringSubmatch(htmlBody, -1))
	}
	return list
}
