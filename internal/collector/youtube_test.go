package collector

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestBuildSearchQueryDisambiguatesKnownShows(t *testing.T) {
	cases := []struct {
		interest string
		want     string
	}{
		{"The Bear", "The Bear FX Hulu TV show interview"},
		{"the bear", "The Bear FX Hulu TV show interview"},
		{"Pedro Pascal", "Pedro Pascal interview"},
		{"  wednesday ", "Wednesday Netflix Jenna Ortega interview"},
	}
	for _, c := range cases {
		if got := buildSearchQuery(c.interest); got != c.want {
			t.Fatalf("buildSearchQuery(%q) = %q, want %q", c.interest, got, c.want)
		}
	}
}

func TestIsRelevantInterview(t *testing.T) {
	cases := []struct {
		title    string
		desc     string
		interest string
		want     bool
	}{
		// 多词兴趣：姓氏命中即可
		{"Pascal talks new season", "", "Pedro Pascal", true},
		// 多词兴趣：两个词都命中
		{"Pedro Pascal breaks down the finale", "", "Pedro Pascal", true},
		// 标题完全无关
		{"Cooking pasta at home", "", "Pedro Pascal", false},
		// 单词兴趣必须出现在标题里
		{"Succession cast reunion", "", "succession", true},
		{"Some other drama recap", "succession mentioned here", "succession", false},
		// 低质关键词整条丢弃
		{"Pedro Pascal toy unboxing", "", "Pedro Pascal", false},
		{"Interview with Pascal", "cocomelon compilation", "Pedro Pascal", false},
	}
	for _, c := range cases {
		if got := isRelevantInterview(c.title, c.desc, c.interest); got != c.want {
			t.Fatalf("isRelevantInterview(%q, %q, %q) = %v, want %v", c.title, c.desc, c.interest, got, c.want)
		}
	}
}

func TestBestThumbnailPrefersHighestQuality(t *testing.T) {
	thumbs := map[string]string{
		"default": "https://i.ytimg.com/d.jpg",
		"high":    "https://i.ytimg.com/h.jpg",
	}
	if got := bestThumbnail(thumbs); got != "https://i.ytimg.com/h.jpg" {
		t.Fatalf("bestThumbnail = %q, want high quality url", got)
	}
	if got := bestThumbnail(nil); got != "" {
		t.Fatalf("bestThumbnail(nil) = %q, want empty", got)
	}
}

func TestIsPriorityChannel(t *testing.T) {
	if !isPriorityChannel("The Tonight Show Starring Jimmy Fallon") {
		t.Fatalf("late night show should be a priority channel")
	}
	if !isPriorityChannel("VOGUE") {
		t.Fatalf("priority match should ignore case")
	}
	if isPriorityChannel("Random Fan Channel") {
		t.Fatalf("unknown channel should not be priority")
	}
}

func ytFakeResponse(now time.Time) map[string]any {
	item := func(id, title, desc, channel string, published time.Time) map[string]any {
		return map[string]any{
			"id": map[string]any{"videoId": id},
			"snippet": map[string]any{
				"title":        title,
				"description":  desc,
				"channelTitle": channel,
				"publishedAt":  published.Format(time.RFC3339),
				"thumbnails": map[string]any{
					"high": map[string]any{"url": "https://i.ytimg.com/" + id + ".jpg"},
				},
			},
		}
	}
	return map[string]any{
		"items": []any{
			// 常驻频道，标题跟兴趣无关也要收
			item("vid00000001", "Tonight Show monologue highlights", "late night fun", "The Tonight Show Starring Jimmy Fallon", now.Add(-3*time.Hour)),
			// 普通频道但标题相关
			item("vid00000002", "Pedro Pascal on his new film", "an in-depth chat", "Some Film Channel", now.Add(-1*time.Hour)),
			// 普通频道且不相关，应被过滤
			item("vid00000003", "Best pasta recipes", "cooking", "Food Channel", now.Add(-2*time.Hour)),
		},
	}
}

func TestYouTubeFetchFiltersAndOrders(t *testing.T) {
	now := time.Now().UTC()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("key") != "test-key" {
			t.Errorf("api key missing from query")
		}
		if r.URL.Query().Get("publishedAfter") == "" {
			t.Errorf("publishedAfter missing from query")
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(ytFakeResponse(now))
	}))
	defer srv.Close()

	y := &YouTubeFetcher{
		apiKey:   "test-key",
		endpoint: srv.URL,
		budget:   nil,
		client:   &http.Client{Timeout: 5 * time.Second},
		log:      testLogger(),
	}

	recs, err := y.Fetch(context.Background(), QueryContext{
		Interests: []string{"Pedro Pascal"},
		Lookback:  48 * time.Hour,
	})
	if err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 records after relevance filter, got %d", len(recs))
	}
	// 常驻频道排在前面
	if recs[0].SourceName != "The Tonight Show Starring Jimmy Fallon" {
		t.Fatalf("priority channel should sort first, got %q", recs[0].SourceName)
	}
	if recs[0].Score != 1.0 {
		t.Fatalf("priority channel should carry score 1.0, got %v", recs[0].Score)
	}
	if recs[1].Kind != KindInterview {
		t.Fatalf("kind = %q, want %q", recs[1].Kind, KindInterview)
	}
}

func TestYouTubeFetchAppliesBlockedTerms(t *testing.T) {
	now := time.Now().UTC()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(ytFakeResponse(now))
	}))
	defer srv.Close()

	y := &YouTubeFetcher{
		apiKey:   "test-key",
		endpoint: srv.URL,
		client:   &http.Client{Timeout: 5 * time.Second},
		log:      testLogger(),
	}

	recs, err := y.Fetch(context.Background(), QueryContext{
		Interests: []string{"Pedro Pascal"},
		Blocked:   []string{"Tonight Show"},
		Lookback:  48 * time.Hour,
	})
	if err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	for _, r := range recs {
		if r.SourceName == "The Tonight Show Starring Jimmy Fallon" {
			t.Fatalf("blocked term should remove the late night item")
		}
	}
	if len(recs) != 1 {
		t.Fatalf("expected 1 record after block filter, got %d", len(recs))
	}
}

func TestYouTubeFetchDisabledWithoutKey(t *testing.T) {
	y := NewYouTubeFetcher("", nil, testLogger())
	if y.Enabled() {
		t.Fatalf("fetcher without api key must be disabled")
	}
	recs, err := y.Fetch(context.Background(), QueryContext{Interests: []string{"anything"}})
	if err != nil || recs != nil {
		t.Fatalf("disabled fetcher should return nothing, got %v, %v", recs, err)
	}
}

func TestYouTubeFetchNoInterestsNoCalls(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	y := &YouTubeFetcher{apiKey: "k", endpoint: srv.URL, client: srv.Client(), log: testLogger()}
	recs, err := y.Fetch(context.Background(), QueryContext{})
	if err != nil || len(recs) != 0 {
		t.Fatalf("no interests should mean no results, got %v, %v", recs, err)
	}
	if called {
		t.Fatalf("no interests should mean zero api calls")
	}
}
