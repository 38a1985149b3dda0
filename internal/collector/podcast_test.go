package collector

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mmcdole/gofeed"
)

func podcastFeedXML(now time.Time) string {
	fresh := now.Add(-2 * time.Hour).Format(time.RFC1123Z)
	stale := now.Add(-10 * 24 * time.Hour).Format(time.RFC1123Z)
	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:itunes="http://www.itunes.com/dtds/podcast-1.0.dtd">
<channel>
<title>Test Show</title>
<itunes:image href="https://cdn.example.com/show.jpg"/>
<item>
<title>Fresh Episode with a Guest</title>
<description>A brand new conversation worth hearing.</description>
<link>https://pod.example.com/ep1</link>
<pubDate>%s</pubDate>
</item>
<item>
<title>Stale Episode</title>
<description>Old news from last week.</description>
<link>https://pod.example.com/ep0</link>
<pubDate>%s</pubDate>
</item>
</channel>
</rss>`, fresh, stale)
}

func newTestPodcastFetcher(shows []podcastShow, budget *Budget) *PodcastFetcher {
	return &PodcastFetcher{
		shows:  shows,
		budget: budget,
		parser: gofeed.NewParser(),
		client: &http.Client{Timeout: 5 * time.Second},
		log:    testLogger(),
	}
}

func TestPodcastFetchSkipsEpisodesOutsideLookback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprint(w, podcastFeedXML(time.Now().UTC()))
	}))
	defer srv.Close()

	p := newTestPodcastFetcher([]podcastShow{
		{name: "Test Show", feedURL: srv.URL, spotifyShow: "abc123"},
	}, nil)

	recs, err := p.Fetch(context.Background(), QueryContext{Lookback: 48 * time.Hour})
	if err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("expected 1 fresh episode, got %d", len(recs))
	}

	rec := recs[0]
	if rec.Kind != KindPodcastSummary {
		t.Fatalf("kind = %q, want %q", rec.Kind, KindPodcastSummary)
	}
	if rec.SourceName != "Test Show" {
		t.Fatalf("source = %q, want Test Show", rec.SourceName)
	}
	if !strings.HasPrefix(rec.URL, "https://open.spotify.com/search/") {
		t.Fatalf("episode link should be a spotify search url, got %q", rec.URL)
	}
	if rec.Thumbnail != "https://cdn.example.com/show.jpg" {
		t.Fatalf("thumbnail should fall back to the show image, got %q", rec.Thumbnail)
	}
	if rec.PublishedAt.IsZero() {
		t.Fatalf("published time should be set from pubDate")
	}
}

func TestPodcastFetchStopsWhenBudgetExhausted(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprint(w, podcastFeedXML(time.Now().UTC()))
	}))
	defer srv.Close()

	p := newTestPodcastFetcher([]podcastShow{
		{name: "Show A", feedURL: srv.URL, spotifyShow: "a"},
		{name: "Show B", feedURL: srv.URL, spotifyShow: "b"},
		{name: "Show C", feedURL: srv.URL, spotifyShow: "c"},
	}, NewBudget(1, time.Hour))

	recs, err := p.Fetch(context.Background(), QueryContext{Lookback: 48 * time.Hour})
	if err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("expected exactly 1 feed request under budget, got %d", got)
	}
	if len(recs) != 1 {
		t.Fatalf("expected items from a single show, got %d", len(recs))
	}
}

func TestPodcastFetchIsolatesSingleFeedFailure(t *testing.T) {
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer bad.Close()
	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, podcastFeedXML(time.Now().UTC()))
	}))
	defer good.Close()

	p := newTestPodcastFetcher([]podcastShow{
		{name: "Broken", feedURL: bad.URL, spotifyShow: "x"},
		{name: "Working", feedURL: good.URL, spotifyShow: "y"},
	}, nil)

	recs, err := p.Fetch(context.Background(), QueryContext{Lookback: 48 * time.Hour})
	if err != nil {
		t.Fatalf("one broken feed must not fail the source: %v", err)
	}
	if len(recs) != 1 || recs[0].SourceName != "Working" {
		t.Fatalf("expected only the working show's episode, got %+v", recs)
	}
}

func TestPodcastFetchAllFeedsDownReturnsError(t *testing.T) {
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer bad.Close()

	p := newTestPodcastFetcher([]podcastShow{
		{name: "A", feedURL: bad.URL},
		{name: "B", feedURL: bad.URL},
	}, nil)

	if _, err := p.Fetch(context.Background(), QueryContext{}); err == nil {
		t.Fatalf("expected an error when every feed fails")
	}
}

func TestEpisodeLinkBuilders(t *testing.T) {
	spotify := episodeLink(podcastShow{name: "SmartLess"}, "Episode One")
	if spotify != "https://open.spotify.com/search/SmartLess+Episode+One" {
		t.Fatalf("spotify link = %q", spotify)
	}

	youtube := episodeLink(podcastShow{name: "Good Hang", youtubeChannel: "UCabc"}, "Pilot")
	if youtube != "https://www.youtube.com/results?search_query=Good+Hang+Pilot" {
		t.Fatalf("youtube link = %q", youtube)
	}
}

func TestShowLinkBuilders(t *testing.T) {
	spotify := showLink(podcastShow{name: "SmartLess", spotifyShow: "1bJR"})
	if spotify != "https://open.spotify.com/show/1bJR" {
		t.Fatalf("spotify show link = %q", spotify)
	}

	youtube := showLink(podcastShow{name: "Good Hang", youtubeChannel: "UCabc"})
	if youtube != "https://www.youtube.com/channel/UCabc" {
		t.Fatalf("youtube show link = %q", youtube)
	}
}
