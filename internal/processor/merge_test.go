package processor

import (
	"testing"
	"time"

	"github.com/primendon/dailycut/internal/collector"
)

func day(hour int) time.Time {
	return time.Date(2026, 2, 1, hour, 0, 0, 0, time.UTC)
}

func TestMergeKeepsRicherSummaryForSameID(t *testing.T) {
	id := DeriveID(collector.KindHeadline, "https://example.com/story", "")
	items := []ContentItem{
		{ID: id, Kind: collector.KindHeadline, Title: "Story", URL: "https://example.com/story", Summary: "", PublishedAt: day(10)},
		{ID: id, Kind: collector.KindHeadline, Title: "Story", URL: "https://example.com/story", Summary: "A much richer description of the story.", PublishedAt: day(11)},
	}

	feed, dropped := Merge(items)
	if len(feed) != 1 {
		t.Fatalf("expected 1 item after id dedupe, got %d", len(feed))
	}
	if feed[0].Summary == "" {
		t.Fatalf("non-empty summary should win")
	}
	if len(dropped) != 1 {
		t.Fatalf("expected 1 dropped item, got %d", len(dropped))
	}
	if dropped[0].DuplicateOf != id {
		t.Fatalf("dropped item should reference the kept id, got %q", dropped[0].DuplicateOf)
	}
}

func TestMergeFeedIDsAreUnique(t *testing.T) {
	items := []ContentItem{
		{ID: "a", Kind: collector.KindHeadline, Title: "One", PublishedAt: day(9)},
		{ID: "a", Kind: collector.KindHeadline, Title: "One again", PublishedAt: day(10)},
		{ID: "b", Kind: collector.KindInterview, Title: "Two", PublishedAt: day(11)},
		{ID: "a", Kind: collector.KindHeadline, Title: "One more", PublishedAt: day(12)},
	}

	feed, _ := Merge(items)
	seen := make(map[string]bool)
	for _, it := range feed {
		if seen[it.ID] {
			t.Fatalf("duplicate id %q in merged feed", it.ID)
		}
		seen[it.ID] = true
	}
	if len(feed) != 2 {
		t.Fatalf("expected 2 unique items, got %d", len(feed))
	}
}

func TestMergeCollapsesCaseInsensitiveSameDayTitles(t *testing.T) {
	early := ContentItem{
		ID: "x1", Kind: collector.KindHeadline,
		Title:       "Film X Wins Big At Gala",
		PublishedAt: time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC),
	}
	late := ContentItem{
		ID: "x2", Kind: collector.KindHeadline,
		Title:       "FILM X WINS BIG AT GALA!",
		PublishedAt: time.Date(2026, 2, 1, 17, 30, 0, 0, time.UTC),
	}

	feed, dropped := Merge([]ContentItem{late, early})
	if len(feed) != 1 {
		t.Fatalf("case-insensitive same-day titles should collapse, got %d items", len(feed))
	}
	if feed[0].ID != "x1" {
		t.Fatalf("earlier published item should be kept, got %q", feed[0].ID)
	}
	if len(dropped) != 1 || dropped[0].DuplicateOf != "x1" {
		t.Fatalf("dropped item should reference kept id, got %+v", dropped)
	}
}

func TestMergeDifferentDaysDoNotCollapse(t *testing.T) {
	items := []ContentItem{
		{ID: "d1", Kind: collector.KindHeadline, Title: "Film X Wins Big", PublishedAt: time.Date(2026, 2, 1, 23, 0, 0, 0, time.UTC)},
		{ID: "d2", Kind: collector.KindHeadline, Title: "Film X Wins Big", PublishedAt: time.Date(2026, 2, 2, 1, 0, 0, 0, time.UTC)},
	}
	feed, _ := Merge(items)
	if len(feed) != 2 {
		t.Fatalf("titles on different UTC days must not collapse, got %d", len(feed))
	}
}

func TestMergeCrossKindTitlesDoNotCollapse(t *testing.T) {
	items := []ContentItem{
		{ID: "k1", Kind: collector.KindHeadline, Title: "Star Discusses The Role", PublishedAt: day(9)},
		{ID: "k2", Kind: collector.KindInterview, Title: "Star Discusses The Role", PublishedAt: day(10)},
	}
	feed, _ := Merge(items)
	if len(feed) != 2 {
		t.Fatalf("same title across kinds must both survive, got %d", len(feed))
	}
}

func TestMergeMissingTimestampsAreNeverNearDuplicates(t *testing.T) {
	items := []ContentItem{
		{ID: "m1", Kind: collector.KindHeadline, Title: "Exact Same Headline"},
		{ID: "m2", Kind: collector.KindHeadline, Title: "Exact Same Headline"},
	}
	feed, _ := Merge(items)
	if len(feed) != 2 {
		t.Fatalf("items without timestamps must not be near-dup collapsed, got %d", len(feed))
	}
}

func TestMergeOrdersTimestampedFirstThenMissing(t *testing.T) {
	dayMinus1 := time.Date(2026, 1, 31, 12, 0, 0, 0, time.UTC)
	dayMinus2 := time.Date(2026, 1, 30, 12, 0, 0, 0, time.UTC)

	items := []ContentItem{
		{ID: "older", Kind: collector.KindHeadline, Title: "Older news", PublishedAt: dayMinus2},
		{ID: "missing", Kind: collector.KindHeadline, Title: "No timestamp"},
		{ID: "newer", Kind: collector.KindInterview, Title: "Newer news", PublishedAt: dayMinus1},
	}

	feed, _ := Merge(items)
	if len(feed) != 3 {
		t.Fatalf("expected 3 items, got %d", len(feed))
	}
	if feed[0].ID != "newer" || feed[1].ID != "older" || feed[2].ID != "missing" {
		t.Fatalf("order = [%s %s %s], want [newer older missing]", feed[0].ID, feed[1].ID, feed[2].ID)
	}
}

func TestMergeTieBreaksByAdapterOrderThenID(t *testing.T) {
	ts := day(8)
	items := []ContentItem{
		{ID: "zz", Kind: collector.KindHeadline, Title: "From adapter two", PublishedAt: ts, SourceOrder: 1},
		{ID: "aa", Kind: collector.KindHeadline, Title: "From adapter one", PublishedAt: ts, SourceOrder: 0},
		{ID: "ab", Kind: collector.KindHeadline, Title: "Also adapter one", PublishedAt: ts, SourceOrder: 0},
	}

	feed, _ := Merge(items)
	if feed[0].ID != "aa" || feed[1].ID != "ab" || feed[2].ID != "zz" {
		t.Fatalf("tie break order = [%s %s %s], want [aa ab zz]", feed[0].ID, feed[1].ID, feed[2].ID)
	}

	// 输入顺序不同结果不变
	feed2, _ := Merge([]ContentItem{items[2], items[0], items[1]})
	for i := range feed {
		if feed[i].ID != feed2[i].ID {
			t.Fatalf("merge must be order-insensitive, position %d: %q vs %q", i, feed[i].ID, feed2[i].ID)
		}
	}
}

func TestTitleSimilarity(t *testing.T) {
	cases := []struct {
		a, b string
		min  float64
		max  float64
	}{
		{"Film X Wins Big At Gala", "film x wins big at gala!", 1, 1},
		{"Film X Wins Big At Gala", "Film X Wins Big At The Gala Tonight", 0.6, 0.99},
		{"Completely different words", "Nothing in common here", 0, 0.1},
		{"", "anything", 0, 0},
	}
	for _, c := range cases {
		got := titleSimilarity(c.a, c.b)
		if got < c.min || got > c.max {
			t.Fatalf("titleSimilarity(%q, %q) = %v, want in [%v, %v]", c.a, c.b, got, c.min, c.max)
		}
	}
}

func TestNormalizeTitleStripsPunctuation(t *testing.T) {
	got := normalizeTitle("  Film-X: Wins!!  BIG  ")
	if got != "film x wins big" {
		t.Fatalf("normalizeTitle = %q, want %q", got, "film x wins big")
	}
}
