package processor

import (
	"sort"
	"strings"
	"time"
	"unicode"
)

// 近似重复的判定阈值：标题词集的 Jaccard 相似度
const nearDupThreshold = 0.8

// Merge 合并与去重：
//  1. 同 ID 条目保留摘要更充实的一条
//  2. 同类条目标题近似且同一天（UTC）发布的，保留更早的一条
//  3. 被去掉的条目标注 DuplicateOf 后放入第二个返回值
//
// 输出按发布时间倒序，缺时间的排最后，平局按适配器注册序再按 ID。
func Merge(items []ContentItem) (feed []ContentItem, dropped []ContentItem) {
	feed = make([]ContentItem, 0, len(items))

	// 第一轮：ID 完全相同
	byID := make(map[string]int, len(items))
	for _, it := range items {
		if at, ok := byID[it.ID]; ok {
			if richerSummary(it, feed[at]) {
				dropped = append(dropped, markDuplicate(feed[at], it.ID))
				feed[at] = it
			} else {
				dropped = append(dropped, markDuplicate(it, feed[at].ID))
			}
			continue
		}
		byID[it.ID] = len(feed)
		feed = append(feed, it)
	}

	// 第二轮：同类近似标题，条目量小，两两比较即可
	removed := make([]bool, len(feed))
	for i := 0; i < len(feed); i++ {
		if removed[i] {
			continue
		}
		for j := i + 1; j < len(feed); j++ {
			if removed[j] || feed[i].Kind != feed[j].Kind {
				continue
			}
			if !nearDuplicate(feed[i], feed[j]) {
				continue
			}
			// 保留更早发布的一条，时间相同保留先注册的
			if feed[j].PublishedAt.Before(feed[i].PublishedAt) {
				dropped = append(dropped, markDuplicate(feed[i], feed[j].ID))
				removed[i] = true
				break
			}
			dropped = append(dropped, markDuplicate(feed[j], feed[i].ID))
			removed[j] = true
		}
	}

	kept := feed[:0]
	for i, it := range feed {
		if !removed[i] {
			kept = append(kept, it)
		}
	}
	feed = kept

	sort.SliceStable(feed, func(i, j int) bool { return lessItems(feed[i], feed[j]) })
	return feed, dropped
}

// lessItems 发布时间倒序，缺时间的排最后，平局按适配器注册序再按 ID
func lessItems(a, b ContentItem) bool {
	az, bz := a.PublishedAt.IsZero(), b.PublishedAt.IsZero()
	if az != bz {
		return bz
	}
	if !az && !a.PublishedAt.Equal(b.PublishedAt) {
		return a.PublishedAt.After(b.PublishedAt)
	}
	if a.SourceOrder != b.SourceOrder {
		return a.SourceOrder < b.SourceOrder
	}
	return a.ID < b.ID
}

// richerSummary 非空摘要优先，都非空时保留更长的，不分胜负维持先到的
func richerSummary(candidate, incumbent ContentItem) bool {
	if incumbent.Summary == "" && candidate.Summary != "" {
		return true
	}
	if incumbent.Summary != "" && candidate.Summary != "" {
		return len(candidate.Summary) > len(incumbent.Summary)
	}
	return false
}

func markDuplicate(it ContentItem, keptID string) ContentItem {
	it.DuplicateOf = keptID
	return it
}

// nearDuplicate 两条都有发布时间、落在同一个 UTC 日、标题足够相似
func nearDuplicate(a, b ContentItem) bool {
	if a.PublishedAt.IsZero() || b.PublishedAt.IsZero() {
		return false
	}
	if !sameUTCDay(a.PublishedAt, b.PublishedAt) {
		return false
	}
	return titleSimilarity(a.Title, b.Title) >= nearDupThreshold
}

func sameUTCDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}

// titleSimilarity 归一化后完全相同记 1，否则取词集合的 Jaccard 系数
func titleSimilarity(a, b string) float64 {
	na, nb := normalizeTitle(a), normalizeTitle(b)
	if na == "" || nb == "" {
		return 0
	}
	if na == nb {
		return 1
	}
	sa, sb := tokenSet(na), tokenSet(nb)
	inter := 0
	for w := range sa {
		if sb[w] {
			inter++
		}
	}
	union := len(sa) + len(sb) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// normalizeTitle 小写、标点折成空格、压缩空白
func normalizeTitle(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

func tokenSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, w := range strings.Fields(s) {
		set[w] = true
	}
	return set
}
