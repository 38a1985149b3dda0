package processor

import (
	"crypto/sha1"
	"encoding/hex"
	"html"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"github.com/primendon/dailycut/internal/collector"
)

const (
	maxTitleRunes   = 300
	maxSummaryRunes = 500
)

// ContentItem 归一化后的统一条目，生成后不再修改，去重结果用注解表达
type ContentItem struct {
	ID          string               `json:"id"`
	Kind        collector.SourceKind `json:"sourceKind"`
	SourceName  string               `json:"sourceName"`
	Title       string               `json:"title"`
	URL         string               `json:"url"`
	Summary     string               `json:"summary,omitempty"`
	Thumbnail   string               `json:"thumbnail,omitempty"`
	PublishedAt time.Time            `json:"publishedAt,omitzero"`
	RawScore    float64              `json:"rawScore,omitempty"`
	// DuplicateOf 仅出现在被去重的条目上，指向保留条目的 ID
	DuplicateOf string `json:"duplicateOf,omitempty"`
	// SourceOrder 适配器注册序，只用于排序平局，不对外输出
	SourceOrder int `json:"-"`
}

// 摘要和标题里不允许任何标签，全部剥掉
var stripTags = bluemonday.StrictPolicy()

// DeriveID 由 (类别, URL) 派生确定性 ID，URL 缺失时退回标题
func DeriveID(kind collector.SourceKind, rawURL, title string) string {
	key := strings.TrimSpace(rawURL)
	if key == "" {
		key = strings.TrimSpace(title)
	}
	h := sha1.New()
	h.Write([]byte(kind))
	h.Write([]byte{'\n'})
	h.Write([]byte(key))
	return hex.EncodeToString(h.Sum(nil))
}

// Normalize 纯函数：清洗字段并生成 ID，不做任何 I/O
func Normalize(rec collector.RawRecord) ContentItem {
	return ContentItem{
		ID:          DeriveID(rec.Kind, rec.URL, rec.Title),
		Kind:        rec.Kind,
		SourceName:  strings.TrimSpace(rec.SourceName),
		Title:       truncateRunes(sanitizeText(rec.Title), maxTitleRunes),
		URL:         strings.TrimSpace(rec.URL),
		Summary:     truncateRunes(sanitizeText(rec.Description), maxSummaryRunes),
		Thumbnail:   strings.TrimSpace(rec.Thumbnail),
		PublishedAt: rec.PublishedAt,
		RawScore:    rec.Score,
	}
}

// sanitizeText 剥掉 HTML 标签并还原实体，show notes 常整段带标签
func sanitizeText(s string) string {
	if s == "" {
		return ""
	}
	return collapseWhitespace(html.UnescapeString(stripTags.Sanitize(s)))
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// truncateRunes 按字符数截断并补省略号，避免把多字节字符切坏
func truncateRunes(s string, limit int) string {
	rs := []rune(s)
	if len(rs) <= limit {
		return s
	}
	return string(rs[:limit]) + "…"
}
