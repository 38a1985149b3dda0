package collector

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// SourceKind 条目的内容类别，近似去重只在同类条目之间进行
type SourceKind string

const (
	KindHeadline       SourceKind = "headline"
	KindInterview      SourceKind = "interview"
	KindPodcastSummary SourceKind = "podcast_summary"
)

// RawRecord 统一采集后的基础结构，缺失字段留零值，归一化交给 processor
type RawRecord struct {
	Kind        SourceKind
	SourceName  string
	Title       string
	URL         string
	Description string
	PublishedAt time.Time
	Thumbnail   string
	Score       float64
	Extra       map[string]any
}

// QueryContext 单次刷新携带的用户上下文，采集器不读全局状态
type QueryContext struct {
	Interests []string
	Blocked   []string
	AwardMode bool
	Lookback  time.Duration
}

// Fetcher 抽象每一个数据源
type Fetcher interface {
	Name() string
	Kind() SourceKind
	// Enabled 为 false 表示凭证缺失等预期情况，调用方跳过该源且不计为失败
	Enabled() bool
	Fetch(ctx context.Context, q QueryContext) ([]RawRecord, error)
}

// SourceError 单个数据源的失败，聚合层只记录不向上传播
type SourceError struct {
	Source string
	Kind   SourceKind
	Reason string
	Err    error
}

func (e *SourceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s(%s): %s: %v", e.Source, e.Kind, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s(%s): %s", e.Source, e.Kind, e.Reason)
}

func (e *SourceError) Unwrap() error { return e.Err }

// Budget 一个刷新窗口内允许的外呼次数，耗尽后 Allow 返回 false，
// 采集器按空结果处理而不是报错
type Budget struct {
	lim *rate.Limiter
}

// NewBudget calls<=0 表示不限制
func NewBudget(calls int, window time.Duration) *Budget {
	if calls <= 0 {
		return &Budget{}
	}
	if window <= 0 {
		window = time.Minute
	}
	return &Budget{lim: rate.NewLimiter(rate.Every(window/time.Duration(calls)), calls)}
}

// Allow 在每次外呼前调用，nil Budget 等同不限制
func (b *Budget) Allow() bool {
	if b == nil || b.lim == nil {
		return true
	}
	return b.lim.Allow()
}
