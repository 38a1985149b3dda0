// Package metrics 负责收集并暴露 Prometheus 指标。
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector 汇总聚合流水线各环节的指标。
// 指针为 nil 时所有方法都是空操作，便于在未接入监控的场景下直接调用。
type Collector struct {
	sourceFetch  *prometheus.CounterVec
	sourceItems  *prometheus.CounterVec
	fetchSeconds *prometheus.HistogramVec
	cacheEvents  *prometheus.CounterVec
	mergeDropped prometheus.Counter
	feedItems    prometheus.Gauge
	refreshSecs  prometheus.Histogram
	summaries    *prometheus.CounterVec
	digestEmails *prometheus.CounterVec
}

// NewCollector 创建 Collector 并把指标注册到指定的 registry。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		sourceFetch: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dailycut_source_fetch_total",
			Help: "每个数据源的抓取次数，按结果区分",
		}, []string{"source", "status"}),
		sourceItems: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dailycut_source_items_total",
			Help: "每个数据源抓取到的条目总数",
		}, []string{"source"}),
		fetchSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "dailycut_source_fetch_seconds",
			Help:    "每个数据源单次抓取耗时（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"source"}),
		cacheEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dailycut_cache_events_total",
			Help: "缓存命中情况，hit/miss/stale",
		}, []string{"result"}),
		mergeDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dailycut_merge_dropped_total",
			Help: "合并阶段去重丢弃的条目总数",
		}),
		feedItems: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dailycut_feed_items",
			Help: "最近一次刷新后 feed 中的条目数",
		}),
		refreshSecs: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "dailycut_refresh_seconds",
			Help:    "完整刷新周期的耗时（秒）",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60},
		}),
		summaries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dailycut_summaries_total",
			Help: "生成摘要的次数，按方式区分 llm/fallback/extract",
		}, []string{"mode"}),
		digestEmails: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dailycut_digest_emails_total",
			Help: "日报邮件发送次数，按结果区分",
		}, []string{"status"}),
	}

	reg.MustRegister(
		c.sourceFetch,
		c.sourceItems,
		c.fetchSeconds,
		c.cacheEvents,
		c.mergeDropped,
		c.feedItems,
		c.refreshSecs,
		c.summaries,
		c.digestEmails,
	)

	return c
}

// RecordFetch 记录一次数据源抓取的结果与耗时。
func (c *Collector) RecordFetch(source string, items int, dur time.Duration, err error) {
	if c == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	c.sourceFetch.WithLabelValues(source, status).Inc()
	c.sourceItems.WithLabelValues(source).Add(float64(items))
	c.fetchSeconds.WithLabelValues(source).Observe(dur.Seconds())
}

// RecordCache 记录一次缓存事件，result 取 hit/miss/stale。
func (c *Collector) RecordCache(result string) {
	if c == nil {
		return
	}
	c.cacheEvents.WithLabelValues(result).Inc()
}

// RecordMergeDropped 记录合并去重丢弃的条目数。
func (c *Collector) RecordMergeDropped(n int) {
	if c == nil || n <= 0 {
		return
	}
	c.mergeDropped.Add(float64(n))
}

// SetFeedItems 更新当前 feed 条目数。
func (c *Collector) SetFeedItems(n int) {
	if c == nil {
		return
	}
	c.feedItems.Set(float64(n))
}

// RecordRefresh 记录一次完整刷新周期的耗时。
func (c *Collector) RecordRefresh(dur time.Duration) {
	if c == nil {
		return
	}
	c.refreshSecs.Observe(dur.Seconds())
}

// RecordSummary 记录一次摘要生成，mode 取 llm/fallback/extract。
func (c *Collector) RecordSummary(mode string) {
	if c == nil {
		return
	}
	c.summaries.WithLabelValues(mode).Inc()
}

// RecordEmail 记录一次日报邮件发送结果。
func (c *Collector) RecordEmail(err error) {
	if c == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	c.digestEmails.WithLabelValues(status).Inc()
}

// Handler 返回 Prometheus 抓取用的 HTTP handler。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
