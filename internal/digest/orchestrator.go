package digest

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/primendon/dailycut/internal/cache"
	"github.com/primendon/dailycut/internal/collector"
	"github.com/primendon/dailycut/internal/logging"
	"github.com/primendon/dailycut/internal/metrics"
	"github.com/primendon/dailycut/internal/processor"
	"github.com/primendon/dailycut/internal/storage"
	"github.com/primendon/dailycut/internal/summary"
)

const (
	defaultCacheTTL = 15 * time.Minute
	defaultLookback = 48 * time.Hour
	defaultTimeout  = 25 * time.Second
	// 只保留最近若干份快照，防止 jsonb 表无限膨胀
	snapshotKeep = 30
)

// Orchestrator 串起一轮完整的聚合：查缓存、并发抓取、规整、
// 合并去重、补摘要、回写缓存。单个数据源挂掉不影响整体。
type Orchestrator struct {
	fetchers   []collector.Fetcher
	cache      cache.Store
	settings   storage.SettingsStore
	snapshots  storage.SnapshotStore
	summarizer *summary.Summarizer
	metrics    *metrics.Collector
	log        logging.Logger

	cacheTTL time.Duration
	lookback time.Duration
	timeout  time.Duration

	// 并发的刷新请求只跑一轮抓取
	group singleflight.Group
}

type Options struct {
	Fetchers   []collector.Fetcher
	Cache      cache.Store
	Settings   storage.SettingsStore
	Snapshots  storage.SnapshotStore
	Summarizer *summary.Summarizer
	Metrics    *metrics.Collector
	Log        logging.Logger

	CacheTTL time.Duration
	Lookback time.Duration
	Timeout  time.Duration
}

func New(opts Options) *Orchestrator {
	o := &Orchestrator{
		fetchers:   opts.Fetchers,
		cache:      opts.Cache,
		settings:   opts.Settings,
		snapshots:  opts.Snapshots,
		summarizer: opts.Summarizer,
		metrics:    opts.Metrics,
		log:        opts.Log,
		cacheTTL:   opts.CacheTTL,
		lookback:   opts.Lookback,
		timeout:    opts.Timeout,
	}
	if o.cacheTTL <= 0 {
		o.cacheTTL = defaultCacheTTL
	}
	if o.lookback <= 0 {
		o.lookback = defaultLookback
	}
	if o.timeout <= 0 {
		o.timeout = defaultTimeout
	}
	return o
}

// Refresh 返回当前 feed，缓存新鲜就直接用，否则跑一轮聚合。
// 永远不返回错误：最坏情况是空 feed，页面照常渲染。
func (o *Orchestrator) Refresh(ctx context.Context) []processor.ContentItem {
	st := o.loadSettings()
	key := o.cacheKey(time.Now(), st)

	if ent, ok := o.cache.Get(ctx, key); ok && !ent.Expired(time.Now()) {
		o.metrics.RecordCache("hit")
		return ent.Items
	}
	o.metrics.RecordCache("miss")

	return o.runCycle(ctx, st, key)
}

// ForceRefresh 跳过缓存检查直接跑一轮聚合，结果照常回写缓存
func (o *Orchestrator) ForceRefresh(ctx context.Context) []processor.ContentItem {
	st := o.loadSettings()
	key := o.cacheKey(time.Now(), st)
	return o.runCycle(ctx, st, key)
}

func (o *Orchestrator) runCycle(ctx context.Context, st storage.Settings, key string) []processor.ContentItem {
	v, _, _ := o.group.Do(key, func() (any, error) {
		return o.aggregate(ctx, st, key), nil
	})
	items, ok := v.([]processor.ContentItem)
	if !ok {
		return []processor.ContentItem{}
	}
	return items
}

// WarmStart 冷启动时把最近一次快照放回缓存，
// 快照本身的时间戳决定它算新鲜命中还是只能当过期兜底
func (o *Orchestrator) WarmStart(ctx context.Context) {
	if o.snapshots == nil {
		return
	}
	snap, items, err := o.snapshots.LatestSnapshot()
	if err != nil {
		o.log.Warnf("digest: load latest snapshot: %v", err)
		return
	}
	if snap.ID == "" {
		return
	}
	if _, ok := o.cache.Get(ctx, snap.CacheKey); ok {
		return
	}
	ent := &cache.Entry{Key: snap.CacheKey, Items: items, CreatedAt: snap.TakenAt, TTL: o.cacheTTL}
	if err := o.cache.Put(ctx, ent); err != nil {
		o.log.Warnf("digest: warm start cache write: %v", err)
		return
	}
	o.log.Infof("digest: warm start restored %d items from snapshot taken at %s",
		len(items), snap.TakenAt.Format(time.RFC3339))
}

func (o *Orchestrator) loadSettings() storage.Settings {
	st, err := o.settings.GetSettings()
	if err != nil {
		o.log.Warnf("digest: load settings: %v", err)
		return storage.DefaultSettings()
	}
	return st
}

func (o *Orchestrator) cacheKey(now time.Time, st storage.Settings) string {
	names := make([]string, 0, len(o.fetchers))
	for _, f := range o.fetchers {
		if f.Enabled() {
			names = append(names, f.Name())
		}
	}
	return cache.Key(now, names, st.Fingerprint())
}

type fetchResult struct {
	records []collector.RawRecord
	err     error
	dur     time.Duration
	ran     bool
}

// aggregate 跑一轮完整的聚合流水线并回写缓存
func (o *Orchestrator) aggregate(ctx context.Context, st storage.Settings, key string) []processor.ContentItem {
	start := time.Now()
	log := o.log.WithField("cycle", uuid.NewString()[:8])

	q := collector.QueryContext{
		Interests: st.Interests,
		Blocked:   st.Blocked,
		AwardMode: st.AwardMode,
		Lookback:  o.lookback,
	}

	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	// 并发抓取，按固定下标写结果，后续处理顺序与注册顺序一致
	results := make([]fetchResult, len(o.fetchers))
	var wg sync.WaitGroup
	for i, f := range o.fetchers {
		if !f.Enabled() {
			continue
		}
		wg.Add(1)
		go func(i int, f collector.Fetcher) {
			defer wg.Done()
			t0 := time.Now()
			recs, err := f.Fetch(ctx, q)
			results[i] = fetchResult{records: recs, err: err, dur: time.Since(t0), ran: true}
		}(i, f)
	}
	wg.Wait()

	var items []processor.ContentItem
	ran, succeeded := 0, 0
	for i, f := range o.fetchers {
		r := results[i]
		if !r.ran {
			continue
		}
		ran++
		o.metrics.RecordFetch(f.Name(), len(r.records), r.dur, r.err)
		if r.err != nil {
			log.Warnf("digest: source %s failed: %v", f.Name(), r.err)
			continue
		}
		succeeded++
		for _, rec := range r.records {
			it := processor.Normalize(rec)
			it.SourceOrder = i
			items = append(items, it)
		}
	}

	if ran == 0 {
		log.Info("digest: no sources enabled, serving empty feed")
		return []processor.ContentItem{}
	}

	if succeeded == 0 {
		// 全部失败时不写缓存，退回最近一份还没被清掉的缓存
		if ent, ok := o.cache.Get(ctx, key); ok {
			o.metrics.RecordCache("stale")
			log.Warnf("digest: all %d sources failed, serving stale cache from %s",
				ran, ent.CreatedAt.Format(time.RFC3339))
			return ent.Items
		}
		log.Warnf("digest: all %d sources failed and no cache available, serving empty feed", ran)
		return []processor.ContentItem{}
	}

	items = filterBlocked(items, st.Blocked)
	feed, dropped := processor.Merge(items)
	o.metrics.RecordMergeDropped(len(dropped))

	feed = o.summarizer.Apply(ctx, feed)

	ent := &cache.Entry{Key: key, Items: feed, CreatedAt: time.Now(), TTL: o.cacheTTL}
	if err := o.cache.Put(ctx, ent); err != nil {
		log.Warnf("digest: cache write: %v", err)
	}
	if o.snapshots != nil {
		if _, err := o.snapshots.SaveSnapshot(key, feed); err != nil {
			log.Warnf("digest: save snapshot: %v", err)
		} else if err := o.snapshots.PruneSnapshots(snapshotKeep); err != nil {
			log.Warnf("digest: prune snapshots: %v", err)
		}
	}

	o.metrics.SetFeedItems(len(feed))
	o.metrics.RecordRefresh(time.Since(start))
	log.Infof("digest: refreshed feed with %d items from %d/%d sources in %s",
		len(feed), succeeded, ran, time.Since(start).Round(time.Millisecond))

	if feed == nil {
		feed = []processor.ContentItem{}
	}
	return feed
}

// filterBlocked 屏蔽词过滤，标题、摘要、来源任意一处命中就丢弃
func filterBlocked(items []processor.ContentItem, blocked []string) []processor.ContentItem {
	if len(blocked) == 0 {
		return items
	}
	terms := make([]string, 0, len(blocked))
	for _, b := range blocked {
		if t := strings.ToLower(strings.TrimSpace(b)); t != "" {
			terms = append(terms, t)
		}
	}
	if len(terms) == 0 {
		return items
	}

	kept := make([]processor.ContentItem, 0, len(items))
	for _, it := range items {
		if !isBlocked(it, terms) {
			kept = append(kept, it)
		}
	}
	return kept
}

func isBlocked(it processor.ContentItem, terms []string) bool {
	title := strings.ToLower(it.Title)
	sum := strings.ToLower(it.Summary)
	src := strings.ToLower(it.SourceName)
	for _, t := range terms {
		if strings.Contains(title, t) || strings.Contains(sum, t) || strings.Contains(src, t) {
			return true
		}
	}
	return false
}
