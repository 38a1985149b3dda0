package main

import (
	"context"
	"time"

	"github.com/primendon/dailycut/internal/cache"
	"github.com/primendon/dailycut/internal/collector"
	"github.com/primendon/dailycut/internal/config"
	"github.com/primendon/dailycut/internal/digest"
	"github.com/primendon/dailycut/internal/logging"
	"github.com/primendon/dailycut/internal/storage"
	"github.com/primendon/dailycut/internal/summary"
)

const budgetWindow = 30 * time.Minute

// 只跑一轮聚合就退出的命令行入口，适合手动触发或排查数据源问题
func main() {
	cfg := config.Load()
	log := logging.New("refresh")

	var settings storage.SettingsStore
	var snapshots storage.SnapshotStore
	if cfg.PostgresDSN != "" {
		store, err := storage.NewStore(cfg.PostgresDSN, log)
		if err != nil {
			log.Fatalf("init store failed: %v", err)
		}
		settings = store
		snapshots = store
	} else {
		settings = storage.NewMemorySettings()
	}

	var feedCache cache.Store = cache.NewMemory()
	if cfg.RedisAddr != "" {
		if rc, err := cache.NewRedis(cfg.RedisAddr, log); err != nil {
			log.Warnf("redis unavailable, falling back to in-memory cache: %v", err)
		} else {
			feedCache = rc
		}
	}

	// 与 cmd/api 注册同一组数据源，顺序保持一致
	fetchers := []collector.Fetcher{
		collector.NewPodcastFetcher(collector.NewBudget(cfg.PodcastBudget, budgetWindow), log),
		collector.NewYouTubeFetcher(cfg.YouTubeAPIKey, collector.NewBudget(cfg.YouTubeBudget, budgetWindow), log),
		collector.NewNewsAPIFetcher(cfg.NewsAPIKey, collector.NewBudget(cfg.NewsAPIBudget, budgetWindow), log),
		collector.NewTradePressFetcher(collector.NewBudget(cfg.ScrapeBudget, budgetWindow), log),
	}

	orch := digest.New(digest.Options{
		Fetchers:   fetchers,
		Cache:      feedCache,
		Settings:   settings,
		Snapshots:  snapshots,
		Summarizer: summary.New(cfg.AnthropicAPIKey, cfg.ExtractorURL, nil, log),
		Log:        log,
		CacheTTL:   cfg.CacheTTL,
		Lookback:   cfg.Lookback,
		Timeout:    cfg.FetchTimeout,
	})

	items := orch.ForceRefresh(context.Background())
	log.Infof("refresh done, feed has %d items", len(items))
}
