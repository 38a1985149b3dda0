package main

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/primendon/dailycut/internal/api"
	"github.com/primendon/dailycut/internal/cache"
	"github.com/primendon/dailycut/internal/collector"
	"github.com/primendon/dailycut/internal/config"
	"github.com/primendon/dailycut/internal/digest"
	"github.com/primendon/dailycut/internal/logging"
	"github.com/primendon/dailycut/internal/metrics"
	"github.com/primendon/dailycut/internal/notify"
	"github.com/primendon/dailycut/internal/scheduler"
	"github.com/primendon/dailycut/internal/storage"
	"github.com/primendon/dailycut/internal/summary"
)

// 外呼预算的计量窗口，与默认刷新周期保持一致
const budgetWindow = 30 * time.Minute

func main() {
	cfg := config.Load()
	log := logging.New("api")

	// 设置与快照：配了 Postgres 才落库，否则存内存
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
		log.Info("postgres not configured, settings kept in memory")
	}

	// 缓存：Redis 连不上时退回进程内缓存
	var feedCache cache.Store = cache.NewMemory()
	if cfg.RedisAddr != "" {
		if rc, err := cache.NewRedis(cfg.RedisAddr, log); err != nil {
			log.Warnf("redis unavailable, falling back to in-memory cache: %v", err)
		} else {
			feedCache = rc
		}
	}

	reg := prometheus.NewRegistry()
	m := metrics.NewCollector(reg)

	// 数据源注册顺序同时决定发布时间并列时的展示先后
	fetchers := []collector.Fetcher{
		collector.NewPodcastFetcher(collector.NewBudget(cfg.PodcastBudget, budgetWindow), log),
		collector.NewYouTubeFetcher(cfg.YouTubeAPIKey, collector.NewBudget(cfg.YouTubeBudget, budgetWindow), log),
		collector.NewNewsAPIFetcher(cfg.NewsAPIKey, collector.NewBudget(cfg.NewsAPIBudget, budgetWindow), log),
		collector.NewTradePressFetcher(collector.NewBudget(cfg.ScrapeBudget, budgetWindow), log),
	}

	summarizer := summary.New(cfg.AnthropicAPIKey, cfg.ExtractorURL, m, log)

	orch := digest.New(digest.Options{
		Fetchers:   fetchers,
		Cache:      feedCache,
		Settings:   settings,
		Snapshots:  snapshots,
		Summarizer: summarizer,
		Metrics:    m,
		Log:        log,
		CacheTTL:   cfg.CacheTTL,
		Lookback:   cfg.Lookback,
		Timeout:    cfg.FetchTimeout,
	})
	orch.WarmStart(context.Background())

	mailer := notify.NewMailer(cfg.ResendAPIKey, cfg.DigestFrom, cfg.DigestTo, m, log)

	sched, err := scheduler.New(cfg.RefreshSpec, cfg.EmailSpec, orch, mailer, log)
	if err != nil {
		log.Fatalf("init scheduler failed: %v", err)
	}
	sched.Start()
	defer sched.Stop()

	r := gin.Default()
	apiServer := api.NewServer(orch, settings, mailer, metrics.Handler(reg), log)
	apiServer.RegisterRoutes(r)

	addr := ":" + cfg.AppPort
	log.Infof("starting api server at %s", addr)
	if err := r.Run(addr); err != nil {
		log.Fatalf("server exit: %v", err)
	}
}
