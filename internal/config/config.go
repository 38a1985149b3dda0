package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config 进程启动时一次性构建的只读配置。
// 凭证为空表示对应数据源/能力处于禁用态，属预期情况而非错误。
type Config struct {
	AppPort string

	// 为空时设置与快照只存内存，不落库
	PostgresDSN string
	// 为空时使用进程内缓存
	RedisAddr string

	NewsAPIKey      string
	YouTubeAPIKey   string
	AnthropicAPIKey string
	ResendAPIKey    string

	DigestFrom string
	DigestTo   string

	// page-extract sidecar 地址，可为空
	ExtractorURL string

	CacheTTL     time.Duration
	Lookback     time.Duration
	FetchTimeout time.Duration

	RefreshSpec string
	EmailSpec   string

	// 每个刷新窗口内各数据源允许的外呼次数
	PodcastBudget int
	YouTubeBudget int
	NewsAPIBudget int
	ScrapeBudget  int
}

func Load() *Config {
	// .env 不存在时静默跳过，直接读进程环境
	_ = godotenv.Load()

	cfg := &Config{
		AppPort:     getEnv("APP_PORT", "9000"),
		PostgresDSN: getEnv("POSTGRES_DSN", ""),
		RedisAddr:   getEnv("REDIS_ADDR", ""),

		NewsAPIKey:      getEnv("NEWS_API_KEY", ""),
		YouTubeAPIKey:   getEnv("YOUTUBE_API_KEY", ""),
		AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),
		ResendAPIKey:    getEnv("RESEND_API_KEY", ""),

		DigestFrom: getEnv("DIGEST_FROM", "The Daily Cut <digest@thedailycut.app>"),
		DigestTo:   getEnv("DIGEST_TO", ""),

		ExtractorURL: getEnv("EXTRACTOR_URL", ""),

		CacheTTL:     getEnvDuration("CACHE_TTL", 15*time.Minute),
		Lookback:     getEnvDuration("LOOKBACK", 48*time.Hour),
		FetchTimeout: getEnvDuration("FETCH_TIMEOUT", 25*time.Second),

		RefreshSpec: getEnv("REFRESH_CRON", "*/30 * * * *"),
		EmailSpec:   getEnv("EMAIL_CRON", "0 7 * * *"),

		PodcastBudget: getEnvInt("PODCAST_BUDGET", 8),
		YouTubeBudget: getEnvInt("YOUTUBE_BUDGET", 12),
		NewsAPIBudget: getEnvInt("NEWSAPI_BUDGET", 2),
		ScrapeBudget:  getEnvInt("SCRAPE_BUDGET", 6),
	}

	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return def
}
