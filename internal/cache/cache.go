package cache

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/primendon/dailycut/internal/processor"
)

// Retention 过期条目的最长保留期，过期但未超保留期的条目仍可读到，
// 由调用方决定是否作为兜底数据使用
const Retention = 48 * time.Hour

// Entry 一次聚合的完整输出，整体替换，不做原地合并
type Entry struct {
	Key       string                  `json:"key"`
	Items     []processor.ContentItem `json:"items"`
	CreatedAt time.Time               `json:"createdAt"`
	TTL       time.Duration           `json:"ttl"`
}

// Expired 惰性过期判断，读取方自行决定过期条目的去留
func (e *Entry) Expired(now time.Time) bool {
	if e == nil {
		return true
	}
	return now.After(e.CreatedAt.Add(e.TTL))
}

// Store 缓存的读写界面，Get 对过期但在保留期内的条目照常返回
type Store interface {
	Get(ctx context.Context, key string) (*Entry, bool)
	Put(ctx context.Context, e *Entry) error
}

// Key 由日期桶和指纹构成：同一天内启用源集合或用户设置变化都会换键，
// 旧缓存自然失效而不需要显式清除
func Key(now time.Time, enabledSources []string, settingsFP string) string {
	day := now.UTC().Format("2006-01-02")
	h := sha1.New()
	h.Write([]byte(strings.Join(enabledSources, ",")))
	h.Write([]byte{'|'})
	h.Write([]byte(settingsFP))
	fp := hex.EncodeToString(h.Sum(nil))[:12]
	return fmt.Sprintf("digest:feed:%s:%s", day, fp)
}
