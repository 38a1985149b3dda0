package storage

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"gorm.io/datatypes"
)

// Settings 用户偏好，单行表，ID 固定为 1
type Settings struct {
	ID        uint                        `gorm:"primaryKey" json:"-"`
	Interests datatypes.JSONSlice[string] `gorm:"type:jsonb" json:"interests"`
	Blocked   datatypes.JSONSlice[string] `gorm:"type:jsonb" json:"blocked"`
	AwardMode bool                        `json:"awardMode"`
	UpdatedAt time.Time                   `json:"updatedAt"`
}

// DefaultSettings 没有任何配置时的初始值：不关注任何人、不屏蔽、不开颁奖季
func DefaultSettings() Settings {
	return Settings{
		ID:        1,
		Interests: datatypes.JSONSlice[string]{},
		Blocked:   datatypes.JSONSlice[string]{},
	}
}

// Fingerprint 把会影响 feed 内容的字段压成一个串，用于缓存 key。
// 兴趣顺序会影响抓取结果，所以这里不排序。
func (s Settings) Fingerprint() string {
	return strings.Join(s.Interests, ",") + "|" + strings.Join(s.Blocked, ",") + "|" + strconv.FormatBool(s.AwardMode)
}

// SettingsStore 抽象设置的读写，DB 不可用时退化为内存实现
type SettingsStore interface {
	GetSettings() (Settings, error)
	SaveSettings(Settings) (Settings, error)
}

// GetSettings 读取设置，没有就落一行默认值
func (s *Store) GetSettings() (Settings, error) {
	st := DefaultSettings()
	if err := s.DB.Where("id = ?", 1).FirstOrCreate(&st).Error; err != nil {
		return Settings{}, fmt.Errorf("storage: load settings: %w", err)
	}
	return st, nil
}

// SaveSettings 整体覆盖保存
func (s *Store) SaveSettings(st Settings) (Settings, error) {
	st.ID = 1
	if st.Interests == nil {
		st.Interests = datatypes.JSONSlice[string]{}
	}
	if st.Blocked == nil {
		st.Blocked = datatypes.JSONSlice[string]{}
	}
	if err := s.DB.Save(&st).Error; err != nil {
		return Settings{}, fmt.Errorf("storage: save settings: %w", err)
	}
	return st, nil
}

// MemorySettings 进程内的设置存储，重启即丢
type MemorySettings struct {
	mu sync.RWMutex
	st Settings
}

func NewMemorySettings() *MemorySettings {
	return &MemorySettings{st: DefaultSettings()}
}

func (m *MemorySettings) GetSettings() (Settings, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st, nil
}

func (m *MemorySettings) SaveSettings(st Settings) (Settings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st.ID = 1
	if st.Interests == nil {
		st.Interests = datatypes.JSONSlice[string]{}
	}
	if st.Blocked == nil {
		st.Blocked = datatypes.JSONSlice[string]{}
	}
	st.UpdatedAt = time.Now()
	m.st = st
	return st, nil
}
