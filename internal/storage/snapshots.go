package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/primendon/dailycut/internal/processor"
)

// Snapshot 一次刷新产出的完整 feed，入库后用于冷启动回填和历史回看
type Snapshot struct {
	ID        string         `gorm:"primaryKey;size:36" json:"id"`
	CacheKey  string         `gorm:"size:128;index" json:"cacheKey"`
	ItemCount int            `json:"itemCount"`
	Items     datatypes.JSON `gorm:"type:jsonb" json:"items"`
	TakenAt   time.Time      `gorm:"index" json:"takenAt"`
}

// SnapshotStore 抽象快照读写，没配数据库时整个环节直接跳过
type SnapshotStore interface {
	SaveSnapshot(cacheKey string, items []processor.ContentItem) (Snapshot, error)
	LatestSnapshot() (Snapshot, []processor.ContentItem, error)
	PruneSnapshots(keep int) error
}

func (s *Store) SaveSnapshot(cacheKey string, items []processor.ContentItem) (Snapshot, error) {
	bs, err := json.Marshal(items)
	if err != nil {
		return Snapshot{}, fmt.Errorf("storage: marshal snapshot: %w", err)
	}
	snap := Snapshot{
		ID:        uuid.NewString(),
		CacheKey:  cacheKey,
		ItemCount: len(items),
		Items:     datatypes.JSON(bs),
		TakenAt:   time.Now().UTC(),
	}
	if err := s.DB.Create(&snap).Error; err != nil {
		return Snapshot{}, fmt.Errorf("storage: save snapshot: %w", err)
	}
	return snap, nil
}

// LatestSnapshot 返回最近一次快照及反序列化后的条目。
// 表为空时返回零值快照，不算错误。
func (s *Store) LatestSnapshot() (Snapshot, []processor.ContentItem, error) {
	var snap Snapshot
	if err := s.DB.Order("taken_at DESC").First(&snap).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Snapshot{}, nil, nil
		}
		return Snapshot{}, nil, err
	}
	var items []processor.ContentItem
	if err := json.Unmarshal(snap.Items, &items); err != nil {
		return Snapshot{}, nil, fmt.Errorf("storage: decode snapshot %s: %w", snap.ID, err)
	}
	return snap, items, nil
}

// PruneSnapshots 只保留最近的 keep 条快照
func (s *Store) PruneSnapshots(keep int) error {
	if keep <= 0 {
		keep = 1
	}
	return s.DB.Exec(
		`DELETE FROM snapshots WHERE id NOT IN (SELECT id FROM snapshots ORDER BY taken_at DESC LIMIT ?)`,
		keep,
	).Error
}
