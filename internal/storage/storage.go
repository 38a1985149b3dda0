package storage

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/primendon/dailycut/internal/logging"
)

// Store 持久化用户设置与 feed 快照
type Store struct {
	DB  *gorm.DB
	log logging.Logger
}

func NewStore(dsn string, log logging.Logger) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("storage: open postgres: %w", err)
	}

	if err := db.AutoMigrate(&Settings{}, &Snapshot{}); err != nil {
		return nil, fmt.Errorf("storage: migrate: %w", err)
	}

	return &Store{DB: db, log: log}, nil
}
