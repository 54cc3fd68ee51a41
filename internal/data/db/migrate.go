package db

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/moldindex-backend/internal/domain"
)

func AutoMigrateAll(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&domain.MoldRecord{},
		&domain.MediaAsset{},
	); err != nil {
		return fmt.Errorf("automigrate: %w", err)
	}
	return nil
}

func (s *DatabaseService) AutoMigrateAll() error {
	s.log.Info("Running auto migrations...")
	return AutoMigrateAll(s.db)
}
