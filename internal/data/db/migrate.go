package db

import (
	"fmt"

	"gorm.io/gorm"

	types "github.com/yungbote/neurobridge-assistant/internal/domain"
)

func AutoMigrateAll(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&types.Document{},
		&types.Chunk{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
