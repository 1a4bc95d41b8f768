package db

import (
	"fmt"

	types "github.com/sirwalterjones/threads-backend/internal/domain"
	"gorm.io/gorm"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(

		// =========================
		// Board content
		// =========================
		&types.Post{},
		&types.Comment{},

		// =========================
		// Derived tag state
		// =========================
		&types.Tag{},
		&types.PostTag{},
	)
}

// EnsureBoardIndexes adds indexes AutoMigrate cannot express through struct tags.
func EnsureBoardIndexes(db *gorm.DB) error {
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_comment_post_created_at
		ON comment (post_id, created_at)
		WHERE deleted_at IS NULL;
	`).Error; err != nil {
		return fmt.Errorf("create idx_comment_post_created_at: %w", err)
	}

	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_post_tag_tag_id
		ON post_tag (tag_id);
	`).Error; err != nil {
		return fmt.Errorf("create idx_post_tag_tag_id: %w", err)
	}

	return nil
}
