package board

import (
	"time"

	"github.com/google/uuid"
)

// Tag rows are append-only: labels stay registered even when no post references
// them anymore, so a label always resolves to the same id across its lifetime.
type Tag struct {
	ID    uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Label string    `gorm:"column:label;not null;uniqueIndex:idx_tag_label" json:"label"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (Tag) TableName() string { return "tag" }
