package board

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Post struct {
	ID         uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	AuthorName string    `gorm:"column:author_name;not null;default:'anonymous'" json:"author_name"`

	Title string `gorm:"column:title;not null" json:"title"`
	Body  string `gorm:"column:body;type:text;not null" json:"body"`

	// Derived tag labels in first-appearance order. NULL when the post has no
	// tags; the column is never written as an empty JSON list.
	Tags datatypes.JSON `gorm:"column:tags;type:jsonb" json:"tags,omitempty"`

	CreatedAt time.Time      `gorm:"not null;default:now();index" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Post) TableName() string { return "post" }
