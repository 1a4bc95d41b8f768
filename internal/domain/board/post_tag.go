package board

import (
	"time"

	"github.com/google/uuid"
)

// PostTag links a post to a tag it currently carries. Rows are hard-deleted on
// dissociation so the unique pair index never blocks a later re-association.
type PostTag struct {
	ID     uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	PostID uuid.UUID `gorm:"type:uuid;not null;index:idx_post_tag,unique,priority:1" json:"post_id"`
	TagID  uuid.UUID `gorm:"type:uuid;not null;index:idx_post_tag,unique,priority:2" json:"tag_id"`

	Post *Post `gorm:"constraint:OnDelete:CASCADE;foreignKey:PostID;references:ID" json:"post,omitempty"`
	Tag  *Tag  `gorm:"constraint:OnDelete:CASCADE;foreignKey:TagID;references:ID" json:"tag,omitempty"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
}

func (PostTag) TableName() string { return "post_tag" }
