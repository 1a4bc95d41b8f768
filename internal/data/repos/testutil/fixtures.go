package testutil

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	types "github.com/sirwalterjones/threads-backend/internal/domain"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func SeedPost(tb testing.TB, ctx context.Context, tx *gorm.DB, title string) *types.Post {
	tb.Helper()
	p := &types.Post{
		ID:         uuid.New(),
		AuthorName: "seed",
		Title:      title,
		Body:       "body",
	}
	if err := tx.WithContext(ctx).Create(p).Error; err != nil {
		tb.Fatalf("seed post: %v", err)
	}
	return p
}

// SeedPostWithTags seeds a post whose two tag representations already agree:
// the tags column lists labels and a tag plus association row exists per label.
func SeedPostWithTags(tb testing.TB, ctx context.Context, tx *gorm.DB, title string, labels []string) *types.Post {
	tb.Helper()
	p := SeedPost(tb, ctx, tx, title)
	if len(labels) == 0 {
		return p
	}
	raw, err := json.Marshal(labels)
	if err != nil {
		tb.Fatalf("marshal labels: %v", err)
	}
	if err := tx.WithContext(ctx).
		Model(&types.Post{}).
		Where("id = ?", p.ID).
		Update("tags", datatypes.JSON(raw)).Error; err != nil {
		tb.Fatalf("seed post tags column: %v", err)
	}
	p.Tags = datatypes.JSON(raw)
	for _, label := range labels {
		tag := SeedTag(tb, ctx, tx, label)
		SeedPostTag(tb, ctx, tx, p.ID, tag.ID)
	}
	return p
}

func SeedComment(tb testing.TB, ctx context.Context, tx *gorm.DB, postID uuid.UUID, body string) *types.Comment {
	tb.Helper()
	c := &types.Comment{
		ID:         uuid.New(),
		PostID:     postID,
		AuthorName: "seed",
		Body:       body,
	}
	if err := tx.WithContext(ctx).Create(c).Error; err != nil {
		tb.Fatalf("seed comment: %v", err)
	}
	return c
}

func SeedTag(tb testing.TB, ctx context.Context, tx *gorm.DB, label string) *types.Tag {
	tb.Helper()
	t := &types.Tag{
		ID:    uuid.New(),
		Label: label,
	}
	if err := tx.WithContext(ctx).Create(t).Error; err != nil {
		tb.Fatalf("seed tag: %v", err)
	}
	return t
}

func SeedPostTag(tb testing.TB, ctx context.Context, tx *gorm.DB, postID, tagID uuid.UUID) *types.PostTag {
	tb.Helper()
	pt := &types.PostTag{
		ID:     uuid.New(),
		PostID: postID,
		TagID:  tagID,
	}
	if err := tx.WithContext(ctx).Create(pt).Error; err != nil {
		tb.Fatalf("seed post tag: %v", err)
	}
	return pt
}

func PtrUUID(v uuid.UUID) *uuid.UUID { return &v }

func PtrTime(v time.Time) *time.Time { return &v }
