package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sirwalterjones/threads-backend/internal/data/repos"
	types "github.com/sirwalterjones/threads-backend/internal/domain"
	domainagg "github.com/sirwalterjones/threads-backend/internal/domain/aggregates"
	"github.com/sirwalterjones/threads-backend/internal/hashtag"
	"github.com/sirwalterjones/threads-backend/internal/platform/dbctx"
	"github.com/sirwalterjones/threads-backend/internal/platform/logger"
)

// TagSummary is a registered tag plus how many posts currently carry it.
// A count of zero means the label was mentioned once and later released;
// the row itself is never pruned.
type TagSummary struct {
	ID        uuid.UUID `json:"id"`
	Label     string    `json:"label"`
	PostCount int64     `json:"post_count"`
	CreatedAt time.Time `json:"created_at"`
}

type TagService interface {
	List(ctx context.Context) ([]TagSummary, error)
	PostsForLabel(ctx context.Context, label string, limit, offset int) ([]*types.Post, error)
}

type tagService struct {
	db       *gorm.DB
	log      *logger.Logger
	posts    repos.PostRepo
	tags     repos.TagRepo
	postTags repos.PostTagRepo
}

func NewTagService(
	db *gorm.DB,
	baseLog *logger.Logger,
	posts repos.PostRepo,
	tags repos.TagRepo,
	postTags repos.PostTagRepo,
) TagService {
	return &tagService{
		db:       db,
		log:      baseLog.With("service", "TagService"),
		posts:    posts,
		tags:     tags,
		postTags: postTags,
	}
}

func (s *tagService) List(ctx context.Context) ([]TagSummary, error) {
	if s == nil || s.tags == nil || s.postTags == nil {
		return nil, fmt.Errorf("tag service not configured")
	}
	dbc := dbctx.Context{Ctx: ctx}
	rows, err := s.tags.ListAll(dbc)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return []TagSummary{}, nil
	}
	ids := make([]uuid.UUID, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	counts, err := s.postTags.CountByTagIDs(dbc, ids)
	if err != nil {
		return nil, err
	}
	out := make([]TagSummary, 0, len(rows))
	for _, row := range rows {
		out = append(out, TagSummary{
			ID:        row.ID,
			Label:     row.Label,
			PostCount: counts[row.ID],
			CreatedAt: row.CreatedAt,
		})
	}
	return out, nil
}

// PostsForLabel lists the posts currently associated with a label. The label
// is canonicalized first, so "Alpha", "#alpha" and " #ALPHA " all resolve to
// the same tag. An unregistered label reads as not found.
func (s *tagService) PostsForLabel(ctx context.Context, label string, limit, offset int) ([]*types.Post, error) {
	if s == nil || s.posts == nil || s.tags == nil || s.postTags == nil {
		return nil, fmt.Errorf("tag service not configured")
	}
	normalized := hashtag.Normalize(label)
	if normalized == "" {
		return nil, domainagg.NewError(domainagg.CodeValidation, "TagService.PostsForLabel", "missing label", nil)
	}
	dbc := dbctx.Context{Ctx: ctx}
	tag, err := s.tags.GetByLabel(dbc, normalized)
	if err != nil {
		return nil, err
	}
	if tag == nil {
		return nil, domainagg.NewError(domainagg.CodeNotFound, "TagService.PostsForLabel", fmt.Sprintf("tag not found: %s", normalized), nil)
	}
	postIDs, err := s.postTags.ListPostIDsByTagID(dbc, tag.ID, limit, offset)
	if err != nil {
		return nil, err
	}
	if len(postIDs) == 0 {
		return []*types.Post{}, nil
	}
	// GetByIDs runs under the default soft-delete scope, so associations left
	// behind by a deleted post drop out of the result on their own.
	return s.posts.GetByIDs(dbc, postIDs)
}
