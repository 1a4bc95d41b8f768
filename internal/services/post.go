package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sirwalterjones/threads-backend/internal/data/repos"
	types "github.com/sirwalterjones/threads-backend/internal/domain"
	domainagg "github.com/sirwalterjones/threads-backend/internal/domain/aggregates"
	"github.com/sirwalterjones/threads-backend/internal/platform/dbctx"
	"github.com/sirwalterjones/threads-backend/internal/platform/logger"
)

const defaultAuthorName = "anonymous"

type CreatePostInput struct {
	AuthorName string
	Title      string
	Body       string
}

type PostService interface {
	Create(ctx context.Context, in CreatePostInput) (*types.Post, error)
	Get(ctx context.Context, id uuid.UUID) (*types.Post, error)
	List(ctx context.Context, limit, offset int) ([]*types.Post, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type postService struct {
	db       *gorm.DB
	log      *logger.Logger
	posts    repos.PostRepo
	comments repos.CommentRepo
	postTags repos.PostTagRepo
}

func NewPostService(
	db *gorm.DB,
	baseLog *logger.Logger,
	posts repos.PostRepo,
	comments repos.CommentRepo,
	postTags repos.PostTagRepo,
) PostService {
	return &postService{
		db:       db,
		log:      baseLog.With("service", "PostService"),
		posts:    posts,
		comments: comments,
		postTags: postTags,
	}
}

func (s *postService) Create(ctx context.Context, in CreatePostInput) (*types.Post, error) {
	if s == nil || s.db == nil || s.posts == nil {
		return nil, fmt.Errorf("post service not configured")
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, domainagg.NewError(domainagg.CodeValidation, "PostService.Create", "missing title", nil)
	}
	author := strings.TrimSpace(in.AuthorName)
	if author == "" {
		author = defaultAuthorName
	}
	now := time.Now().UTC()
	row := &types.Post{
		ID:         uuid.New(),
		AuthorName: author,
		Title:      title,
		Body:       in.Body,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if _, err := s.posts.Create(dbctx.Context{Ctx: ctx}, []*types.Post{row}); err != nil {
		return nil, err
	}
	return row, nil
}

func (s *postService) Get(ctx context.Context, id uuid.UUID) (*types.Post, error) {
	if s == nil || s.posts == nil {
		return nil, fmt.Errorf("post service not configured")
	}
	if id == uuid.Nil {
		return nil, domainagg.NewError(domainagg.CodeValidation, "PostService.Get", "missing post_id", nil)
	}
	post, err := s.posts.GetByID(dbctx.Context{Ctx: ctx}, id)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, domainagg.NewError(domainagg.CodeNotFound, "PostService.Get", fmt.Sprintf("post not found: %s", id), nil)
	}
	return post, nil
}

func (s *postService) List(ctx context.Context, limit, offset int) ([]*types.Post, error) {
	if s == nil || s.posts == nil {
		return nil, fmt.Errorf("post service not configured")
	}
	return s.posts.List(dbctx.Context{Ctx: ctx}, limit, offset)
}

// Delete soft-deletes the post and its comments and drops the post's tag
// associations in one transaction. Tag rows stay registered.
func (s *postService) Delete(ctx context.Context, id uuid.UUID) error {
	if s == nil || s.db == nil || s.posts == nil || s.comments == nil || s.postTags == nil {
		return fmt.Errorf("post service not configured")
	}
	if id == uuid.Nil {
		return domainagg.NewError(domainagg.CodeValidation, "PostService.Delete", "missing post_id", nil)
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		post, err := s.posts.GetByID(dbc, id)
		if err != nil {
			return err
		}
		if post == nil {
			return domainagg.NewError(domainagg.CodeNotFound, "PostService.Delete", fmt.Sprintf("post not found: %s", id), nil)
		}
		if err := s.comments.SoftDeleteByPostID(dbc, id); err != nil {
			return err
		}
		if _, err := s.postTags.DeleteByPostID(dbc, id); err != nil {
			return err
		}
		return s.posts.SoftDeleteByID(dbc, id)
	})
}
