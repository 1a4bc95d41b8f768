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
	"github.com/sirwalterjones/threads-backend/internal/observability"
	"github.com/sirwalterjones/threads-backend/internal/platform/dbctx"
	"github.com/sirwalterjones/threads-backend/internal/platform/logger"
)

const (
	defaultTagSyncAttempts = 3
	tagSyncRetryBackoff    = 50 * time.Millisecond
)

const (
	triggerCommentCreated = "comment_created"
	triggerCommentUpdated = "comment_updated"
	triggerCommentDeleted = "comment_deleted"
)

type CreateCommentInput struct {
	PostID     uuid.UUID
	AuthorName string
	Body       string
}

type UpdateCommentInput struct {
	Body string
}

// CommentService owns the comment lifecycle. Every mutation commits the
// comment write first and then hands the post's tag reconciliation to the
// tag sync aggregate; a reconciliation failure never undoes or fails the
// comment write, it only leaves the post's tags stale until the next event.
type CommentService interface {
	Create(ctx context.Context, in CreateCommentInput) (*types.Comment, *domainagg.CommentTagsResult, error)
	Get(ctx context.Context, id uuid.UUID) (*types.Comment, error)
	ListByPost(ctx context.Context, postID uuid.UUID, limit, offset int) ([]*types.Comment, error)
	Update(ctx context.Context, id uuid.UUID, in UpdateCommentInput) (*types.Comment, *domainagg.CommentTagsResult, error)
	Delete(ctx context.Context, id uuid.UUID) (*domainagg.CommentTagsResult, error)
}

type commentService struct {
	db            *gorm.DB
	log           *logger.Logger
	posts         repos.PostRepo
	comments      repos.CommentRepo
	tagSync       domainagg.TagSyncAggregate
	metrics       *observability.Metrics
	retryAttempts int
}

func NewCommentService(
	db *gorm.DB,
	baseLog *logger.Logger,
	posts repos.PostRepo,
	comments repos.CommentRepo,
	tagSync domainagg.TagSyncAggregate,
	metrics *observability.Metrics,
	retryAttempts int,
) CommentService {
	if retryAttempts <= 0 {
		retryAttempts = defaultTagSyncAttempts
	}
	return &commentService{
		db:            db,
		log:           baseLog.With("service", "CommentService"),
		posts:         posts,
		comments:      comments,
		tagSync:       tagSync,
		metrics:       metrics,
		retryAttempts: retryAttempts,
	}
}

func (s *commentService) Create(ctx context.Context, in CreateCommentInput) (*types.Comment, *domainagg.CommentTagsResult, error) {
	if s == nil || s.db == nil || s.posts == nil || s.comments == nil || s.tagSync == nil {
		return nil, nil, fmt.Errorf("comment service not configured")
	}
	if in.PostID == uuid.Nil {
		return nil, nil, domainagg.NewError(domainagg.CodeValidation, "CommentService.Create", "missing post_id", nil)
	}
	body := strings.TrimSpace(in.Body)
	if body == "" {
		return nil, nil, domainagg.NewError(domainagg.CodeValidation, "CommentService.Create", "missing body", nil)
	}
	author := strings.TrimSpace(in.AuthorName)
	if author == "" {
		author = defaultAuthorName
	}
	dbc := dbctx.Context{Ctx: ctx}
	post, err := s.posts.GetByID(dbc, in.PostID)
	if err != nil {
		return nil, nil, err
	}
	if post == nil {
		return nil, nil, domainagg.NewError(domainagg.CodeNotFound, "CommentService.Create", fmt.Sprintf("post not found: %s", in.PostID), nil)
	}
	now := time.Now().UTC()
	row := &types.Comment{
		ID:         uuid.New(),
		PostID:     in.PostID,
		AuthorName: author,
		Body:       body,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if _, err := s.comments.Create(dbc, []*types.Comment{row}); err != nil {
		return nil, nil, err
	}
	res := s.syncTags(ctx, triggerCommentCreated, row.PostID, func(ctx context.Context) (domainagg.CommentTagsResult, error) {
		return s.tagSync.OnCommentCreated(ctx, domainagg.CommentTagsInput{PostID: row.PostID, Body: row.Body})
	})
	return row, res, nil
}

func (s *commentService) Get(ctx context.Context, id uuid.UUID) (*types.Comment, error) {
	if s == nil || s.comments == nil {
		return nil, fmt.Errorf("comment service not configured")
	}
	if id == uuid.Nil {
		return nil, domainagg.NewError(domainagg.CodeValidation, "CommentService.Get", "missing comment_id", nil)
	}
	comment, err := s.comments.GetByID(dbctx.Context{Ctx: ctx}, id)
	if err != nil {
		return nil, err
	}
	if comment == nil {
		return nil, domainagg.NewError(domainagg.CodeNotFound, "CommentService.Get", fmt.Sprintf("comment not found: %s", id), nil)
	}
	return comment, nil
}

func (s *commentService) ListByPost(ctx context.Context, postID uuid.UUID, limit, offset int) ([]*types.Comment, error) {
	if s == nil || s.comments == nil {
		return nil, fmt.Errorf("comment service not configured")
	}
	if postID == uuid.Nil {
		return nil, domainagg.NewError(domainagg.CodeValidation, "CommentService.ListByPost", "missing post_id", nil)
	}
	return s.comments.ListByPostID(dbctx.Context{Ctx: ctx}, postID, limit, offset)
}

func (s *commentService) Update(ctx context.Context, id uuid.UUID, in UpdateCommentInput) (*types.Comment, *domainagg.CommentTagsResult, error) {
	if s == nil || s.db == nil || s.comments == nil || s.tagSync == nil {
		return nil, nil, fmt.Errorf("comment service not configured")
	}
	if id == uuid.Nil {
		return nil, nil, domainagg.NewError(domainagg.CodeValidation, "CommentService.Update", "missing comment_id", nil)
	}
	body := strings.TrimSpace(in.Body)
	if body == "" {
		return nil, nil, domainagg.NewError(domainagg.CodeValidation, "CommentService.Update", "missing body", nil)
	}
	dbc := dbctx.Context{Ctx: ctx}
	comment, err := s.comments.GetByID(dbc, id)
	if err != nil {
		return nil, nil, err
	}
	if comment == nil {
		return nil, nil, domainagg.NewError(domainagg.CodeNotFound, "CommentService.Update", fmt.Sprintf("comment not found: %s", id), nil)
	}
	now := time.Now().UTC()
	if err := s.comments.UpdateFields(dbc, id, map[string]interface{}{
		"body":       body,
		"updated_at": now,
	}); err != nil {
		return nil, nil, err
	}
	comment.Body = body
	comment.UpdatedAt = now
	// The edit only ever adds: tags the old body mentioned and the new body
	// dropped stay on the post.
	res := s.syncTags(ctx, triggerCommentUpdated, comment.PostID, func(ctx context.Context) (domainagg.CommentTagsResult, error) {
		return s.tagSync.OnCommentUpdated(ctx, domainagg.CommentTagsInput{PostID: comment.PostID, Body: body})
	})
	return comment, res, nil
}

func (s *commentService) Delete(ctx context.Context, id uuid.UUID) (*domainagg.CommentTagsResult, error) {
	if s == nil || s.db == nil || s.comments == nil || s.tagSync == nil {
		return nil, fmt.Errorf("comment service not configured")
	}
	if id == uuid.Nil {
		return nil, domainagg.NewError(domainagg.CodeValidation, "CommentService.Delete", "missing comment_id", nil)
	}
	dbc := dbctx.Context{Ctx: ctx}
	comment, err := s.comments.GetByID(dbc, id)
	if err != nil {
		return nil, err
	}
	if comment == nil {
		return nil, domainagg.NewError(domainagg.CodeNotFound, "CommentService.Delete", fmt.Sprintf("comment not found: %s", id), nil)
	}
	if err := s.comments.SoftDeleteByID(dbc, id); err != nil {
		return nil, err
	}
	// Sibling bodies are read after the soft delete so the scan only sees the
	// comments that survive it. Excluding the deleted id keeps the removed
	// body out of the scan either way.
	siblings, err := s.comments.ListBodiesByPostID(dbc, comment.PostID, &id)
	if err != nil {
		// A removal computed from an incomplete sibling scan could drop tags
		// that live comments still mention. Leave the tags stale instead.
		s.log.Error("Sibling scan failed after comment delete, skipping tag sync",
			"comment_id", id, "post_id", comment.PostID, "err", err.Error())
		s.metrics.IncTagSyncOutcome(triggerCommentDeleted, "failed")
		return nil, nil
	}
	res := s.syncTags(ctx, triggerCommentDeleted, comment.PostID, func(ctx context.Context) (domainagg.CommentTagsResult, error) {
		return s.tagSync.OnCommentDeleted(ctx, domainagg.CommentDeletedInput{
			PostID:        comment.PostID,
			Body:          comment.Body,
			SiblingBodies: siblings,
		})
	})
	return res, nil
}

// syncTags runs one aggregate entry point with bounded retries on transient
// failures. The triggering comment write has already committed, so a sync
// failure is logged and absorbed rather than surfaced; the post's tags catch
// up on the next lifecycle event.
func (s *commentService) syncTags(ctx context.Context, trigger string, postID uuid.UUID, run func(context.Context) (domainagg.CommentTagsResult, error)) *domainagg.CommentTagsResult {
	var lastErr error
	for attempt := 1; attempt <= s.retryAttempts; attempt++ {
		res, err := run(ctx)
		if err == nil {
			outcome := "noop"
			if res.Changed {
				outcome = "applied"
			}
			s.metrics.IncTagSyncOutcome(trigger, outcome)
			s.metrics.ObservePostTagCount(len(res.Tags))
			return &res
		}
		lastErr = err
		if !domainagg.IsCode(err, domainagg.CodeRetryable) || attempt == s.retryAttempts {
			break
		}
		s.log.Warn("Tag sync hit a transient failure, retrying",
			"trigger", trigger, "post_id", postID, "attempt", attempt, "err", err.Error())
		if err := sleepBetweenAttempts(ctx, attempt); err != nil {
			lastErr = err
			break
		}
	}
	s.metrics.IncTagSyncOutcome(trigger, "failed")
	s.log.Error("Tag sync failed, post tags are stale until the next comment event",
		"trigger", trigger, "post_id", postID, "err", lastErr.Error())
	return nil
}

func sleepBetweenAttempts(ctx context.Context, attempt int) error {
	t := time.NewTimer(time.Duration(attempt) * tagSyncRetryBackoff)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
