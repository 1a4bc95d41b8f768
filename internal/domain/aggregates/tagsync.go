package aggregates

import (
	"context"

	"github.com/google/uuid"
)

var TagSyncAggregateContract = Contract{
	Name:             "Board.TagSyncAggregate",
	WriteTxOwnership: WriteTxOwnedByAggregate,
	ReadPolicy:       ReadPolicyInvariantScoped,
	Notes:            "Owns atomic consistency between a post's denormalized tag list and its tag association rows across comment lifecycle events.",
}

// TagSyncAggregate reconciles a post's derived tag state when one of its
// comments is created, edited, or removed. Creation and edits only ever add
// tags; removal drops a tag only when no remaining live comment still
// mentions it. Each write method applies both tag representations in one
// transaction, so a failure leaves the post untouched.
//
// Write method failures return *aggregates.Error with codes:
// CodeValidation, CodeNotFound, CodeConflict, CodeInvariantViolation,
// CodeRetryable, CodeInternal.
type TagSyncAggregate interface {
	Aggregate

	// OnCommentCreated folds the tags mentioned in a new comment into the post.
	OnCommentCreated(ctx context.Context, in CommentTagsInput) (CommentTagsResult, error)

	// OnCommentUpdated folds the tags mentioned in an edited comment's new body
	// into the post. Tags no longer mentioned after the edit are kept.
	OnCommentUpdated(ctx context.Context, in CommentTagsInput) (CommentTagsResult, error)

	// OnCommentDeleted removes the deleted comment's tags from the post unless
	// a remaining live comment still mentions them.
	OnCommentDeleted(ctx context.Context, in CommentDeletedInput) (CommentTagsResult, error)

	// RebuildPost recomputes the post's tag state from the given live comment
	// bodies alone and rewrites both representations to match. Unlike the
	// event methods it replaces rather than accrues, so it can shed tags the
	// incremental path left behind.
	RebuildPost(ctx context.Context, in PostRebuildInput) (CommentTagsResult, error)
}

type CommentTagsInput struct {
	PostID uuid.UUID
	Body   string
}

type CommentDeletedInput struct {
	PostID uuid.UUID
	// Body is the deleted comment's text as it stood before removal.
	Body string
	// SiblingBodies holds the bodies of the post's remaining live comments,
	// read fresh by the caller after the removal took effect.
	SiblingBodies []string
}

type PostRebuildInput struct {
	PostID uuid.UUID
	// Bodies holds the bodies of all of the post's live comments.
	Bodies []string
}

type CommentTagsResult struct {
	PostID uuid.UUID
	// Tags is the post's full label list after the event, in stored order.
	Tags    []string
	Added   []string
	Removed []string
	Changed bool
}
