package aggregates

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/sirwalterjones/threads-backend/internal/data/repos"
	types "github.com/sirwalterjones/threads-backend/internal/domain"
	domainagg "github.com/sirwalterjones/threads-backend/internal/domain/aggregates"
	"github.com/sirwalterjones/threads-backend/internal/hashtag"
	"github.com/sirwalterjones/threads-backend/internal/platform/dbctx"
)

type TagSyncAggregateDeps struct {
	Base BaseDeps

	Posts    repos.PostRepo
	Tags     repos.TagRepo
	PostTags repos.PostTagRepo
}

type tagSyncAggregate struct {
	deps TagSyncAggregateDeps
}

func NewTagSyncAggregate(deps TagSyncAggregateDeps) domainagg.TagSyncAggregate {
	deps.Base = deps.Base.withDefaults()
	return &tagSyncAggregate{deps: deps}
}

func (a *tagSyncAggregate) Contract() domainagg.Contract {
	return domainagg.TagSyncAggregateContract
}

func (a *tagSyncAggregate) OnCommentCreated(ctx context.Context, in domainagg.CommentTagsInput) (domainagg.CommentTagsResult, error) {
	return a.applyMentions(ctx, "Board.TagSync.OnCommentCreated", in)
}

func (a *tagSyncAggregate) OnCommentUpdated(ctx context.Context, in domainagg.CommentTagsInput) (domainagg.CommentTagsResult, error) {
	return a.applyMentions(ctx, "Board.TagSync.OnCommentUpdated", in)
}

// applyMentions folds the labels mentioned in body into the post. Accrual is
// additive: labels already on the post stay, in their stored order.
func (a *tagSyncAggregate) applyMentions(ctx context.Context, op string, in domainagg.CommentTagsInput) (domainagg.CommentTagsResult, error) {
	out := domainagg.CommentTagsResult{PostID: in.PostID}
	if in.PostID == uuid.Nil {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing post_id", nil)
	}
	if a.deps.Posts == nil || a.deps.Tags == nil || a.deps.PostTags == nil {
		return out, domainagg.NewError(domainagg.CodeInternal, op, "tag sync aggregate repos not configured", nil)
	}

	mentioned := hashtag.Extract(in.Body)
	if len(mentioned) == 0 {
		// Nothing mentioned, nothing to reconcile. No transaction is opened.
		return out, nil
	}

	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		post, err := a.deps.Posts.LockByID(dbc, in.PostID)
		if err != nil {
			return err
		}
		if post == nil || post.ID == uuid.Nil {
			return domainagg.NewError(domainagg.CodeNotFound, op, fmt.Sprintf("post not found: %s", in.PostID.String()), nil)
		}

		current, err := decodeTagList(post.Tags)
		if err != nil {
			return InvariantError(fmt.Sprintf("post %s carries malformed tags column: %v", post.ID.String(), err))
		}

		union, added := unionLabels(current, mentioned)

		ids, err := a.ensureTags(dbc, union)
		if err != nil {
			return err
		}
		if err := a.setAssociations(dbc, post.ID, orderedIDs(union, ids)); err != nil {
			return err
		}
		if len(added) > 0 {
			if err := a.writeTags(dbc, post.ID, union); err != nil {
				return err
			}
		}

		out = domainagg.CommentTagsResult{
			PostID:  post.ID,
			Tags:    union,
			Added:   added,
			Changed: len(added) > 0,
		}
		return nil
	})
	return out, err
}

func (a *tagSyncAggregate) OnCommentDeleted(ctx context.Context, in domainagg.CommentDeletedInput) (domainagg.CommentTagsResult, error) {
	const op = "Board.TagSync.OnCommentDeleted"
	out := domainagg.CommentTagsResult{PostID: in.PostID}
	if in.PostID == uuid.Nil {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing post_id", nil)
	}
	if a.deps.Posts == nil || a.deps.Tags == nil || a.deps.PostTags == nil {
		return out, domainagg.NewError(domainagg.CodeInternal, op, "tag sync aggregate repos not configured", nil)
	}

	deleted := hashtag.ExtractSet(in.Body)
	if len(deleted) == 0 {
		// The removed comment mentioned no tags, so it cannot have been the
		// last reference to any. No transaction is opened.
		return out, nil
	}

	// Labels the remaining live comments still mention, recomputed from their
	// bodies rather than any cached count.
	still := make(map[string]struct{})
	for _, body := range in.SiblingBodies {
		for _, label := range hashtag.Extract(body) {
			still[label] = struct{}{}
		}
	}

	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		post, err := a.deps.Posts.LockByID(dbc, in.PostID)
		if err != nil {
			return err
		}
		if post == nil || post.ID == uuid.Nil {
			return domainagg.NewError(domainagg.CodeNotFound, op, fmt.Sprintf("post not found: %s", in.PostID.String()), nil)
		}

		current, err := decodeTagList(post.Tags)
		if err != nil {
			return InvariantError(fmt.Sprintf("post %s carries malformed tags column: %v", post.ID.String(), err))
		}
		if len(current) == 0 {
			return nil
		}

		kept := make([]string, 0, len(current))
		var removed []string
		for _, label := range current {
			_, wasMentioned := deleted[label]
			_, stillReferenced := still[label]
			if wasMentioned && !stillReferenced {
				removed = append(removed, label)
				continue
			}
			kept = append(kept, label)
		}
		if len(removed) == 0 {
			out = domainagg.CommentTagsResult{PostID: post.ID, Tags: kept}
			return nil
		}

		ids := map[string]uuid.UUID{}
		if len(kept) > 0 {
			found, err := a.deps.Tags.GetByLabels(dbc, kept)
			if err != nil {
				return err
			}
			for _, tag := range found {
				ids[tag.Label] = tag.ID
			}
			for _, label := range kept {
				if _, ok := ids[label]; !ok {
					return InvariantError(fmt.Sprintf("post %s keeps label %q with no registered tag row", post.ID.String(), label))
				}
			}
		}

		if err := a.setAssociations(dbc, post.ID, orderedIDs(kept, ids)); err != nil {
			return err
		}
		if err := a.writeTags(dbc, post.ID, kept); err != nil {
			return err
		}

		out = domainagg.CommentTagsResult{
			PostID:  post.ID,
			Tags:    kept,
			Removed: removed,
			Changed: true,
		}
		return nil
	})
	return out, err
}

func (a *tagSyncAggregate) RebuildPost(ctx context.Context, in domainagg.PostRebuildInput) (domainagg.CommentTagsResult, error) {
	const op = "Board.TagSync.RebuildPost"
	out := domainagg.CommentTagsResult{PostID: in.PostID}
	if in.PostID == uuid.Nil {
		return out, domainagg.NewError(domainagg.CodeValidation, op, "missing post_id", nil)
	}
	if a.deps.Posts == nil || a.deps.Tags == nil || a.deps.PostTags == nil {
		return out, domainagg.NewError(domainagg.CodeInternal, op, "tag sync aggregate repos not configured", nil)
	}

	// Derived state in first-appearance order across the comment scan.
	var derived []string
	seen := make(map[string]struct{})
	for _, body := range in.Bodies {
		for _, label := range hashtag.Extract(body) {
			if _, ok := seen[label]; ok {
				continue
			}
			seen[label] = struct{}{}
			derived = append(derived, label)
		}
	}

	err := executeWrite(ctx, a.deps.Base, op, func(dbc dbctx.Context) error {
		post, err := a.deps.Posts.LockByID(dbc, in.PostID)
		if err != nil {
			return err
		}
		if post == nil || post.ID == uuid.Nil {
			return domainagg.NewError(domainagg.CodeNotFound, op, fmt.Sprintf("post not found: %s", in.PostID.String()), nil)
		}

		current, err := decodeTagList(post.Tags)
		if err != nil {
			return InvariantError(fmt.Sprintf("post %s carries malformed tags column: %v", post.ID.String(), err))
		}

		added, removed := diffLabels(current, derived)
		if len(added) == 0 && len(removed) == 0 {
			// Column already matches. Rewrite the association rows anyway so a
			// rebuild also repairs drift that only touched the join table.
			ids, err := a.ensureTags(dbc, current)
			if err != nil {
				return err
			}
			if err := a.setAssociations(dbc, post.ID, orderedIDs(current, ids)); err != nil {
				return err
			}
			out = domainagg.CommentTagsResult{PostID: post.ID, Tags: current}
			return nil
		}

		ids, err := a.ensureTags(dbc, derived)
		if err != nil {
			return err
		}
		if err := a.setAssociations(dbc, post.ID, orderedIDs(derived, ids)); err != nil {
			return err
		}
		if err := a.writeTags(dbc, post.ID, derived); err != nil {
			return err
		}

		out = domainagg.CommentTagsResult{
			PostID:  post.ID,
			Tags:    derived,
			Added:   added,
			Removed: removed,
			Changed: true,
		}
		return nil
	})
	return out, err
}

// ensureTags resolves every label to its tag row id, registering labels that
// do not exist yet. Losing a concurrent insert race for a label is benign:
// the follow-up fetch returns the winner's row.
func (a *tagSyncAggregate) ensureTags(dbc dbctx.Context, labels []string) (map[string]uuid.UUID, error) {
	if len(labels) == 0 {
		return map[string]uuid.UUID{}, nil
	}
	rows := make([]*types.Tag, 0, len(labels))
	for _, label := range labels {
		rows = append(rows, &types.Tag{Label: label})
	}
	if _, err := a.deps.Tags.CreateIgnoreDuplicates(dbc, rows); err != nil {
		return nil, err
	}
	found, err := a.deps.Tags.GetByLabels(dbc, labels)
	if err != nil {
		return nil, err
	}
	ids := make(map[string]uuid.UUID, len(found))
	for _, tag := range found {
		ids[tag.Label] = tag.ID
	}
	for _, label := range labels {
		if _, ok := ids[label]; !ok {
			return nil, InvariantError(fmt.Sprintf("tag %q missing after ensure", label))
		}
	}
	return ids, nil
}

// setAssociations makes the post's association rows exactly the given set.
// Applying the same set twice is a no-op the second time.
func (a *tagSyncAggregate) setAssociations(dbc dbctx.Context, postID uuid.UUID, tagIDs []uuid.UUID) error {
	if len(tagIDs) == 0 {
		_, err := a.deps.PostTags.DeleteByPostID(dbc, postID)
		return err
	}
	rows := make([]*types.PostTag, 0, len(tagIDs))
	for _, tagID := range tagIDs {
		rows = append(rows, &types.PostTag{PostID: postID, TagID: tagID})
	}
	if _, err := a.deps.PostTags.CreateIgnoreDuplicates(dbc, rows); err != nil {
		return err
	}
	_, err := a.deps.PostTags.DeleteByPostIDExceptTagIDs(dbc, postID, tagIDs)
	return err
}

// writeTags stores the ordered label list on the post row. An empty list
// clears the column to NULL, never an empty JSON array.
func (a *tagSyncAggregate) writeTags(dbc dbctx.Context, postID uuid.UUID, labels []string) error {
	updates := map[string]interface{}{"tags": nil}
	if len(labels) > 0 {
		raw, err := json.Marshal(labels)
		if err != nil {
			return err
		}
		updates["tags"] = datatypes.JSON(raw)
	}
	return a.deps.Posts.UpdateFields(dbc, postID, updates)
}

// decodeTagList reads the stored label list. A NULL or empty column decodes
// to an empty list.
func decodeTagList(raw datatypes.JSON) ([]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var labels []string
	if err := json.Unmarshal(raw, &labels); err != nil {
		return nil, err
	}
	return labels, nil
}

// unionLabels appends the labels missing from current, preserving current's
// order and the mention order of additions.
func unionLabels(current, mentioned []string) (union, added []string) {
	union = append(union, current...)
	seen := make(map[string]struct{}, len(current))
	for _, label := range current {
		seen[label] = struct{}{}
	}
	for _, label := range mentioned {
		if _, ok := seen[label]; ok {
			continue
		}
		seen[label] = struct{}{}
		union = append(union, label)
		added = append(added, label)
	}
	return union, added
}

// diffLabels reports which derived labels current is missing and which
// current labels the derivation no longer produces.
func diffLabels(current, derived []string) (added, removed []string) {
	have := make(map[string]struct{}, len(current))
	for _, label := range current {
		have[label] = struct{}{}
	}
	want := make(map[string]struct{}, len(derived))
	for _, label := range derived {
		want[label] = struct{}{}
	}
	for _, label := range derived {
		if _, ok := have[label]; !ok {
			added = append(added, label)
		}
	}
	for _, label := range current {
		if _, ok := want[label]; !ok {
			removed = append(removed, label)
		}
	}
	return added, removed
}

func orderedIDs(labels []string, ids map[string]uuid.UUID) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(labels))
	for _, label := range labels {
		out = append(out, ids[label])
	}
	return out
}
