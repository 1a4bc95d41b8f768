package services

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/sirwalterjones/threads-backend/internal/domain"
	domainagg "github.com/sirwalterjones/threads-backend/internal/domain/aggregates"
	"github.com/sirwalterjones/threads-backend/internal/platform/dbctx"
	"github.com/sirwalterjones/threads-backend/internal/platform/logger"
)

func TestCommentCreateRunsTagSync(t *testing.T) {
	f := newCommentFixture(t)
	f.agg.result = domainagg.CommentTagsResult{Tags: []string{"#alpha"}, Added: []string{"#alpha"}, Changed: true}

	comment, res, err := f.svc.Create(context.Background(), CreateCommentInput{
		PostID: f.postID,
		Body:   "hello #alpha",
	})
	if err != nil || comment == nil {
		t.Fatalf("Create: comment=%v err=%v", comment, err)
	}
	if comment.AuthorName != "anonymous" {
		t.Fatalf("expected author default, got %q", comment.AuthorName)
	}
	if res == nil || !reflect.DeepEqual(res.Tags, []string{"#alpha"}) {
		t.Fatalf("unexpected sync result: %+v", res)
	}
	if len(f.agg.created) != 1 || f.agg.created[0].PostID != f.postID || f.agg.created[0].Body != "hello #alpha" {
		t.Fatalf("aggregate saw wrong input: %+v", f.agg.created)
	}
	if stored, _ := f.comments.GetByID(dbctx.Context{Ctx: context.Background()}, comment.ID); stored == nil {
		t.Fatalf("comment not persisted")
	}
}

func TestCommentCreateSurvivesTagSyncFailure(t *testing.T) {
	f := newCommentFixture(t)
	f.agg.errs = []error{domainagg.NewError(domainagg.CodeInvariantViolation, "Board.TagSync.OnCommentCreated", "malformed tags column", nil)}

	comment, res, err := f.svc.Create(context.Background(), CreateCommentInput{
		PostID: f.postID,
		Body:   "still lands #broken",
	})
	if err != nil || comment == nil {
		t.Fatalf("comment write must survive a sync failure: comment=%v err=%v", comment, err)
	}
	if res != nil {
		t.Fatalf("expected no sync result, got %+v", res)
	}
	if len(f.agg.created) != 1 {
		t.Fatalf("non-transient failure must not be retried, saw %d calls", len(f.agg.created))
	}
	if stored, _ := f.comments.GetByID(dbctx.Context{Ctx: context.Background()}, comment.ID); stored == nil {
		t.Fatalf("comment not persisted")
	}
}

func TestCommentCreateRetriesTransientTagSync(t *testing.T) {
	f := newCommentFixture(t)
	f.agg.errs = []error{
		domainagg.NewError(domainagg.CodeRetryable, "Board.TagSync.OnCommentCreated", "serialization failure", nil),
		domainagg.NewError(domainagg.CodeRetryable, "Board.TagSync.OnCommentCreated", "serialization failure", nil),
	}
	f.agg.result = domainagg.CommentTagsResult{Tags: []string{"#retry"}, Added: []string{"#retry"}, Changed: true}

	_, res, err := f.svc.Create(context.Background(), CreateCommentInput{PostID: f.postID, Body: "#retry"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if res == nil || !reflect.DeepEqual(res.Tags, []string{"#retry"}) {
		t.Fatalf("expected sync to succeed on the third attempt, got %+v", res)
	}
	if len(f.agg.created) != 3 {
		t.Fatalf("expected 3 attempts, saw %d", len(f.agg.created))
	}
}

func TestCommentCreateGivesUpAfterBoundedRetries(t *testing.T) {
	f := newCommentFixture(t)
	retryErr := domainagg.NewError(domainagg.CodeRetryable, "Board.TagSync.OnCommentCreated", "serialization failure", nil)
	f.agg.errs = []error{retryErr, retryErr, retryErr, retryErr}

	comment, res, err := f.svc.Create(context.Background(), CreateCommentInput{PostID: f.postID, Body: "#giveup"})
	if err != nil || comment == nil {
		t.Fatalf("Create: comment=%v err=%v", comment, err)
	}
	if res != nil {
		t.Fatalf("expected exhausted sync to yield no result, got %+v", res)
	}
	if len(f.agg.created) != 3 {
		t.Fatalf("retries must stop at the bound, saw %d attempts", len(f.agg.created))
	}
}

func TestCommentCreateValidatesInput(t *testing.T) {
	f := newCommentFixture(t)

	if _, _, err := f.svc.Create(context.Background(), CreateCommentInput{Body: "no post"}); !domainagg.IsCode(err, domainagg.CodeValidation) {
		t.Fatalf("missing post_id: %v", err)
	}
	if _, _, err := f.svc.Create(context.Background(), CreateCommentInput{PostID: f.postID, Body: "   "}); !domainagg.IsCode(err, domainagg.CodeValidation) {
		t.Fatalf("blank body: %v", err)
	}
	if _, _, err := f.svc.Create(context.Background(), CreateCommentInput{PostID: uuid.New(), Body: "orphan"}); !domainagg.IsCode(err, domainagg.CodeNotFound) {
		t.Fatalf("unknown post: %v", err)
	}
	if len(f.agg.created) != 0 {
		t.Fatalf("rejected writes must not reach the aggregate")
	}
}

func TestCommentUpdateSendsNewBody(t *testing.T) {
	f := newCommentFixture(t)
	comment, _, err := f.svc.Create(context.Background(), CreateCommentInput{PostID: f.postID, Body: "first #alpha"})
	if err != nil {
		t.Fatalf("seed comment: %v", err)
	}

	updated, _, err := f.svc.Update(context.Background(), comment.ID, UpdateCommentInput{Body: "now #beta"})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Body != "now #beta" {
		t.Fatalf("returned body not updated: %q", updated.Body)
	}
	if len(f.agg.updated) != 1 || f.agg.updated[0].Body != "now #beta" || f.agg.updated[0].PostID != f.postID {
		t.Fatalf("aggregate must see the new body: %+v", f.agg.updated)
	}
	if stored, _ := f.comments.GetByID(dbctx.Context{Ctx: context.Background()}, comment.ID); stored == nil || stored.Body != "now #beta" {
		t.Fatalf("stored body not updated: %+v", stored)
	}
}

func TestCommentUpdateMissingComment(t *testing.T) {
	f := newCommentFixture(t)
	if _, _, err := f.svc.Update(context.Background(), uuid.New(), UpdateCommentInput{Body: "x"}); !domainagg.IsCode(err, domainagg.CodeNotFound) {
		t.Fatalf("unknown comment: %v", err)
	}
}

func TestCommentDeletePassesFreshSiblings(t *testing.T) {
	f := newCommentFixture(t)
	ctx := context.Background()
	first, _, err := f.svc.Create(ctx, CreateCommentInput{PostID: f.postID, Body: "#shared going away"})
	if err != nil {
		t.Fatalf("seed first: %v", err)
	}
	if _, _, err := f.svc.Create(ctx, CreateCommentInput{PostID: f.postID, Body: "#shared stays"}); err != nil {
		t.Fatalf("seed second: %v", err)
	}
	if _, _, err := f.svc.Create(ctx, CreateCommentInput{PostID: f.postID, Body: "plain"}); err != nil {
		t.Fatalf("seed third: %v", err)
	}

	if _, err := f.svc.Delete(ctx, first.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if len(f.agg.deleted) != 1 {
		t.Fatalf("expected one deletion event, saw %d", len(f.agg.deleted))
	}
	in := f.agg.deleted[0]
	if in.PostID != f.postID || in.Body != "#shared going away" {
		t.Fatalf("deletion event wrong: %+v", in)
	}
	if !reflect.DeepEqual(in.SiblingBodies, []string{"#shared stays", "plain"}) {
		t.Fatalf("sibling bodies must be read fresh after the delete: %v", in.SiblingBodies)
	}
	if stored, _ := f.comments.GetByID(dbctx.Context{Ctx: ctx}, first.ID); stored != nil {
		t.Fatalf("comment still readable after delete")
	}
}

func TestCommentDeleteSkipsSyncWhenSiblingScanFails(t *testing.T) {
	f := newCommentFixture(t)
	ctx := context.Background()
	comment, _, err := f.svc.Create(ctx, CreateCommentInput{PostID: f.postID, Body: "#solo"})
	if err != nil {
		t.Fatalf("seed comment: %v", err)
	}
	f.comments.bodiesErr = errors.New("scan failed")

	res, err := f.svc.Delete(ctx, comment.ID)
	if err != nil || res != nil {
		t.Fatalf("delete must still succeed without a sync: res=%+v err=%v", res, err)
	}
	if len(f.agg.deleted) != 0 {
		t.Fatalf("a removal must never run on an incomplete sibling scan")
	}
	if stored, _ := f.comments.GetByID(dbctx.Context{Ctx: ctx}, comment.ID); stored != nil {
		t.Fatalf("comment still readable after delete")
	}
}

type commentFixture struct {
	postID   uuid.UUID
	posts    *fakePostStore
	comments *fakeCommentStore
	agg      *scriptedTagSync
	svc      CommentService
}

func newCommentFixture(t *testing.T) *commentFixture {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	postID := uuid.New()
	posts := &fakePostStore{rows: map[uuid.UUID]*types.Post{
		postID: {ID: postID, Title: "fixture", CreatedAt: time.Now().UTC()},
	}}
	comments := newFakeCommentStore()
	agg := &scriptedTagSync{}
	svc := NewCommentService(&gorm.DB{}, log, posts, comments, agg, nil, 3)
	return &commentFixture{postID: postID, posts: posts, comments: comments, agg: agg, svc: svc}
}

// scriptedTagSync records every input it receives and pops one scripted error
// per call before succeeding with the canned result.
type scriptedTagSync struct {
	created []domainagg.CommentTagsInput
	updated []domainagg.CommentTagsInput
	deleted []domainagg.CommentDeletedInput
	errs    []error
	result  domainagg.CommentTagsResult
}

func (f *scriptedTagSync) Contract() domainagg.Contract {
	return domainagg.TagSyncAggregateContract
}

func (f *scriptedTagSync) nextErr() error {
	if len(f.errs) == 0 {
		return nil
	}
	err := f.errs[0]
	f.errs = f.errs[1:]
	return err
}

func (f *scriptedTagSync) OnCommentCreated(ctx context.Context, in domainagg.CommentTagsInput) (domainagg.CommentTagsResult, error) {
	f.created = append(f.created, in)
	if err := f.nextErr(); err != nil {
		return domainagg.CommentTagsResult{}, err
	}
	res := f.result
	res.PostID = in.PostID
	return res, nil
}

func (f *scriptedTagSync) OnCommentUpdated(ctx context.Context, in domainagg.CommentTagsInput) (domainagg.CommentTagsResult, error) {
	f.updated = append(f.updated, in)
	if err := f.nextErr(); err != nil {
		return domainagg.CommentTagsResult{}, err
	}
	res := f.result
	res.PostID = in.PostID
	return res, nil
}

func (f *scriptedTagSync) OnCommentDeleted(ctx context.Context, in domainagg.CommentDeletedInput) (domainagg.CommentTagsResult, error) {
	f.deleted = append(f.deleted, in)
	if err := f.nextErr(); err != nil {
		return domainagg.CommentTagsResult{}, err
	}
	res := f.result
	res.PostID = in.PostID
	return res, nil
}

func (f *scriptedTagSync) RebuildPost(ctx context.Context, in domainagg.PostRebuildInput) (domainagg.CommentTagsResult, error) {
	if err := f.nextErr(); err != nil {
		return domainagg.CommentTagsResult{}, err
	}
	res := f.result
	res.PostID = in.PostID
	return res, nil
}

type fakePostStore struct {
	rows map[uuid.UUID]*types.Post
}

func (f *fakePostStore) Create(dbc dbctx.Context, rows []*types.Post) ([]*types.Post, error) {
	for _, row := range rows {
		f.rows[row.ID] = row
	}
	return rows, nil
}

func (f *fakePostStore) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Post, error) {
	var out []*types.Post
	for _, id := range ids {
		if row, ok := f.rows[id]; ok {
			out = append(out, row)
		}
	}
	return out, nil
}

func (f *fakePostStore) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Post, error) {
	row, ok := f.rows[id]
	if !ok {
		return nil, nil
	}
	clone := *row
	return &clone, nil
}

func (f *fakePostStore) List(dbc dbctx.Context, limit, offset int) ([]*types.Post, error) {
	return nil, nil
}

func (f *fakePostStore) LockByID(dbc dbctx.Context, id uuid.UUID) (*types.Post, error) {
	return f.GetByID(dbc, id)
}

func (f *fakePostStore) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	return nil
}

func (f *fakePostStore) SoftDeleteByID(dbc dbctx.Context, id uuid.UUID) error {
	delete(f.rows, id)
	return nil
}

func (f *fakePostStore) FullDeleteByID(dbc dbctx.Context, id uuid.UUID) error {
	delete(f.rows, id)
	return nil
}

func (f *fakePostStore) CountAll(dbc dbctx.Context) (int64, error) {
	return int64(len(f.rows)), nil
}

type fakeCommentStore struct {
	rows      []*types.Comment
	deleted   map[uuid.UUID]bool
	bodiesErr error
}

func newFakeCommentStore() *fakeCommentStore {
	return &fakeCommentStore{deleted: map[uuid.UUID]bool{}}
}

func (f *fakeCommentStore) Create(dbc dbctx.Context, rows []*types.Comment) ([]*types.Comment, error) {
	f.rows = append(f.rows, rows...)
	return rows, nil
}

func (f *fakeCommentStore) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Comment, error) {
	for _, row := range f.rows {
		if row.ID == id && !f.deleted[id] {
			clone := *row
			return &clone, nil
		}
	}
	return nil, nil
}

func (f *fakeCommentStore) ListByPostID(dbc dbctx.Context, postID uuid.UUID, limit, offset int) ([]*types.Comment, error) {
	var out []*types.Comment
	for _, row := range f.rows {
		if row.PostID == postID && !f.deleted[row.ID] {
			out = append(out, row)
		}
	}
	return out, nil
}

func (f *fakeCommentStore) ListBodiesByPostID(dbc dbctx.Context, postID uuid.UUID, exclude *uuid.UUID) ([]string, error) {
	if f.bodiesErr != nil {
		return nil, f.bodiesErr
	}
	var out []string
	for _, row := range f.rows {
		if row.PostID != postID || f.deleted[row.ID] {
			continue
		}
		if exclude != nil && row.ID == *exclude {
			continue
		}
		out = append(out, row.Body)
	}
	return out, nil
}

func (f *fakeCommentStore) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	for _, row := range f.rows {
		if row.ID == id {
			if body, ok := updates["body"].(string); ok {
				row.Body = body
			}
			if ts, ok := updates["updated_at"].(time.Time); ok {
				row.UpdatedAt = ts
			}
			return nil
		}
	}
	return nil
}

func (f *fakeCommentStore) SoftDeleteByID(dbc dbctx.Context, id uuid.UUID) error {
	f.deleted[id] = true
	return nil
}

func (f *fakeCommentStore) SoftDeleteByPostID(dbc dbctx.Context, postID uuid.UUID) error {
	for _, row := range f.rows {
		if row.PostID == postID {
			f.deleted[row.ID] = true
		}
	}
	return nil
}

func (f *fakeCommentStore) FullDeleteByID(dbc dbctx.Context, id uuid.UUID) error {
	for i, row := range f.rows {
		if row.ID == id {
			f.rows = append(f.rows[:i], f.rows[i+1:]...)
			break
		}
	}
	delete(f.deleted, id)
	return nil
}

func (f *fakeCommentStore) CountByPostID(dbc dbctx.Context, postID uuid.UUID) (int64, error) {
	var n int64
	for _, row := range f.rows {
		if row.PostID == postID && !f.deleted[row.ID] {
			n++
		}
	}
	return n, nil
}
