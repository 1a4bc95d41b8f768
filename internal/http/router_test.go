package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	types "github.com/sirwalterjones/threads-backend/internal/domain"
	domainagg "github.com/sirwalterjones/threads-backend/internal/domain/aggregates"
	httpH "github.com/sirwalterjones/threads-backend/internal/http/handlers"
	"github.com/sirwalterjones/threads-backend/internal/services"
)

func TestRouterHealthz(t *testing.T) {
	r := newTestRouter(t, &stubPostService{}, &stubCommentService{}, &stubTagService{})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("healthz: status=%d body=%q", rec.Code, rec.Body.String())
	}
}

func TestRouterMetricsDisabled(t *testing.T) {
	r := newTestRouter(t, &stubPostService{}, &stubCommentService{}, &stubTagService{})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("metrics route without a registry must answer 503, got %d", rec.Code)
	}
}

func TestRouterCreatePost(t *testing.T) {
	post := &types.Post{ID: uuid.New(), Title: "hello", CreatedAt: time.Now().UTC()}
	r := newTestRouter(t, &stubPostService{post: post}, &stubCommentService{}, &stubTagService{})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/posts", strings.NewReader(`{"title":"hello"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("create post: status=%d body=%s", rec.Code, rec.Body.String())
	}
	var payload struct {
		Post *types.Post `json:"post"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil || payload.Post == nil || payload.Post.ID != post.ID {
		t.Fatalf("unexpected payload: %s (err=%v)", rec.Body.String(), err)
	}
}

func TestRouterDomainErrorStatuses(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validation", domainagg.NewError(domainagg.CodeValidation, "PostService.Create", "missing title", nil), http.StatusBadRequest, "validation"},
		{"not_found", domainagg.NewError(domainagg.CodeNotFound, "PostService.Get", "post not found", nil), http.StatusNotFound, "not_found"},
		{"conflict", domainagg.NewError(domainagg.CodeConflict, "PostService.Create", "duplicate", nil), http.StatusConflict, "conflict"},
		{"retryable", domainagg.NewError(domainagg.CodeRetryable, "PostService.Get", "serialization failure", nil), http.StatusServiceUnavailable, "retryable"},
		{"internal", domainagg.NewError(domainagg.CodeInternal, "PostService.Get", "boom", nil), http.StatusInternalServerError, "internal"},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			r := newTestRouter(t, &stubPostService{err: tc.err}, &stubCommentService{}, &stubTagService{})

			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/posts/"+uuid.New().String(), nil))

			if rec.Code != tc.status {
				t.Fatalf("status: got=%d want=%d body=%s", rec.Code, tc.status, rec.Body.String())
			}
			var envelope struct {
				Error struct {
					Code string `json:"code"`
				} `json:"error"`
			}
			if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil || envelope.Error.Code != tc.code {
				t.Fatalf("error code: got=%q want=%q (err=%v)", envelope.Error.Code, tc.code, err)
			}
		})
	}
}

func TestRouterRejectsMalformedIDs(t *testing.T) {
	r := newTestRouter(t, &stubPostService{}, &stubCommentService{}, &stubTagService{})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/posts/not-a-uuid", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("malformed post id: status=%d", rec.Code)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/comments/not-a-uuid", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("malformed comment id: status=%d", rec.Code)
	}
}

func TestRouterCreateCommentReturnsPostTags(t *testing.T) {
	postID := uuid.New()
	comment := &types.Comment{ID: uuid.New(), PostID: postID, Body: "hello #alpha"}
	sync := &domainagg.CommentTagsResult{PostID: postID, Tags: []string{"#alpha"}, Added: []string{"#alpha"}, Changed: true}
	r := newTestRouter(t, &stubPostService{}, &stubCommentService{comment: comment, sync: sync}, &stubTagService{})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/posts/"+postID.String()+"/comments", strings.NewReader(`{"body":"hello #alpha"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("create comment: status=%d body=%s", rec.Code, rec.Body.String())
	}
	var payload struct {
		Comment  *types.Comment `json:"comment"`
		PostTags []string       `json:"post_tags"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Comment == nil || payload.Comment.ID != comment.ID {
		t.Fatalf("comment missing from payload: %s", rec.Body.String())
	}
	if len(payload.PostTags) != 1 || payload.PostTags[0] != "#alpha" {
		t.Fatalf("post_tags missing from payload: %s", rec.Body.String())
	}
}

func TestRouterCreateCommentWithoutSyncOmitsPostTags(t *testing.T) {
	comment := &types.Comment{ID: uuid.New(), PostID: uuid.New(), Body: "plain"}
	r := newTestRouter(t, &stubPostService{}, &stubCommentService{comment: comment}, &stubTagService{})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/posts/"+comment.PostID.String()+"/comments", strings.NewReader(`{"body":"plain"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("create comment: status=%d body=%s", rec.Code, rec.Body.String())
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(rec.Body.Bytes(), &raw); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, ok := raw["post_tags"]; ok {
		t.Fatalf("post_tags must be omitted when the sync did not run: %s", rec.Body.String())
	}
}

func TestRouterListTagPosts(t *testing.T) {
	tagSvc := &stubTagService{posts: []*types.Post{{ID: uuid.New(), Title: "tagged"}}}
	r := newTestRouter(t, &stubPostService{}, &stubCommentService{}, tagSvc)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/tags/alpha/posts", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("tag posts: status=%d body=%s", rec.Code, rec.Body.String())
	}
	if tagSvc.lastLabel != "alpha" {
		t.Fatalf("label param not forwarded: %q", tagSvc.lastLabel)
	}
}

func newTestRouter(t *testing.T, posts services.PostService, comments services.CommentService, tags services.TagService) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	return NewRouter(RouterConfig{
		PostHandler:    httpH.NewPostHandler(posts),
		CommentHandler: httpH.NewCommentHandler(comments),
		TagHandler:     httpH.NewTagHandler(tags),
		HealthHandler:  httpH.NewHealthHandler(),
	})
}

type stubPostService struct {
	post *types.Post
	err  error
}

func (s *stubPostService) Create(ctx context.Context, in services.CreatePostInput) (*types.Post, error) {
	return s.post, s.err
}

func (s *stubPostService) Get(ctx context.Context, id uuid.UUID) (*types.Post, error) {
	return s.post, s.err
}

func (s *stubPostService) List(ctx context.Context, limit, offset int) ([]*types.Post, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.post == nil {
		return nil, nil
	}
	return []*types.Post{s.post}, nil
}

func (s *stubPostService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.err
}

type stubCommentService struct {
	comment *types.Comment
	sync    *domainagg.CommentTagsResult
	err     error
}

func (s *stubCommentService) Create(ctx context.Context, in services.CreateCommentInput) (*types.Comment, *domainagg.CommentTagsResult, error) {
	return s.comment, s.sync, s.err
}

func (s *stubCommentService) Get(ctx context.Context, id uuid.UUID) (*types.Comment, error) {
	return s.comment, s.err
}

func (s *stubCommentService) ListByPost(ctx context.Context, postID uuid.UUID, limit, offset int) ([]*types.Comment, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.comment == nil {
		return nil, nil
	}
	return []*types.Comment{s.comment}, nil
}

func (s *stubCommentService) Update(ctx context.Context, id uuid.UUID, in services.UpdateCommentInput) (*types.Comment, *domainagg.CommentTagsResult, error) {
	return s.comment, s.sync, s.err
}

func (s *stubCommentService) Delete(ctx context.Context, id uuid.UUID) (*domainagg.CommentTagsResult, error) {
	return s.sync, s.err
}

type stubTagService struct {
	summaries []services.TagSummary
	posts     []*types.Post
	err       error
	lastLabel string
}

func (s *stubTagService) List(ctx context.Context) ([]services.TagSummary, error) {
	return s.summaries, s.err
}

func (s *stubTagService) PostsForLabel(ctx context.Context, label string, limit, offset int) ([]*types.Post, error) {
	s.lastLabel = label
	if s.err != nil {
		return nil, s.err
	}
	return s.posts, s.err
}
