package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	types "github.com/sirwalterjones/threads-backend/internal/domain"
	domainagg "github.com/sirwalterjones/threads-backend/internal/domain/aggregates"
	"github.com/sirwalterjones/threads-backend/internal/http/response"
	"github.com/sirwalterjones/threads-backend/internal/services"
)

type CommentHandler struct {
	comments services.CommentService
}

func NewCommentHandler(comments services.CommentService) *CommentHandler {
	return &CommentHandler{comments: comments}
}

type createCommentReq struct {
	AuthorName string `json:"author_name"`
	Body       string `json:"body"`
}

type updateCommentReq struct {
	Body string `json:"body"`
}

// POST /api/posts/:id/comments
func (h *CommentHandler) CreateComment(c *gin.Context) {
	postID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_post_id", err)
		return
	}
	var req createCommentReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	comment, sync, err := h.comments.Create(c.Request.Context(), services.CreateCommentInput{
		PostID:     postID,
		AuthorName: req.AuthorName,
		Body:       req.Body,
	})
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, commentPayload(comment, sync))
}

// GET /api/posts/:id/comments?limit=100&offset=0
func (h *CommentHandler) ListPostComments(c *gin.Context) {
	postID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_post_id", err)
		return
	}
	limit, offset := pageParams(c)
	comments, err := h.comments.ListByPost(c.Request.Context(), postID, limit, offset)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"comments": comments})
}

// PATCH /api/comments/:id
func (h *CommentHandler) UpdateComment(c *gin.Context) {
	commentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_comment_id", err)
		return
	}
	var req updateCommentReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	comment, sync, err := h.comments.Update(c.Request.Context(), commentID, services.UpdateCommentInput{Body: req.Body})
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, commentPayload(comment, sync))
}

// DELETE /api/comments/:id
func (h *CommentHandler) DeleteComment(c *gin.Context) {
	commentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_comment_id", err)
		return
	}
	sync, err := h.comments.Delete(c.Request.Context(), commentID)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	payload := gin.H{"deleted": true}
	if sync != nil {
		payload["post_tags"] = sync.Tags
	}
	response.RespondOK(c, payload)
}

// commentPayload folds the post's reconciled tags into the response when the
// sync ran. A lagging sync just omits them.
func commentPayload(comment *types.Comment, sync *domainagg.CommentTagsResult) gin.H {
	payload := gin.H{"comment": comment}
	if sync != nil {
		payload["post_tags"] = sync.Tags
	}
	return payload
}
