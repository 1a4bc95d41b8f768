package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/sirwalterjones/threads-backend/internal/http/response"
	"github.com/sirwalterjones/threads-backend/internal/services"
)

type PostHandler struct {
	posts services.PostService
}

func NewPostHandler(posts services.PostService) *PostHandler {
	return &PostHandler{posts: posts}
}

type createPostReq struct {
	AuthorName string `json:"author_name"`
	Title      string `json:"title"`
	Body       string `json:"body"`
}

// POST /api/posts
func (h *PostHandler) CreatePost(c *gin.Context) {
	var req createPostReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	post, err := h.posts.Create(c.Request.Context(), services.CreatePostInput{
		AuthorName: req.AuthorName,
		Title:      req.Title,
		Body:       req.Body,
	})
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"post": post})
}

// GET /api/posts?limit=50&offset=0
func (h *PostHandler) ListPosts(c *gin.Context) {
	limit, offset := pageParams(c)
	posts, err := h.posts.List(c.Request.Context(), limit, offset)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"posts": posts})
}

// GET /api/posts/:id
func (h *PostHandler) GetPost(c *gin.Context) {
	postID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_post_id", err)
		return
	}
	post, err := h.posts.Get(c.Request.Context(), postID)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"post": post})
}

// DELETE /api/posts/:id
func (h *PostHandler) DeletePost(c *gin.Context) {
	postID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_post_id", err)
		return
	}
	if err := h.posts.Delete(c.Request.Context(), postID); err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"deleted": true})
}

func pageParams(c *gin.Context) (limit, offset int) {
	if v := strings.TrimSpace(c.Query("limit")); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	if v := strings.TrimSpace(c.Query("offset")); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			offset = n
		}
	}
	return limit, offset
}
