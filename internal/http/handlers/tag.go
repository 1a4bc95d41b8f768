package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/sirwalterjones/threads-backend/internal/http/response"
	"github.com/sirwalterjones/threads-backend/internal/services"
)

type TagHandler struct {
	tags services.TagService
}

func NewTagHandler(tags services.TagService) *TagHandler {
	return &TagHandler{tags: tags}
}

// GET /api/tags
func (h *TagHandler) ListTags(c *gin.Context) {
	tags, err := h.tags.List(c.Request.Context())
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"tags": tags})
}

// GET /api/tags/:label/posts?limit=50&offset=0
//
// The label is accepted with or without its marker, in any casing.
func (h *TagHandler) ListTagPosts(c *gin.Context) {
	limit, offset := pageParams(c)
	posts, err := h.tags.PostsForLabel(c.Request.Context(), c.Param("label"), limit, offset)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"posts": posts})
}
