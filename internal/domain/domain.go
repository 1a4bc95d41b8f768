package domain

import (
	"github.com/sirwalterjones/threads-backend/internal/domain/board"
)

type Post = board.Post
type Comment = board.Comment
type Tag = board.Tag
type PostTag = board.PostTag
