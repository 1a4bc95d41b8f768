package repos

import (
	"gorm.io/gorm"

	"github.com/sirwalterjones/threads-backend/internal/data/repos/board"
	"github.com/sirwalterjones/threads-backend/internal/platform/logger"
)

type PostRepo = board.PostRepo
type CommentRepo = board.CommentRepo
type TagRepo = board.TagRepo
type PostTagRepo = board.PostTagRepo

func NewPostRepo(db *gorm.DB, baseLog *logger.Logger) PostRepo { return board.NewPostRepo(db, baseLog) }
func NewCommentRepo(db *gorm.DB, baseLog *logger.Logger) CommentRepo {
	return board.NewCommentRepo(db, baseLog)
}
func NewTagRepo(db *gorm.DB, baseLog *logger.Logger) TagRepo { return board.NewTagRepo(db, baseLog) }
func NewPostTagRepo(db *gorm.DB, baseLog *logger.Logger) PostTagRepo {
	return board.NewPostTagRepo(db, baseLog)
}
