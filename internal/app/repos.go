package app

import (
	"gorm.io/gorm"

	"github.com/sirwalterjones/threads-backend/internal/data/repos"
	"github.com/sirwalterjones/threads-backend/internal/platform/logger"
)

type Repos struct {
	Posts    repos.PostRepo
	Comments repos.CommentRepo
	Tags     repos.TagRepo
	PostTags repos.PostTagRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Posts:    repos.NewPostRepo(db, log),
		Comments: repos.NewCommentRepo(db, log),
		Tags:     repos.NewTagRepo(db, log),
		PostTags: repos.NewPostTagRepo(db, log),
	}
}
