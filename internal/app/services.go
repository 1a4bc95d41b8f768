package app

import (
	"gorm.io/gorm"

	dataagg "github.com/sirwalterjones/threads-backend/internal/data/aggregates"
	domainagg "github.com/sirwalterjones/threads-backend/internal/domain/aggregates"
	"github.com/sirwalterjones/threads-backend/internal/observability"
	"github.com/sirwalterjones/threads-backend/internal/platform/logger"
	"github.com/sirwalterjones/threads-backend/internal/services"
)

type Services struct {
	Posts    services.PostService
	Comments services.CommentService
	Tags     services.TagService

	TagSync domainagg.TagSyncAggregate
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, reposet Repos, metrics *observability.Metrics) Services {
	log.Info("Wiring services...")

	tagSync := dataagg.NewTagSyncAggregate(dataagg.TagSyncAggregateDeps{
		Base: dataagg.BaseDeps{
			DB:    db,
			Log:   log,
			Hooks: dataagg.NewObservabilityHooks(metrics),
		},
		Posts:    reposet.Posts,
		Tags:     reposet.Tags,
		PostTags: reposet.PostTags,
	})

	return Services{
		Posts:    services.NewPostService(db, log, reposet.Posts, reposet.Comments, reposet.PostTags),
		Comments: services.NewCommentService(db, log, reposet.Posts, reposet.Comments, tagSync, metrics, cfg.TagSyncRetryAttempts),
		Tags:     services.NewTagService(db, log, reposet.Posts, reposet.Tags, reposet.PostTags),
		TagSync:  tagSync,
	}
}
