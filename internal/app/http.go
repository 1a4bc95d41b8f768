package app

import (
	"github.com/gin-gonic/gin"

	tbhttp "github.com/sirwalterjones/threads-backend/internal/http"
	httpH "github.com/sirwalterjones/threads-backend/internal/http/handlers"
	"github.com/sirwalterjones/threads-backend/internal/observability"
	"github.com/sirwalterjones/threads-backend/internal/platform/logger"
)

type Handlers struct {
	Health  *httpH.HealthHandler
	Post    *httpH.PostHandler
	Comment *httpH.CommentHandler
	Tag     *httpH.TagHandler
}

func wireHandlers(log *logger.Logger, serviceset Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:  httpH.NewHealthHandler(),
		Post:    httpH.NewPostHandler(serviceset.Posts),
		Comment: httpH.NewCommentHandler(serviceset.Comments),
		Tag:     httpH.NewTagHandler(serviceset.Tags),
	}
}

func wireRouter(log *logger.Logger, cfg Config, metrics *observability.Metrics, handlers Handlers) *gin.Engine {
	return tbhttp.NewRouter(tbhttp.RouterConfig{
		Log:                log,
		Metrics:            metrics,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		PostHandler:        handlers.Post,
		CommentHandler:     handlers.Comment,
		TagHandler:         handlers.Tag,
		HealthHandler:      handlers.Health,
	})
}
