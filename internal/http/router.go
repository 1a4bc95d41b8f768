package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/sirwalterjones/threads-backend/internal/http/handlers"
	httpMW "github.com/sirwalterjones/threads-backend/internal/http/middleware"
	"github.com/sirwalterjones/threads-backend/internal/observability"
	"github.com/sirwalterjones/threads-backend/internal/platform/logger"
)

const serviceName = "threads-backend"

type RouterConfig struct {
	Log     *logger.Logger
	Metrics *observability.Metrics

	CORSAllowedOrigins []string

	PostHandler    *httpH.PostHandler
	CommentHandler *httpH.CommentHandler
	TagHandler     *httpH.TagHandler

	HealthHandler *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(serviceName))
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.CORSAllowedOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthz", cfg.HealthHandler.HealthCheck)
	}

	// Metrics scrape endpoint. Answers 503 while metrics are disabled.
	r.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))

	api := r.Group("/api")
	{
		// Posts
		if cfg.PostHandler != nil {
			api.POST("/posts", cfg.PostHandler.CreatePost)
			api.GET("/posts", cfg.PostHandler.ListPosts)
			api.GET("/posts/:id", cfg.PostHandler.GetPost)
			api.DELETE("/posts/:id", cfg.PostHandler.DeletePost)
		}

		// Comments
		if cfg.CommentHandler != nil {
			api.POST("/posts/:id/comments", cfg.CommentHandler.CreateComment)
			api.GET("/posts/:id/comments", cfg.CommentHandler.ListPostComments)
			api.PATCH("/comments/:id", cfg.CommentHandler.UpdateComment)
			api.DELETE("/comments/:id", cfg.CommentHandler.DeleteComment)
		}

		// Tags
		if cfg.TagHandler != nil {
			api.GET("/tags", cfg.TagHandler.ListTags)
			api.GET("/tags/:label/posts", cfg.TagHandler.ListTagPosts)
		}
	}

	return r
}
