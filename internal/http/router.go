package http

import (
	"strings"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/moldindex-backend/internal/http/handlers"
	httpMW "github.com/yungbote/moldindex-backend/internal/http/middleware"
	"github.com/yungbote/moldindex-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log         *logger.Logger
	ServiceName string
	CORSOrigins []string

	// UploadURLPrefix mounts local media serving; empty when media lives in a bucket.
	UploadURLPrefix string

	HealthHandler *httpH.HealthHandler
	MoldHandler   *httpH.MoldHandler
	MediaHandler  *httpH.MediaHandler
	ImportHandler *httpH.ImportHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.CORS(cfg.CORSOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}

	api := r.Group("/api")
	{
		// Mold records
		if cfg.MoldHandler != nil {
			api.GET("/molds", cfg.MoldHandler.List)
			api.POST("/molds", cfg.MoldHandler.Create)
			api.GET("/molds/search", cfg.MoldHandler.Search)
			api.POST("/molds/search", cfg.MoldHandler.Search)
			api.GET("/molds/:id", cfg.MoldHandler.Get)
			api.PUT("/molds/:id", cfg.MoldHandler.Update)
			api.DELETE("/molds/:id", cfg.MoldHandler.Delete)
			api.POST("/molds/:id/media", cfg.MoldHandler.UploadMedia)
		}

		// Bulk import
		if cfg.ImportHandler != nil {
			api.POST("/molds/import", cfg.ImportHandler.Import)
		}

		// Media
		if cfg.MediaHandler != nil {
			api.GET("/media/:id/raw", cfg.MediaHandler.Raw)
			api.DELETE("/media/:id", cfg.MediaHandler.Delete)
		}
	}

	if prefix := strings.TrimRight(cfg.UploadURLPrefix, "/"); prefix != "" && cfg.MediaHandler != nil {
		r.GET(prefix+"/*path", cfg.MediaHandler.ServeLocal)
	}

	return r
}
