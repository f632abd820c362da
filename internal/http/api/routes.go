package api

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/destinyrisingdb/artifactdb/internal/catalog"
	"github.com/destinyrisingdb/artifactdb/internal/http/api/handlers"
	"github.com/destinyrisingdb/artifactdb/internal/storage"
)

// RegisterRoutes mounts the catalog API under /api.
func RegisterRoutes(engine *gin.Engine, conn *gorm.DB, moderation *catalog.Moderation, store storage.Store) {
	if engine == nil || conn == nil {
		return
	}

	api := engine.Group("/api")

	artifactHandler := handlers.NewArtifactHandler(conn)
	api.GET("/artifacts", artifactHandler.List)
	api.PUT("/artifacts", artifactHandler.Update)
	api.GET("/artifacts/:id", artifactHandler.Get)

	submissionHandler := handlers.NewSubmissionHandler(conn, moderation, store)
	api.GET("/submissions", submissionHandler.List)
	api.POST("/submissions", submissionHandler.Create)
	api.PUT("/submissions/:id", submissionHandler.Review)
	api.DELETE("/submissions/:id", submissionHandler.Delete)

	healthHandler := handlers.NewHealthHandler(conn)
	api.GET("/health", healthHandler.Health)
}
