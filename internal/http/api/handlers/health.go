package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/destinyrisingdb/artifactdb/internal/catalog"
)

// HealthHandler serves the health check endpoint.
type HealthHandler struct {
	db *gorm.DB
}

// NewHealthHandler constructs a HealthHandler.
func NewHealthHandler(db *gorm.DB) *HealthHandler {
	return &HealthHandler{db: db}
}

// Health checks store connectivity and reports aggregate catalog counts.
func (h *HealthHandler) Health(c *gin.Context) {
	sqlDB, errDB := h.db.DB()
	if errDB != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": "store unavailable"})
		return
	}
	if errPing := sqlDB.PingContext(c.Request.Context()); errPing != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": "store unreachable"})
		return
	}

	stats, errStats := catalog.CollectStats(c.Request.Context(), h.db)
	if errStats != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": "store query failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"database": gin.H{
			"artifacts":   stats.Artifacts,
			"submissions": stats.Submissions,
			"verified":    stats.Verified,
			"withEffects": stats.WithEffects,
		},
	})
}
