package catalog

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/destinyrisingdb/artifactdb/internal/models"
)

// StoreStats is the aggregate snapshot served by the health endpoint.
type StoreStats struct {
	Artifacts   int64 // Total artifact rows.
	Submissions int64 // Total submission rows.
	Verified    int64 // Artifacts with community-verified data.
	WithEffects int64 // Artifacts with at least one tier bonus recorded.
}

// CollectStats gathers store statistics. Any query error means the store is
// unhealthy.
func CollectStats(ctx context.Context, conn *gorm.DB) (*StoreStats, error) {
	stats := &StoreStats{}

	if errCount := conn.WithContext(ctx).Model(&models.Artifact{}).
		Count(&stats.Artifacts).Error; errCount != nil {
		return nil, fmt.Errorf("catalog: count artifacts: %w", errCount)
	}
	if errCount := conn.WithContext(ctx).Model(&models.ArtifactSubmission{}).
		Count(&stats.Submissions).Error; errCount != nil {
		return nil, fmt.Errorf("catalog: count submissions: %w", errCount)
	}
	if errCount := conn.WithContext(ctx).Model(&models.Artifact{}).
		Where("verified = ?", true).
		Count(&stats.Verified).Error; errCount != nil {
		return nil, fmt.Errorf("catalog: count verified: %w", errCount)
	}
	if errCount := conn.WithContext(ctx).Model(&models.Artifact{}).
		Where(anySetEffectExpr).
		Count(&stats.WithEffects).Error; errCount != nil {
		return nil, fmt.Errorf("catalog: count with effects: %w", errCount)
	}

	return stats, nil
}
