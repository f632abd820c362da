package catalog

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/destinyrisingdb/artifactdb/internal/models"
)

// SubmissionFilters narrows a submission listing. Nil fields mean "no
// constraint".
type SubmissionFilters struct {
	Status     *models.SubmissionStatus
	ArtifactID *uint64
	Page       int
	Limit      int
}

// SubmissionPage is one page of submissions plus per-status totals for the
// whole collection.
type SubmissionPage struct {
	Submissions  []models.ArtifactSubmission
	Total        int64
	Page         int
	Limit        int
	TotalPages   int
	StatusCounts map[models.SubmissionStatus]int64
}

// ListSubmissions returns submissions newest first, with their target
// artifact preloaded and status counts computed across all rows.
func ListSubmissions(ctx context.Context, conn *gorm.DB, filters SubmissionFilters) (*SubmissionPage, error) {
	if filters.Page < 1 {
		filters.Page = 1
	}
	if filters.Limit < 1 {
		filters.Limit = DefaultPageLimit
	}

	base := func() *gorm.DB {
		q := conn.WithContext(ctx).Model(&models.ArtifactSubmission{})
		if filters.Status != nil {
			q = q.Where("status = ?", *filters.Status)
		}
		if filters.ArtifactID != nil {
			q = q.Where("artifact_id = ?", *filters.ArtifactID)
		}
		return q
	}

	var total int64
	if errCount := base().Count(&total).Error; errCount != nil {
		return nil, fmt.Errorf("catalog: count submissions: %w", errCount)
	}

	var rows []models.ArtifactSubmission
	offset := (filters.Page - 1) * filters.Limit
	if errFind := base().
		Preload("Artifact").
		Order("created_at DESC").
		Order("id DESC").
		Limit(filters.Limit).
		Offset(offset).
		Find(&rows).Error; errFind != nil {
		return nil, fmt.Errorf("catalog: list submissions: %w", errFind)
	}

	counts, errCounts := submissionStatusCounts(ctx, conn)
	if errCounts != nil {
		return nil, errCounts
	}

	totalPages := int((total + int64(filters.Limit) - 1) / int64(filters.Limit))
	return &SubmissionPage{
		Submissions:  rows,
		Total:        total,
		Page:         filters.Page,
		Limit:        filters.Limit,
		TotalPages:   totalPages,
		StatusCounts: counts,
	}, nil
}

// submissionStatusCounts groups all submissions by status.
func submissionStatusCounts(ctx context.Context, conn *gorm.DB) (map[models.SubmissionStatus]int64, error) {
	var rows []struct {
		Status models.SubmissionStatus
		Count  int64
	}
	if errGroup := conn.WithContext(ctx).
		Model(&models.ArtifactSubmission{}).
		Select("status, COUNT(*) as count").
		Group("status").
		Find(&rows).Error; errGroup != nil {
		return nil, fmt.Errorf("catalog: status counts: %w", errGroup)
	}
	counts := make(map[models.SubmissionStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}
