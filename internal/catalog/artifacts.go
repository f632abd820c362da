package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/destinyrisingdb/artifactdb/internal/models"
)

// ArtifactDetail is one artifact plus its related submissions.
type ArtifactDetail struct {
	Artifact        models.Artifact
	Submissions     []models.ArtifactSubmission
	SubmissionTotal int64 // Count of live submission rows, independent of the audit counter.
}

// GetArtifact loads an artifact with its stats and related submissions.
func GetArtifact(ctx context.Context, conn *gorm.DB, id uint64) (*ArtifactDetail, error) {
	var artifact models.Artifact
	if errFind := conn.WithContext(ctx).
		Preload("RollableStats", func(tx *gorm.DB) *gorm.DB { return tx.Order("id ASC") }).
		First(&artifact, id).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: artifact %d", ErrNotFound, id)
		}
		return nil, fmt.Errorf("catalog: get artifact: %w", errFind)
	}

	var submissions []models.ArtifactSubmission
	if errFind := conn.WithContext(ctx).
		Where("artifact_id = ?", id).
		Order("created_at DESC").
		Find(&submissions).Error; errFind != nil {
		return nil, fmt.Errorf("catalog: related submissions: %w", errFind)
	}

	return &ArtifactDetail{
		Artifact:        artifact,
		Submissions:     submissions,
		SubmissionTotal: int64(len(submissions)),
	}, nil
}

// ArtifactExists reports whether an artifact row exists.
func ArtifactExists(ctx context.Context, conn *gorm.DB, id uint64) (bool, error) {
	var count int64
	if errCount := conn.WithContext(ctx).Model(&models.Artifact{}).
		Where("id = ?", id).
		Count(&count).Error; errCount != nil {
		return false, fmt.Errorf("catalog: artifact exists: %w", errCount)
	}
	return count > 0, nil
}

// StatList is a full replacement set of rollable stats, already partitioned.
type StatList struct {
	Primary   []models.SubmissionStat
	Secondary []models.SubmissionStat
}

// ArtifactPatch carries admin edits. Nil fields are left untouched; a present
// SetEffects replaces all five tier fields, with empty strings clearing them.
type ArtifactPatch struct {
	Name            *string
	Description     *string
	Slot            *int
	SetEffects      *models.SubmissionSetEffects
	Verified        *bool
	SubmissionCount *int
	RollableStats   *StatList // Present replaces the whole stat list.
}

// UpdateArtifact applies an admin patch and returns the updated artifact.
func UpdateArtifact(ctx context.Context, conn *gorm.DB, id uint64, patch ArtifactPatch) (*models.Artifact, error) {
	if id == 0 {
		return nil, fmt.Errorf("%w: missing artifact id", ErrInvalidArgument)
	}
	if patch.Slot != nil && (*patch.Slot < 1 || *patch.Slot > 4) {
		return nil, fmt.Errorf("%w: slot must be 1..4", ErrInvalidArgument)
	}
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return nil, fmt.Errorf("%w: name cannot be empty", ErrInvalidArgument)
	}
	if patch.RollableStats != nil {
		for _, stat := range append(append([]models.SubmissionStat{}, patch.RollableStats.Primary...), patch.RollableStats.Secondary...) {
			if strings.TrimSpace(stat.Name) == "" {
				return nil, fmt.Errorf("%w: stat name cannot be empty", ErrInvalidArgument)
			}
			if stat.MinValue > stat.MaxValue {
				return nil, fmt.Errorf("%w: stat %q min exceeds max", ErrInvalidArgument, stat.Name)
			}
		}
	}

	var updated models.Artifact
	errTx := conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var artifact models.Artifact
		if errFind := tx.First(&artifact, id).Error; errFind != nil {
			if errors.Is(errFind, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: artifact %d", ErrNotFound, id)
			}
			return errFind
		}

		updates := map[string]any{}
		if patch.Name != nil {
			updates["name"] = strings.TrimSpace(*patch.Name)
		}
		if patch.Description != nil {
			updates["description"] = nullableText(*patch.Description)
		}
		if patch.Slot != nil {
			updates["slot"] = *patch.Slot
		}
		if patch.SetEffects != nil {
			fields := patch.SetEffects.Fields()
			for i, column := range setEffectColumns {
				updates[column] = nullableText(fields[i])
			}
		}
		if patch.Verified != nil {
			updates["verified"] = *patch.Verified
		}
		if patch.SubmissionCount != nil {
			updates["submission_count"] = *patch.SubmissionCount
		}

		if len(updates) > 0 {
			if errUpdate := tx.Model(&models.Artifact{}).Where("id = ?", id).Updates(updates).Error; errUpdate != nil {
				return fmt.Errorf("catalog: update artifact: %w", errUpdate)
			}
		}

		if patch.RollableStats != nil {
			if errReplace := replaceStats(tx, id, patch.RollableStats); errReplace != nil {
				return errReplace
			}
		}

		return tx.Preload("RollableStats", func(q *gorm.DB) *gorm.DB { return q.Order("id ASC") }).
			First(&updated, id).Error
	})
	if errTx != nil {
		return nil, errTx
	}
	return &updated, nil
}

// setEffectColumns lists the tier columns in tier order.
var setEffectColumns = [5]string{
	"set_effect_1pc", "set_effect_2pc", "set_effect_3pc", "set_effect_4pc", "set_effect_5pc",
}

// replaceStats swaps the whole stat list for an artifact.
func replaceStats(tx *gorm.DB, artifactID uint64, list *StatList) error {
	if errDelete := tx.Where("artifact_id = ?", artifactID).Delete(&models.RollableStat{}).Error; errDelete != nil {
		return fmt.Errorf("catalog: clear stats: %w", errDelete)
	}
	insert := func(stats []models.SubmissionStat, statType models.StatType) error {
		for _, stat := range stats {
			row := models.RollableStat{
				ArtifactID: artifactID,
				Name:       stat.Name,
				StatType:   statType,
				MinValue:   stat.MinValue,
				MaxValue:   stat.MaxValue,
				ValueKind:  defaultValueKind(stat.ValueKind),
				Rarity:     defaultRarity(stat.Rarity),
			}
			if errCreate := tx.Create(&row).Error; errCreate != nil {
				return fmt.Errorf("catalog: insert stat %q: %w", stat.Name, errCreate)
			}
		}
		return nil
	}
	if errInsert := insert(list.Primary, models.StatTypePrimary); errInsert != nil {
		return errInsert
	}
	return insert(list.Secondary, models.StatTypeSecondary)
}

// defaultValueKind falls back to flat for absent or unknown kinds.
func defaultValueKind(k models.StatValueKind) models.StatValueKind {
	switch k {
	case models.StatValueKindPercentage, models.StatValueKindFlat, models.StatValueKindMultiplier:
		return k
	default:
		return models.StatValueKindFlat
	}
}

// defaultRarity falls back to common for absent or unknown rarities.
func defaultRarity(r models.StatRarity) models.StatRarity {
	switch r {
	case models.StatRarityCommon, models.StatRarityRare, models.StatRarityEpic, models.StatRarityLegendary:
		return r
	default:
		return models.StatRarityCommon
	}
}

// nullableText maps empty strings to NULL.
func nullableText(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
