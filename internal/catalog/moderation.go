package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	dbutil "github.com/destinyrisingdb/artifactdb/internal/db"
	"github.com/destinyrisingdb/artifactdb/internal/models"
)

// Moderation runs the submission lifecycle: intake, review decisions and
// deletion. All state lives in the store; a Moderation value is safe for
// concurrent use.
type Moderation struct {
	db *gorm.DB // Database handle.

	// strictDelete makes deletion decrement the owning artifact's
	// submission counter. Off by default: the counter is an audit trail of
	// submissions ever filed, and intake increments it without deletion
	// ever giving it back.
	strictDelete bool
}

// NewModeration wires a moderation service.
func NewModeration(conn *gorm.DB, strictDelete bool) *Moderation {
	return &Moderation{db: conn, strictDelete: strictDelete}
}

// CreateSubmissionParams is the validated input for submission intake.
type CreateSubmissionParams struct {
	ArtifactID       uint64
	SubmitterName    string // Ignored when Anonymous.
	SubmitterContact string // Ignored when Anonymous.
	Anonymous        bool
	Payload          models.SubmissionPayload
	EvidenceNotes    string
	EvidenceVideoURL string
	EvidenceFiles    []models.EvidenceFile
}

// CreateSubmission inserts a pending submission and increments the target
// artifact's submission counter in the same transaction. Fails with
// ErrNotFound when the artifact does not exist, leaving no row behind.
func (m *Moderation) CreateSubmission(ctx context.Context, params CreateSubmissionParams) (uint64, error) {
	if params.ArtifactID == 0 {
		return 0, fmt.Errorf("%w: missing artifact id", ErrInvalidArgument)
	}
	if errValidate := validatePayload(params.Payload); errValidate != nil {
		return 0, errValidate
	}

	payloadJSON, errMarshal := json.Marshal(params.Payload)
	if errMarshal != nil {
		return 0, fmt.Errorf("catalog: encode submission payload: %w", errMarshal)
	}
	filesJSON, errMarshal := json.Marshal(normalizeEvidenceFiles(params.EvidenceFiles))
	if errMarshal != nil {
		return 0, fmt.Errorf("catalog: encode evidence files: %w", errMarshal)
	}

	submission := models.ArtifactSubmission{
		ArtifactID:       params.ArtifactID,
		SubmissionData:   datatypes.JSON(payloadJSON),
		EvidenceNotes:    optionalText(params.EvidenceNotes),
		EvidenceVideoURL: optionalText(params.EvidenceVideoURL),
		EvidenceFiles:    datatypes.JSON(filesJSON),
		Status:           models.SubmissionStatusPending,
	}
	if !params.Anonymous {
		submission.SubmitterName = optionalText(params.SubmitterName)
		submission.SubmitterContact = optionalText(params.SubmitterContact)
	}

	errTx := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var artifact models.Artifact
		if errFind := tx.Select("id").First(&artifact, params.ArtifactID).Error; errFind != nil {
			if errors.Is(errFind, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: artifact %d", ErrNotFound, params.ArtifactID)
			}
			return errFind
		}
		if errCreate := tx.Create(&submission).Error; errCreate != nil {
			return fmt.Errorf("catalog: insert submission: %w", errCreate)
		}
		// SQL-side increment: two concurrent intakes must both count.
		if errBump := tx.Model(&models.Artifact{}).
			Where("id = ?", params.ArtifactID).
			Update("submission_count", gorm.Expr("submission_count + 1")).Error; errBump != nil {
			return fmt.Errorf("catalog: bump submission count: %w", errBump)
		}
		return nil
	})
	if errTx != nil {
		return 0, errTx
	}
	return submission.ID, nil
}

// ReviewDecision is an admin's verdict on one submission.
type ReviewDecision struct {
	Status     models.SubmissionStatus // approved, rejected or pending (re-open).
	AdminNotes string
	ReviewedBy string
}

// Review applies a moderation decision. Transitioning to approved merges the
// submitted data into the target artifact: non-empty set-effect fields
// overwrite, the artifact is marked verified when any field merged, and each
// submitted stat widens (never narrows) its stored range.
func (m *Moderation) Review(ctx context.Context, submissionID uint64, decision ReviewDecision) (*models.ArtifactSubmission, error) {
	if !models.ValidReviewStatus(decision.Status) {
		return nil, fmt.Errorf("%w: status %q", ErrInvalidArgument, decision.Status)
	}

	var reviewed models.ArtifactSubmission
	errTx := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var submission models.ArtifactSubmission
		if errFind := tx.First(&submission, submissionID).Error; errFind != nil {
			if errors.Is(errFind, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: submission %d", ErrNotFound, submissionID)
			}
			return errFind
		}

		updates := map[string]any{
			"status":      decision.Status,
			"admin_notes": optionalText(decision.AdminNotes),
			"reviewed_by": optionalText(decision.ReviewedBy),
		}
		if decision.Status == models.SubmissionStatusPending {
			updates["reviewed_at"] = nil
		} else {
			updates["reviewed_at"] = time.Now().UTC()
		}
		if errUpdate := tx.Model(&models.ArtifactSubmission{}).
			Where("id = ?", submissionID).
			Updates(updates).Error; errUpdate != nil {
			return fmt.Errorf("catalog: update submission: %w", errUpdate)
		}

		if decision.Status == models.SubmissionStatusApproved {
			payload, errDecode := DecodePayload(&submission)
			if errDecode != nil {
				return errDecode
			}
			if errMerge := mergeApproved(tx, submission.ArtifactID, payload); errMerge != nil {
				return errMerge
			}
		}

		return tx.First(&reviewed, submissionID).Error
	})
	if errTx != nil {
		return nil, errTx
	}
	return &reviewed, nil
}

// Delete removes a submission permanently. The artifact's submission counter
// is left alone unless the service runs in strict-delete mode.
func (m *Moderation) Delete(ctx context.Context, submissionID uint64) error {
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var submission models.ArtifactSubmission
		if errFind := tx.Select("id", "artifact_id").First(&submission, submissionID).Error; errFind != nil {
			if errors.Is(errFind, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: submission %d", ErrNotFound, submissionID)
			}
			return errFind
		}
		if errDelete := tx.Delete(&models.ArtifactSubmission{}, submissionID).Error; errDelete != nil {
			return fmt.Errorf("catalog: delete submission: %w", errDelete)
		}
		if m.strictDelete {
			if errDrop := tx.Model(&models.Artifact{}).
				Where("id = ?", submission.ArtifactID).
				Update("submission_count", gorm.Expr(
					"CASE WHEN submission_count > 0 THEN submission_count - 1 ELSE 0 END",
				)).Error; errDrop != nil {
				return fmt.Errorf("catalog: drop submission count: %w", errDrop)
			}
		}
		return nil
	})
}

// mergeApproved folds an approved payload into the target artifact.
func mergeApproved(tx *gorm.DB, artifactID uint64, payload models.SubmissionPayload) error {
	updates := map[string]any{}
	fields := payload.SetEffects.Fields()
	for i, column := range setEffectColumns {
		if fields[i] != "" {
			updates[column] = fields[i]
		}
	}
	if len(updates) > 0 {
		updates["verified"] = true
		if errUpdate := tx.Model(&models.Artifact{}).
			Where("id = ?", artifactID).
			Updates(updates).Error; errUpdate != nil {
			return fmt.Errorf("catalog: merge set effects: %w", errUpdate)
		}
	}

	for _, stat := range payload.RollableAttributes {
		if errUpsert := widenStat(tx, artifactID, stat); errUpsert != nil {
			return errUpsert
		}
	}
	return nil
}

// widenStat upserts one stat keyed by (artifact, name, type) in a single
// INSERT ... ON CONFLICT statement. LEAST/GREATEST run against the stored row
// inside the statement, so concurrent approvals of the same key both widen to
// the union instead of racing a stale read, and re-approving the same
// submission is a no-op because min/max are idempotent.
func widenStat(tx *gorm.DB, artifactID uint64, stat models.SubmissionStat) error {
	if errValidate := validateStat(stat); errValidate != nil {
		return errValidate
	}

	row := models.RollableStat{
		ArtifactID: artifactID,
		Name:       stat.Name,
		StatType:   stat.Type,
		MinValue:   stat.MinValue,
		MaxValue:   stat.MaxValue,
		ValueKind:  defaultValueKind(stat.ValueKind),
		Rarity:     defaultRarity(stat.Rarity),
	}
	least := dbutil.LeastFunc(tx)
	greatest := dbutil.GreatestFunc(tx)
	if errUpsert := tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "artifact_id"}, {Name: "name"}, {Name: "stat_type"}},
		DoUpdates: clause.Assignments(map[string]any{
			"min_value": gorm.Expr(least+"(rollable_stats.min_value, ?)", stat.MinValue),
			"max_value": gorm.Expr(greatest+"(rollable_stats.max_value, ?)", stat.MaxValue),
		}),
	}).Create(&row).Error; errUpsert != nil {
		return fmt.Errorf("catalog: widen stat %q: %w", stat.Name, errUpsert)
	}
	return nil
}

// DecodePayload unpacks a submission's JSON payload.
func DecodePayload(submission *models.ArtifactSubmission) (models.SubmissionPayload, error) {
	var payload models.SubmissionPayload
	if len(submission.SubmissionData) == 0 {
		return payload, nil
	}
	if errDecode := json.Unmarshal(submission.SubmissionData, &payload); errDecode != nil {
		return payload, fmt.Errorf("catalog: decode submission payload: %w", errDecode)
	}
	return payload, nil
}

// DecodeEvidenceFiles unpacks a submission's stored file references.
func DecodeEvidenceFiles(submission *models.ArtifactSubmission) ([]models.EvidenceFile, error) {
	if len(submission.EvidenceFiles) == 0 {
		return nil, nil
	}
	var files []models.EvidenceFile
	if errDecode := json.Unmarshal(submission.EvidenceFiles, &files); errDecode != nil {
		return nil, fmt.Errorf("catalog: decode evidence files: %w", errDecode)
	}
	return files, nil
}

// validatePayload checks intake invariants on candidate data.
func validatePayload(payload models.SubmissionPayload) error {
	for _, stat := range payload.RollableAttributes {
		if errValidate := validateStat(stat); errValidate != nil {
			return errValidate
		}
	}
	return nil
}

// validateStat enforces the per-stat invariants.
func validateStat(stat models.SubmissionStat) error {
	if strings.TrimSpace(stat.Name) == "" {
		return fmt.Errorf("%w: stat name cannot be empty", ErrInvalidArgument)
	}
	if !models.ValidStatType(stat.Type) {
		return fmt.Errorf("%w: stat %q has unknown type %q", ErrInvalidArgument, stat.Name, stat.Type)
	}
	if stat.MinValue > stat.MaxValue {
		return fmt.Errorf("%w: stat %q min exceeds max", ErrInvalidArgument, stat.Name)
	}
	return nil
}

// normalizeEvidenceFiles drops empty entries so the stored list is clean.
func normalizeEvidenceFiles(files []models.EvidenceFile) []models.EvidenceFile {
	out := make([]models.EvidenceFile, 0, len(files))
	for _, file := range files {
		if file.URL == "" {
			continue
		}
		out = append(out, file)
	}
	return out
}

// optionalText maps empty strings to NULL-able pointers.
func optionalText(s string) *string {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
