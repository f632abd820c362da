package catalog

import (
	"context"
	"errors"
	"testing"

	"gorm.io/gorm"

	"github.com/destinyrisingdb/artifactdb/internal/models"
)

func reloadArtifact(t *testing.T, conn *gorm.DB, id uint64) models.Artifact {
	t.Helper()

	var artifact models.Artifact
	if errFind := conn.Preload("RollableStats").First(&artifact, id).Error; errFind != nil {
		t.Fatalf("reload artifact %d: %v", id, errFind)
	}
	return artifact
}

func reloadSubmission(t *testing.T, conn *gorm.DB, id uint64) models.ArtifactSubmission {
	t.Helper()

	var submission models.ArtifactSubmission
	if errFind := conn.First(&submission, id).Error; errFind != nil {
		t.Fatalf("reload submission %d: %v", id, errFind)
	}
	return submission
}

func TestCreateSubmissionIncrementsCounter(t *testing.T) {
	conn := openTestDB(t)
	artifact := createTestArtifact(t, conn, models.Artifact{Name: "Aegis of Dawn", Slot: 1})
	moderation := NewModeration(conn, false)

	for i := 0; i < 2; i++ {
		if _, errCreate := moderation.CreateSubmission(context.Background(), CreateSubmissionParams{
			ArtifactID:    artifact.ID,
			SubmitterName: "hunter",
			Payload:       models.SubmissionPayload{Notes: "observed in raid"},
		}); errCreate != nil {
			t.Fatalf("create submission %d: %v", i, errCreate)
		}
	}

	updated := reloadArtifact(t, conn, artifact.ID)
	if updated.SubmissionCount != 2 {
		t.Fatalf("expected submission count 2, got %d", updated.SubmissionCount)
	}

	var pending int64
	if errCount := conn.Model(&models.ArtifactSubmission{}).
		Where("status = ?", models.SubmissionStatusPending).
		Count(&pending).Error; errCount != nil {
		t.Fatalf("count pending: %v", errCount)
	}
	if pending != 2 {
		t.Fatalf("expected 2 pending submissions, got %d", pending)
	}
}

func TestCreateSubmissionMissingArtifactLeavesNoRow(t *testing.T) {
	conn := openTestDB(t)
	moderation := NewModeration(conn, false)

	_, errCreate := moderation.CreateSubmission(context.Background(), CreateSubmissionParams{
		ArtifactID: 9999,
		Payload:    models.SubmissionPayload{Notes: "ghost artifact"},
	})
	if !errors.Is(errCreate, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", errCreate)
	}

	var rows int64
	if errCount := conn.Model(&models.ArtifactSubmission{}).Count(&rows).Error; errCount != nil {
		t.Fatalf("count submissions: %v", errCount)
	}
	if rows != 0 {
		t.Fatalf("expected no submission rows, got %d", rows)
	}
}

func TestCreateSubmissionAnonymousDropsSubmitter(t *testing.T) {
	conn := openTestDB(t)
	artifact := createTestArtifact(t, conn, models.Artifact{Name: "Blade Harness", Slot: 2})
	moderation := NewModeration(conn, false)

	id, errCreate := moderation.CreateSubmission(context.Background(), CreateSubmissionParams{
		ArtifactID:       artifact.ID,
		SubmitterName:    "hunter",
		SubmitterContact: "hunter@example.com",
		Anonymous:        true,
		Payload:          models.SubmissionPayload{Notes: "keep me out of it"},
	})
	if errCreate != nil {
		t.Fatalf("create submission: %v", errCreate)
	}

	submission := reloadSubmission(t, conn, id)
	if submission.SubmitterName != nil || submission.SubmitterContact != nil {
		t.Fatalf("expected submitter fields dropped for anonymous intake")
	}
}

func TestCreateSubmissionRejectsInvalidStat(t *testing.T) {
	conn := openTestDB(t)
	artifact := createTestArtifact(t, conn, models.Artifact{Name: "Crown of Echoes", Slot: 3})
	moderation := NewModeration(conn, false)

	_, errCreate := moderation.CreateSubmission(context.Background(), CreateSubmissionParams{
		ArtifactID: artifact.ID,
		Payload: models.SubmissionPayload{
			RollableAttributes: []models.SubmissionStat{
				{Name: "Attack", MinValue: 30, MaxValue: 10, Type: models.StatTypePrimary},
			},
		},
	})
	if !errors.Is(errCreate, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", errCreate)
	}

	updated := reloadArtifact(t, conn, artifact.ID)
	if updated.SubmissionCount != 0 {
		t.Fatalf("expected counter untouched, got %d", updated.SubmissionCount)
	}
}

func TestReviewApproveMergesEffectsAndStats(t *testing.T) {
	conn := openTestDB(t)
	artifact := createTestArtifact(t, conn, models.Artifact{
		Name:         "Drifter's Band",
		Slot:         4,
		SetEffect1pc: textPtr("+5% speed"),
	})
	moderation := NewModeration(conn, false)

	id, errCreate := moderation.CreateSubmission(context.Background(), CreateSubmissionParams{
		ArtifactID: artifact.ID,
		Payload: models.SubmissionPayload{
			SetEffects: models.SubmissionSetEffects{Effect3: "Grants a shield on reload"},
			RollableAttributes: []models.SubmissionStat{
				{Name: "Charge Rate", MinValue: 5, MaxValue: 10, Type: models.StatTypePrimary},
			},
		},
	})
	if errCreate != nil {
		t.Fatalf("create submission: %v", errCreate)
	}

	reviewed, errReview := moderation.Review(context.Background(), id, ReviewDecision{
		Status:     models.SubmissionStatusApproved,
		ReviewedBy: "admin",
	})
	if errReview != nil {
		t.Fatalf("review: %v", errReview)
	}
	if reviewed.Status != models.SubmissionStatusApproved {
		t.Fatalf("expected approved status, got %q", reviewed.Status)
	}
	if reviewed.ReviewedAt == nil {
		t.Fatalf("expected reviewed_at set on approval")
	}
	if reviewed.ReviewedBy == nil || *reviewed.ReviewedBy != "admin" {
		t.Fatalf("expected reviewer recorded, got %v", reviewed.ReviewedBy)
	}

	updated := reloadArtifact(t, conn, artifact.ID)
	if updated.SetEffect3pc == nil || *updated.SetEffect3pc != "Grants a shield on reload" {
		t.Fatalf("expected effect3 merged, got %v", updated.SetEffect3pc)
	}
	if updated.SetEffect1pc == nil || *updated.SetEffect1pc != "+5% speed" {
		t.Fatalf("expected effect1 untouched, got %v", updated.SetEffect1pc)
	}
	if !updated.Verified {
		t.Fatalf("expected artifact verified after merge")
	}
	if len(updated.RollableStats) != 1 {
		t.Fatalf("expected one stat row, got %d", len(updated.RollableStats))
	}
	stat := updated.RollableStats[0]
	if stat.Name != "Charge Rate" || stat.MinValue != 5 || stat.MaxValue != 10 {
		t.Fatalf("unexpected stat row: %+v", stat)
	}
	if stat.StatType != models.StatTypePrimary {
		t.Fatalf("expected primary stat, got %q", stat.StatType)
	}
}

func TestReviewApproveWidensExistingStatRange(t *testing.T) {
	conn := openTestDB(t)
	artifact := createTestArtifact(t, conn, models.Artifact{Name: "Ember Core", Slot: 2})
	existing := models.RollableStat{
		ArtifactID: artifact.ID,
		Name:       "Attack",
		StatType:   models.StatTypeSecondary,
		MinValue:   10,
		MaxValue:   20,
		ValueKind:  models.StatValueKindFlat,
		Rarity:     models.StatRarityCommon,
	}
	if errCreate := conn.Create(&existing).Error; errCreate != nil {
		t.Fatalf("create stat: %v", errCreate)
	}
	moderation := NewModeration(conn, false)

	id, errCreate := moderation.CreateSubmission(context.Background(), CreateSubmissionParams{
		ArtifactID: artifact.ID,
		Payload: models.SubmissionPayload{
			RollableAttributes: []models.SubmissionStat{
				{Name: "Attack", MinValue: 15, MaxValue: 30, Type: models.StatTypeSecondary},
			},
		},
	})
	if errCreate != nil {
		t.Fatalf("create submission: %v", errCreate)
	}

	if _, errReview := moderation.Review(context.Background(), id, ReviewDecision{
		Status: models.SubmissionStatusApproved,
	}); errReview != nil {
		t.Fatalf("review: %v", errReview)
	}

	updated := reloadArtifact(t, conn, artifact.ID)
	if len(updated.RollableStats) != 1 {
		t.Fatalf("expected single stat row after widen, got %d", len(updated.RollableStats))
	}
	if updated.RollableStats[0].MinValue != 10 || updated.RollableStats[0].MaxValue != 30 {
		t.Fatalf("expected range [10,30], got [%v,%v]",
			updated.RollableStats[0].MinValue, updated.RollableStats[0].MaxValue)
	}

	// Re-approving the same observation must not move the range.
	if _, errReview := moderation.Review(context.Background(), id, ReviewDecision{
		Status: models.SubmissionStatusApproved,
	}); errReview != nil {
		t.Fatalf("re-approve: %v", errReview)
	}
	again := reloadArtifact(t, conn, artifact.ID)
	if len(again.RollableStats) != 1 {
		t.Fatalf("expected single stat row after re-approve, got %d", len(again.RollableStats))
	}
	if again.RollableStats[0].MinValue != 10 || again.RollableStats[0].MaxValue != 30 {
		t.Fatalf("re-approve moved range to [%v,%v]",
			again.RollableStats[0].MinValue, again.RollableStats[0].MaxValue)
	}
}

func TestReviewApproveMergesRangeUnionNeverNarrows(t *testing.T) {
	conn := openTestDB(t)
	artifact := createTestArtifact(t, conn, models.Artifact{Name: "Aegis of Dawn", Slot: 1})
	existing := models.RollableStat{
		ArtifactID: artifact.ID,
		Name:       "Charge Rate",
		StatType:   models.StatTypePrimary,
		MinValue:   10,
		MaxValue:   20,
		ValueKind:  models.StatValueKindFlat,
		Rarity:     models.StatRarityCommon,
	}
	if errCreate := conn.Create(&existing).Error; errCreate != nil {
		t.Fatalf("create stat: %v", errCreate)
	}
	moderation := NewModeration(conn, false)

	approveStat := func(min, max float64) {
		t.Helper()
		id, errCreate := moderation.CreateSubmission(context.Background(), CreateSubmissionParams{
			ArtifactID: artifact.ID,
			Payload: models.SubmissionPayload{
				RollableAttributes: []models.SubmissionStat{
					{Name: "Charge Rate", MinValue: min, MaxValue: max, Type: models.StatTypePrimary},
				},
			},
		})
		if errCreate != nil {
			t.Fatalf("create submission: %v", errCreate)
		}
		if _, errReview := moderation.Review(context.Background(), id, ReviewDecision{
			Status: models.SubmissionStatusApproved,
		}); errReview != nil {
			t.Fatalf("approve [%v,%v]: %v", min, max, errReview)
		}
	}

	// Overlapping observations accumulate to the union of all ranges; a
	// later observation with a higher minimum must not pull it back up.
	approveStat(5, 25)
	approveStat(8, 30)

	updated := reloadArtifact(t, conn, artifact.ID)
	if len(updated.RollableStats) != 1 {
		t.Fatalf("expected single stat row, got %d", len(updated.RollableStats))
	}
	if updated.RollableStats[0].MinValue != 5 || updated.RollableStats[0].MaxValue != 30 {
		t.Fatalf("expected union range [5,30], got [%v,%v]",
			updated.RollableStats[0].MinValue, updated.RollableStats[0].MaxValue)
	}
}

func TestReviewApproveSameNewKeyTwiceMergesInsteadOfFailing(t *testing.T) {
	conn := openTestDB(t)
	artifact := createTestArtifact(t, conn, models.Artifact{Name: "Blade Harness", Slot: 2})
	moderation := NewModeration(conn, false)

	submit := func(min, max float64) uint64 {
		t.Helper()
		id, errCreate := moderation.CreateSubmission(context.Background(), CreateSubmissionParams{
			ArtifactID: artifact.ID,
			Payload: models.SubmissionPayload{
				RollableAttributes: []models.SubmissionStat{
					{Name: "Reload Speed", MinValue: min, MaxValue: max, Type: models.StatTypeSecondary},
				},
			},
		})
		if errCreate != nil {
			t.Fatalf("create submission: %v", errCreate)
		}
		return id
	}
	first := submit(10, 20)
	second := submit(15, 30)

	for _, id := range []uint64{first, second} {
		if _, errReview := moderation.Review(context.Background(), id, ReviewDecision{
			Status: models.SubmissionStatusApproved,
		}); errReview != nil {
			t.Fatalf("approve submission %d: %v", id, errReview)
		}
	}

	updated := reloadArtifact(t, conn, artifact.ID)
	if len(updated.RollableStats) != 1 {
		t.Fatalf("expected both approvals to land on one row, got %d", len(updated.RollableStats))
	}
	if updated.RollableStats[0].MinValue != 10 || updated.RollableStats[0].MaxValue != 30 {
		t.Fatalf("expected union range [10,30], got [%v,%v]",
			updated.RollableStats[0].MinValue, updated.RollableStats[0].MaxValue)
	}
}

func TestReviewApproveMergesOnlySubmittedEffects(t *testing.T) {
	conn := openTestDB(t)
	artifact := createTestArtifact(t, conn, models.Artifact{
		Name:         "Fathom Plate",
		Slot:         1,
		SetEffect1pc: textPtr("+10% defense"),
		SetEffect2pc: textPtr("+20% defense"),
	})
	moderation := NewModeration(conn, false)

	id, errCreate := moderation.CreateSubmission(context.Background(), CreateSubmissionParams{
		ArtifactID: artifact.ID,
		Payload: models.SubmissionPayload{
			SetEffects: models.SubmissionSetEffects{Effect2: "+25% defense and stagger immunity"},
		},
	})
	if errCreate != nil {
		t.Fatalf("create submission: %v", errCreate)
	}
	if _, errReview := moderation.Review(context.Background(), id, ReviewDecision{
		Status: models.SubmissionStatusApproved,
	}); errReview != nil {
		t.Fatalf("review: %v", errReview)
	}

	updated := reloadArtifact(t, conn, artifact.ID)
	if updated.SetEffect1pc == nil || *updated.SetEffect1pc != "+10% defense" {
		t.Fatalf("expected effect1 preserved, got %v", updated.SetEffect1pc)
	}
	if updated.SetEffect2pc == nil || *updated.SetEffect2pc != "+25% defense and stagger immunity" {
		t.Fatalf("expected effect2 replaced, got %v", updated.SetEffect2pc)
	}
	if updated.SetEffect3pc != nil {
		t.Fatalf("expected effect3 untouched, got %v", updated.SetEffect3pc)
	}
	if !updated.Verified {
		t.Fatalf("expected artifact verified after effect merge")
	}
}

func TestReviewApproveStatsOnlyLeavesVerifiedUnset(t *testing.T) {
	conn := openTestDB(t)
	artifact := createTestArtifact(t, conn, models.Artifact{Name: "Gale Knot", Slot: 3})
	moderation := NewModeration(conn, false)

	id, errCreate := moderation.CreateSubmission(context.Background(), CreateSubmissionParams{
		ArtifactID: artifact.ID,
		Payload: models.SubmissionPayload{
			RollableAttributes: []models.SubmissionStat{
				{Name: "Recovery", MinValue: 1, MaxValue: 3, Type: models.StatTypeSecondary},
			},
		},
	})
	if errCreate != nil {
		t.Fatalf("create submission: %v", errCreate)
	}
	if _, errReview := moderation.Review(context.Background(), id, ReviewDecision{
		Status: models.SubmissionStatusApproved,
	}); errReview != nil {
		t.Fatalf("review: %v", errReview)
	}

	updated := reloadArtifact(t, conn, artifact.ID)
	if updated.Verified {
		t.Fatalf("expected verified to stay false without an effect merge")
	}
	if len(updated.RollableStats) != 1 {
		t.Fatalf("expected stat row inserted, got %d", len(updated.RollableStats))
	}
}

func TestReviewRejectsUnknownStatus(t *testing.T) {
	conn := openTestDB(t)
	artifact := createTestArtifact(t, conn, models.Artifact{Name: "Hollow Sigil", Slot: 4})
	moderation := NewModeration(conn, false)

	id, errCreate := moderation.CreateSubmission(context.Background(), CreateSubmissionParams{
		ArtifactID: artifact.ID,
		Payload: models.SubmissionPayload{
			SetEffects: models.SubmissionSetEffects{Effect1: "never to be merged"},
		},
	})
	if errCreate != nil {
		t.Fatalf("create submission: %v", errCreate)
	}

	_, errReview := moderation.Review(context.Background(), id, ReviewDecision{Status: "archived"})
	if !errors.Is(errReview, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", errReview)
	}

	submission := reloadSubmission(t, conn, id)
	if submission.Status != models.SubmissionStatusPending {
		t.Fatalf("expected submission left pending, got %q", submission.Status)
	}
	if submission.ReviewedAt != nil {
		t.Fatalf("expected reviewed_at unset, got %v", submission.ReviewedAt)
	}
	updated := reloadArtifact(t, conn, artifact.ID)
	if updated.Verified || updated.SetEffect1pc != nil {
		t.Fatalf("expected artifact untouched by invalid review")
	}
}

func TestReviewRejectThenReopenClearsDecision(t *testing.T) {
	conn := openTestDB(t)
	artifact := createTestArtifact(t, conn, models.Artifact{Name: "Aegis of Dawn", Slot: 1})
	moderation := NewModeration(conn, false)

	id, errCreate := moderation.CreateSubmission(context.Background(), CreateSubmissionParams{
		ArtifactID: artifact.ID,
		Payload:    models.SubmissionPayload{Notes: "blurry screenshot"},
	})
	if errCreate != nil {
		t.Fatalf("create submission: %v", errCreate)
	}

	rejected, errReview := moderation.Review(context.Background(), id, ReviewDecision{
		Status:     models.SubmissionStatusRejected,
		AdminNotes: "evidence unreadable",
		ReviewedBy: "admin",
	})
	if errReview != nil {
		t.Fatalf("reject: %v", errReview)
	}
	if rejected.Status != models.SubmissionStatusRejected {
		t.Fatalf("expected rejected status, got %q", rejected.Status)
	}
	if rejected.AdminNotes == nil || *rejected.AdminNotes != "evidence unreadable" {
		t.Fatalf("expected admin notes recorded, got %v", rejected.AdminNotes)
	}
	if rejected.ReviewedAt == nil {
		t.Fatalf("expected reviewed_at set on rejection")
	}

	reopened, errReopen := moderation.Review(context.Background(), id, ReviewDecision{
		Status: models.SubmissionStatusPending,
	})
	if errReopen != nil {
		t.Fatalf("reopen: %v", errReopen)
	}
	if reopened.Status != models.SubmissionStatusPending {
		t.Fatalf("expected pending after reopen, got %q", reopened.Status)
	}
	if reopened.ReviewedAt != nil {
		t.Fatalf("expected reviewed_at cleared on reopen, got %v", reopened.ReviewedAt)
	}
}

func TestReviewMissingSubmission(t *testing.T) {
	conn := openTestDB(t)
	moderation := NewModeration(conn, false)

	_, errReview := moderation.Review(context.Background(), 404, ReviewDecision{
		Status: models.SubmissionStatusApproved,
	})
	if !errors.Is(errReview, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", errReview)
	}
}

func TestDeleteKeepsCounterByDefault(t *testing.T) {
	conn := openTestDB(t)
	artifact := createTestArtifact(t, conn, models.Artifact{Name: "Blade Harness", Slot: 2})
	moderation := NewModeration(conn, false)

	id, errCreate := moderation.CreateSubmission(context.Background(), CreateSubmissionParams{
		ArtifactID: artifact.ID,
		Payload:    models.SubmissionPayload{Notes: "dup of an earlier report"},
	})
	if errCreate != nil {
		t.Fatalf("create submission: %v", errCreate)
	}
	if errDelete := moderation.Delete(context.Background(), id); errDelete != nil {
		t.Fatalf("delete: %v", errDelete)
	}

	updated := reloadArtifact(t, conn, artifact.ID)
	if updated.SubmissionCount != 1 {
		t.Fatalf("expected audit counter preserved at 1, got %d", updated.SubmissionCount)
	}
	if errFind := conn.First(&models.ArtifactSubmission{}, id).Error; !errors.Is(errFind, gorm.ErrRecordNotFound) {
		t.Fatalf("expected submission row gone, got %v", errFind)
	}
}

func TestDeleteStrictModeDecrementsCounter(t *testing.T) {
	conn := openTestDB(t)
	artifact := createTestArtifact(t, conn, models.Artifact{Name: "Crown of Echoes", Slot: 3})
	moderation := NewModeration(conn, true)

	id, errCreate := moderation.CreateSubmission(context.Background(), CreateSubmissionParams{
		ArtifactID: artifact.ID,
		Payload:    models.SubmissionPayload{Notes: "withdrawn by submitter"},
	})
	if errCreate != nil {
		t.Fatalf("create submission: %v", errCreate)
	}
	if errDelete := moderation.Delete(context.Background(), id); errDelete != nil {
		t.Fatalf("delete: %v", errDelete)
	}

	updated := reloadArtifact(t, conn, artifact.ID)
	if updated.SubmissionCount != 0 {
		t.Fatalf("expected counter back to 0 in strict mode, got %d", updated.SubmissionCount)
	}
}

func TestDeleteMissingSubmission(t *testing.T) {
	conn := openTestDB(t)
	moderation := NewModeration(conn, false)

	if errDelete := moderation.Delete(context.Background(), 404); !errors.Is(errDelete, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", errDelete)
	}
}
