package models

import (
	"time"

	"gorm.io/datatypes"
)

// SubmissionStatus is the moderation state of a community submission.
type SubmissionStatus string

// SubmissionStatus values. NeedsReview is reserved in the schema but is not
// reachable through the review endpoint.
const (
	SubmissionStatusPending     SubmissionStatus = "pending"
	SubmissionStatusApproved    SubmissionStatus = "approved"
	SubmissionStatusRejected    SubmissionStatus = "rejected"
	SubmissionStatusNeedsReview SubmissionStatus = "needs_review"
)

// ValidReviewStatus reports whether s is an allowed review decision target.
func ValidReviewStatus(s SubmissionStatus) bool {
	return s == SubmissionStatusPending || s == SubmissionStatusApproved || s == SubmissionStatusRejected
}

// ArtifactSubmission is a community-contributed candidate update to one
// artifact, held for admin review.
type ArtifactSubmission struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	ArtifactID uint64   `gorm:"not null;index"`        // Target artifact.
	Artifact   Artifact `gorm:"foreignKey:ArtifactID"` // Target artifact relation.

	SubmitterName    *string `gorm:"type:text"` // Optional username; absent means anonymous.
	SubmitterContact *string `gorm:"type:text"` // Optional email or other contact.

	SubmissionData datatypes.JSON `gorm:"not null"` // Candidate set effects, stats and notes.

	EvidenceNotes    *string        `gorm:"type:text"` // Free-text evidence notes.
	EvidenceVideoURL *string        `gorm:"type:text"` // Optional external video link.
	EvidenceFiles    datatypes.JSON // Stored file references: name, url, size, type.

	Status SubmissionStatus `gorm:"type:varchar(16);not null;default:'pending';index"` // Moderation state.

	AdminNotes *string    `gorm:"type:text"` // Reviewer notes, set on decision.
	ReviewedBy *string    `gorm:"type:text"` // Reviewer identity, set on decision.
	ReviewedAt *time.Time // Decision time; null while pending.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Intake timestamp.
}

// EvidenceFile is one stored evidence upload reference.
type EvidenceFile struct {
	Name string `json:"name"` // Original filename.
	URL  string `json:"url"`  // Public URL of the stored object.
	Size int64  `json:"size"` // Size in bytes.
	Type string `json:"type"` // MIME type as submitted.
}

// SubmissionSetEffects carries candidate tier bonus text. Empty fields mean
// "not submitted" and are never merged onto the artifact.
type SubmissionSetEffects struct {
	Effect1 string `json:"effect1,omitempty"`
	Effect2 string `json:"effect2,omitempty"`
	Effect3 string `json:"effect3,omitempty"`
	Effect4 string `json:"effect4,omitempty"`
	Effect5 string `json:"effect5,omitempty"`
}

// Fields returns the tier fields in tier order.
func (e SubmissionSetEffects) Fields() [5]string {
	return [5]string{e.Effect1, e.Effect2, e.Effect3, e.Effect4, e.Effect5}
}

// SubmissionStat is one candidate stat observation.
type SubmissionStat struct {
	Name      string        `json:"name"`
	MinValue  float64       `json:"minValue"`
	MaxValue  float64       `json:"maxValue"`
	Type      StatType      `json:"type"`                // primary or secondary.
	ValueKind StatValueKind `json:"valueKind,omitempty"` // Defaults to flat when absent.
	Rarity    StatRarity    `json:"rarity,omitempty"`    // Defaults to common when absent.
}

// SubmissionPayload is the decoded shape of SubmissionData.
type SubmissionPayload struct {
	SetEffects         SubmissionSetEffects `json:"setEffects"`
	RollableAttributes []SubmissionStat     `json:"rollableAttributes"`
	Notes              string               `json:"notes,omitempty"`
}
