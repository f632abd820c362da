package models

import "time"

// Artifact is a canonical catalog entry for a piece of set gear.
type Artifact struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Name        string  `gorm:"type:text;not null;index"` // Display name.
	Description *string `gorm:"type:text"`                // Optional display text.
	Slot        int     `gorm:"not null;index"`           // Equipment slot category, 1..4.

	SetEffect1pc *string `gorm:"column:set_effect_1pc;type:text"` // Bonus at 1 piece equipped.
	SetEffect2pc *string `gorm:"column:set_effect_2pc;type:text"` // Bonus at 2 pieces equipped.
	SetEffect3pc *string `gorm:"column:set_effect_3pc;type:text"` // Bonus at 3 pieces equipped.
	SetEffect4pc *string `gorm:"column:set_effect_4pc;type:text"` // Bonus at 4 pieces equipped.
	SetEffect5pc *string `gorm:"column:set_effect_5pc;type:text"` // Bonus at 5 pieces equipped.

	Verified        bool `gorm:"not null;default:false"` // Set when community data was merged in.
	SubmissionCount int  `gorm:"not null;default:0"`     // Number of submissions ever filed against this artifact.

	RollableStats []RollableStat `gorm:"foreignKey:ArtifactID"` // Observed stat ranges.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

// SetEffects returns the five tier fields in tier order.
func (a *Artifact) SetEffects() [5]*string {
	return [5]*string{a.SetEffect1pc, a.SetEffect2pc, a.SetEffect3pc, a.SetEffect4pc, a.SetEffect5pc}
}

// HasSetEffects reports whether any tier field is non-empty.
func (a *Artifact) HasSetEffects() bool {
	for _, effect := range a.SetEffects() {
		if effect != nil && *effect != "" {
			return true
		}
	}
	return false
}
