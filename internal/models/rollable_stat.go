package models

import "time"

// StatType partitions rollable stats into their attribute group.
type StatType string

// StatType values.
const (
	// StatTypePrimary marks a primary attribute roll.
	StatTypePrimary StatType = "primary"
	// StatTypeSecondary marks a secondary attribute roll.
	StatTypeSecondary StatType = "secondary"
)

// ValidStatType reports whether t is a known stat type.
func ValidStatType(t StatType) bool {
	return t == StatTypePrimary || t == StatTypeSecondary
}

// StatValueKind describes how a stat value is applied.
type StatValueKind string

// StatValueKind values.
const (
	StatValueKindPercentage StatValueKind = "percentage"
	StatValueKindFlat       StatValueKind = "flat"
	StatValueKindMultiplier StatValueKind = "multiplier"
)

// StatRarity is the rarity tier of a rollable stat.
type StatRarity string

// StatRarity values.
const (
	StatRarityCommon    StatRarity = "common"
	StatRarityRare      StatRarity = "rare"
	StatRarityEpic      StatRarity = "epic"
	StatRarityLegendary StatRarity = "legendary"
)

// RollableStat is the observed [min,max] range of one named attribute on an
// artifact. One row exists per (artifact, name, stat type); approvals widen
// the range, never narrow it.
type RollableStat struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	ArtifactID uint64        `gorm:"not null;uniqueIndex:idx_rollable_stats_key"`                  // Owning artifact.
	Name       string        `gorm:"type:text;not null;uniqueIndex:idx_rollable_stats_key"`       // Attribute name.
	StatType   StatType      `gorm:"type:varchar(16);not null;uniqueIndex:idx_rollable_stats_key"` // primary or secondary.
	MinValue   float64       `gorm:"not null"`                                                     // Lowest observed roll.
	MaxValue   float64       `gorm:"not null"`                                                     // Highest observed roll.
	ValueKind  StatValueKind `gorm:"type:varchar(16);not null;default:'flat'"`                     // percentage, flat or multiplier.
	Rarity     StatRarity    `gorm:"type:varchar(16);not null;default:'common'"`                   // Rarity tier.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
}
