package db

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/destinyrisingdb/artifactdb/internal/models"
)

// Migrate brings the schema up to date. Safe to run on every start.
func Migrate(conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("db: nil connection")
	}

	if errAuto := conn.AutoMigrate(
		&models.Artifact{},
		&models.RollableStat{},
		&models.ArtifactSubmission{},
	); errAuto != nil {
		return fmt.Errorf("db: migrate: %w", errAuto)
	}

	// AutoMigrate does not rename legacy indexes; make sure the widen-upsert
	// key exists even on databases created before the composite index was
	// declared on the model.
	migrator := conn.Migrator()
	if !migrator.HasIndex(&models.RollableStat{}, "idx_rollable_stats_key") {
		if errIdx := conn.Exec(
			"CREATE UNIQUE INDEX IF NOT EXISTS idx_rollable_stats_key ON rollable_stats (artifact_id, name, stat_type)",
		).Error; errIdx != nil {
			return fmt.Errorf("db: create rollable stat index: %w", errIdx)
		}
	}

	return nil
}
