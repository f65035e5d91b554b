package db

import (
	"fmt"

	"gorm.io/gorm"
)

var migrationStatements = []string{
	`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`,
	`DO $$
	BEGIN
		IF NOT EXISTS (SELECT 1 FROM pg_type WHERE typname = 'dispatch_submission_status') THEN
			CREATE TYPE dispatch_submission_status AS ENUM ('SUCCEEDED', 'PARTIAL', 'FAILED');
		END IF;
		IF NOT EXISTS (SELECT 1 FROM pg_type WHERE typname = 'dispatch_item_action') THEN
			CREATE TYPE dispatch_item_action AS ENUM ('CREATED', 'UPDATED', 'UNCHANGED', 'FAILED');
		END IF;
	END
	$$;`,
	`CREATE TABLE IF NOT EXISTS dispatch_submission (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		session_id UUID NOT NULL,
		user_id VARCHAR(64) NOT NULL,
		record_date DATE NOT NULL,
		shift VARCHAR(16) NOT NULL,
		mining_site_id VARCHAR(64) NOT NULL,
		status dispatch_submission_status NOT NULL,
		created_count INTEGER NOT NULL DEFAULT 0,
		updated_count INTEGER NOT NULL DEFAULT 0,
		unchanged_count INTEGER NOT NULL DEFAULT 0,
		failed_count INTEGER NOT NULL DEFAULT 0,
		production_record_id VARCHAR(64),
		production_overwrite BOOLEAN NOT NULL DEFAULT FALSE,
		error_message TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_dispatch_submission_record ON dispatch_submission (record_date, shift, mining_site_id);`,
	`CREATE INDEX IF NOT EXISTS idx_dispatch_submission_user ON dispatch_submission (user_id);`,
	`CREATE INDEX IF NOT EXISTS idx_dispatch_submission_created_at ON dispatch_submission (created_at DESC);`,
	`CREATE TABLE IF NOT EXISTS dispatch_submission_item (
		submission_id UUID NOT NULL REFERENCES dispatch_submission(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		hauling_activity_id VARCHAR(64),
		activity_number VARCHAR(64),
		truck_id VARCHAR(64) NOT NULL,
		operator_id VARCHAR(64) NOT NULL,
		action dispatch_item_action NOT NULL,
		message TEXT,
		PRIMARY KEY (submission_id, position)
	);`,
	`CREATE INDEX IF NOT EXISTS idx_dispatch_submission_item_activity ON dispatch_submission_item (hauling_activity_id) WHERE hauling_activity_id IS NOT NULL;`,
}

// Migrate creates the submission audit schema. Every statement is idempotent.
func Migrate(db *gorm.DB) error {
	for i, stmt := range migrationStatements {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}
