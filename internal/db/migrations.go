package db

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// Statements use {{uuid}} and {{timestamp}} for the column types that differ
// between dialects; everything else is portable between postgres and sqlite.
var migrationStatements = []string{
	`CREATE TABLE IF NOT EXISTS contracts (
		id {{uuid}} PRIMARY KEY,
		contract_number VARCHAR(64) NOT NULL,
		ward VARCHAR(128) NOT NULL,
		owner_name VARCHAR(255) NOT NULL,
		sheet_number VARCHAR(64) NOT NULL,
		plot_number VARCHAR(64) NOT NULL,
		is_branch BOOLEAN NOT NULL DEFAULT FALSE,
		status VARCHAR(16) NOT NULL DEFAULT 'ACTIVE'
			CHECK (status IN ('ACTIVE', 'LIQUIDATED', 'CANCELLED')),
		notes TEXT,
		cancellation_reason TEXT,
		idempotency_key VARCHAR(128),
		search_text TEXT NOT NULL DEFAULT '',
		created_at {{timestamp}} NOT NULL,
		updated_at {{timestamp}} NOT NULL,
		CHECK ((status = 'CANCELLED') = (cancellation_reason IS NOT NULL))
	);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_contracts_contract_number ON contracts (contract_number);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_contracts_idempotency_key ON contracts (idempotency_key);`,
	`CREATE INDEX IF NOT EXISTS idx_contracts_status ON contracts (status);`,
	`CREATE INDEX IF NOT EXISTS idx_contracts_created_at ON contracts (created_at);`,
	`CREATE TABLE IF NOT EXISTS liquidation_records (
		id {{uuid}} PRIMARY KEY,
		contract_id {{uuid}} NOT NULL REFERENCES contracts(id) ON DELETE CASCADE,
		liquidation_number VARCHAR(64) NOT NULL,
		liquidation_date {{timestamp}} NOT NULL,
		is_cancelled BOOLEAN NOT NULL DEFAULT FALSE,
		cancellation_reason TEXT,
		search_text TEXT NOT NULL DEFAULT '',
		created_at {{timestamp}} NOT NULL,
		CHECK (is_cancelled = (cancellation_reason IS NOT NULL))
	);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_liquidation_records_number ON liquidation_records (liquidation_number);`,
	`CREATE INDEX IF NOT EXISTS idx_liquidation_records_contract ON liquidation_records (contract_id, created_at);`,
	`CREATE TABLE IF NOT EXISTS yearly_sequence_counters (
		series_name VARCHAR(32) NOT NULL,
		year INTEGER NOT NULL,
		last_value BIGINT NOT NULL DEFAULT 0 CHECK (last_value >= 0),
		PRIMARY KEY (series_name, year)
	);`,
	`CREATE TABLE IF NOT EXISTS history_entries (
		id {{uuid}} PRIMARY KEY,
		contract_id {{uuid}} NOT NULL REFERENCES contracts(id) ON DELETE CASCADE,
		timestamp {{timestamp}} NOT NULL,
		action VARCHAR(64) NOT NULL,
		details TEXT
	);`,
	`CREATE INDEX IF NOT EXISTS idx_history_entries_contract ON history_entries (contract_id, timestamp);`,
}

var dialectTypes = map[string]*strings.Replacer{
	"postgres": strings.NewReplacer("{{uuid}}", "UUID", "{{timestamp}}", "TIMESTAMPTZ"),
	"sqlite":   strings.NewReplacer("{{uuid}}", "TEXT", "{{timestamp}}", "TIMESTAMP"),
}

// Migrate applies the schema. Every statement is idempotent so it runs on each
// start.
func Migrate(ctx context.Context, database *gorm.DB) error {
	dialect := database.Dialector.Name()
	replacer, ok := dialectTypes[dialect]
	if !ok {
		return fmt.Errorf("no migrations for dialect %q", dialect)
	}
	for i, stmt := range migrationStatements {
		if err := database.WithContext(ctx).Exec(replacer.Replace(stmt)).Error; err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}
