// Package database holds the schema of the SQL record backend.
package database

import (
	"context"
	"database/sql"
	"fmt"
)

// TableCreator builds the records schema.
type TableCreator struct{}

// NewTableCreator creates a new TableCreator.
func NewTableCreator() *TableCreator {
	return &TableCreator{}
}

// CreateSchema creates tables and indexes if they do not exist.
func (tc *TableCreator) CreateSchema(ctx context.Context, db *sql.DB) error {
	for _, tableSQL := range tables {
		if _, err := db.ExecContext(ctx, tableSQL); err != nil {
			return fmt.Errorf("failed to create table for query [%s]: %w", tableSQL, err)
		}
	}
	for _, indexSQL := range indexes {
		if _, err := db.ExecContext(ctx, indexSQL); err != nil {
			return fmt.Errorf("failed to create index for query [%s]: %w", indexSQL, err)
		}
	}
	return nil
}

var tables = []string{
	`CREATE TABLE IF NOT EXISTS records (
		kind TEXT NOT NULL,
		id TEXT NOT NULL,
		timestamp INTEGER NOT NULL DEFAULT 0,
		body TEXT NOT NULL,
		updated_at INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (kind, id)
	)`,
}

var indexes = []string{
	`CREATE INDEX IF NOT EXISTS idx_records_kind_timestamp ON records(kind, timestamp DESC)`,
}
