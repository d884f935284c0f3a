package records

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/politifan/school-peaky-minds/internal/domain/records"
	"github.com/politifan/school-peaky-minds/internal/infrastructure/observability/logging"
	"github.com/politifan/school-peaky-minds/internal/infrastructure/persistence/database"
	"github.com/politifan/school-peaky-minds/internal/infrastructure/persistence/jsonfile"
	"github.com/politifan/school-peaky-minds/internal/infrastructure/security"
	"github.com/politifan/school-peaky-minds/pkg/clock"
)

// SQLRepository stores records as JSON bodies in the records table.
type SQLRepository struct {
	db     *database.DB
	clock  clock.Clock
	logger *logging.ChanneledLogger
}

// NewSQLRepository creates a repository over an open database with the schema applied.
func NewSQLRepository(db *database.DB, clk clock.Clock, logger *logging.ChanneledLogger) *SQLRepository {
	return &SQLRepository{db: db, clock: clk, logger: logger}
}

func timestampOf(doc records.Document) int64 {
	ts, _ := doc.Timestamp()
	return ts
}

// Create inserts doc under a fresh identifier.
func (r *SQLRepository) Create(ctx context.Context, kind records.Kind, doc records.Document) (string, error) {
	if !kind.Valid() {
		return "", fmt.Errorf("unknown kind %q", kind)
	}
	const query = `INSERT INTO records (kind, id, timestamp, body, updated_at) VALUES (?, ?, ?, ?, ?)`

	body, err := jsonfile.Marshal(doc.WithoutFile())
	if err != nil {
		return "", fmt.Errorf("failed to encode %s: %w", kind, err)
	}

	start := time.Now()
	for attempt := 0; attempt < createAttempts; attempt++ {
		suffix, err := security.GenerateHex(4)
		if err != nil {
			return "", err
		}
		now := r.clock.Now().Unix()
		id := kind.NewID(now, suffix)

		exists, err := r.exists(ctx, kind, id)
		if err != nil {
			return "", err
		}
		if exists {
			continue
		}
		if _, err := r.db.ExecContext(ctx, query, string(kind), id, timestampOf(doc), string(body), now); err != nil {
			r.logger.Database().Error("Failed to insert record", "kind", kind, "id", id, "error", err.Error())
			return "", fmt.Errorf("failed to insert %s: %w", kind, err)
		}
		duration := time.Since(start)
		r.logger.Records().Info("Record created", "kind", kind, "id", id, "duration", duration)
		database.CheckAndLogSlowQuery(r.logger, query, duration)
		return id, nil
	}
	return "", fmt.Errorf("failed to allocate %s id after %d attempts", kind, createAttempts)
}

func (r *SQLRepository) exists(ctx context.Context, kind records.Kind, id string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, `SELECT 1 FROM records WHERE kind = ? AND id = ?`, string(kind), id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Update merges patch into the stored document.
func (r *SQLRepository) Update(ctx context.Context, kind records.Kind, id string, patch records.Patch) (bool, error) {
	return r.Mutate(ctx, kind, id, func(doc records.Document) bool {
		doc.Apply(patch)
		return true
	})
}

// Mutate reads and rewrites the document inside one transaction.
func (r *SQLRepository) Mutate(ctx context.Context, kind records.Kind, id string, fn func(records.Document) bool) (bool, error) {
	if !kind.ValidID(id) {
		return false, records.ErrInvalidID
	}
	start := time.Now()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var body string
	err = tx.QueryRowContext(ctx, `SELECT body FROM records WHERE kind = ? AND id = ?`, string(kind), id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to load %s: %w", id, err)
	}

	doc, err := records.DecodeDocument([]byte(body))
	if err != nil {
		r.logger.Records().Warn("Skipping corrupt record", "kind", kind, "id", id, "error", err.Error())
		return false, nil
	}
	if !fn(doc) {
		return false, nil
	}

	updated, err := jsonfile.Marshal(doc.WithoutFile())
	if err != nil {
		return false, fmt.Errorf("failed to encode %s: %w", id, err)
	}
	const query = `UPDATE records SET body = ?, timestamp = ?, updated_at = ? WHERE kind = ? AND id = ?`
	if _, err := tx.ExecContext(ctx, query, string(updated), timestampOf(doc), r.clock.Now().Unix(), string(kind), id); err != nil {
		return false, fmt.Errorf("failed to update %s: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit %s: %w", id, err)
	}

	database.CheckAndLogSlowQuery(r.logger, query, time.Since(start))
	r.logger.Records().Debug("Record updated", "kind", kind, "id", id)
	return true, nil
}

// Load reads one record with its identifier injected.
func (r *SQLRepository) Load(ctx context.Context, kind records.Kind, id string) (records.Document, bool, error) {
	if !kind.ValidID(id) {
		return nil, false, records.ErrInvalidID
	}
	var body string
	err := r.db.QueryRowContext(ctx, `SELECT body FROM records WHERE kind = ? AND id = ?`, string(kind), id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to load %s: %w", id, err)
	}
	doc, err := records.DecodeDocument([]byte(body))
	if err != nil {
		r.logger.Records().Warn("Skipping corrupt record", "kind", kind, "id", id, "error", err.Error())
		return nil, false, nil
	}
	doc[records.FieldFile] = id
	return doc, true, nil
}

// LoadAll reads every record of kind, newest first.
func (r *SQLRepository) LoadAll(ctx context.Context, kind records.Kind) ([]records.Document, error) {
	const query = `SELECT id, body FROM records WHERE kind = ? ORDER BY id`
	start := time.Now()

	rows, err := r.db.QueryContext(ctx, query, string(kind))
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", kind, err)
	}
	defer rows.Close()

	docs := []records.Document{}
	for rows.Next() {
		var id, body string
		if err := rows.Scan(&id, &body); err != nil {
			return nil, err
		}
		doc, err := records.DecodeDocument([]byte(body))
		if err != nil {
			r.logger.Records().Warn("Skipping corrupt record", "kind", kind, "id", id, "error", err.Error())
			continue
		}
		doc[records.FieldFile] = id
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	records.SortNewestFirst(docs)

	database.CheckAndLogSlowQuery(r.logger, "SCAN_"+string(kind), time.Since(start))
	return docs, nil
}

// IDs lists identifiers of kind in name order.
func (r *SQLRepository) IDs(ctx context.Context, kind records.Kind) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM records WHERE kind = ? ORDER BY id`, string(kind))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
