// Package records provides the file and SQL implementations of the record
// repository.
package records

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/politifan/school-peaky-minds/internal/domain/records"
	"github.com/politifan/school-peaky-minds/internal/infrastructure/observability/logging"
	"github.com/politifan/school-peaky-minds/internal/infrastructure/persistence/database"
	"github.com/politifan/school-peaky-minds/internal/infrastructure/persistence/jsonfile"
	"github.com/politifan/school-peaky-minds/internal/infrastructure/security"
	"github.com/politifan/school-peaky-minds/pkg/clock"
)

const createAttempts = 5

// FileRepository stores each record as a JSON file under <root>/<kind>s/.
type FileRepository struct {
	root   string
	clock  clock.Clock
	logger *logging.ChanneledLogger

	mu    sync.Mutex
	locks map[string]*recordLock
}

// recordLock serializes writers of one record. refs counts holders and
// waiters; the entry leaves the map when it drops to zero.
type recordLock struct {
	sync.Mutex
	refs int
}

// NewFileRepository creates a repository rooted at root.
func NewFileRepository(root string, clk clock.Clock, logger *logging.ChanneledLogger) *FileRepository {
	return &FileRepository{
		root:   root,
		clock:  clk,
		logger: logger,
		locks:  make(map[string]*recordLock),
	}
}

func (r *FileRepository) dir(kind records.Kind) string {
	return filepath.Join(r.root, kind.Dir())
}

func (r *FileRepository) path(kind records.Kind, id string) (string, error) {
	if !kind.Valid() {
		return "", fmt.Errorf("unknown kind %q", kind)
	}
	if !kind.ValidID(id) {
		return "", records.ErrInvalidID
	}
	return filepath.Join(r.dir(kind), id), nil
}

func (r *FileRepository) lock(kind records.Kind, id string) (unlock func()) {
	key := string(kind) + "/" + id
	r.mu.Lock()
	l, ok := r.locks[key]
	if !ok {
		l = &recordLock{}
		r.locks[key] = l
	}
	l.refs++
	r.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		r.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(r.locks, key)
		}
		r.mu.Unlock()
	}
}

// Create writes doc under a fresh identifier and returns it.
func (r *FileRepository) Create(ctx context.Context, kind records.Kind, doc records.Document) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if !kind.Valid() {
		return "", fmt.Errorf("unknown kind %q", kind)
	}
	start := time.Now()

	data, err := jsonfile.Marshal(doc.WithoutFile())
	if err != nil {
		return "", fmt.Errorf("failed to encode %s: %w", kind, err)
	}

	for attempt := 0; attempt < createAttempts; attempt++ {
		suffix, err := security.GenerateHex(4)
		if err != nil {
			return "", err
		}
		id := kind.NewID(r.clock.Now().Unix(), suffix)
		path := filepath.Join(r.dir(kind), id)
		if _, err := os.Stat(path); err == nil {
			continue
		}
		if err := jsonfile.WriteBytes(path, data); err != nil {
			r.logger.Records().Error("Failed to write record", "kind", kind, "id", id, "error", err.Error())
			return "", err
		}
		r.logger.Records().Info("Record created", "kind", kind, "id", id, "duration", time.Since(start))
		return id, nil
	}
	return "", fmt.Errorf("failed to allocate %s id after %d attempts", kind, createAttempts)
}

// Update merges patch into the stored document.
func (r *FileRepository) Update(ctx context.Context, kind records.Kind, id string, patch records.Patch) (bool, error) {
	return r.Mutate(ctx, kind, id, func(doc records.Document) bool {
		doc.Apply(patch)
		return true
	})
}

// Mutate holds the record lock across read, fn and write.
func (r *FileRepository) Mutate(ctx context.Context, kind records.Kind, id string, fn func(records.Document) bool) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	path, err := r.path(kind, id)
	if err != nil {
		return false, err
	}

	unlock := r.lock(kind, id)
	defer unlock()

	doc, ok := r.read(path)
	if !ok {
		return false, nil
	}
	if !fn(doc) {
		return false, nil
	}

	data, err := jsonfile.Marshal(doc.WithoutFile())
	if err != nil {
		return false, fmt.Errorf("failed to encode %s: %w", id, err)
	}
	if err := jsonfile.WriteBytes(path, data); err != nil {
		r.logger.Records().Error("Failed to update record", "kind", kind, "id", id, "error", err.Error())
		return false, err
	}
	r.logger.Records().Debug("Record updated", "kind", kind, "id", id)
	return true, nil
}

// Load reads one record with its filename injected.
func (r *FileRepository) Load(ctx context.Context, kind records.Kind, id string) (records.Document, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	path, err := r.path(kind, id)
	if err != nil {
		return nil, false, err
	}
	doc, ok := r.read(path)
	if !ok {
		return nil, false, nil
	}
	doc[records.FieldFile] = id
	return doc, true, nil
}

// LoadAll reads every record of kind, newest first. Corrupt files are skipped.
func (r *FileRepository) LoadAll(ctx context.Context, kind records.Kind) ([]records.Document, error) {
	start := time.Now()
	ids, err := r.IDs(ctx, kind)
	if err != nil {
		return nil, err
	}

	docs := make([]records.Document, 0, len(ids))
	for _, id := range ids {
		doc, ok := r.read(filepath.Join(r.dir(kind), id))
		if !ok {
			continue
		}
		doc[records.FieldFile] = id
		docs = append(docs, doc)
	}
	records.SortNewestFirst(docs)

	database.CheckAndLogSlowQuery(r.logger, "SCAN_"+string(kind), time.Since(start))
	return docs, nil
}

// IDs lists record filenames of kind in name order.
func (r *FileRepository) IDs(ctx context.Context, kind records.Kind) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !kind.Valid() {
		return nil, fmt.Errorf("unknown kind %q", kind)
	}
	entries, err := os.ReadDir(r.dir(kind))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list %s: %w", kind, err)
	}
	ids := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, kind.Prefix()) || !strings.HasSuffix(name, ".json") {
			continue
		}
		ids = append(ids, name)
	}
	return ids, nil
}

// read returns ok=false for missing, unreadable or non-object files.
func (r *FileRepository) read(path string) (records.Document, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			r.logger.Records().Warn("Failed to read record", "path", path, "error", err.Error())
		}
		return nil, false
	}
	doc, err := records.DecodeDocument(data)
	if err != nil {
		r.logger.Records().Warn("Skipping corrupt record", "path", path, "error", err.Error())
		return nil, false
	}
	return doc, true
}
