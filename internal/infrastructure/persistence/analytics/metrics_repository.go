// Package analytics persists the site metrics document.
package analytics

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"
	"time"

	"github.com/politifan/school-peaky-minds/internal/domain/analytics"
	"github.com/politifan/school-peaky-minds/internal/infrastructure/observability/logging"
	"github.com/politifan/school-peaky-minds/internal/infrastructure/persistence/jsonfile"
)

// FileMetricsRepository keeps metrics.json; every update is a locked
// read-modify-write.
type FileMetricsRepository struct {
	path   string
	logger *logging.ChanneledLogger
	mu     sync.Mutex
}

// NewFileMetricsRepository creates a repository for the file at path.
func NewFileMetricsRepository(path string, logger *logging.ChanneledLogger) *FileMetricsRepository {
	return &FileMetricsRepository{path: path, logger: logger}
}

// Load returns a copy of the stored document, defaulted when absent or damaged.
func (r *FileMetricsRepository) Load(ctx context.Context) (*analytics.Metrics, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.read()
}

// Update applies fn to the stored document and writes it back.
func (r *FileMetricsRepository) Update(ctx context.Context, fn func(*analytics.Metrics)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	start := time.Now()
	r.mu.Lock()
	defer r.mu.Unlock()

	m, err := r.read()
	if err != nil {
		return err
	}
	fn(m)
	if err := jsonfile.Write(r.path, m); err != nil {
		r.logger.Analytics().Error("Failed to save metrics", "error", err.Error())
		return fmt.Errorf("failed to save metrics: %w", err)
	}
	r.logger.Analytics().Debug("Metrics updated", "duration", time.Since(start))
	return nil
}

func (r *FileMetricsRepository) read() (*analytics.Metrics, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return analytics.New(), nil
		}
		return nil, fmt.Errorf("failed to read metrics: %w", err)
	}
	return analytics.Decode(data), nil
}
