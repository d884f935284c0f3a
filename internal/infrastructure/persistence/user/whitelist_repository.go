package user

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/politifan/school-peaky-minds/internal/domain/user"
	"github.com/politifan/school-peaky-minds/internal/infrastructure/observability/logging"
	"github.com/politifan/school-peaky-minds/internal/infrastructure/persistence/jsonfile"
)

// FileWhitelistRepository caches the whitelist file and reloads it when the
// file changes on disk.
type FileWhitelistRepository struct {
	path   string
	admin  int64
	logger *logging.ChanneledLogger

	mu      sync.RWMutex
	current user.Whitelist
}

// NewFileWhitelistRepository loads path, creating it with the default list
// when missing, and persists the normalized order if it changed.
func NewFileWhitelistRepository(path string, admin int64, logger *logging.ChanneledLogger) (*FileWhitelistRepository, error) {
	r := &FileWhitelistRepository{path: path, admin: admin, logger: logger}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := jsonfile.Write(path, user.DefaultWhitelist); err != nil {
			logger.Bot().Warn("Failed to create whitelist file", "path", path, "error", err.Error())
		}
	}
	if err := r.Reload(); err != nil {
		return nil, err
	}
	return r, nil
}

// Load returns a copy of the cached list.
func (r *FileWhitelistRepository) Load(ctx context.Context) (user.Whitelist, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(user.Whitelist, len(r.current))
	copy(out, r.current)
	return out, nil
}

// Save normalizes ids, writes them and updates the cache.
func (r *FileWhitelistRepository) Save(ctx context.Context, ids []int64) (user.Whitelist, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	list, _ := user.Normalize(ids, r.admin)

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := jsonfile.Write(r.path, []int64(list)); err != nil {
		return nil, fmt.Errorf("failed to save whitelist: %w", err)
	}
	r.current = list
	r.logger.Bot().Info("Whitelist saved", "ids", strings.Join(list.Strings(), ","))
	return append(user.Whitelist(nil), list...), nil
}

// Reload rereads the file. Unreadable content falls back to the defaults.
func (r *FileWhitelistRepository) Reload() error {
	ids := r.readIDs()
	list, changed := user.Normalize(ids, r.admin)

	r.mu.Lock()
	defer r.mu.Unlock()
	if changed {
		if err := jsonfile.Write(r.path, []int64(list)); err != nil {
			r.logger.Bot().Warn("Failed to persist whitelist update", "error", err.Error())
		}
	}
	r.current = list
	return nil
}

func (r *FileWhitelistRepository) readIDs() []int64 {
	data, err := os.ReadFile(r.path)
	if err != nil {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw []any
	if err := dec.Decode(&raw); err != nil {
		r.logger.Bot().Warn("Whitelist file is not a list, using defaults", "error", err.Error())
		return nil
	}
	ids := make([]int64, 0, len(raw))
	for _, item := range raw {
		switch v := item.(type) {
		case json.Number:
			if id, err := v.Int64(); err == nil {
				ids = append(ids, id)
			}
		case string:
			if id, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
				ids = append(ids, id)
			}
		}
	}
	return ids
}

// Watch reloads the list whenever the file is written or replaced, until ctx
// is cancelled. The directory is watched so atomic renames are seen.
func (r *FileWhitelistRepository) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create whitelist watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(r.path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	name := filepath.Base(r.path)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if err := r.Reload(); err != nil {
				r.logger.Bot().Warn("Whitelist reload failed", "error", err.Error())
				continue
			}
			r.logger.Bot().Debug("Whitelist reloaded", "op", event.Op.String())
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			r.logger.Bot().Warn("Whitelist watcher error", "error", err.Error())
		}
	}
}
