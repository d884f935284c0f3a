// Package user provides the file-backed account, login code and whitelist stores.
package user

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/politifan/school-peaky-minds/internal/domain/user"
	"github.com/politifan/school-peaky-minds/internal/infrastructure/observability/logging"
	"github.com/politifan/school-peaky-minds/internal/infrastructure/persistence/jsonfile"
)

// FileUserRepository keeps accounts in users.json keyed by account id.
type FileUserRepository struct {
	path   string
	logger *logging.ChanneledLogger
	mu     sync.Mutex
}

// NewFileUserRepository creates a repository for the file at path.
func NewFileUserRepository(path string, logger *logging.ChanneledLogger) *FileUserRepository {
	return &FileUserRepository{path: path, logger: logger}
}

func (r *FileUserRepository) read() (map[string]user.User, error) {
	users := map[string]user.User{}
	if _, err := jsonfile.Read(r.path, &users); err != nil {
		r.logger.Auth().Warn("Users file unreadable, starting empty", "error", err.Error())
		return map[string]user.User{}, nil
	}
	if users == nil {
		users = map[string]user.User{}
	}
	return users, nil
}

// Upsert stores u. An existing account keeps its creation time and any
// profile field u leaves empty.
func (r *FileUserRepository) Upsert(ctx context.Context, u user.User) (user.User, error) {
	if err := ctx.Err(); err != nil {
		return user.User{}, err
	}
	if u.ID == "" {
		return user.User{}, fmt.Errorf("user id is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	users, err := r.read()
	if err != nil {
		return user.User{}, err
	}
	if existing, ok := users[u.ID]; ok {
		u.CreatedAt = existing.CreatedAt
		if u.Email == "" {
			u.Email = existing.Email
		}
		if u.Name == "" {
			u.Name = existing.Name
		}
		if u.Username == "" {
			u.Username = existing.Username
		}
	}
	users[u.ID] = u
	if err := jsonfile.Write(r.path, users); err != nil {
		return user.User{}, fmt.Errorf("failed to save users: %w", err)
	}
	r.logger.Auth().Debug("User saved", "id", u.ID, "provider", u.Provider)
	return u, nil
}

// FindByID looks up one account.
func (r *FileUserRepository) FindByID(ctx context.Context, id string) (user.User, bool, error) {
	if err := ctx.Err(); err != nil {
		return user.User{}, false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	users, err := r.read()
	if err != nil {
		return user.User{}, false, err
	}
	u, ok := users[id]
	return u, ok, nil
}

// List returns every account ordered by id.
func (r *FileUserRepository) List(ctx context.Context) ([]user.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	users, err := r.read()
	if err != nil {
		return nil, err
	}
	out := make([]user.User, 0, len(users))
	for id, u := range users {
		if u.ID == "" {
			u.ID = id
		}
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
