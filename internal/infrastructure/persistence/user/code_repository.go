package user

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/politifan/school-peaky-minds/internal/domain/user"
	"github.com/politifan/school-peaky-minds/internal/infrastructure/observability/logging"
	"github.com/politifan/school-peaky-minds/internal/infrastructure/persistence/jsonfile"
)

// FileCodeRepository keeps pending login codes keyed by email.
type FileCodeRepository struct {
	path   string
	logger *logging.ChanneledLogger
	mu     sync.Mutex
}

// NewFileCodeRepository creates a repository for the file at path.
func NewFileCodeRepository(path string, logger *logging.ChanneledLogger) *FileCodeRepository {
	return &FileCodeRepository{path: path, logger: logger}
}

func (r *FileCodeRepository) read() map[string]user.LoginCode {
	codes := map[string]user.LoginCode{}
	if _, err := jsonfile.Read(r.path, &codes); err != nil {
		r.logger.Auth().Warn("Codes file unreadable, starting empty", "error", err.Error())
		return map[string]user.LoginCode{}
	}
	if codes == nil {
		codes = map[string]user.LoginCode{}
	}
	return codes
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Put replaces the pending code for email.
func (r *FileCodeRepository) Put(ctx context.Context, email string, code user.LoginCode) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	codes := r.read()
	codes[normalizeEmail(email)] = code
	if err := jsonfile.Write(r.path, codes); err != nil {
		return fmt.Errorf("failed to save codes: %w", err)
	}
	return nil
}

// Take removes and returns the pending code for email.
func (r *FileCodeRepository) Take(ctx context.Context, email string) (user.LoginCode, bool, error) {
	if err := ctx.Err(); err != nil {
		return user.LoginCode{}, false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	codes := r.read()
	key := normalizeEmail(email)
	code, ok := codes[key]
	if !ok {
		return user.LoginCode{}, false, nil
	}
	delete(codes, key)
	if err := jsonfile.Write(r.path, codes); err != nil {
		return user.LoginCode{}, false, fmt.Errorf("failed to save codes: %w", err)
	}
	return code, true, nil
}
