package user

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/politifan/school-peaky-minds/internal/domain/user"
	"github.com/politifan/school-peaky-minds/internal/infrastructure/observability/logging"
)

func TestUserUpsertKeepsCreationAndProfile(t *testing.T) {
	t.Parallel()

	repo := NewFileUserRepository(filepath.Join(t.TempDir(), "users.json"), logging.NewDiscardLogger())
	ctx := context.Background()

	_, err := repo.Upsert(ctx, user.User{ID: "telegram:42", Provider: user.ProviderTelegram, Name: "Ivan", Username: "ivan", CreatedAt: 100})
	require.NoError(t, err)

	got, err := repo.Upsert(ctx, user.User{ID: "telegram:42", Provider: user.ProviderTelegram, Name: "Ivan P", CreatedAt: 200})
	require.NoError(t, err)
	assert.Equal(t, int64(100), got.CreatedAt)
	assert.Equal(t, "Ivan P", got.Name)
	assert.Equal(t, "ivan", got.Username)

	_, err = repo.Upsert(ctx, user.User{ID: "email:a@b.c", Provider: user.ProviderEmail, Email: "a@b.c", CreatedAt: 300})
	require.NoError(t, err)

	all, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "email:a@b.c", all[0].ID)

	found, ok, err := repo.FindByID(ctx, "telegram:42")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Ivan P", found.Name)

	_, err = repo.Upsert(ctx, user.User{})
	assert.Error(t, err)
}

func TestCodeTakeIsSingleUse(t *testing.T) {
	t.Parallel()

	repo := NewFileCodeRepository(filepath.Join(t.TempDir(), "codes.json"), logging.NewDiscardLogger())
	ctx := context.Background()

	require.NoError(t, repo.Put(ctx, " Anna@Example.com ", user.LoginCode{Hash: "h", ExpiresAt: 10}))

	code, ok, err := repo.Take(ctx, "anna@example.com")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "h", code.Hash)

	_, ok, err = repo.Take(ctx, "anna@example.com")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestWhitelistCreatesDefaults(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "telegram_whitelist.json")
	repo, err := NewFileWhitelistRepository(path, user.DefaultAdminID, logging.NewDiscardLogger())
	require.NoError(t, err)

	list, err := repo.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, user.Whitelist{980343575, user.DefaultAdminID, 1065558838}, list)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "1547353132")
}

func TestWhitelistNormalizesFileContent(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "telegram_whitelist.json")
	require.NoError(t, os.WriteFile(path, []byte(`[111, "222", "junk"]`), 0o644))

	repo, err := NewFileWhitelistRepository(path, 333, logging.NewDiscardLogger())
	require.NoError(t, err)

	list, err := repo.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, user.Whitelist{111, 333, 222}, list)
}

func TestWhitelistSave(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "telegram_whitelist.json")
	repo, err := NewFileWhitelistRepository(path, 333, logging.NewDiscardLogger())
	require.NoError(t, err)

	saved, err := repo.Save(context.Background(), []int64{5, 6, 333})
	require.NoError(t, err)
	assert.Equal(t, user.Whitelist{5, 333, 6}, saved)

	reopened, err := NewFileWhitelistRepository(path, 333, logging.NewDiscardLogger())
	require.NoError(t, err)
	list, _ := reopened.Load(context.Background())
	assert.Equal(t, saved, list)
}

func TestWhitelistWatchPicksUpEdits(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "telegram_whitelist.json")
	repo, err := NewFileWhitelistRepository(path, 333, logging.NewDiscardLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- repo.Watch(ctx) }()
	defer func() {
		cancel()
		require.NoError(t, <-done)
	}()

	want := user.Whitelist{7, 333, 8}
	require.Eventually(t, func() bool {
		// Rewrite on every poll in case the watcher was not yet registered.
		_ = os.WriteFile(path, []byte(`[7, 333, 8]`), 0o644)
		list, _ := repo.Load(context.Background())
		return assert.ObjectsAreEqual(want, list)
	}, 3*time.Second, 50*time.Millisecond)
}
