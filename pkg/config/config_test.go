package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("PM_TEST_INT", "42")
	t.Setenv("PM_TEST_BAD_INT", "forty")
	t.Setenv("PM_TEST_BOOL", "true")
	t.Setenv("PM_TEST_DURATION", "90s")
	t.Setenv("PM_TEST_LIST", " a, b ,,c ")

	assert.Equal(t, 42, getEnvInt("PM_TEST_INT", 1))
	assert.Equal(t, 7, getEnvInt("PM_TEST_BAD_INT", 7))
	assert.Equal(t, 7, getEnvInt("PM_TEST_MISSING", 7))
	assert.True(t, getEnvBool("PM_TEST_BOOL", false))
	assert.Equal(t, 90*time.Second, getEnvDuration("PM_TEST_DURATION", time.Second))
	assert.Equal(t, []string{"a", "b", "c"}, getEnvList("PM_TEST_LIST", nil))
	assert.Equal(t, "fallback", getEnvString("PM_TEST_MISSING", "fallback"))
}

func TestRedact(t *testing.T) {
	assert.Equal(t, "***", redact("SESSION_SECRET", "x"))
	assert.Equal(t, "***", redact("TELEGRAM_BOT_TOKEN", "x"))
	assert.Equal(t, "8080", redact("PORT", "8080"))
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "peaky.toml")
	content := `
PORT = "9090"
DATA_DIR = "/srv/desk"
CORS_ORIGINS = ["https://a.example", "https://b.example"]

[telegram]
bot_token = "from-file"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	// Runs after the environment is restored.
	t.Cleanup(apply)

	// Real environment wins over the file.
	t.Setenv("DATA_DIR", "/env/desk")
	// Keys the file sets must be unset first so t.Setenv restores them afterwards.
	for _, key := range []string{"PORT", "CORS_ORIGINS", "TELEGRAM_BOT_TOKEN"} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}

	require.NoError(t, LoadFile(path))

	assert.Equal(t, "9090", Port)
	assert.Equal(t, "/env/desk", DataDir)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, CORSOrigins)
	assert.Equal(t, "from-file", TelegramBotToken)
	assert.Equal(t, filepath.Join("/env/desk", "leads"), Path("leads"))
}

func TestLoadFileMissing(t *testing.T) {
	err := LoadFile(filepath.Join(t.TempDir(), "missing.toml"))
	require.Error(t, err)
}
