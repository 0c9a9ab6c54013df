package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points HOME and the working directory at empty temp dirs so no
// real config or .env is picked up.
func isolate(t *testing.T) string {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.Server.Bind)
	assert.Equal(t, 37778, cfg.Server.Port)
	assert.Equal(t, "127.0.0.1:37778", cfg.ListenAddr())
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "local", cfg.Auth.DevOwner)
	assert.Empty(t, cfg.Auth.JWTSecret)
	assert.Equal(t, 60.0, cfg.Scoring.DefaultReplyLatencyMin)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadLocalFile(t *testing.T) {
	dir := isolate(t)
	toml := `
[server]
port = 4000

[scoring]
default_reply_latency_min = 30

[logging]
format = "json"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "rapport.toml"), []byte(toml), 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 4000, cfg.Server.Port)
	assert.Equal(t, 30.0, cfg.Scoring.DefaultReplyLatencyMin)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "127.0.0.1", cfg.Server.Bind, "unset keys keep defaults")
}

func TestLoadHomeFile(t *testing.T) {
	isolate(t)
	home := os.Getenv("HOME")
	require.NoError(t, os.MkdirAll(filepath.Join(home, ".rapport"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(home, ".rapport", "config.toml"), []byte("[auth]\ndev_owner = \"me\"\n"), 0o644))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "me", cfg.Auth.DevOwner)
}

func TestEnvOverridesFile(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "rapport.toml"), []byte("[server]\nport = 4000\n"), 0o644))
	t.Setenv("RAPPORT_SERVER_PORT", "5000")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 5000, cfg.Server.Port)
}

func TestDotEnvLoaded(t *testing.T) {
	dir := isolate(t)
	// Register restoration, then unset so godotenv is allowed to set it.
	t.Setenv("RAPPORT_LOGGING_LEVEL", "")
	require.NoError(t, os.Unsetenv("RAPPORT_LOGGING_LEVEL"))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("RAPPORT_LOGGING_LEVEL=debug\n"), 0o644))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestSupabaseDriverRequiresCredentials(t *testing.T) {
	isolate(t)
	t.Setenv("RAPPORT_STORE_DRIVER", "Supabase")
	t.Setenv("SUPABASE_URL", "")
	t.Setenv("SUPABASE_SERVICE_ROLE_KEY", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "supabase_url")

	t.Setenv("SUPABASE_URL", "https://example.supabase.co")
	t.Setenv("SUPABASE_SERVICE_ROLE_KEY", "service-role-key")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "supabase", cfg.Store.Driver)
	assert.Equal(t, "https://example.supabase.co", cfg.Store.SupabaseURL)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	bad := Default()
	bad.Store.Driver = "postgres"
	assert.Error(t, bad.Validate())

	bad = Default()
	bad.Server.Port = 0
	assert.Error(t, bad.Validate())

	bad = Default()
	bad.Auth.DevOwner = ""
	assert.Error(t, bad.Validate())

	bad.Auth.JWTSecret = "secret"
	assert.NoError(t, bad.Validate())

	bad = Default()
	bad.Scoring.DefaultReplyLatencyMin = -1
	assert.Error(t, bad.Validate())
}

func TestStoreConfigStringMasksKey(t *testing.T) {
	c := StoreConfig{Driver: "supabase", SupabaseURL: "https://x.supabase.co", SupabaseKey: "abcd1234567890wxyz"}
	s := c.String()
	assert.Contains(t, s, "abcd****wxyz")
	assert.NotContains(t, s, "1234567890")
}
