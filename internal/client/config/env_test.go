package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func useEnvFile(t *testing.T, content string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".env")
	if content != "" {
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	}
	envFile = path
	t.Cleanup(func() { envFile = ".env" })
}

func Test_parseEnv(t *testing.T) {
	t.Run("variables override defaults", func(t *testing.T) {
		useEnvFile(t, "")
		t.Setenv("DIARY_DOCSTORE_DSN", "postgres://env")
		t.Setenv("DIARY_S3_BUCKET", "images")
		t.Setenv("DIARY_SHARE_GRACE", "750ms")

		cfg := &Config{}
		cfg.LoadDefaults()
		parseEnv(cfg)

		assert.Equal(t, "postgres://env", cfg.DocStoreDSN)
		assert.True(t, cfg.UseS3())
		assert.Equal(t, 750*time.Millisecond, cfg.ShareGrace)
		assert.Equal(t, 2*time.Second, cfg.WatchInterval)
	})

	t.Run("dot env file is loaded", func(t *testing.T) {
		useEnvFile(t, "DIARY_TIMEZONE=Europe/Riga\n")
		t.Setenv("DIARY_TIMEZONE", "")
		require.NoError(t, os.Unsetenv("DIARY_TIMEZONE"))

		cfg := &Config{}
		parseEnv(cfg)

		assert.Equal(t, "Europe/Riga", cfg.Timezone)
	})

	t.Run("set variables win over the file", func(t *testing.T) {
		useEnvFile(t, "DIARY_LOG_LEVEL=debug\n")
		t.Setenv("DIARY_LOG_LEVEL", "warn")

		cfg := &Config{}
		parseEnv(cfg)

		assert.Equal(t, "warn", cfg.LogLevel)
	})

	t.Run("bad duration panics", func(t *testing.T) {
		useEnvFile(t, "")
		t.Setenv("DIARY_WATCH_INTERVAL", "often")

		require.Panics(t, func() { parseEnv(&Config{}) })
	})
}
