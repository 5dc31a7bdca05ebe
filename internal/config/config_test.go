package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	t.Run("should fall back to defaults when file is missing", func(t *testing.T) {
		// when
		cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))

		// then
		require.NoError(t, err)
		assert.Equal(t, Defaults(), cfg)
	})

	t.Run("should override defaults from yaml file", func(t *testing.T) {
		// given
		path := filepath.Join(t.TempDir(), "application.yaml")
		content := "listen: \":9000\"\nstore:\n  path: /tmp/bills.sqlite\nynab:\n  timeout: 5s\ndemo:\n  enabled: true\n"
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

		// when
		cfg, err := Load(path)

		// then
		require.NoError(t, err)
		assert.Equal(t, ":9000", cfg.Listen)
		assert.Equal(t, "/tmp/bills.sqlite", cfg.Store.Path)
		assert.Equal(t, 5*time.Second, cfg.YNAB.Timeout)
		assert.True(t, cfg.Demo.Enabled)
		assert.Equal(t, "https://api.ynab.com/v1", cfg.YNAB.BaseURL)
	})

	t.Run("should let environment win over file", func(t *testing.T) {
		// given
		path := filepath.Join(t.TempDir(), "application.yaml")
		require.NoError(t, os.WriteFile(path, []byte("ynab:\n  baseurl: http://file\n"), 0o600))
		t.Setenv("BILLS_YNAB_BASEURL", "http://env")

		// when
		cfg, err := Load(path)

		// then
		require.NoError(t, err)
		assert.Equal(t, "http://env", cfg.YNAB.BaseURL)
	})

	t.Run("should fail on malformed yaml", func(t *testing.T) {
		// given
		path := filepath.Join(t.TempDir(), "application.yaml")
		require.NoError(t, os.WriteFile(path, []byte("listen: [unterminated"), 0o600))

		// when
		_, err := Load(path)

		// then
		assert.Error(t, err)
	})

	t.Run("should read .env next to the config file", func(t *testing.T) {
		// given
		dir := t.TempDir()
		path := filepath.Join(dir, "application.yaml")
		dotenv := "BILLS_LISTEN=:7000\nBILLS_YNAB_ACCESSTOKEN=from-dotenv\nOTHER=ignored\n"
		require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte(dotenv), 0o600))

		// when
		cfg, err := Load(path)

		// then
		require.NoError(t, err)
		assert.Equal(t, ":7000", cfg.Listen)
		assert.Equal(t, "from-dotenv", cfg.YNAB.AccessToken)
		_, set := os.LookupEnv("BILLS_LISTEN")
		assert.False(t, set)
	})

	t.Run("should let environment win over .env", func(t *testing.T) {
		// given
		dir := t.TempDir()
		path := filepath.Join(dir, "application.yaml")
		require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("BILLS_LISTEN=:7000\n"), 0o600))
		t.Setenv("BILLS_LISTEN", ":7001")

		// when
		cfg, err := Load(path)

		// then
		require.NoError(t, err)
		assert.Equal(t, ":7001", cfg.Listen)
	})
}
