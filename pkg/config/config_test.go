package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opendatazurich/opendata-go/pkg/config"
)

func TestProcessConfigPath(t *testing.T) {
	t.Run("should split a yaml config path into name and directory", func(t *testing.T) {
		got, err := config.ProcessConfigPath("/etc/opendata/config.yaml")

		require.NoError(t, err)
		assert.Equal(t, "config", got.FileName)
		assert.Equal(t, "/etc/opendata", got.Path)
	})

	t.Run("should reject non-yaml extensions", func(t *testing.T) {
		_, err := config.ProcessConfigPath("/etc/opendata/config.toml")

		require.Error(t, err)
	})
}

func TestLoad(t *testing.T) {
	t.Run("should fall back to defaults when no config file exists", func(t *testing.T) {
		got, err := config.NewFileSystemLoader().Load("config", t.TempDir(), "", nil)

		require.NoError(t, err)
		assert.Equal(t, config.Default(), got)
		require.NoError(t, got.Validate())
	})

	t.Run("should overlay file values on the defaults", func(t *testing.T) {
		dir := t.TempDir()
		content := `ckan:
  api_url: https://opendata.example.org/api/3/action
catalogue:
  page_size: 25
log_level: debug
`
		require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0o644))

		got, err := config.NewFileSystemLoader().Load("config", dir, "", nil)

		require.NoError(t, err)
		assert.Equal(t, "https://opendata.example.org/api/3/action", got.CKAN.APIURL)
		assert.Equal(t, 25, got.Catalogue.PageSize)
		assert.Equal(t, "debug", got.LogLevel)
		// Untouched sections keep their defaults.
		assert.Equal(t, config.Default().WFS, got.WFS)
		assert.Equal(t, config.Default().Templates, got.Templates)
	})

	t.Run("should bind the well known environment variables", func(t *testing.T) {
		t.Setenv("CKAN_API_LINK", "https://env.example.org/api/3/action")
		t.Setenv("GEOPORTAL_BASE_LINK", "https://env.example.org/wfs/geoportal")

		got, err := config.NewFileSystemLoader().Load("config", t.TempDir(), "", config.NewDefaultEnvBinder())

		require.NoError(t, err)
		assert.Equal(t, "https://env.example.org/api/3/action", got.CKAN.APIURL)
		assert.Equal(t, "https://env.example.org/wfs/geoportal", got.WFS.GeoportalBaseURL)
	})

	t.Run("should fail on an unreadable config file", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("provider: [broken"), 0o644))

		_, err := config.NewFileSystemLoader().Load("config", dir, "", nil)

		require.Error(t, err)
	})
}

func TestConfig_Validate(t *testing.T) {
	t.Run("should accept the defaults", func(t *testing.T) {
		require.NoError(t, config.Default().Validate())
	})

	t.Run("should reject a missing api url", func(t *testing.T) {
		cfg := config.Default()
		cfg.CKAN.APIURL = ""

		require.Error(t, cfg.Validate())
	})

	t.Run("should reject a non-positive page size", func(t *testing.T) {
		cfg := config.Default()
		cfg.Catalogue.PageSize = 0

		require.Error(t, cfg.Validate())
	})

	t.Run("should reject a malformed portal url", func(t *testing.T) {
		cfg := config.Default()
		cfg.Provider.PortalBaseURL = "not a url"

		require.Error(t, cfg.Validate())
	})
}

func TestDurations(t *testing.T) {
	cfg := config.Default()

	assert.Equal(t, "2s", cfg.Catalogue.PageDelay().String())
	assert.Equal(t, "30s", cfg.HTTP.Timeout().String())
}
