package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()
	assert.Equal(t, "lean-python-org", cfg.Owner)
	assert.Equal(t, "blog", cfg.Repo)
	assert.Equal(t, "https://api.github.com/", cfg.APIBase)
	assert.Equal(t, "github.com", cfg.TrackerHost)
	assert.Equal(t, "manual-commenting", cfg.ContainerID)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Equal(t, 6*time.Second, cfg.SearchInterval)
	assert.Equal(t, FormatTerminal, cfg.Format)
	assert.NoError(t, cfg.Validate())
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		modify func(*Config)
		want   error
	}{
		{"missing owner", func(c *Config) { c.Owner = "" }, ErrMissingOwner},
		{"missing repo", func(c *Config) { c.Repo = "" }, ErrMissingRepo},
		{"zero timeout", func(c *Config) { c.Timeout = 0 }, ErrInvalidTimeout},
		{"negative interval", func(c *Config) { c.SearchInterval = -time.Second }, ErrInvalidSearchInterval},
		{"zero interval is fine", func(c *Config) { c.SearchInterval = 0 }, nil},
		{"missing container", func(c *Config) { c.ContainerID = "" }, ErrMissingContainerID},
		{"unknown format", func(c *Config) { c.Format = "pdf" }, ErrInvalidFormat},
		{"html format", func(c *Config) { c.Format = FormatHTML }, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := NewConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestLoad(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`owner: when-of-python
repo: comments
timeout: 10s
search_interval: 2s
`)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "when-of-python", cfg.Owner)
	assert.Equal(t, "comments", cfg.Repo)
	assert.Equal(t, 10*time.Second, cfg.Timeout)
	assert.Equal(t, 2*time.Second, cfg.SearchInterval)
	assert.Equal(t, DefaultAPIBase, cfg.APIBase, "unset keys keep defaults")
}

func TestLoadMissingExplicitFile(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadInvalidYAML(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("owner: [unterminated"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}
