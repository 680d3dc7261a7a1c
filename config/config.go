// Package config holds the settings shared by every commentlink command.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"

	"github.com/Gaurav-Gosain/commentlink/binder"
	"github.com/Gaurav-Gosain/commentlink/issues"
)

// AppName is used for the XDG config directory.
const AppName = "commentlink"

// The repository whose issues hold the comments. Set at build time:
//
//	go build -ldflags "-X github.com/Gaurav-Gosain/commentlink/config.DefaultOwner=me"
var (
	DefaultOwner = "lean-python-org"
	DefaultRepo  = "blog"
)

const (
	DefaultAPIBase     = issues.DefaultAPIBase
	DefaultTrackerHost = binder.DefaultTrackerHost
	DefaultContainerID = binder.DefaultContainerID
	DefaultTimeout     = 30 * time.Second

	// DefaultSearchInterval keeps unauthenticated scans under GitHub's
	// 10 searches per minute.
	DefaultSearchInterval = 6 * time.Second
)

// Output formats for fragments.
const (
	FormatTerminal = "terminal"
	FormatHTML     = "html"
	FormatMarkdown = "markdown"
)

var (
	ErrMissingOwner          = errors.New("repository owner is required")
	ErrMissingRepo           = errors.New("repository name is required")
	ErrInvalidTimeout        = errors.New("timeout must be positive")
	ErrInvalidSearchInterval = errors.New("search interval must not be negative")
	ErrInvalidFormat         = errors.New("format must be one of terminal, html, markdown")
	ErrMissingContainerID    = errors.New("container id is required")
)

// Config is loaded from an optional YAML file and then overridden by
// command-line flags.
type Config struct {
	Owner          string        `yaml:"owner"`
	Repo           string        `yaml:"repo"`
	APIBase        string        `yaml:"api_base"`
	TrackerHost    string        `yaml:"tracker_host"`
	ContainerID    string        `yaml:"container_id"`
	Timeout        time.Duration `yaml:"timeout"`
	SearchInterval time.Duration `yaml:"search_interval"`

	// Never read from the file.
	Token      string `yaml:"-"`
	Format     string `yaml:"-"`
	Verbose    bool   `yaml:"-"`
	NoProgress bool   `yaml:"-"`
}

// NewConfig returns a Config with every default filled in.
func NewConfig() *Config {
	return &Config{
		Owner:          DefaultOwner,
		Repo:           DefaultRepo,
		APIBase:        DefaultAPIBase,
		TrackerHost:    DefaultTrackerHost,
		ContainerID:    DefaultContainerID,
		Timeout:        DefaultTimeout,
		SearchInterval: DefaultSearchInterval,
		Format:         FormatTerminal,
	}
}

// DefaultPath is $XDG_CONFIG_HOME/commentlink/config.yaml.
func DefaultPath() string {
	return filepath.Join(xdg.ConfigHome, AppName, "config.yaml")
}

// Load reads path over the defaults. A missing file at the default
// location is not an error; a missing explicit path is.
func Load(path string) (*Config, error) {
	cfg := NewConfig()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// Validate returns the first problem found.
func (c *Config) Validate() error {
	if c.Owner == "" {
		return ErrMissingOwner
	}
	if c.Repo == "" {
		return ErrMissingRepo
	}
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.SearchInterval < 0 {
		return ErrInvalidSearchInterval
	}
	if c.ContainerID == "" {
		return ErrMissingContainerID
	}
	switch c.Format {
	case FormatTerminal, FormatHTML, FormatMarkdown:
	default:
		return ErrInvalidFormat
	}
	return nil
}
