// Package config loads happy-days settings from defaults, a YAML file and
// the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rcliao/happy-days/internal/thumbnail"
	"github.com/rcliao/happy-days/internal/transcribe"
)

// Environment variables.
const (
	EnvConfig   = "HAPPY_DAYS_CONFIG"
	EnvDir      = "HAPPY_DAYS_DIR"
	EnvLogLevel = "HAPPY_DAYS_LOG_LEVEL"
	EnvProvider = "HAPPY_DAYS_TRANSCRIBE_PROVIDER"
	EnvURL      = "HAPPY_DAYS_TRANSCRIBE_URL"
	EnvAPIKey   = "OPENAI_API_KEY"
)

// Config is the complete configuration.
type Config struct {
	Dir            string        `yaml:"dir"`
	ThumbnailWidth int           `yaml:"thumbnail_width"`
	LogLevel       string        `yaml:"log_level"`
	IndexPath      string        `yaml:"index_path"`
	Transcription  Transcription `yaml:"transcription"`
	Capture        Command       `yaml:"capture"`
	Playback       Command       `yaml:"playback"`
}

// Transcription selects the speech-to-text provider.
type Transcription struct {
	Provider string        `yaml:"provider"`
	BaseURL  string        `yaml:"base_url"`
	APIKey   string        `yaml:"api_key"`
	Model    string        `yaml:"model"`
	Language string        `yaml:"language"`
	Stream   bool          `yaml:"stream"`
	Timeout  time.Duration `yaml:"timeout"`
	Breaker  Breaker       `yaml:"breaker"`
}

type Breaker struct {
	MaxRequests      uint32        `yaml:"max_requests"`
	Interval         time.Duration `yaml:"interval"`
	Timeout          time.Duration `yaml:"timeout"`
	FailureThreshold float64       `yaml:"failure_threshold"`
	MinRequests      uint32        `yaml:"min_requests"`
}

// Command is an external program; "{path}" in an argument is replaced by
// the audio file.
type Command struct {
	Command []string `yaml:"command"`
}

// Default returns the built-in configuration.
func Default() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		Dir:            filepath.Join(home, ".happy-days", "memories"),
		ThumbnailWidth: thumbnail.DefaultWidth,
		LogLevel:       "info",
		Transcription: Transcription{
			Provider: "none",
			Model:    "whisper-1",
			Timeout:  60 * time.Second,
		},
		Capture:  Command{Command: []string{"sox", "-d", "-q", "{path}"}},
		Playback: Command{Command: []string{"play", "-q", "{path}"}},
	}
}

// DefaultPath returns the config file used when none is given.
func DefaultPath() string {
	if env := os.Getenv(EnvConfig); env != "" {
		return env
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".happy-days", "config.yaml")
}

// Overrides are command-line values; they take precedence over everything.
type Overrides struct {
	Dir      string
	LogLevel string
}

// Load reads path over the defaults, then applies environment variables and
// flag overrides. A missing file is not an error.
func Load(path string, flags Overrides) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	cfg.applyEnv()
	if flags.Dir != "" {
		cfg.Dir = flags.Dir
	}
	if flags.LogLevel != "" {
		cfg.LogLevel = flags.LogLevel
	}
	cfg.Dir = expandHome(cfg.Dir)
	cfg.IndexPath = expandHome(cfg.IndexPath)
	if cfg.IndexPath == "" {
		cfg.IndexPath = filepath.Join(cfg.Dir, ".index.db")
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvDir); v != "" {
		c.Dir = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv(EnvProvider); v != "" {
		c.Transcription.Provider = v
	}
	if v := os.Getenv(EnvURL); v != "" {
		c.Transcription.BaseURL = v
	}
	if v := os.Getenv(EnvAPIKey); v != "" {
		c.Transcription.APIKey = v
	}
}

// Validate reports configuration errors.
func (c *Config) Validate() error {
	var errs []error
	if c.Dir == "" {
		errs = append(errs, errors.New("dir is required"))
	}
	if c.ThumbnailWidth <= 0 {
		errs = append(errs, fmt.Errorf("thumbnail_width must be positive, got %d", c.ThumbnailWidth))
	}
	if len(c.Capture.Command) == 0 {
		errs = append(errs, errors.New("capture.command is required"))
	}
	if len(c.Playback.Command) == 0 {
		errs = append(errs, errors.New("playback.command is required"))
	}
	switch c.Transcription.Provider {
	case "", "none", "openai":
	default:
		errs = append(errs, fmt.Errorf("unknown transcription provider %q", c.Transcription.Provider))
	}
	if t := c.Transcription.Breaker.FailureThreshold; t < 0 || t > 1 {
		errs = append(errs, fmt.Errorf("transcription.breaker.failure_threshold must be within [0,1], got %v", t))
	}
	return errors.Join(errs...)
}

// TranscribeOptions converts the transcription settings for transcribe.New.
func (c *Config) TranscribeOptions() transcribe.Options {
	t := c.Transcription
	return transcribe.Options{
		Provider: t.Provider,
		BaseURL:  t.BaseURL,
		APIKey:   t.APIKey,
		Model:    t.Model,
		Language: t.Language,
		Stream:   t.Stream,
		Timeout:  t.Timeout,
		Breaker: transcribe.BreakerSettings{
			MaxRequests:      t.Breaker.MaxRequests,
			Interval:         t.Breaker.Interval,
			Timeout:          t.Breaker.Timeout,
			FailureThreshold: t.Breaker.FailureThreshold,
			MinRequests:      t.Breaker.MinRequests,
		},
	}
}

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return p
		}
		return filepath.Join(home, strings.TrimPrefix(p, "~"))
	}
	return p
}
