package adwatch

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// defaultUserAgent pins a stable desktop Chrome identity so fingerprint
// checks see the same browser on every run.
const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
	"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Config is the top-level engine configuration.
type Config struct {
	Browser    BrowserConfig    `yaml:"browser"`
	Scroll     ScrollConfig     `yaml:"scroll"`
	Capture    CaptureConfig    `yaml:"capture"`
	Checkpoint CheckpointConfig `yaml:"checkpoint"`
	Selectors  SelectorsConfig  `yaml:"selectors"`
}

// BrowserConfig controls the Chrome session.
type BrowserConfig struct {
	// Remote is the WebSocket URL of an external Chrome. Empty = launch
	// a local one.
	Remote string `yaml:"remote"`
	// Mode is headless | headful.
	Mode           string        `yaml:"mode"`
	UserAgent      string        `yaml:"user_agent"`
	ViewportWidth  int           `yaml:"viewport_width"`
	ViewportHeight int           `yaml:"viewport_height"`
	NavTimeout     time.Duration `yaml:"nav_timeout"`
}

// ScrollConfig controls the scroll loop and its termination.
type ScrollConfig struct {
	MaxScrolls        int           `yaml:"max_scrolls"`
	NoGrowthThreshold int           `yaml:"no_growth_threshold"`
	PauseMin          time.Duration `yaml:"pause_min"`
	PauseMax          time.Duration `yaml:"pause_max"`
}

// CaptureConfig controls media URL capture and re-fetch.
type CaptureConfig struct {
	HostPatterns []string      `yaml:"host_patterns"`
	MIMEPrefixes []string      `yaml:"mime_prefixes"`
	MaxRetries   int           `yaml:"max_retries"`
	Concurrency  int           `yaml:"concurrency"`
	FetchTimeout time.Duration `yaml:"fetch_timeout"`
	RetryWaitMin time.Duration `yaml:"retry_wait_min"`
	RetryWaitMax time.Duration `yaml:"retry_wait_max"`
}

// CheckpointConfig controls progress persistence.
type CheckpointConfig struct {
	Path string `yaml:"path"`
	// Every is the number of scroll steps between saves. A final save
	// always happens at termination regardless.
	Every int `yaml:"every"`
}

// SelectorsConfig points at the selector overrides, a JSON cache file
// and optionally a SQLite database. The database wins when both exist.
type SelectorsConfig struct {
	Path string `yaml:"path"`
	DB   string `yaml:"db"`
}

// LoadConfigFile reads a YAML configuration file and applies defaults.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("adwatch: read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("adwatch: parse config: %w", err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Browser.Mode == "" {
		c.Browser.Mode = "headless"
	}
	if c.Browser.UserAgent == "" {
		c.Browser.UserAgent = defaultUserAgent
	}
	if c.Browser.ViewportWidth <= 0 {
		c.Browser.ViewportWidth = 1920
	}
	if c.Browser.ViewportHeight <= 0 {
		c.Browser.ViewportHeight = 1080
	}
	if c.Browser.NavTimeout <= 0 {
		c.Browser.NavTimeout = 60 * time.Second
	}
	if c.Scroll.MaxScrolls <= 0 {
		c.Scroll.MaxScrolls = 50
	}
	if c.Scroll.NoGrowthThreshold <= 0 {
		c.Scroll.NoGrowthThreshold = 3
	}
	if c.Scroll.PauseMin <= 0 {
		c.Scroll.PauseMin = 800 * time.Millisecond
	}
	if c.Scroll.PauseMax <= c.Scroll.PauseMin {
		c.Scroll.PauseMax = c.Scroll.PauseMin + 700*time.Millisecond
	}
	if c.Capture.MaxRetries <= 0 {
		c.Capture.MaxRetries = 3
	}
	if c.Capture.Concurrency <= 0 {
		c.Capture.Concurrency = 4
	}
	if c.Capture.FetchTimeout <= 0 {
		c.Capture.FetchTimeout = 15 * time.Second
	}
	if c.Checkpoint.Path == "" {
		c.Checkpoint.Path = "checkpoint.json"
	}
	if c.Checkpoint.Every <= 0 {
		c.Checkpoint.Every = 50
	}
	if c.Selectors.Path == "" {
		c.Selectors.Path = "selectors.json"
	}
}
