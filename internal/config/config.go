// File: internal/config/config.go
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the entire application configuration.
type Config struct {
	Logger    LoggerConfig    `mapstructure:"logger" yaml:"logger"`
	Browser   BrowserConfig   `mapstructure:"browser" yaml:"browser"`
	Site      SiteConfig      `mapstructure:"site" yaml:"site"`
	Artifacts ArtifactsConfig `mapstructure:"artifacts" yaml:"artifacts"`
	Timing    TimingConfig    `mapstructure:"timing" yaml:"timing"`
	Timeouts  TimeoutsConfig  `mapstructure:"timeouts" yaml:"timeouts"`
	Run       RunConfig       `mapstructure:"run" yaml:"run"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color codes for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// BrowserConfig holds the launch settings for the Chromium instance and the
// emulated device every context is created with.
type BrowserConfig struct {
	// Channel selects a branded build ("chrome", "msedge"). Empty uses the bundled Chromium.
	Channel        string        `mapstructure:"channel" yaml:"channel"`
	Headless       bool          `mapstructure:"headless" yaml:"headless"`
	Install        bool          `mapstructure:"install" yaml:"install"`
	Args           []string      `mapstructure:"args" yaml:"args"`
	Device         string        `mapstructure:"device" yaml:"device"`
	DefaultTimeout time.Duration `mapstructure:"default_timeout" yaml:"default_timeout"`
	LaunchTimeout  time.Duration `mapstructure:"launch_timeout" yaml:"launch_timeout"`
}

// SiteConfig points the page objects at the target deployment.
type SiteConfig struct {
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`
}

// ArtifactsConfig controls where screenshots and run reports land.
type ArtifactsConfig struct {
	Dir           string   `mapstructure:"dir" yaml:"dir"`
	Prefix        string   `mapstructure:"prefix" yaml:"prefix"`
	FailurePrefix string   `mapstructure:"failure_prefix" yaml:"failure_prefix"`
	Reports       []string `mapstructure:"reports" yaml:"reports"`
}

// TimingConfig holds the bounded pauses used where the site exposes no
// observable signal for "rendering finished".
type TimingConfig struct {
	PostNavigate    time.Duration `mapstructure:"post_navigate" yaml:"post_navigate"`
	PostClick       time.Duration `mapstructure:"post_click" yaml:"post_click"`
	PostFill        time.Duration `mapstructure:"post_fill" yaml:"post_fill"`
	ScrollSettle    time.Duration `mapstructure:"scroll_settle" yaml:"scroll_settle"`
	PostOverlay     time.Duration `mapstructure:"post_overlay" yaml:"post_overlay"`
	PostSearch      time.Duration `mapstructure:"post_search" yaml:"post_search"`
	PostSelect      time.Duration `mapstructure:"post_select" yaml:"post_select"`
	PlayerStabilize time.Duration `mapstructure:"player_stabilize" yaml:"player_stabilize"`
}

// TimeoutsConfig holds the upper bounds for explicit waits.
type TimeoutsConfig struct {
	Click        time.Duration `mapstructure:"click" yaml:"click"`
	Overlay      time.Duration `mapstructure:"overlay" yaml:"overlay"`
	Interstitial time.Duration `mapstructure:"interstitial" yaml:"interstitial"`
	Results      time.Duration `mapstructure:"results" yaml:"results"`
	Player       time.Duration `mapstructure:"player" yaml:"player"`
	NetworkIdle  time.Duration `mapstructure:"network_idle" yaml:"network_idle"`
	Navigation   time.Duration `mapstructure:"navigation" yaml:"navigation"`
}

// RunConfig configures the scenario runner behind `streamprobe run`.
type RunConfig struct {
	Workers       int              `mapstructure:"workers" yaml:"workers"`
	StartInterval time.Duration    `mapstructure:"start_interval" yaml:"start_interval"`
	Scenarios     []ScenarioConfig `mapstructure:"scenarios" yaml:"scenarios"`
}

// ScenarioConfig describes one search-and-capture scenario. An empty list in
// RunConfig means the built-in scenario set is used.
type ScenarioConfig struct {
	Name               string `mapstructure:"name" yaml:"name"`
	Query              string `mapstructure:"query" yaml:"query"`
	ScrollTimes        int    `mapstructure:"scroll_times" yaml:"scroll_times"`
	StreamerIndex      int    `mapstructure:"streamer_index" yaml:"streamer_index"`
	MinScreenshotBytes int64  `mapstructure:"min_screenshot_bytes" yaml:"min_screenshot_bytes"`
	CheckSearchInput   bool   `mapstructure:"check_search_input" yaml:"check_search_input"`
	CheckPlayer        bool   `mapstructure:"check_player" yaml:"check_player"`
	// Tag disambiguates the screenshot name; empty means streamer<index>.
	Tag string `mapstructure:"tag" yaml:"tag"`
	// Untagged keeps the plain <prefix>_<timestamp>.png name.
	Untagged bool `mapstructure:"untagged" yaml:"untagged"`
}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for various configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "streamprobe")
	v.SetDefault("logger.log_file", "streamprobe.log")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")
	v.SetDefault("logger.colors.dpanic", "magenta")
	v.SetDefault("logger.colors.panic", "magenta")
	v.SetDefault("logger.colors.fatal", "magenta")

	// -- Browser --
	v.SetDefault("browser.channel", "chrome")
	v.SetDefault("browser.headless", false)
	v.SetDefault("browser.install", true)
	v.SetDefault("browser.device", "iPhone 13 Pro")
	v.SetDefault("browser.default_timeout", "30s")
	v.SetDefault("browser.launch_timeout", "60s")

	// -- Site --
	v.SetDefault("site.base_url", "https://www.twitch.tv")

	// -- Artifacts --
	v.SetDefault("artifacts.dir", "screenshots")
	v.SetDefault("artifacts.prefix", "streamer")
	v.SetDefault("artifacts.failure_prefix", "failure")
	v.SetDefault("artifacts.reports", []string{"json", "junit"})

	// -- Timing --
	v.SetDefault("timing.post_navigate", "1s")
	v.SetDefault("timing.post_click", "500ms")
	v.SetDefault("timing.post_fill", "500ms")
	v.SetDefault("timing.scroll_settle", "1s")
	v.SetDefault("timing.post_overlay", "1s")
	v.SetDefault("timing.post_search", "2s")
	v.SetDefault("timing.post_select", "2s")
	v.SetDefault("timing.player_stabilize", "3s")

	// -- Timeouts --
	v.SetDefault("timeouts.click", "10s")
	v.SetDefault("timeouts.overlay", "3s")
	v.SetDefault("timeouts.interstitial", "3s")
	v.SetDefault("timeouts.results", "10s")
	v.SetDefault("timeouts.player", "15s")
	v.SetDefault("timeouts.network_idle", "10s")
	v.SetDefault("timeouts.navigation", "30s")

	// -- Run --
	v.SetDefault("run.workers", 1)
	v.SetDefault("run.start_interval", "2s")
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if c.Browser.Device == "" {
		return fmt.Errorf("browser.device is a required configuration field")
	}
	if c.Browser.DefaultTimeout <= 0 {
		return fmt.Errorf("browser.default_timeout must be a positive duration")
	}
	u, err := url.Parse(c.Site.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("site.base_url must be an absolute URL, got %q", c.Site.BaseURL)
	}
	if c.Artifacts.Dir == "" {
		return fmt.Errorf("artifacts.dir is a required configuration field")
	}
	if c.Artifacts.Prefix == "" {
		return fmt.Errorf("artifacts.prefix is a required configuration field")
	}
	for _, r := range c.Artifacts.Reports {
		if r != "json" && r != "junit" {
			return fmt.Errorf("artifacts.reports: unsupported format %q", r)
		}
	}
	if err := c.Timing.Validate(); err != nil {
		return fmt.Errorf("timing configuration invalid: %w", err)
	}
	if err := c.Timeouts.Validate(); err != nil {
		return fmt.Errorf("timeouts configuration invalid: %w", err)
	}
	if c.Run.Workers <= 0 {
		return fmt.Errorf("run.workers must be a positive integer")
	}
	for i, sc := range c.Run.Scenarios {
		if err := sc.Validate(); err != nil {
			return fmt.Errorf("run.scenarios[%d]: %w", i, err)
		}
	}
	return nil
}

// Validate rejects negative pauses. Zero disables a pause.
func (t *TimingConfig) Validate() error {
	pauses := map[string]time.Duration{
		"post_navigate":    t.PostNavigate,
		"post_click":       t.PostClick,
		"post_fill":        t.PostFill,
		"scroll_settle":    t.ScrollSettle,
		"post_overlay":     t.PostOverlay,
		"post_search":      t.PostSearch,
		"post_select":      t.PostSelect,
		"player_stabilize": t.PlayerStabilize,
	}
	for name, d := range pauses {
		if d < 0 {
			return fmt.Errorf("%s must not be negative", name)
		}
	}
	return nil
}

// Validate checks that every explicit wait has an upper bound.
func (t *TimeoutsConfig) Validate() error {
	bounds := map[string]time.Duration{
		"click":        t.Click,
		"overlay":      t.Overlay,
		"interstitial": t.Interstitial,
		"results":      t.Results,
		"player":       t.Player,
		"network_idle": t.NetworkIdle,
		"navigation":   t.Navigation,
	}
	for name, d := range bounds {
		if d <= 0 {
			return fmt.Errorf("%s must be a positive duration", name)
		}
	}
	return nil
}

// Validate checks a single scenario definition.
func (s *ScenarioConfig) Validate() error {
	if s.Query == "" {
		return fmt.Errorf("query is required")
	}
	if s.ScrollTimes < 0 {
		return fmt.Errorf("scroll_times must not be negative")
	}
	if s.StreamerIndex < 0 {
		return fmt.Errorf("streamer_index must not be negative")
	}
	if s.MinScreenshotBytes < 0 {
		return fmt.Errorf("min_screenshot_bytes must not be negative")
	}
	if s.Untagged && s.Tag != "" {
		return fmt.Errorf("tag %q conflicts with untagged", s.Tag)
	}
	if strings.ContainsAny(s.Tag, "/\\") {
		return fmt.Errorf("tag %q must not contain path separators", s.Tag)
	}
	return nil
}
