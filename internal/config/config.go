package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete cvcollab configuration
type Config struct {
	Collaboration CollaborationConfig `mapstructure:"collaboration" yaml:"collaboration"`
	Simulation    SimulationConfig    `mapstructure:"simulation" yaml:"simulation"`
	TUI           TUIConfig           `mapstructure:"tui" yaml:"tui"`
	Logging       LoggingConfig       `mapstructure:"logging" yaml:"logging"`
	Storage       StorageConfig       `mapstructure:"storage" yaml:"storage"`
}

// CollaborationConfig holds the timing and sizing of the collaboration core
type CollaborationConfig struct {
	// LockTTLMs is how long an edit lock keeps other participants off a field (default: 10000)
	LockTTLMs int `mapstructure:"lock_ttl_ms" yaml:"lock_ttl_ms"`
	// LiveChangeTTLMs is how long a typing indicator stays visible (default: 3000)
	LiveChangeTTLMs int `mapstructure:"live_change_ttl_ms" yaml:"live_change_ttl_ms"`
	// LiveChangeLimit is the number of typing indicators retained (default: 5)
	LiveChangeLimit int `mapstructure:"live_change_limit" yaml:"live_change_limit"`
	// ActivityLogSize is the number of activity entries retained (default: 20)
	ActivityLogSize int `mapstructure:"activity_log_size" yaml:"activity_log_size"`
	// MergeLatencyMs is the simulated delivery delay for shared edits (default: 500)
	MergeLatencyMs int `mapstructure:"merge_latency_ms" yaml:"merge_latency_ms"`
	// InviteOrigin is the base URL of invite links, <origin>/join/<code> (default: "http://localhost:3000")
	InviteOrigin string `mapstructure:"invite_origin" yaml:"invite_origin"`
}

// SimulationConfig controls the mock collaborator activity
type SimulationConfig struct {
	// IntervalMs is how often random activity is drawn (default: 10000)
	IntervalMs int `mapstructure:"interval_ms" yaml:"interval_ms"`
	// ActivityThreshold is the draw a tick must exceed to record activity (default: 0.7)
	ActivityThreshold float64 `mapstructure:"activity_threshold" yaml:"activity_threshold"`
	// Participants is the number of simulated remote participants (default: 2)
	Participants int `mapstructure:"participants" yaml:"participants"`
	// Rounds is the number of scripted edits each participant makes (default: 3)
	Rounds int `mapstructure:"rounds" yaml:"rounds"`
	// MaxConcurrent caps how many participants act at once; 0 means all (default: 0)
	MaxConcurrent int `mapstructure:"max_concurrent" yaml:"max_concurrent"`
}

// TUIConfig controls the dashboard
type TUIConfig struct {
	// RefreshIntervalMs is how often the dashboard re-reads the context (default: 250)
	RefreshIntervalMs int `mapstructure:"refresh_interval_ms" yaml:"refresh_interval_ms"`
	// ActivityLines is the number of feed entries shown (default: 10)
	ActivityLines int `mapstructure:"activity_lines" yaml:"activity_lines"`
}

// LoggingConfig controls debug logging behavior
type LoggingConfig struct {
	// Enabled controls whether logs are written to a file (default: true)
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
	// Level is the minimum log level: "debug", "info", "warn", "error" (default: "info")
	Level string `mapstructure:"level" yaml:"level"`
	// Dir is the directory holding collab.log; empty means <config dir>/logs
	Dir string `mapstructure:"dir" yaml:"dir"`
	// MaxSizeMB is the size at which collab.log is rotated (default: 10)
	MaxSizeMB int `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	// MaxBackups is the number of rotated files kept (default: 3)
	MaxBackups int `mapstructure:"max_backups" yaml:"max_backups"`
	// Compress gzips rotated files (default: false)
	Compress bool `mapstructure:"compress" yaml:"compress"`
}

// StorageConfig controls where CV data is persisted
type StorageConfig struct {
	// Path is the SQLite database file; empty means <config dir>/cv.db
	Path string `mapstructure:"path" yaml:"path"`
	// Namespace partitions stored keys so profiles can share a file (default: "default")
	Namespace string `mapstructure:"namespace" yaml:"namespace"`
}

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Collaboration: CollaborationConfig{
			LockTTLMs:       10000,
			LiveChangeTTLMs: 3000,
			LiveChangeLimit: 5,
			ActivityLogSize: 20,
			MergeLatencyMs:  500,
			InviteOrigin:    "http://localhost:3000",
		},
		Simulation: SimulationConfig{
			IntervalMs:        10000,
			ActivityThreshold: 0.7,
			Participants:      2,
			Rounds:            3,
			MaxConcurrent:     0,
		},
		TUI: TUIConfig{
			RefreshIntervalMs: 250,
			ActivityLines:     10,
		},
		Logging: LoggingConfig{
			Enabled:    true,
			Level:      "info",
			Dir:        "",
			MaxSizeMB:  10,
			MaxBackups: 3,
			Compress:   false,
		},
		Storage: StorageConfig{
			Path:      "",
			Namespace: "default",
		},
	}
}

// LockTTL returns the edit lock lifetime as a time.Duration
func (c *CollaborationConfig) LockTTL() time.Duration {
	return time.Duration(c.LockTTLMs) * time.Millisecond
}

// LiveChangeTTL returns the typing indicator lifetime as a time.Duration
func (c *CollaborationConfig) LiveChangeTTL() time.Duration {
	return time.Duration(c.LiveChangeTTLMs) * time.Millisecond
}

// MergeLatency returns the simulated delivery delay as a time.Duration
func (c *CollaborationConfig) MergeLatency() time.Duration {
	return time.Duration(c.MergeLatencyMs) * time.Millisecond
}

// Interval returns the simulation interval as a time.Duration
func (c *SimulationConfig) Interval() time.Duration {
	return time.Duration(c.IntervalMs) * time.Millisecond
}

// RefreshInterval returns the dashboard refresh interval as a time.Duration
func (c *TUIConfig) RefreshInterval() time.Duration {
	return time.Duration(c.RefreshIntervalMs) * time.Millisecond
}

// ResolveDir returns the log directory, defaulting to <config dir>/logs
func (c *LoggingConfig) ResolveDir() string {
	if c.Dir == "" {
		return filepath.Join(ConfigDir(), "logs")
	}
	return expandHome(c.Dir)
}

// ResolvePath returns the database path, defaulting to <config dir>/cv.db
func (c *StorageConfig) ResolvePath() string {
	if c.Path == "" {
		return filepath.Join(ConfigDir(), "cv.db")
	}
	return expandHome(c.Path)
}

// expandHome expands a leading ~ to the user's home directory
func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path[1:], "/"))
}

// SetDefaults registers default values with viper
func SetDefaults() {
	defaults := Default()

	// Collaboration defaults
	viper.SetDefault("collaboration.lock_ttl_ms", defaults.Collaboration.LockTTLMs)
	viper.SetDefault("collaboration.live_change_ttl_ms", defaults.Collaboration.LiveChangeTTLMs)
	viper.SetDefault("collaboration.live_change_limit", defaults.Collaboration.LiveChangeLimit)
	viper.SetDefault("collaboration.activity_log_size", defaults.Collaboration.ActivityLogSize)
	viper.SetDefault("collaboration.merge_latency_ms", defaults.Collaboration.MergeLatencyMs)
	viper.SetDefault("collaboration.invite_origin", defaults.Collaboration.InviteOrigin)

	// Simulation defaults
	viper.SetDefault("simulation.interval_ms", defaults.Simulation.IntervalMs)
	viper.SetDefault("simulation.activity_threshold", defaults.Simulation.ActivityThreshold)
	viper.SetDefault("simulation.participants", defaults.Simulation.Participants)
	viper.SetDefault("simulation.rounds", defaults.Simulation.Rounds)
	viper.SetDefault("simulation.max_concurrent", defaults.Simulation.MaxConcurrent)

	// TUI defaults
	viper.SetDefault("tui.refresh_interval_ms", defaults.TUI.RefreshIntervalMs)
	viper.SetDefault("tui.activity_lines", defaults.TUI.ActivityLines)

	// Logging defaults
	viper.SetDefault("logging.enabled", defaults.Logging.Enabled)
	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.dir", defaults.Logging.Dir)
	viper.SetDefault("logging.max_size_mb", defaults.Logging.MaxSizeMB)
	viper.SetDefault("logging.max_backups", defaults.Logging.MaxBackups)
	viper.SetDefault("logging.compress", defaults.Logging.Compress)

	// Storage defaults
	viper.SetDefault("storage.path", defaults.Storage.Path)
	viper.SetDefault("storage.namespace", defaults.Storage.Namespace)
}

// Load reads the configuration from viper into a Config struct and validates it
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// Validate the configuration
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// Get returns the current configuration (convenience function)
func Get() *Config {
	cfg, err := Load()
	if err != nil {
		// Fall back to defaults if unmarshaling fails
		return Default()
	}
	return cfg
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	// Check XDG_CONFIG_HOME first
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "cvcollab")
	}
	// Fall back to ~/.config/cvcollab
	home, err := os.UserHomeDir()
	if err != nil {
		return ".cvcollab"
	}
	return filepath.Join(home, ".config", "cvcollab")
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}
