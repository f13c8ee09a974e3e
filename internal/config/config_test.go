package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg == nil {
		t.Fatal("Default() returned nil")
	}

	// Collaboration timings
	if cfg.Collaboration.LockTTLMs != 10000 {
		t.Errorf("Collaboration.LockTTLMs = %d, want 10000", cfg.Collaboration.LockTTLMs)
	}
	if cfg.Collaboration.LiveChangeTTLMs != 3000 {
		t.Errorf("Collaboration.LiveChangeTTLMs = %d, want 3000", cfg.Collaboration.LiveChangeTTLMs)
	}
	if cfg.Collaboration.LiveChangeLimit != 5 {
		t.Errorf("Collaboration.LiveChangeLimit = %d, want 5", cfg.Collaboration.LiveChangeLimit)
	}
	if cfg.Collaboration.ActivityLogSize != 20 {
		t.Errorf("Collaboration.ActivityLogSize = %d, want 20", cfg.Collaboration.ActivityLogSize)
	}
	if cfg.Collaboration.MergeLatencyMs != 500 {
		t.Errorf("Collaboration.MergeLatencyMs = %d, want 500", cfg.Collaboration.MergeLatencyMs)
	}
	if cfg.Collaboration.InviteOrigin != "http://localhost:3000" {
		t.Errorf("Collaboration.InviteOrigin = %q, want http://localhost:3000", cfg.Collaboration.InviteOrigin)
	}

	// Simulation
	if cfg.Simulation.IntervalMs != 10000 {
		t.Errorf("Simulation.IntervalMs = %d, want 10000", cfg.Simulation.IntervalMs)
	}
	if cfg.Simulation.ActivityThreshold != 0.7 {
		t.Errorf("Simulation.ActivityThreshold = %v, want 0.7", cfg.Simulation.ActivityThreshold)
	}

	// Logging and storage
	if !cfg.Logging.Enabled {
		t.Error("Logging.Enabled should be true by default")
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "info")
	}
	if cfg.Storage.Namespace != "default" {
		t.Errorf("Storage.Namespace = %q, want %q", cfg.Storage.Namespace, "default")
	}
}

func TestDurationAccessors(t *testing.T) {
	cfg := Default()

	tests := []struct {
		name string
		got  time.Duration
		want time.Duration
	}{
		{"LockTTL", cfg.Collaboration.LockTTL(), 10 * time.Second},
		{"LiveChangeTTL", cfg.Collaboration.LiveChangeTTL(), 3 * time.Second},
		{"MergeLatency", cfg.Collaboration.MergeLatency(), 500 * time.Millisecond},
		{"Interval", cfg.Simulation.Interval(), 10 * time.Second},
		{"RefreshInterval", cfg.TUI.RefreshInterval(), 250 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("%s() = %v, want %v", tt.name, tt.got, tt.want)
			}
		})
	}
}

func TestConfigDir(t *testing.T) {
	t.Run("with XDG_CONFIG_HOME", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", "/custom/config")
		result := ConfigDir()
		expected := "/custom/config/cvcollab"
		if result != expected {
			t.Errorf("ConfigDir() = %q, want %q", result, expected)
		}
	})

	t.Run("without XDG_CONFIG_HOME", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", "")
		result := ConfigDir()

		home, _ := os.UserHomeDir()
		expected := filepath.Join(home, ".config", "cvcollab")
		if result != expected {
			t.Errorf("ConfigDir() = %q, want %q", result, expected)
		}
	})
}

func TestConfigFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/custom/config")
	result := ConfigFile()
	expected := "/custom/config/cvcollab/config.yaml"
	if result != expected {
		t.Errorf("ConfigFile() = %q, want %q", result, expected)
	}
}

func TestResolvePaths(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/custom/config")
	home, _ := os.UserHomeDir()

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"default log dir", (&LoggingConfig{}).ResolveDir(), "/custom/config/cvcollab/logs"},
		{"explicit log dir", (&LoggingConfig{Dir: "/var/log/cv"}).ResolveDir(), "/var/log/cv"},
		{"default db path", (&StorageConfig{}).ResolvePath(), "/custom/config/cvcollab/cv.db"},
		{"home db path", (&StorageConfig{Path: "~/cv.db"}).ResolvePath(), filepath.Join(home, "cv.db")},
		{"relative db path", (&StorageConfig{Path: "data/cv.db"}).ResolvePath(), "data/cv.db"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}

func TestGet(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	// Set defaults in viper first (normally done by cmd init)
	SetDefaults()

	cfg := Get()
	if cfg == nil {
		t.Fatal("Get() returned nil")
	}
	if cfg.Collaboration.LockTTLMs != 10000 {
		t.Errorf("Get().Collaboration.LockTTLMs = %d, want 10000", cfg.Collaboration.LockTTLMs)
	}
}

func TestLoad(t *testing.T) {
	t.Run("overrides", func(t *testing.T) {
		viper.Reset()
		t.Cleanup(viper.Reset)
		SetDefaults()
		viper.Set("collaboration.lock_ttl_ms", 4000)
		viper.Set("storage.namespace", "alice")
		viper.Set("logging.compress", true)

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if cfg.Collaboration.LockTTLMs != 4000 {
			t.Errorf("LockTTLMs = %d, want 4000", cfg.Collaboration.LockTTLMs)
		}
		if cfg.Collaboration.LiveChangeTTLMs != 3000 {
			t.Errorf("LiveChangeTTLMs = %d, want default 3000", cfg.Collaboration.LiveChangeTTLMs)
		}
		if cfg.Storage.Namespace != "alice" {
			t.Errorf("Storage.Namespace = %q, want alice", cfg.Storage.Namespace)
		}
		if !cfg.Logging.Compress {
			t.Error("Logging.Compress = false, want true")
		}
	})

	t.Run("lock TTL below live change TTL", func(t *testing.T) {
		viper.Reset()
		t.Cleanup(viper.Reset)
		SetDefaults()
		viper.Set("collaboration.lock_ttl_ms", 2000)

		_, err := Load()
		errs, ok := err.(ValidationErrors)
		if !ok || len(errs) != 1 || errs[0].Field != "collaboration.live_change_ttl_ms" {
			t.Fatalf("Load() error = %v, want one live_change_ttl_ms error", err)
		}

		viper.Set("collaboration.live_change_ttl_ms", 2000)
		if _, err := Load(); err != nil {
			t.Errorf("Load() with equal TTLs error = %v", err)
		}
	})

	t.Run("invalid values", func(t *testing.T) {
		viper.Reset()
		t.Cleanup(viper.Reset)
		SetDefaults()
		viper.Set("collaboration.live_change_limit", 0)

		_, err := Load()
		errs, ok := err.(ValidationErrors)
		if !ok || len(errs) != 1 || errs[0].Field != "collaboration.live_change_limit" {
			t.Errorf("Load() error = %v, want one live_change_limit error", err)
		}

		// Get falls back to defaults
		if got := Get().Collaboration.LiveChangeLimit; got != 5 {
			t.Errorf("Get().Collaboration.LiveChangeLimit = %d, want 5", got)
		}
	})

	t.Run("from file", func(t *testing.T) {
		viper.Reset()
		t.Cleanup(viper.Reset)
		SetDefaults()

		path := filepath.Join(t.TempDir(), "config.yaml")
		data := "collaboration:\n  merge_latency_ms: 50\nsimulation:\n  participants: 4\n"
		if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
			t.Fatal(err)
		}
		viper.SetConfigFile(path)
		if err := viper.ReadInConfig(); err != nil {
			t.Fatalf("ReadInConfig() error = %v", err)
		}

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if cfg.Collaboration.MergeLatency() != 50*time.Millisecond {
			t.Errorf("MergeLatency() = %v, want 50ms", cfg.Collaboration.MergeLatency())
		}
		if cfg.Simulation.Participants != 4 {
			t.Errorf("Simulation.Participants = %d, want 4", cfg.Simulation.Participants)
		}
	})
}
