package cmd

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/Iron-Ham/cvcollab/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or modify cvcollab configuration",
	Long: `View or modify cvcollab configuration.

Without arguments, displays the current configuration.
Use subcommands to modify settings or create a config file.`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a configuration value in the user's config file.

Keys use dot notation, e.g.:
  cvcollab config set collaboration.lock_ttl_ms 15000
  cvcollab config set simulation.activity_threshold 0.5
  cvcollab config set logging.level debug

The value is checked against the same rules used at startup before the
file is written.`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a default config file",
	Long:  `Create a default config file at ~/.config/cvcollab/config.yaml with all available options.`,
	RunE:  runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Show the config file path",
	RunE:  runConfigPath,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configPathCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	cfg := config.Get()

	if viper.ConfigFileUsed() != "" {
		fmt.Fprintf(out, "# Config file: %s\n", viper.ConfigFileUsed())
	} else {
		fmt.Fprintln(out, "# Config file: (none - using defaults)")
	}

	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return enc.Close()
}

// settableKeys lists the keys accepted by "config set".
func settableKeys() []string {
	keys := make([]string, 0, len(viper.AllKeys()))
	for _, key := range viper.AllKeys() {
		if key == "config" {
			continue
		}
		keys = append(keys, key)
	}
	slices.Sort(keys)
	return keys
}

// parseConfigValue converts value to the type of the key's current setting.
func parseConfigValue(key, value string) (any, error) {
	switch viper.Get(key).(type) {
	case bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return nil, fmt.Errorf("invalid value for %s: expected true or false", key)
		}
		return b, nil
	case int, int64:
		n, err := strconv.Atoi(value)
		if err != nil {
			return nil, fmt.Errorf("invalid value for %s: expected integer", key)
		}
		return n, nil
	case float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid value for %s: expected number", key)
		}
		return f, nil
	default:
		return value, nil
	}
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	key := strings.ToLower(args[0])
	value := args[1]

	keys := settableKeys()
	if !slices.Contains(keys, key) {
		return fmt.Errorf("unknown configuration key: %s\nValid keys: %s", key, strings.Join(keys, ", "))
	}

	typedValue, err := parseConfigValue(key, value)
	if err != nil {
		return err
	}

	previous := viper.Get(key)
	viper.Set(key, typedValue)
	if _, err := config.Load(); err != nil {
		viper.Set(key, previous)
		return err
	}

	configDir := config.ConfigDir()
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	configFile := viper.ConfigFileUsed()
	if configFile == "" {
		configFile = config.ConfigFile()
	}
	if err := writeConfigFile(configFile); err != nil {
		return err
	}

	fmt.Fprintf(out, "Set %s = %v\n", key, typedValue)
	fmt.Fprintf(out, "Config saved to %s\n", configFile)
	return nil
}

// writeConfigFile writes the effective configuration to path.
func writeConfigFile(path string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// sectionComments annotate the top-level keys of a generated config file.
var sectionComments = map[string]string{
	"collaboration": "Session behaviour: edit locks, typing indicators, activity feed and\nhow long shared edits take to reach other participants",
	"simulation":    "Simulated participants and the background activity loop",
	"tui":           "Dashboard settings for 'cvcollab watch'; changes apply while it runs",
	"logging":       "Structured JSON log with size-based rotation; compress gzips rolled files\nLeave dir empty to use ~/.config/cvcollab/logs",
	"storage":       "Stored CV written by 'cvcollab simulate --save'\nLeave path empty to use ~/.config/cvcollab/cv.db",
}

// defaultConfigYAML renders the defaults as a commented YAML document.
func defaultConfigYAML() ([]byte, error) {
	var doc yaml.Node
	if err := doc.Encode(config.Default()); err != nil {
		return nil, err
	}
	doc.HeadComment = "cvcollab configuration"
	for i := 0; i+1 < len(doc.Content); i += 2 {
		if comment, ok := sectionComments[doc.Content[i].Value]; ok {
			doc.Content[i].HeadComment = comment
		}
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	configDir := config.ConfigDir()
	configFile := config.ConfigFile()

	if _, err := os.Stat(configFile); err == nil {
		return fmt.Errorf("config file already exists at %s\nUse 'cvcollab config set' to modify values", configFile)
	}

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	content, err := defaultConfigYAML()
	if err != nil {
		return fmt.Errorf("failed to render default config: %w", err)
	}
	if err := os.WriteFile(configFile, content, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	fmt.Fprintf(out, "Created config file at %s\n", configFile)
	return nil
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	configFile := config.ConfigFile()

	if viper.ConfigFileUsed() != "" {
		fmt.Fprintf(out, "Active config: %s\n", viper.ConfigFileUsed())
	} else {
		fmt.Fprintf(out, "Default path: %s (not created)\n", configFile)
	}

	fmt.Fprintln(out, "\nSearch paths:")
	fmt.Fprintf(out, "  1. %s\n", filepath.Join(config.ConfigDir(), "config.yaml"))
	fmt.Fprintln(out, "  2. ./config.yaml (current directory)")
	fmt.Fprintln(out, "\nEnvironment variables: CVCOLLAB_* (e.g., CVCOLLAB_COLLABORATION_LOCK_TTL_MS)")
	return nil
}
