package config

import (
	"fmt"
	"net/url"
	"slices"
	"strings"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "collaboration.lock_ttl_ms")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	errors = append(errors, c.validateCollaboration()...)
	errors = append(errors, c.validateSimulation()...)
	errors = append(errors, c.validateTUI()...)
	errors = append(errors, c.validateLogging()...)
	errors = append(errors, c.validateStorage()...)

	return errors
}

// positive appends an error when value is not greater than zero
func positive(errors []ValidationError, field string, value int) []ValidationError {
	if value <= 0 {
		errors = append(errors, ValidationError{
			Field:   field,
			Value:   value,
			Message: "must be positive",
		})
	}
	return errors
}

// validateCollaboration validates the CollaborationConfig
func (c *Config) validateCollaboration() []ValidationError {
	var errors []ValidationError

	errors = positive(errors, "collaboration.lock_ttl_ms", c.Collaboration.LockTTLMs)
	errors = positive(errors, "collaboration.live_change_ttl_ms", c.Collaboration.LiveChangeTTLMs)
	errors = positive(errors, "collaboration.live_change_limit", c.Collaboration.LiveChangeLimit)
	errors = positive(errors, "collaboration.activity_log_size", c.Collaboration.ActivityLogSize)

	// Zero latency delivers on the next timer tick, which is still asynchronous
	if c.Collaboration.MergeLatencyMs < 0 {
		errors = append(errors, ValidationError{
			Field:   "collaboration.merge_latency_ms",
			Value:   c.Collaboration.MergeLatencyMs,
			Message: "must be non-negative",
		})
	}

	// A typing indicator must not outlive the lock it belongs to
	if c.Collaboration.LiveChangeTTLMs > 0 && c.Collaboration.LockTTLMs > 0 &&
		c.Collaboration.LiveChangeTTLMs > c.Collaboration.LockTTLMs {
		errors = append(errors, ValidationError{
			Field:   "collaboration.live_change_ttl_ms",
			Value:   c.Collaboration.LiveChangeTTLMs,
			Message: fmt.Sprintf("must not exceed collaboration.lock_ttl_ms (%d)", c.Collaboration.LockTTLMs),
		})
	}

	if u, err := url.Parse(c.Collaboration.InviteOrigin); err != nil ||
		(u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errors = append(errors, ValidationError{
			Field:   "collaboration.invite_origin",
			Value:   c.Collaboration.InviteOrigin,
			Message: "must be an http or https URL with a host",
		})
	}

	const maxActivityLogSize = 1000
	if c.Collaboration.ActivityLogSize > maxActivityLogSize {
		errors = append(errors, ValidationError{
			Field:   "collaboration.activity_log_size",
			Value:   c.Collaboration.ActivityLogSize,
			Message: fmt.Sprintf("exceeds maximum of %d", maxActivityLogSize),
		})
	}

	return errors
}

// validateSimulation validates the SimulationConfig
func (c *Config) validateSimulation() []ValidationError {
	var errors []ValidationError

	errors = positive(errors, "simulation.interval_ms", c.Simulation.IntervalMs)

	if c.Simulation.ActivityThreshold < 0 || c.Simulation.ActivityThreshold > 1 {
		errors = append(errors, ValidationError{
			Field:   "simulation.activity_threshold",
			Value:   c.Simulation.ActivityThreshold,
			Message: "must be between 0 and 1",
		})
	}

	// The demo name list supports a bounded number of participants
	const maxParticipants = 50
	if c.Simulation.Participants < 0 || c.Simulation.Participants > maxParticipants {
		errors = append(errors, ValidationError{
			Field:   "simulation.participants",
			Value:   c.Simulation.Participants,
			Message: fmt.Sprintf("must be between 0 and %d", maxParticipants),
		})
	}

	if c.Simulation.Rounds < 0 {
		errors = append(errors, ValidationError{
			Field:   "simulation.rounds",
			Value:   c.Simulation.Rounds,
			Message: "must be non-negative",
		})
	}

	if c.Simulation.MaxConcurrent < 0 {
		errors = append(errors, ValidationError{
			Field:   "simulation.max_concurrent",
			Value:   c.Simulation.MaxConcurrent,
			Message: "must be non-negative (0 = unlimited)",
		})
	}

	return errors
}

// validateTUI validates the TUIConfig
func (c *Config) validateTUI() []ValidationError {
	var errors []ValidationError

	// Refresh faster than 10ms only burns CPU
	const minRefreshMs = 10
	if c.TUI.RefreshIntervalMs < minRefreshMs {
		errors = append(errors, ValidationError{
			Field:   "tui.refresh_interval_ms",
			Value:   c.TUI.RefreshIntervalMs,
			Message: fmt.Sprintf("must be at least %d", minRefreshMs),
		})
	}

	errors = positive(errors, "tui.activity_lines", c.TUI.ActivityLines)

	return errors
}

// validateLogging validates the LoggingConfig
func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	// Validate log level
	if c.Logging.Level != "" && !slices.Contains(ValidLogLevels(), c.Logging.Level) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}

	errors = positive(errors, "logging.max_size_mb", c.Logging.MaxSizeMB)

	// Reasonable upper bound for log file size
	const maxLogSizeMB = 1000 // 1GB
	if c.Logging.MaxSizeMB > maxLogSizeMB {
		errors = append(errors, ValidationError{
			Field:   "logging.max_size_mb",
			Value:   c.Logging.MaxSizeMB,
			Message: fmt.Sprintf("exceeds maximum of %dMB", maxLogSizeMB),
		})
	}

	// Max backups must be non-negative
	if c.Logging.MaxBackups < 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_backups",
			Value:   c.Logging.MaxBackups,
			Message: "must be non-negative",
		})
	}

	errors = append(errors, validatePath("logging.dir", c.Logging.Dir)...)

	return errors
}

// validateStorage validates the StorageConfig
func (c *Config) validateStorage() []ValidationError {
	var errors []ValidationError

	if strings.TrimSpace(c.Storage.Namespace) == "" {
		errors = append(errors, ValidationError{
			Field:   "storage.namespace",
			Value:   c.Storage.Namespace,
			Message: "must not be empty",
		})
	}

	errors = append(errors, validatePath("storage.path", c.Storage.Path)...)

	return errors
}

// validatePath rejects paths no filesystem will accept. Empty is allowed.
func validatePath(field, path string) []ValidationError {
	var errors []ValidationError

	// Check for null bytes which are invalid in paths
	if strings.ContainsRune(path, '\x00') {
		errors = append(errors, ValidationError{
			Field:   field,
			Value:   path,
			Message: "path contains invalid null character",
		})
	}

	// Reasonable path length limit (most filesystems have limits around 4096)
	const maxPathLength = 4096
	if len(path) > maxPathLength {
		errors = append(errors, ValidationError{
			Field:   field,
			Value:   path,
			Message: fmt.Sprintf("path exceeds maximum length of %d characters", maxPathLength),
		})
	}

	return errors
}
