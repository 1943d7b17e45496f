package config

import (
	"errors"
	"fmt"
	"net"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateTools(); err != nil {
		return err
	}
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateArtifacts(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if c.Paths.WorkDir == "" {
		return errors.New("paths.work_dir must be set")
	}
	if c.Paths.StateDir == "" {
		return errors.New("paths.state_dir must be set")
	}
	if _, _, err := net.SplitHostPort(c.Paths.APIBind); err != nil {
		return fmt.Errorf("paths.api_bind %q: %w", c.Paths.APIBind, err)
	}
	return nil
}

func (c *Config) validateTools() error {
	switch {
	case c.Tools.ExtractorRetries < 0:
		return errors.New("tools.extractor_retries must be >= 0")
	case c.Tools.FragmentRetries < 0:
		return errors.New("tools.fragment_retries must be >= 0")
	case c.Tools.DownloadTimeoutSeconds < 0:
		return errors.New("tools.download_timeout_seconds must be >= 0 (0 disables)")
	case c.Tools.TranscodeTimeoutSeconds < 0:
		return errors.New("tools.transcode_timeout_seconds must be >= 0 (0 disables)")
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.MaxConcurrentRuns < 0 {
		return errors.New("server.max_concurrent_runs must be >= 0 (0 means unlimited)")
	}
	if c.Server.SubmissionsPerMinute < 0 {
		return errors.New("server.submissions_per_minute must be >= 0 (0 means unlimited)")
	}
	return nil
}

func (c *Config) validateArtifacts() error {
	if c.Artifacts.TTLMinutes < 0 {
		return errors.New("artifacts.ttl_minutes must be >= 0 (0 disables expiry)")
	}
	if c.Artifacts.TTLMinutes > 0 && c.Artifacts.JanitorIntervalMinutes <= 0 {
		return errors.New("artifacts.janitor_interval_minutes must be positive when ttl_minutes is set")
	}
	if c.History.RetentionDays < 0 {
		return errors.New("history.retention_days must be >= 0")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format %q must be console or json", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q must be debug, info, warn or error", c.Logging.Level)
	}
	if c.Logging.RetentionDays < 0 {
		return errors.New("logging.retention_days must be >= 0")
	}
	return nil
}
