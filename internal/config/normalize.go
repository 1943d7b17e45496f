package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	c.applyEnv()
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeTools()
	c.normalizeServer()
	c.normalizeLogging()
	return nil
}

// applyEnv fills values the file left empty from the environment.
func (c *Config) applyEnv() {
	if c.Paths.APIToken == "" {
		if value, ok := os.LookupEnv("YTCLIP_API_TOKEN"); ok {
			c.Paths.APIToken = strings.TrimSpace(value)
		}
	}
	if value, ok := os.LookupEnv("YTCLIP_API_BIND"); ok && strings.TrimSpace(value) != "" {
		c.Paths.APIBind = strings.TrimSpace(value)
	}
	if value, ok := os.LookupEnv("YTCLIP_WORK_DIR"); ok && strings.TrimSpace(value) != "" {
		c.Paths.WorkDir = strings.TrimSpace(value)
	}
	if len(c.Server.AllowedOrigins) == 0 {
		if value, ok := os.LookupEnv("ALLOWED_ORIGINS"); ok {
			c.Server.AllowedOrigins = strings.Split(value, ",")
		}
	}
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.WorkDir) == "" {
		c.Paths.WorkDir = defaultWorkDir
	}
	if c.Paths.WorkDir, err = expandPath(c.Paths.WorkDir); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	return nil
}

func (c *Config) normalizeTools() {
	c.Tools.YtDlp = orDefault(c.Tools.YtDlp, defaultYtDlp)
	c.Tools.FFmpeg = orDefault(c.Tools.FFmpeg, defaultFFmpeg)
	c.Tools.FFprobe = orDefault(c.Tools.FFprobe, defaultFFprobe)
	if c.Tools.MetadataTimeoutSeconds <= 0 {
		c.Tools.MetadataTimeoutSeconds = defaultMetadataTimeoutSeconds
	}
}

func (c *Config) normalizeServer() {
	origins := make([]string, 0, len(c.Server.AllowedOrigins))
	seen := map[string]struct{}{}
	for _, origin := range c.Server.AllowedOrigins {
		origin = strings.TrimRight(strings.TrimSpace(origin), "/")
		if origin == "" {
			continue
		}
		if _, ok := seen[origin]; ok {
			continue
		}
		seen[origin] = struct{}{}
		origins = append(origins, origin)
	}
	c.Server.AllowedOrigins = origins
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(orDefault(c.Logging.Format, defaultLogFormat))
	c.Logging.Level = strings.ToLower(orDefault(c.Logging.Level, defaultLogLevel))
}

func orDefault(value, fallback string) string {
	if value = strings.TrimSpace(value); value == "" {
		return fallback
	}
	return value
}
