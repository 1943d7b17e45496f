package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	WorkDir  string `toml:"work_dir"`
	LogDir   string `toml:"log_dir"`
	StateDir string `toml:"state_dir"`
	APIBind  string `toml:"api_bind"`
	APIToken string `toml:"api_token"`
}

// Tools names the external binaries and how they are invoked.
type Tools struct {
	YtDlp                   string `toml:"yt_dlp"`
	FFmpeg                  string `toml:"ffmpeg"`
	FFprobe                 string `toml:"ffprobe"`
	ExtractorRetries        int    `toml:"extractor_retries"`
	FragmentRetries         int    `toml:"fragment_retries"`
	DownloadTimeoutSeconds  int    `toml:"download_timeout_seconds"`
	TranscodeTimeoutSeconds int    `toml:"transcode_timeout_seconds"`
	MetadataTimeoutSeconds  int    `toml:"metadata_timeout_seconds"`
}

// Server contains HTTP admission and streaming settings.
type Server struct {
	AllowedOrigins       []string `toml:"allowed_origins"`
	MaxConcurrentRuns    int      `toml:"max_concurrent_runs"`
	SubmissionsPerMinute int      `toml:"submissions_per_minute"`
	// CancelOnDisconnect stops a run's tools when the client goes away.
	CancelOnDisconnect bool `toml:"cancel_on_disconnect"`
}

// Artifacts controls retention of run directories.
type Artifacts struct {
	TTLMinutes             int  `toml:"ttl_minutes"`
	JanitorIntervalMinutes int  `toml:"janitor_interval_minutes"`
	VerifyOutput           bool `toml:"verify_output"`
}

// History controls the sqlite run ledger.
type History struct {
	Enabled       bool `toml:"enabled"`
	RetentionDays int  `toml:"retention_days"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for ytclip.
type Config struct {
	Paths     Paths     `toml:"paths"`
	Tools     Tools     `toml:"tools"`
	Server    Server    `toml:"server"`
	Artifacts Artifacts `toml:"artifacts"`
	History   History   `toml:"history"`
	Logging   Logging   `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned
// config has environment overrides applied and all paths expanded.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config %s: %w", resolvedPath, err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}
	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs(projectConfigName)
	if err != nil {
		return "", false, err
	}
	for _, candidate := range []string{defaultPath, projectPath} {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true, nil
		}
	}
	return defaultPath, false, nil
}

// EnsureDirectories creates the work, log and state directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.WorkDir, c.Paths.LogDir, c.Paths.StateDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// LogPath is the daemon log file, or empty when file logging is off.
func (c *Config) LogPath() string {
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		return ""
	}
	return filepath.Join(c.Paths.LogDir, "ytclip.log")
}

// HistoryPath is the sqlite run ledger location.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.Paths.StateDir, "history.db")
}

// LockPath is the single-instance lock for the daemon.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "ytclip.lock")
}

// DownloadTimeout is zero when downloads are unbounded.
func (c *Config) DownloadTimeout() time.Duration {
	return time.Duration(c.Tools.DownloadTimeoutSeconds) * time.Second
}

// TranscodeTimeout is zero when ffmpeg runs are unbounded.
func (c *Config) TranscodeTimeout() time.Duration {
	return time.Duration(c.Tools.TranscodeTimeoutSeconds) * time.Second
}

// MetadataTimeout bounds a single YouTube metadata request.
func (c *Config) MetadataTimeout() time.Duration {
	return time.Duration(c.Tools.MetadataTimeoutSeconds) * time.Second
}

// ArtifactTTL is how long an undelivered run directory survives.
func (c *Config) ArtifactTTL() time.Duration {
	return time.Duration(c.Artifacts.TTLMinutes) * time.Minute
}

// JanitorInterval is how often expired run directories are swept.
func (c *Config) JanitorInterval() time.Duration {
	return time.Duration(c.Artifacts.JanitorIntervalMinutes) * time.Minute
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	absolute, err := filepath.Abs(filepath.Clean(pathValue))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", pathValue, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
