package config

const (
	defaultConfigPath             = "~/.config/ytclip/config.toml"
	projectConfigName             = "ytclip.toml"
	defaultWorkDir                = "~/.local/share/ytclip/work"
	defaultLogDir                 = "~/.local/share/ytclip/logs"
	defaultStateDir               = "~/.local/share/ytclip/state"
	defaultAPIBind                = "127.0.0.1:7390"
	defaultYtDlp                  = "yt-dlp"
	defaultFFmpeg                 = "ffmpeg"
	defaultFFprobe                = "ffprobe"
	defaultExtractorRetries       = 3
	defaultFragmentRetries        = 10
	defaultMetadataTimeoutSeconds = 15
	defaultMaxConcurrentRuns      = 2
	defaultSubmissionsPerMinute   = 30
	defaultArtifactTTLMinutes     = 60
	defaultJanitorIntervalMinutes = 5
	defaultHistoryRetentionDays   = 30
	defaultLogFormat              = "console"
	defaultLogLevel               = "info"
	defaultLogRetentionDays       = 14
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkDir:  defaultWorkDir,
			LogDir:   defaultLogDir,
			StateDir: defaultStateDir,
			APIBind:  defaultAPIBind,
		},
		Tools: Tools{
			YtDlp:                  defaultYtDlp,
			FFmpeg:                 defaultFFmpeg,
			FFprobe:                defaultFFprobe,
			ExtractorRetries:       defaultExtractorRetries,
			FragmentRetries:        defaultFragmentRetries,
			MetadataTimeoutSeconds: defaultMetadataTimeoutSeconds,
		},
		Server: Server{
			MaxConcurrentRuns:    defaultMaxConcurrentRuns,
			SubmissionsPerMinute: defaultSubmissionsPerMinute,
			CancelOnDisconnect:   true,
		},
		Artifacts: Artifacts{
			TTLMinutes:             defaultArtifactTTLMinutes,
			JanitorIntervalMinutes: defaultJanitorIntervalMinutes,
		},
		History: History{
			Enabled:       true,
			RetentionDays: defaultHistoryRetentionDays,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
