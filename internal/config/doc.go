// Package config loads ytclip's TOML configuration, fills defaults, applies
// environment overrides, and validates the result.
//
// Load searches ~/.config/ytclip/config.toml and then ./ytclip.toml when no
// explicit path is given. A missing file is not an error: defaults plus
// environment variables (YTCLIP_API_TOKEN, YTCLIP_API_BIND, YTCLIP_WORK_DIR,
// ALLOWED_ORIGINS) are enough to run the server.
package config
