package config

import (
	"os"
	"path/filepath"
)

// Config holds configuration for the webextools CLI.
type Config struct {
	APIBaseURL      string // Webex API base URL (default https://webexapis.com/v1)
	IdentityBaseURL string // Webex identity service base URL, for SCIM
	LogLevel        string // Log level: debug, info, warn, error
	LogFormat       string // Log format: text, json
	DBPath          string // SQLite run-history path (default ~/.webextools/webextools.db, ":memory:" for testing)
}

// Default returns sensible defaults.
func Default() Config {
	return Config{
		APIBaseURL:      "https://webexapis.com/v1",
		IdentityBaseURL: "https://identity.webex.com",
		LogLevel:        "info",
		LogFormat:       "text",
		DBPath:          DefaultDBPath(),
	}
}

// DefaultDBPath returns the run-history database location under the
// user's home directory. Falls back to the working directory when the
// home directory cannot be determined.
func DefaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "webextools.db"
	}
	return filepath.Join(home, ".webextools", "webextools.db")
}
