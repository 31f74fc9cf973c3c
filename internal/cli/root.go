package cli

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/me/webextools/internal/config"
	"github.com/me/webextools/internal/logging"
	"github.com/me/webextools/internal/webex"
)

var (
	flagAPIURL      string
	flagIdentityURL string
	flagDBPath      string
	flagDebug       bool
	flagLogLevel    string
	flagLogFormat   string

	logger *slog.Logger
)

// defaultAPIURL returns the Webex API base URL, checking WEBEX_API_URL env var first.
func defaultAPIURL() string {
	if s := os.Getenv("WEBEX_API_URL"); s != "" {
		return s
	}
	return config.Default().APIBaseURL
}

// defaultIdentityURL returns the identity service base URL, checking WEBEX_IDENTITY_URL env var first.
func defaultIdentityURL() string {
	if s := os.Getenv("WEBEX_IDENTITY_URL"); s != "" {
		return s
	}
	return config.Default().IdentityBaseURL
}

// NewRootCmd creates the root cobra command for the webextools CLI.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "webextools",
		Short: "webextools — Webex administration from the command line",
		Long:  "webextools bulk-disables Webex accounts and assembles recording-access reports.",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// A local .env can supply WEBEX_TEAMS_ACCESS_TOKEN and friends.
			_ = godotenv.Load()
			if flagDebug {
				flagLogLevel = "debug"
			}
			logger = logging.New(logging.Config{Level: flagLogLevel, Format: flagLogFormat})
		},
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&flagAPIURL, "api-url", defaultAPIURL(), "Webex API base URL (or WEBEX_API_URL env)")
	root.PersistentFlags().StringVar(&flagIdentityURL, "identity-url", defaultIdentityURL(), "Webex identity service URL (or WEBEX_IDENTITY_URL env)")
	root.PersistentFlags().StringVar(&flagDBPath, "db", config.DefaultDBPath(), "Run-history database path")
	root.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Enable debug logging")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&flagLogFormat, "log-format", "text", "Log format (text, json)")

	root.AddCommand(
		newDisableUsersCmd(),
		newRecordingReportCmd(),
		newHistoryCmd(),
	)

	return root
}

// promptToken asks for an access token on stdin.
func promptToken() (string, error) {
	fmt.Print("Webex access token: ")
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("read token: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// promptProxyCredentials asks for proxy credentials on stdin after a 407.
func promptProxyCredentials() (string, string, error) {
	reader := bufio.NewReader(os.Stdin)

	fmt.Print("Proxy username: ")
	user, err := reader.ReadString('\n')
	if err != nil {
		return "", "", fmt.Errorf("read proxy username: %w", err)
	}
	fmt.Print("Proxy password: ")
	pass, err := reader.ReadString('\n')
	if err != nil {
		return "", "", fmt.Errorf("read proxy password: %w", err)
	}
	return strings.TrimSpace(user), strings.TrimSpace(pass), nil
}

// newSession builds a session against the given base URL with the stored
// token and interactive proxy credential prompting.
func newSession(baseURL, token string) *webex.Session {
	cfg := webex.DefaultSessionConfig()
	cfg.BaseURL = baseURL
	cfg.Authorization = token
	return webex.NewSession(cfg, logger, webex.WithProxyCredentials(promptProxyCredentials))
}
