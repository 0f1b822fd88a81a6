package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/teemow/autogmail/internal/config"
	"github.com/teemow/autogmail/internal/logging"
)

// rootCmd represents the base command for the autogmail application
var rootCmd = &cobra.Command{
	Use:   "autogmail",
	Short: "Drafts Gmail replies from your company knowledge base",
	Long: `autogmail is the client of the AutoGmail backend. It lists your inbox,
asks the backend for AI-generated replies grounded in your uploaded policies
and saves them as Gmail drafts.

It can run as:
  - A web dashboard (serve)
  - A command-line client (inbox, draft, upload, ...)
  - An MCP (Model Context Protocol) server for AI assistants (mcp)`,
	SilenceUsage: true,
}

// version will be set by main
var version = "dev"

// globalFlags holds the persistent flags shared by every command.
type globalFlags struct {
	configPath string
	envFile    string
	apiURL     string
	tokenStore string
	logLevel   string
	logFormat  string
	debug      bool
}

var flags globalFlags

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "autogmail version %s\n" .Version}}`)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "Path to a YAML config file. Can also use AUTOGMAIL_CONFIG env var.")
	pf.StringVar(&flags.envFile, "env-file", ".env", "Dotenv file to load before reading the environment (ignored when missing)")
	pf.StringVar(&flags.apiURL, "api-url", "", "Backend URL, '/api/v1' is appended when missing. Can also use AUTOGMAIL_API_URL or VITE_API_URL env vars.")
	pf.StringVar(&flags.tokenStore, "token-store", "", "Token store: memory, file or redis. Can also use AUTOGMAIL_TOKEN_STORE env var.")
	pf.StringVar(&flags.logLevel, "log-level", "", "Log level: debug, info, warn or error. Can also use AUTOGMAIL_LOG_LEVEL env var.")
	pf.StringVar(&flags.logFormat, "log-format", "", "Log format: text or json. Can also use AUTOGMAIL_LOG_FORMAT env var.")
	pf.BoolVar(&flags.debug, "debug", false, "Enable debug logging (same as --log-level=debug)")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newMCPCmd())
	rootCmd.AddCommand(newLoginCmd())
	rootCmd.AddCommand(newLogoutCmd())
	rootCmd.AddCommand(newStatusCmd())
	rootCmd.AddCommand(newInboxCmd())
	rootCmd.AddCommand(newEmailCmd())
	rootCmd.AddCommand(newDraftCmd())
	rootCmd.AddCommand(newSaveDraftCmd())
	rootCmd.AddCommand(newUploadCmd())
	rootCmd.AddCommand(newSyncCmd())
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newGenerateDocsCmd())
}

// loadConfig builds the configuration from the config file, the environment and
// the persistent flags. Flags win over the environment only when they were set
// explicitly.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	if err := config.LoadDotEnv(flags.envFile); err != nil {
		return nil, err
	}

	path := flags.configPath
	if !cmd.Flags().Changed("config") {
		if env := os.Getenv("AUTOGMAIL_CONFIG"); env != "" {
			path = env
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	applyFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()
	if f.Changed("api-url") {
		cfg.API.URL = flags.apiURL
	}
	if f.Changed("token-store") {
		cfg.TokenStore.Type = flags.tokenStore
	}
	if f.Changed("log-level") {
		cfg.Log.Level = flags.logLevel
	}
	if f.Changed("log-format") {
		cfg.Log.Format = flags.logFormat
	}
	if flags.debug {
		cfg.Log.Level = "debug"
	}
}

// setupLogger installs the configured logger as the slog default. Logs go to
// stderr so command output on stdout stays clean.
func setupLogger(cfg *config.Config, w io.Writer) (*slog.Logger, error) {
	if w == nil {
		w = os.Stderr
	}
	logger, err := logging.New(w, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, fmt.Errorf("failed to configure logging: %w", err)
	}
	slog.SetDefault(logger)
	return logger, nil
}
