package cli

import (
	"os"
	"time"

	"funfriday-client/internal/api"
	"funfriday-client/internal/config"
	"funfriday-client/internal/infra/identity"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	serverURL  string
	configPath string
	verbose    bool
)

// Execute runs the CLI.
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	envConfig := os.Getenv("CONFIG_PATH")
	if envConfig == "" {
		envConfig = "config/config.yaml"
	}

	cmd := &cobra.Command{
		Use:   "funfriday",
		Short: "Terminal client for the Fun Friday trivia game",
	}

	cmd.PersistentFlags().StringVar(&serverURL, "server", os.Getenv("FUNFRIDAY_SERVER"), "quiz server base URL")
	cmd.PersistentFlags().StringVar(&configPath, "config", envConfig, "path to YAML config")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	cmd.AddCommand(NewLoginCmd(&configPath, &serverURL))
	cmd.AddCommand(NewCategoriesCmd(&configPath, &serverURL))
	cmd.AddCommand(NewPartiesCmd(&configPath, &serverURL))
	cmd.AddCommand(NewCreateCmd(&configPath, &serverURL))
	cmd.AddCommand(NewJoinCmd(&configPath, &serverURL))
	cmd.AddCommand(NewPlayCmd(&configPath, &serverURL))
	return cmd
}

// settings is the resolved runtime configuration shared by all subcommands.
type settings struct {
	baseURL      string
	wsURL        string
	identityPath string
	timeout      time.Duration
	log          zerolog.Logger
}

// newSettings merges flags, environment, and the optional config file.
// Precedence: flag/env, then config file, then defaults.
func newSettings(configPath, serverFlag string) settings {
	log := newLogger(verbose)

	cfg, err := config.Load(configPath)
	if err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Str("path", configPath).Msg("ignoring unreadable config")
	}

	base := serverFlag
	if base == "" {
		base = cfg.Server.BaseURL
	}
	if base == "" {
		base = "http://localhost:8000"
	}
	cfg.Server.BaseURL = base

	identityPath := cfg.Identity.Path
	if identityPath == "" {
		identityPath = identity.DefaultPath()
	}

	return settings{
		baseURL:      base,
		wsURL:        cfg.WebSocketURL(),
		identityPath: identityPath,
		timeout:      config.Timeout(cfg.HTTP.Timeout, 30*time.Second),
		log:          log,
	}
}

func (s settings) api() *api.Client {
	return api.NewClient(s.baseURL, s.timeout, s.log)
}

func (s settings) identity() *identity.FileStore {
	return identity.NewFileStore(s.identityPath)
}

func newLogger(verbose bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()
}
