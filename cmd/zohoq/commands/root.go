package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"zohoq/internal/app"
	"zohoq/internal/observability"
)

// Execute runs the root command with the given context and arguments.
func Execute(ctx context.Context, args []string) error {
	cmd := &cli.Command{
		Name:  "zohoq",
		Usage: "Zoho Analytics token lifecycle and bulk query runner",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to config file",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "log level (debug|info|warn|error)",
				Value: slog.LevelInfo.String(),
			},
			&cli.StringFlag{
				Name:  "log-format",
				Usage: "log format (text|json)",
				Value: defaultLogFormat(),
			},
			&cli.StringFlag{
				Name:  "auth--client-id",
				Usage: "OAuth client id",
			},
			&cli.StringFlag{
				Name:  "auth--client-secret",
				Usage: "OAuth client secret",
			},
			&cli.StringFlag{
				Name:  "auth--accounts-url",
				Usage: "Zoho accounts server base URL",
				Value: app.DefaultConfigAccountsURL,
			},
			&cli.StringFlag{
				Name:  "auth--storage",
				Usage: "token state storage (file|env|keyring)",
				Value: string(app.DefaultConfigAuthStorage),
			},
		},
		Commands: []*cli.Command{
			authorizeCommand(),
			refreshCommand(),
			queryCommand(),
		},
	}

	return cmd.Run(ctx, args)
}

// defaultLogFormat picks text for interactive terminals and json otherwise.
func defaultLogFormat() string {
	if term.IsTerminal(int(os.Stderr.Fd())) {
		return string(app.LogFormatText)
	}
	return string(app.LogFormatJSON)
}

// newApp loads configuration, installs logging, and builds the App.
// Shared preamble of every subcommand action.
func newApp(cmd *cli.Command) (*app.App, error) {
	cfg, err := loadConfig(cmd.String("config"), cmd, os.Environ)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := observability.Instrument(cfg.LogLevel, string(cfg.LogFormat)); err != nil {
		return nil, fmt.Errorf("failed to set up observability layer: %w", err)
	}

	application, err := app.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create app: %w", err)
	}
	return application, nil
}
