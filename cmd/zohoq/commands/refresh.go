package commands

import (
	"context"

	"github.com/urfave/cli/v3"
)

func refreshCommand() *cli.Command {
	return &cli.Command{
		Name:   "refresh",
		Usage:  "force a token refresh regardless of remaining lifetime",
		Action: refreshAction,
	}
}

func refreshAction(ctx context.Context, cmd *cli.Command) error {
	application, err := newApp(cmd)
	if err != nil {
		return err
	}
	return application.Refresh(ctx)
}
