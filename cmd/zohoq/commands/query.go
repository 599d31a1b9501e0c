package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"
)

func queryCommand() *cli.Command {
	return &cli.Command{
		Name:      "query",
		Usage:     "run a SQL query as a bulk export job and print rows as JSON lines",
		ArgsUsage: "<sql>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "analytics--workspace-id",
				Usage: "Analytics workspace id",
			},
			&cli.StringFlag{
				Name:  "analytics--org-id",
				Usage: "Analytics organization id (multi-org accounts)",
			},
			&cli.DurationFlag{
				Name:  "analytics--query-timeout",
				Usage: "total budget for submit and polling",
			},
			&cli.DurationFlag{
				Name:  "analytics--poll-interval",
				Usage: "sleep between job status checks",
			},
		},
		Action: queryAction,
	}
}

func queryAction(ctx context.Context, cmd *cli.Command) error {
	sql := cmd.Args().First()
	if sql == "" {
		return fmt.Errorf("usage: zohoq query <sql>")
	}

	application, err := newApp(cmd)
	if err != nil {
		return err
	}

	return application.Query(ctx, sql, os.Stdout)
}
