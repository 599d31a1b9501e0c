package commands

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"zohoq/internal/app"
)

func authorizeCommand() *cli.Command {
	return &cli.Command{
		Name:  "authorize",
		Usage: "run the OAuth consent flow and persist the initial token state",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "code",
				Usage: "authorization code obtained out of band (skips the loopback listener)",
			},
			&cli.BoolFlag{
				Name:  "manual",
				Usage: "print the consent URL and prompt for the code instead of listening for the redirect",
			},
			&cli.StringFlag{
				Name:  "auth--listen",
				Usage: "loopback address for the redirect listener",
				Value: "",
			},
		},
		Action: authorizeAction,
	}
}

func authorizeAction(ctx context.Context, cmd *cli.Command) error {
	application, err := newApp(cmd)
	if err != nil {
		return err
	}

	if code := cmd.String("code"); code != "" {
		return application.CompleteAuthorization(ctx, code)
	}

	if cmd.Bool("manual") {
		return authorizeManual(ctx, application)
	}

	return application.AuthorizeInteractive(ctx, os.Stdout)
}

// authorizeManual is the fallback for machines where a loopback listener
// cannot receive the redirect (remote shells, containers): the user opens
// the URL elsewhere and pastes the code back.
func authorizeManual(ctx context.Context, application *app.App) error {
	fmt.Fprintf(os.Stdout, "Open the following URL in your browser to authorize access:\n\n  %s\n\n", application.ConsentURL())

	code, err := promptAuthorizationCode()
	if err != nil {
		return err
	}
	return application.CompleteAuthorization(ctx, code)
}

// promptAuthorizationCode reads the pasted code from an interactive terminal.
func promptAuthorizationCode() (string, error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return "", fmt.Errorf("stdin is not a terminal; pass the code via --code instead")
	}

	fmt.Fprint(os.Stderr, "Paste the authorization code: ")
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("reading authorization code: %w", err)
	}

	code := strings.TrimSpace(line)
	if code == "" {
		return "", fmt.Errorf("no authorization code entered")
	}
	return code, nil
}
