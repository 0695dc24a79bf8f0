package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/tucanapay/tucana/client"
)

// serverFlag is shared by every client subcommand.
func serverFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "server",
		Aliases: []string{"s"},
		Value:   "http://localhost:8080",
		Usage:   "HTTP server URL",
		EnvVars: []string{"TUCANA_SERVER_URL"},
	}
}

func userFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "user",
		Aliases: []string{"u"},
		Value:   "default",
		Usage:   "User id whose preferences apply",
	}
}

func newServiceClient(c *cli.Context) *client.Client {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError, // Only errors to stderr
	}))
	return client.NewClient(c.String("server"), nil, logger)
}

func commandContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Second)
}

func clientCommands() *cli.Command {
	return &cli.Command{
		Name:  "client",
		Usage: "HTTP client commands for interacting with a running tucana server",
		Subcommands: []*cli.Command{
			clientResolveCommand(),
			clientRecordCommand(),
			clientPreferencesCommand(),
		},
	}
}

func clientResolveCommand() *cli.Command {
	return &cli.Command{
		Name:      "resolve",
		Usage:     "Resolve a payload via the server",
		ArgsUsage: "PAYLOAD",
		Flags:     []cli.Flag{serverFlag(), jqFlag()},
		Action: func(c *cli.Context) error {
			raw, err := payloadArg(c)
			if err != nil {
				return err
			}
			ctx, cancel := commandContext()
			defer cancel()

			req, err := newServiceClient(c).Resolve(ctx, raw)
			if err != nil {
				return err
			}
			return printResult(req, c.String("jq"))
		},
	}
}

func clientRecordCommand() *cli.Command {
	return &cli.Command{
		Name:      "record",
		Usage:     "Record a completed payment so the learner observes it",
		ArgsUsage: "TOKEN CHAIN [RECIPIENT]",
		Flags:     []cli.Flag{serverFlag(), userFlag()},
		Action: func(c *cli.Context) error {
			if c.NArg() < 2 {
				return fmt.Errorf("expected TOKEN CHAIN [RECIPIENT] arguments")
			}
			ctx, cancel := commandContext()
			defer cancel()

			err := newServiceClient(c).RecordPayment(ctx,
				c.String("user"),
				c.Args().Get(0),
				c.Args().Get(1),
				c.Args().Get(2),
			)
			if err != nil {
				return err
			}
			fmt.Println("recorded")
			return nil
		},
	}
}

func clientPreferencesCommand() *cli.Command {
	return &cli.Command{
		Name:  "preferences",
		Usage: "Show a user's learned preferences",
		Flags: []cli.Flag{serverFlag(), userFlag(), jqFlag()},
		Action: func(c *cli.Context) error {
			ctx, cancel := commandContext()
			defer cancel()

			prefs, err := newServiceClient(c).Preferences(ctx, c.String("user"))
			if err != nil {
				return err
			}
			return printResult(prefs, c.String("jq"))
		},
	}
}
