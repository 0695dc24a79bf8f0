package main

import (
	"fmt"
	"log"
	"os"

	"github.com/urfave/cli/v2"
)

var (
	// Version information (set via ldflags during build)
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	app := &cli.App{
		Name:  "tucana",
		Usage: "Payment request resolution engine CLI",
		Description: `A command-line tool for decoding payment QR payloads and debugging the
tucana resolution service.

Local commands (decode, classify, resolve, preselect, can-send, confirm)
run the engine in-process; the client commands talk to a running server.`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		Commands: []*cli.Command{
			decodeCommand(),
			classifyCommand(),
			resolveCommand(),
			preselectCommand(),
			canSendCommand(),
			confirmCommand(),
			clientCommands(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
