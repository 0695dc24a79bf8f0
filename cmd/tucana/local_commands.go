package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v2"

	"github.com/tucanapay/tucana/service/chains"
	"github.com/tucanapay/tucana/service/engine"
	"github.com/tucanapay/tucana/service/learner"
	"github.com/tucanapay/tucana/service/payload"
	"github.com/tucanapay/tucana/service/selector"
	"github.com/tucanapay/tucana/service/tlv"
)

// jqFlag is shared by every command that prints JSON.
func jqFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:  "jq",
		Usage: "Filter the JSON output through a jq expression",
	}
}

// payloadArg reads the payload from the first argument, or from stdin when
// the argument is "-" or absent (QR payloads exceed comfortable shell
// quoting).
func payloadArg(c *cli.Context) (string, error) {
	arg := c.Args().First()
	if arg != "" && arg != "-" {
		return arg, nil
	}
	raw, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("failed to read payload from stdin: %w", err)
	}
	if len(raw) == 0 {
		return "", fmt.Errorf("no payload given (pass as argument or on stdin)")
	}
	return string(raw), nil
}

// localEngine builds an engine over an in-memory store. Local commands have
// no persistence; learner-driven fallbacks simply don't fire.
func localEngine() *engine.Engine {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
	return engine.New(learner.New(learner.NewMemoryStore(), nil, logger), nil, logger)
}

func decodeCommand() *cli.Command {
	return &cli.Command{
		Name:      "decode",
		Usage:     "Decode an EMV TLV payload into its field tree",
		ArgsUsage: "PAYLOAD",
		Flags:     []cli.Flag{jqFlag()},
		Action: func(c *cli.Context) error {
			raw, err := payloadArg(c)
			if err != nil {
				return err
			}
			result := tlv.Decode(raw)
			return printResult(result, c.String("jq"))
		},
	}
}

func classifyCommand() *cli.Command {
	return &cli.Command{
		Name:      "classify",
		Usage:     "Detect the payment format of a payload without parsing it",
		ArgsUsage: "PAYLOAD",
		Action: func(c *cli.Context) error {
			raw, err := payloadArg(c)
			if err != nil {
				return err
			}
			fmt.Println(payload.Classify(raw))
			return nil
		},
	}
}

func resolveCommand() *cli.Command {
	return &cli.Command{
		Name:      "resolve",
		Usage:     "Decode and validate a payload into a normalized payment request",
		ArgsUsage: "PAYLOAD",
		Flags:     []cli.Flag{jqFlag()},
		Action: func(c *cli.Context) error {
			raw, err := payloadArg(c)
			if err != nil {
				return err
			}
			req, err := localEngine().Resolve(raw)
			if err != nil {
				return err
			}
			return printResult(req, c.String("jq"))
		},
	}
}

func preselectCommand() *cli.Command {
	return &cli.Command{
		Name:  "preselect",
		Usage: "Pick the best token and chain for a send, given a balances file",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "balances",
				Aliases:  []string{"b"},
				Usage:    "Path to a balances JSON file (token -> chain -> amount)",
				Required: true,
			},
			&cli.StringFlag{Name: "amount", Usage: "Amount to send"},
			&cli.StringFlag{Name: "recipient-chain", Usage: "Recipient's preferred chain"},
			&cli.StringFlag{Name: "preferred-token", Usage: "Default token to try first"},
			jqFlag(),
		},
		Action: func(c *cli.Context) error {
			raw, err := loadBalancesFile(c.String("balances"))
			if err != nil {
				return err
			}
			balances, err := selector.ParseBalances(raw)
			if err != nil {
				return err
			}

			ctx := selector.Context{
				PreferredTokenID: c.String("preferred-token"),
				Balances:         balances,
				RequireBalance:   true,
			}
			if s := c.String("amount"); s != "" {
				amount, err := decimal.NewFromString(s)
				if err != nil {
					return fmt.Errorf("invalid amount %q: %w", s, err)
				}
				ctx.Amount = amount
			}
			if s := c.String("recipient-chain"); s != "" {
				chain, err := chains.Parse(s)
				if err != nil {
					return err
				}
				ctx.RecipientChain = chain
			}

			pick, fallback := selector.SmartPreselect(ctx)
			return printResult(map[string]any{
				"token_id": pick.TokenID,
				"chain":    pick.Chain,
				"fallback": fallback,
			}, c.String("jq"))
		},
	}
}

func canSendCommand() *cli.Command {
	return &cli.Command{
		Name:      "can-send",
		Usage:     "Check whether an amount can leave a chain, with a suggestion if not",
		ArgsUsage: "TOKEN CHAIN AMOUNT",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "balances",
				Aliases:  []string{"b"},
				Usage:    "Path to a balances JSON file (token -> chain -> amount)",
				Required: true,
			},
			jqFlag(),
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 3 {
				return fmt.Errorf("expected TOKEN CHAIN AMOUNT arguments")
			}
			token := c.Args().Get(0)
			chain, err := chains.Parse(c.Args().Get(1))
			if err != nil {
				return err
			}
			amount, err := decimal.NewFromString(c.Args().Get(2))
			if err != nil {
				return fmt.Errorf("invalid amount %q: %w", c.Args().Get(2), err)
			}

			raw, err := loadBalancesFile(c.String("balances"))
			if err != nil {
				return err
			}
			balances, err := selector.ParseBalances(raw)
			if err != nil {
				return err
			}

			result := selector.CanSendFromChain(token, chain, amount, balances)
			return printResult(result, c.String("jq"))
		},
	}
}

func confirmCommand() *cli.Command {
	return &cli.Command{
		Name:      "confirm",
		Usage:     "Build the fee/warning confirmation for a send",
		ArgsUsage: "RECIPIENT TOKEN CHAIN AMOUNT",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "balances",
				Aliases: []string{"b"},
				Usage:   "Optional balances JSON file; enables auto-bridge planning",
			},
			&cli.StringFlag{Name: "recipient-chain", Usage: "Recipient's preferred chain"},
			jqFlag(),
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 4 {
				return fmt.Errorf("expected RECIPIENT TOKEN CHAIN AMOUNT arguments")
			}
			chain, err := chains.Parse(c.Args().Get(2))
			if err != nil {
				return err
			}
			amount, err := decimal.NewFromString(c.Args().Get(3))
			if err != nil {
				return fmt.Errorf("invalid amount %q: %w", c.Args().Get(3), err)
			}

			params := engine.ConfirmParams{
				Recipient: c.Args().Get(0),
				TokenID:   c.Args().Get(1),
				Chain:     chain,
				Amount:    amount,
			}
			if s := c.String("recipient-chain"); s != "" {
				rc, err := chains.Parse(s)
				if err != nil {
					return err
				}
				params.RecipientChain = rc
			}
			if path := c.String("balances"); path != "" {
				raw, err := loadBalancesFile(path)
				if err != nil {
					return err
				}
				balances, err := selector.ParseBalances(raw)
				if err != nil {
					return err
				}
				params.Balances = balances
			}

			confirmation, err := localEngine().Confirm(context.Background(), params)
			if err != nil {
				return err
			}
			return printResult(confirmation, c.String("jq"))
		},
	}
}
