package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/five82/notechain/internal/app"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newCommand().Run(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "notechain: %v\n", err)
		return 1
	}
	return 0
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:  "notechain",
		Usage: "Share study notes on a public ledger with pinned file storage",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to config file",
				Sources: cli.EnvVars("NOTECHAIN_CONFIG"),
			},
			&cli.StringFlag{
				Name:    "prefs",
				Usage:   "Path to UI preferences file",
				Sources: cli.EnvVars("NOTECHAIN_PREFS"),
			},
			&cli.StringFlag{
				Name:    "wallet-url",
				Usage:   "Wallet JSON-RPC endpoint, overrides wallet.url",
				Sources: cli.EnvVars("NOTECHAIN_WALLET_URL"),
			},
		},
		Action: runDefault,
		Commands: []*cli.Command{
			listCommand(),
			uploadCommand(),
			voteCommand("like", "Like the note at an index"),
			voteCommand("dislike", "Dislike the note at an index"),
			getCommand(),
			watchCommand(),
		},
	}
}

// runDefault opens the TUI on a terminal and prints the list otherwise.
func runDefault(ctx context.Context, cmd *cli.Command) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return runList(ctx, cmd)
	}
	return app.Run(ctx, appOptions(cmd))
}

func appOptions(cmd *cli.Command) app.Options {
	return app.Options{
		ConfigPath: cmd.String("config"),
		PrefsPath:  cmd.String("prefs"),
		WalletURL:  cmd.String("wallet-url"),
	}
}
