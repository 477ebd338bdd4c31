// Package app is the composition root of notechain.
//
// Open loads the configuration and wires the collaborators:
//
//  1. config.Load reads ~/.config/notechain/config.toml (or defaults)
//  2. NewLogger opens the JSON log file; the terminal is left to the TUI
//  3. ethclient dials the ledger node for reads and receipts
//  4. wallet.Dial connects the JSON-RPC wallet, if one is configured
//  5. ledger.Contract binds the notes ABI to both
//  6. pinning.Client talks to the pinning API and gateway
//  7. controller.New puts the state store and timeouts around them
//
// Run then starts the background poller and the TUI under one errgroup;
// quitting the TUI cancels the poller. The CLI subcommands use Open
// directly and call the controller themselves.
//
// # Components
//
//   - app.go: Open, Runtime and Run
//   - logging.go: slog JSON handler on the log file
//   - poller.go: periodic reload with exponential backoff, capped at five minutes
//   - watch.go: drop-folder uploads via fsnotify, debounced per path
package app
