// Package config loads the notechain client configuration.
//
// # Configuration Discovery
//
// The Load function follows this resolution order:
//
//  1. If a path is explicitly provided, use it
//  2. Otherwise, use ~/.config/notechain/config.toml (default)
//  3. If the config file doesn't exist, fall back to built-in defaults
//  4. If the file exists but fields are missing or empty, use defaults
//
// Before parsing, ${VAR} references in the file are expanded from the
// environment, so secrets can live in the environment or a .env file:
//
//	[pinning]
//	api_key = "${PINATA_API_KEY}"
//	api_secret = "${PINATA_API_SECRET}"
//
// # Sections
//
//	[ledger]    rpc_url, contract_address
//	[wallet]    url (empty string = no wallet provider)
//	[pinning]   api_url, gateway_url, api_key, api_secret, jwt,
//	            max_file_size, allowed_extensions, unpin_orphans
//	[timeouts]  call, transaction (Go durations, "0" disables)
//	[sync]      action_scope ("global" or "note"), poll_interval
//	[log]       level, file
//	download_dir
//
// # Path Expansion
//
// log.file and download_dir accept ~ and relative paths; both are made
// absolute. The config path itself is expanded the same way.
//
// # Validation
//
// Load validates the result: the contract address must be a hex address,
// action_scope must be known, the log level must be one of debug, info,
// warn or error, and an api_key without a JWT needs its api_secret.
package config
