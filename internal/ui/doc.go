// Package ui provides the Bubble Tea terminal interface for notechain.
//
// The model renders from state.Store snapshots fetched on every tick and
// right after an intent (connect, upload, like, dislike, download, reload)
// is dispatched or completes. Intents run as tea.Cmds so remote calls never
// block the update loop; the controller serializes them.
//
// Screens:
//
//   - Notes: header with session and stats, the filtered note list and a
//     footer with notices, upload status and key hints or the open prompt
//   - Logs: tail of the client's JSON log file, rendered one record per line
//
// Key bindings are listed in keys.go and shown by the help overlay (?).
package ui
