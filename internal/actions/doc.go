// Package actions provides high-level business logic for CLI commands and
// git hooks.
//
// Each action corresponds to a stackline command (sync, manage, status, etc.)
// or a hook entry point and orchestrates operations across the stack, prsync,
// managed, git, and github packages.
//
// Key patterns:
//   - Actions accept runtime.Context which provides Splog, repo settings, and
//     the lazily constructed GitHub client
//   - Actions are stateless - every run re-derives the stack from the
//     repository and the remote
//   - Validation failures surface their advice through Splog before the error
//     propagates to the CLI layer
package actions
