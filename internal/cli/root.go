// Package cli defines the stackline command tree. Commands stay thin: they
// parse flags, build the runtime context and delegate to internal/actions.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root cobra command
func NewRootCmd(version, commit, date string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "stackline",
		Short: "Stackline publishes every commit on a branch as its own pull request",
		Long: `Stackline keeps a branch of stacked commits in sync with GitHub: one pull
request per commit, chained bottom to top, republished on every push.

Run 'stackline init' once per repository, then 'stackline install' to set up
the git hooks. After that a plain 'git push' on a managed branch syncs the
whole stack.`,
		Version:      version,
		SilenceUsage: true,
	}

	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"stackline {{.Version}} (commit %s, built %s)\n", commit, date))

	rootCmd.AddCommand(newInitCmd())
	rootCmd.AddCommand(newInstallCmd())
	rootCmd.AddCommand(newHookCmd())
	rootCmd.AddCommand(newManageCmd())
	rootCmd.AddCommand(newUnmanageCmd())
	rootCmd.AddCommand(newSyncCmd())
	rootCmd.AddCommand(newStatusCmd())

	return rootCmd
}
