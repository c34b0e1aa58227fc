package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"stackline.dev/stackline/internal/git"
	"stackline.dev/stackline/internal/hooks"
	"stackline.dev/stackline/internal/output"
)

// newInstallCmd creates the install command
func newInstallCmd() *cobra.Command {
	var (
		force       bool
		allowGlobal bool
	)

	cmd := &cobra.Command{
		Use:   "install",
		Short: "Install the git hooks that keep stacks in sync",
		Long: `Install the pre-push, commit-msg and post-checkout hooks into this
repository. The hooks are one-line shims that dispatch back to the stackline
binary, so upgrading stackline never requires reinstalling them.

Existing hook files written by anything other than stackline are left alone
unless --force is given.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := git.InitDefaultRepo(); err != nil {
				return fmt.Errorf("not a git repository: %w", err)
			}

			repoRoot, err := git.GetRepoRoot()
			if err != nil {
				return fmt.Errorf("failed to get repo root: %w", err)
			}

			splog := output.NewSplog()
			if err := hooks.Install(cmd.Context(), splog, repoRoot, hooks.InstallOptions{
				Force:       force,
				AllowGlobal: allowGlobal,
			}); err != nil {
				return err
			}

			splog.Info("Hooks installed. Pushes on managed branches now sync their stacks.")
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite existing hook files not managed by stackline.")
	cmd.Flags().BoolVar(&allowGlobal, "allow-global", false, "Allow installing into a core.hooksPath outside this repository.")

	return cmd
}
