package cli

import (
	"github.com/spf13/cobra"

	"stackline.dev/stackline/internal/actions"
	"stackline.dev/stackline/internal/runtime"
)

// newManageCmd creates the manage command
func newManageCmd() *cobra.Command {
	var (
		public bool
		force  bool
	)

	cmd := &cobra.Command{
		Use:   "manage",
		Short: "Manage the current branch as a stack",
		Long: `Manage the current branch as a stack: every push publishes one pull request
per commit instead of pushing the branch itself.

By default the stack is private, meaning the branch stays local and only the
per-commit refs are published. With --public the branch itself is pushed too
and linked from the pull request bodies.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rc, err := runtime.GetContext()
			if err != nil {
				return err
			}
			defer rc.Close()

			return actions.ManageAction(cmd.Context(), rc, actions.ManageOptions{
				Public: public,
				Force:  force,
			})
		},
	}

	cmd.Flags().BoolVar(&public, "public", false, "Also push the branch under its own name on every sync.")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite branch configuration that was edited by hand.")

	return cmd
}

// newUnmanageCmd creates the unmanage command
func newUnmanageCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "unmanage",
		Short: "Stop managing the current branch",
		Long: `Stop managing the current branch. Pushes pass through to the remote as
standard git pushes afterwards; existing pull requests are left untouched.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rc, err := runtime.GetContext()
			if err != nil {
				return err
			}
			defer rc.Close()

			return actions.UnmanageAction(cmd.Context(), rc, force)
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite branch configuration that was edited by hand.")

	return cmd
}
