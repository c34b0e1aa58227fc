package cli

import (
	"github.com/spf13/cobra"

	"stackline.dev/stackline/internal/actions"
	"stackline.dev/stackline/internal/runtime"
)

// newSyncCmd creates the sync command
func newSyncCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Publish the current stack without pushing the branch",
		Long: `Publish the current stack: one pull request per commit between the trunk and
HEAD, chained bottom to top. Rerunning is always safe; commits whose content
is already published are skipped and an unchanged stack performs no remote
write at all.

This is the same pipeline the pre-push hook runs; use it to sync without
pushing the branch, or to retry after a failure.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rc, err := runtime.GetContext()
			if err != nil {
				return err
			}
			defer rc.Close()

			return actions.SyncAction(cmd.Context(), rc, actions.SyncOptions{
				DryRun: dryRun,
			})
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report the refs and PRs that would change, then stop before any remote write.")

	return cmd
}
