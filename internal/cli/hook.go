package cli

import (
	"github.com/spf13/cobra"

	"stackline.dev/stackline/internal/actions"
	"stackline.dev/stackline/internal/runtime"
	"stackline.dev/stackline/internal/trailer"
)

// newHookCmd groups the git hook entry points. The installed shims dispatch
// here; users never run these by hand, so the group is hidden.
func newHookCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:    "hook",
		Short:  "Git hook entry points (invoked by the installed hook shims)",
		Hidden: true,
	}

	cmd.AddCommand(newHookPrePushCmd())
	cmd.AddCommand(newHookCommitMsgCmd())
	cmd.AddCommand(newHookPostCheckoutCmd())

	return cmd
}

// newHookPrePushCmd handles the pre-push hook. git passes the remote name and
// URL; a non-zero exit blocks the push.
func newHookPrePushCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pre-push <remote> <url>",
		Short: "Sync the stack before git pushes the branch",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rc, err := runtime.GetHookContext()
			if err != nil {
				return err
			}
			defer rc.Close()

			rc.Splog.Debug("pre-push hook: remote=%s url=%s", args[0], args[1])
			return actions.SyncAction(cmd.Context(), rc, actions.SyncOptions{})
		},
	}
}

// newHookCommitMsgCmd handles the commit-msg hook. git passes the path of the
// file holding the proposed commit message.
func newHookCommitMsgCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "commit-msg <message-file>",
		Short: "Assign the commit its change id trailer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rc, err := runtime.GetHookContext()
			if err != nil {
				return err
			}
			defer rc.Close()

			outcome, err := trailer.Inject(cmd.Context(), rc.Store, rc.RepoRoot, args[0])
			if err != nil {
				return err
			}
			if outcome.SkipReason != "" {
				rc.Splog.Debug("commit-msg hook: skipped (%s)", outcome.SkipReason)
			} else if outcome.Injected {
				rc.Splog.Debug("commit-msg hook: assigned change id %s", outcome.ID)
			}
			return nil
		},
	}
}

// newHookPostCheckoutCmd handles the post-checkout hook. git passes the
// previous HEAD, the new HEAD and a flag that is "1" for branch checkouts.
func newHookPostCheckoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "post-checkout <previous-head> <new-head> <flag>",
		Short: "Classify newly created branches",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			rc, err := runtime.GetHookContext()
			if err != nil {
				return err
			}
			defer rc.Close()

			return actions.PostCheckoutAction(cmd.Context(), rc, args[0], args[1], args[2])
		},
	}
}
