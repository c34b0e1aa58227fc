package cli

import (
	"github.com/spf13/cobra"

	"stackline.dev/stackline/internal/actions"
	"stackline.dev/stackline/internal/runtime"
)

// newStatusCmd creates the status command
func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the current stack and its pull requests",
		Long: `Show the current stack top-first: each commit's published version and pull
request, plus the branch's management state. Reads only; nothing on the
remote is touched.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rc, err := runtime.GetContext()
			if err != nil {
				return err
			}
			defer rc.Close()

			return actions.StatusAction(cmd.Context(), rc)
		},
	}
}
