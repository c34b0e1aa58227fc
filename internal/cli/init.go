package cli

import (
	"context"
	"fmt"
	"os"
	"slices"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"

	"stackline.dev/stackline/internal/config"
	"stackline.dev/stackline/internal/git"
	"stackline.dev/stackline/internal/output"
)

// commonTrunkNames are tried in order when the remote does not advertise a
// default branch.
var commonTrunkNames = []string{"main", "master", "trunk", "development", "develop"}

// isInteractive checks if we're in an interactive terminal
func isInteractive() bool {
	fileInfo, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (fileInfo.Mode() & os.ModeCharDevice) != 0
}

// inferTrunk attempts to infer the trunk branch name
func inferTrunk(ctx context.Context, remote string, branchNames []string) string {
	if remoteHead := git.RemoteHeadBranch(ctx, remote); remoteHead != "" {
		if slices.Contains(branchNames, remoteHead) {
			return remoteHead
		}
	}

	for _, name := range commonTrunkNames {
		if slices.Contains(branchNames, name) {
			return name
		}
	}

	return ""
}

// selectTrunkBranch resolves the trunk, prompting when inference fails and a
// terminal is attached.
func selectTrunkBranch(branchNames []string, inferredTrunk string, interactive bool) (string, error) {
	if inferredTrunk != "" {
		return inferredTrunk, nil
	}

	if !interactive {
		return "", fmt.Errorf("could not infer trunk branch; pass an existing branch name with --trunk or run in interactive mode")
	}

	var selected string
	prompt := &survey.Select{
		Message: "Select your trunk branch:",
		Options: branchNames,
	}
	if err := survey.AskOne(prompt, &selected, survey.WithValidator(survey.Required)); err != nil {
		return "", err
	}
	return selected, nil
}

// newInitCmd creates the init command
func newInitCmd() *cobra.Command {
	var (
		trunk         string
		remote        string
		noInteractive bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize stackline in the current repository",
		Long: `Initialize stackline in the current repository: records the trunk branch and
the remote stacks are published to in .git/.stackline_config.

Run 'stackline install' afterwards to set up the git hooks.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := git.InitDefaultRepo(); err != nil {
				return fmt.Errorf("not a git repository: %w", err)
			}

			repoRoot, err := git.GetRepoRoot()
			if err != nil {
				return fmt.Errorf("failed to get repo root: %w", err)
			}

			branchNames, err := git.GetAllBranchNames()
			if err != nil {
				return fmt.Errorf("failed to get branches: %w", err)
			}
			if len(branchNames) == 0 {
				return fmt.Errorf("no branches found in current repo; cannot initialize stackline.\nPlease create your first commit and then re-run stackline init")
			}

			trunkName := trunk
			if trunkName == "" {
				inferred := inferTrunk(cmd.Context(), remote, branchNames)

				interactive := !noInteractive && isInteractive()
				selected, err := selectTrunkBranch(branchNames, inferred, interactive)
				if err != nil {
					return err
				}
				trunkName = selected
			} else if !slices.Contains(branchNames, trunkName) {
				return fmt.Errorf("branch '%s' does not exist in this repository", trunkName)
			}

			if err := config.SetTrunk(repoRoot, trunkName); err != nil {
				return fmt.Errorf("failed to save config: %w", err)
			}
			if err := config.SetRemote(repoRoot, remote); err != nil {
				return fmt.Errorf("failed to save config: %w", err)
			}

			splog := output.NewSplog()
			splog.Info("Initialized stackline with trunk %s and remote %s.",
				output.ColorBranchName(trunkName, true), output.ColorEmphasis(remote))
			splog.Tip("Run 'stackline install' to set up the git hooks.")
			return nil
		},
	}

	cmd.Flags().StringVar(&trunk, "trunk", "", "The name of your trunk branch.")
	cmd.Flags().StringVar(&remote, "remote", "origin", "The remote stacks are published to.")
	cmd.Flags().BoolVar(&noInteractive, "no-interactive", false, "Fail instead of prompting when the trunk cannot be inferred.")

	return cmd
}
