package commands

import (
	"tinygit/pkg/types"

	"github.com/spf13/cobra"
)

var branchCmd = &cobra.Command{
	Use:   "branch [name]",
	Short: "Create a branch at the current commit",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return TG.Repo.CreateBranch(cmd.Context(), args[0])
	},
}

var rmBranchCmd = &cobra.Command{
	Use:   "rm-branch [name]",
	Short: "Delete a branch pointer (commits are kept)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return TG.Repo.DeleteBranch(cmd.Context(), args[0])
	},
}

var resetCmd = &cobra.Command{
	Use:   "reset [commit-id]",
	Short: "Restore the working directory to a commit and move the current branch there",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return TG.Repo.Reset(cmd.Context(), types.HashPrefix(args[0]))
	},
}

func init() {
	rootCmd.AddCommand(branchCmd, rmBranchCmd, resetCmd)
}
