package commands

import (
	"fmt"

	"tinygit/pkg/merge"

	"github.com/spf13/cobra"
)

var mergeCmd = &cobra.Command{
	Use:   "merge [branch]",
	Short: "Merge another branch into the current branch",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out, err := TG.Repo.Merge(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		switch {
		case out.Kind == merge.AlreadyAncestor:
			fmt.Fprintln(w, "Given branch is an ancestor of the current branch.")
		case out.Kind == merge.FastForward:
			fmt.Fprintln(w, "Current branch fast-forwarded.")
		case out.Conflicted:
			fmt.Fprintln(w, "Encountered a merge conflict.")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(mergeCmd)
}
