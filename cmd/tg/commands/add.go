package commands

import (
	"github.com/spf13/cobra"
)

var addCmd = &cobra.Command{
	Use:   "add [file]",
	Short: "Add file contents to the staging area",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return TG.Repo.StageFile(cmd.Context(), args[0])
	},
}

func init() {
	rootCmd.AddCommand(addCmd)
}
