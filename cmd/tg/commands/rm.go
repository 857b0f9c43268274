package commands

import (
	"github.com/spf13/cobra"
)

var rmCmd = &cobra.Command{
	Use:   "rm [file]",
	Short: "Unstage a file, or stage a tracked file for removal",
	Long: `If the file is staged for addition it is only unstaged.
If it is tracked by the current commit it is staged for removal and deleted from the working directory.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return TG.Repo.RemoveFile(cmd.Context(), args[0])
	},
}

func init() {
	rootCmd.AddCommand(rmCmd)
}
