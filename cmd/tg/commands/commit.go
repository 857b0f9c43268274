package commands

import (
	"github.com/spf13/cobra"
)

var commitCmd = &cobra.Command{
	Use:   "commit [message]",
	Short: "Record the staged changes as a new commit",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		// 没有参数交给引擎报 EmptyMessage
		var message string
		if len(args) == 1 {
			message = args[0]
		}
		id, err := TG.Repo.Commit(cmd.Context(), message)
		if err != nil {
			return err
		}
		TG.Log.Debug().Str("commit", id.String()).Msg("commit command done")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(commitCmd)
}
