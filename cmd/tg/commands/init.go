package commands

import (
	"fmt"
	"path/filepath"

	"tinygit/pkg/app"
	"tinygit/pkg/config"

	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a tinygit repository",
	Long:  `Create a repository with a single root commit on branch master.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var err error
		TG, err = app.InitApp(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Initialized empty tinygit repository in %s\n", filepath.Join(TG.Root, config.MetaDir))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
