package commands

import (
	"fmt"

	"tinygit/pkg/exporter"
	"tinygit/pkg/types"

	"github.com/spf13/cobra"
)

var catCmd = &cobra.Command{
	Use:   "cat-object [hash]",
	Short: "Show a commit or the content of a blob",
	Long:  `Commits are printed as a summary with their tracked files; blobs are written to stdout as-is.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		exp := exporter.NewExporter(TG.Store)

		hash, err := exp.Resolve(ctx, types.HashPrefix(args[0]))
		if err != nil {
			return err
		}
		// 如果是文本文件，直接显示；如果是二进制，可以通过 > file.bin 重定向
		return exp.PrintObject(ctx, hash, cmd.OutOrStdout())
	},
}

var exportCmd = &cobra.Command{
	Use:   "export [commit-id] [dir]",
	Short: "Write the snapshot of a commit into a directory",
	Long:  `The working directory and the staging area are not touched.`,
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		exp := exporter.NewExporter(TG.Store)

		hash, err := exp.Resolve(ctx, types.HashPrefix(args[0]))
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		var total int64
		err = exp.ExportCommit(ctx, hash, args[1], func(path string, _ types.Hash, size int64) {
			total += size
			fmt.Fprintf(w, "%s (%s)\n", path, exporter.FormatSize(size))
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "Exported %s (%s) to %s\n", hash.Short(), exporter.FormatSize(total), args[1])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(catCmd, exportCmd)
}
