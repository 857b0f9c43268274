package commands

import (
	"fmt"
	"io"

	"tinygit/pkg/repo"

	"github.com/spf13/cobra"
)

// dateLayout 与 git log 的默认日期格式一致
const dateLayout = "Mon Jan 2 15:04:05 2006 -0700"

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Show the first-parent history of the current branch",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		logs, err := TG.Repo.LogFromHead(cmd.Context())
		if err != nil {
			return err
		}
		printLogs(cmd.OutOrStdout(), logs)
		return nil
	},
}

var globalLogCmd = &cobra.Command{
	Use:   "global-log",
	Short: "Show every commit ever made",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		logs, err := TG.Repo.LogAll(cmd.Context())
		if err != nil {
			return err
		}
		printLogs(cmd.OutOrStdout(), logs)
		return nil
	},
}

var findCmd = &cobra.Command{
	Use:   "find [message]",
	Short: "Print the ids of all commits with the given message",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ids, err := TG.Repo.FindByMessage(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		for _, id := range ids {
			fmt.Fprintln(cmd.OutOrStdout(), id)
		}
		return nil
	},
}

func printLogs(w io.Writer, logs []repo.CommitSummary) {
	for _, c := range logs {
		printCommitLog(w, c)
	}
}

// printCommitLog 格式化输出
func printCommitLog(w io.Writer, c repo.CommitSummary) {
	fmt.Fprintln(w, "===")
	fmt.Fprintf(w, "commit %s\n", c.ID)
	if c.IsMerge() {
		fmt.Fprintf(w, "Merge: %s %s\n", c.Parents[0][:7], c.Parents[1][:7])
	}
	fmt.Fprintf(w, "Date: %s\n", c.Time.Format(dateLayout))
	fmt.Fprintf(w, "%s\n\n", c.Message)
}

func init() {
	rootCmd.AddCommand(logCmd, globalLogCmd, findCmd)
}
