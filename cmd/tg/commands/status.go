package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show branches, staged files and working directory changes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := TG.Repo.Status(cmd.Context())
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()

		section(w, "Branches")
		for _, b := range st.Branches {
			if b == st.Current {
				fmt.Fprint(w, "*")
			}
			fmt.Fprintln(w, b)
		}
		fmt.Fprintln(w)

		section(w, "Staged Files")
		lines(w, st.Staged)

		section(w, "Removed Files")
		lines(w, st.Removed)

		section(w, "Modifications Not Staged For Commit")
		for _, m := range st.Modified {
			fmt.Fprintf(w, "%s (%s)\n", m.Path, m.Reason)
		}
		fmt.Fprintln(w)

		section(w, "Untracked Files")
		lines(w, st.Untracked)
		return nil
	},
}

func section(w io.Writer, name string) {
	fmt.Fprintf(w, "=== %s ===\n", name)
}

func lines(w io.Writer, items []string) {
	for _, s := range items {
		fmt.Fprintln(w, s)
	}
	fmt.Fprintln(w)
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
