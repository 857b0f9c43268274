package commands

import (
	"errors"

	"tinygit/pkg/types"

	"github.com/spf13/cobra"
)

var checkoutCmd = &cobra.Command{
	Use:   "checkout [branch] | -- [file] | [commit-id] -- [file]",
	Short: "Switch branches or restore a file",
	Long: `checkout <branch>             switch the working directory to another branch
checkout -- <file>            restore a file from the current commit
checkout <commit-id> -- <file> restore a file from any commit (ids may be abbreviated)`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		switch dash := cmd.ArgsLenAtDash(); {
		case dash == -1 && len(args) == 1:
			return TG.Repo.CheckoutBranch(ctx, args[0])
		case dash == 0 && len(args) == 1:
			return TG.Repo.CheckoutFileFromHead(ctx, args[0])
		case dash == 1 && len(args) == 2:
			return TG.Repo.CheckoutFileFromCommit(ctx, types.HashPrefix(args[0]), args[1])
		default:
			return errors.New("incorrect operands")
		}
	},
}

func init() {
	rootCmd.AddCommand(checkoutCmd)
}
