package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCheckoutCmd() *cobra.Command {
	var create bool

	cmd := &cobra.Command{
		Use:   "checkout [-b] <branch|commit>",
		Short: "Switch branches or detach HEAD at a commit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openRepo()
			if err != nil {
				return err
			}
			if err := r.Checkout(args[0], create); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			branch, err := r.CurrentBranch()
			if err != nil {
				return err
			}
			switch {
			case create:
				fmt.Fprintf(out, "Switched to a new branch '%s'\n", branch)
			case branch != "":
				fmt.Fprintf(out, "Switched to branch '%s'\n", branch)
			default:
				fmt.Fprintf(out, "HEAD is now at %s\n", args[0])
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&create, "branch", "b", false, "create the branch before switching")
	return cmd
}
