package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newBranchCmd() *cobra.Command {
	var del bool

	cmd := &cobra.Command{
		Use:   "branch [-d] [<name> [<start>]]",
		Short: "List, create or delete branches",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openRepo()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if del {
				if len(args) != 1 {
					return fmt.Errorf("branch -d: exactly one branch name required")
				}
				if err := r.DeleteBranch(args[0]); err != nil {
					return err
				}
				fmt.Fprintf(out, "Deleted branch %s\n", args[0])
				return nil
			}

			if len(args) == 0 {
				current, err := r.CurrentBranch()
				if err != nil {
					return err
				}
				names, err := r.ListBranches()
				if err != nil {
					return err
				}
				for _, name := range names {
					prefix := "  "
					if name == current {
						prefix = "* "
					}
					fmt.Fprintf(out, "%s%s\n", prefix, name)
				}
				return nil
			}

			start := "HEAD"
			if len(args) == 2 {
				start = args[1]
			}
			target, err := r.ResolveRef(start)
			if err != nil {
				return fmt.Errorf("branch: resolve %s: %w", start, err)
			}
			return r.CreateBranch(args[0], target)
		},
	}
	cmd.Flags().BoolVarP(&del, "delete", "d", false, "delete a branch")
	return cmd
}
