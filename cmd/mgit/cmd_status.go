package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/odvcencio/mgit/pkg/repo"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the working tree status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openRepo()
			if err != nil {
				return err
			}
			branch, err := r.CurrentBranch()
			if err != nil {
				return err
			}
			entries, err := r.Status()
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), repo.FormatStatus(entries, branch))
			return nil
		},
	}
}
