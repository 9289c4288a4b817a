package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newCommitCmd() *cobra.Command {
	var message string

	cmd := &cobra.Command{
		Use:   "commit -m <message>",
		Short: "Record the staged snapshot as a new commit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openRepo()
			if err != nil {
				return err
			}
			h, branch, err := r.Commit(message)
			if err != nil {
				return err
			}
			if branch == "" {
				branch = "detached HEAD"
			}
			subject, _, _ := strings.Cut(strings.TrimSpace(message), "\n")
			fmt.Fprintf(cmd.OutOrStdout(), "[%s %s] %s\n", branch, h.Short(), subject)
			return nil
		},
	}
	cmd.Flags().StringVarP(&message, "message", "m", "", "commit message")
	cmd.MarkFlagRequired("message")
	return cmd
}
