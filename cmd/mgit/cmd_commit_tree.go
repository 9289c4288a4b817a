package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/odvcencio/mgit/pkg/object"
)

func newCommitTreeCmd() *cobra.Command {
	var (
		parent  string
		message string
	)

	cmd := &cobra.Command{
		Use:   "commit-tree <tree> [-p <parent>] -m <message>",
		Short: "Create a commit object for a tree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openRepo()
			if err != nil {
				return err
			}
			tree, err := object.ParseHash(args[0])
			if err != nil {
				return fmt.Errorf("commit-tree: %w", err)
			}
			var p *object.Hash
			if parent != "" {
				h, err := r.ResolveRef(parent)
				if err != nil {
					return err
				}
				p = &h
			}
			h, err := r.CommitTree(tree, p, message)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), h)
			return nil
		},
	}
	cmd.Flags().StringVarP(&parent, "parent", "p", "", "parent commit")
	cmd.Flags().StringVarP(&message, "message", "m", "", "commit message")
	cmd.MarkFlagRequired("message")
	return cmd
}
