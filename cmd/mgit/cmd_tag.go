package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/odvcencio/mgit/pkg/repo"
)

func newTagCmd() *cobra.Command {
	var del, force bool

	cmd := &cobra.Command{
		Use:   "tag [-d] [-f] [<name> [<commit>]]",
		Short: "List, create or delete lightweight tags",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openRepo()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if del {
				if len(args) != 1 {
					return fmt.Errorf("tag -d: exactly one tag name required")
				}
				return r.DeleteTag(args[0])
			}

			if len(args) == 0 {
				tags, err := r.ListTags()
				if err != nil {
					return err
				}
				for _, name := range repo.TagNames(tags) {
					fmt.Fprintln(out, name)
				}
				return nil
			}

			rev := "HEAD"
			if len(args) == 2 {
				rev = args[1]
			}
			target, err := r.ResolveRef(rev)
			if err != nil {
				return fmt.Errorf("tag: resolve %s: %w", rev, err)
			}
			return r.CreateTag(args[0], target, force)
		},
	}
	cmd.Flags().BoolVarP(&del, "delete", "d", false, "delete a tag")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "replace an existing tag")
	return cmd
}
