package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/odvcencio/mgit/pkg/repo"
)

func newCatFileCmd() *cobra.Command {
	var showType, showSize, pretty bool

	cmd := &cobra.Command{
		Use:   "cat-file (-t | -s | -p) <object>",
		Short: "Show the type, size or content of a stored object",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openRepo()
			if err != nil {
				return err
			}
			h, err := r.ResolveRef(args[0])
			if err != nil {
				return err
			}
			info, err := r.CatFile(h)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch {
			case showType:
				fmt.Fprintln(out, info.Type)
			case showSize:
				fmt.Fprintln(out, info.Size)
			case pretty:
				fmt.Fprint(out, repo.Pretty(info.Object))
			default:
				return fmt.Errorf("cat-file: one of -t, -s or -p is required")
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&showType, "type", "t", false, "print the object type")
	cmd.Flags().BoolVarP(&showSize, "size", "s", false, "print the object size")
	cmd.Flags().BoolVarP(&pretty, "pretty", "p", false, "pretty-print the object content")
	cmd.MarkFlagsMutuallyExclusive("type", "size", "pretty")
	return cmd
}
