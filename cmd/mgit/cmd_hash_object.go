package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newHashObjectCmd() *cobra.Command {
	var write bool

	cmd := &cobra.Command{
		Use:   "hash-object <file>...",
		Short: "Compute the blob hash of files, optionally storing them",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openRepo()
			if err != nil {
				return err
			}
			for _, p := range args {
				h, err := r.HashObject(p, write)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), h)
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&write, "write", "w", false, "write the blob into the object store")
	return cmd
}
