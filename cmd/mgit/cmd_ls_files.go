package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newLsFilesCmd() *cobra.Command {
	var stage bool

	cmd := &cobra.Command{
		Use:   "ls-files",
		Short: "Show files in the index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openRepo()
			if err != nil {
				return err
			}
			entries, err := r.ListFiles()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, e := range entries {
				if stage {
					fmt.Fprintf(out, "%06o %s 0\t%s\n", uint32(e.Mode), e.Hash, e.Name)
					continue
				}
				fmt.Fprintln(out, e.Name)
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&stage, "stage", "s", false, "show mode and object hash")
	return cmd
}
