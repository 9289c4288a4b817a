package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newRmCmd() *cobra.Command {
	var cached bool

	cmd := &cobra.Command{
		Use:   "rm --cached <path>...",
		Short: "Remove paths from the index",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cached {
				return fmt.Errorf("rm: only --cached is supported; delete the file and run add to stage a removal")
			}
			r, err := openRepo()
			if err != nil {
				return err
			}
			if err := r.Remove(args...); err != nil {
				return err
			}
			for _, p := range args {
				fmt.Fprintf(cmd.OutOrStdout(), "rm '%s'\n", p)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&cached, "cached", false, "only remove from the index")
	return cmd
}
