package main

import (
	"github.com/spf13/cobra"
)

func newUpdateRefCmd() *cobra.Command {
	var reason string

	cmd := &cobra.Command{
		Use:   "update-ref <ref> <object>",
		Short: "Point a ref at an object",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openRepo()
			if err != nil {
				return err
			}
			h, err := r.ResolveRef(args[1])
			if err != nil {
				return err
			}
			return r.UpdateRef(args[0], h, reason)
		},
	}
	cmd.Flags().StringVarP(&reason, "message", "m", "update-ref", "reflog reason")
	return cmd
}
