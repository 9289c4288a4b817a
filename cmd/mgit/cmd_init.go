package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/odvcencio/mgit/pkg/repo"
)

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init [path]",
		Short: "Create an empty mgit repository",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "."
			if len(args) > 0 {
				path = args[0]
			}
			log, err := newLogger()
			if err != nil {
				return err
			}
			r, err := repo.Init(path, repo.WithLogger(log))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Initialized empty mgit repository in %s\n", r.GitDir)
			return nil
		},
	}
}
