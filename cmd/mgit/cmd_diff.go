package main

import (
	"github.com/spf13/cobra"

	"github.com/odvcencio/mgit/pkg/diff"
)

func newDiffCmd() *cobra.Command {
	var (
		unified int
		minimal bool
	)

	cmd := &cobra.Command{
		Use:   "diff [<path>...]",
		Short: "Show unstaged changes between the index and the working tree",
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openRepo()
			if err != nil {
				return err
			}
			entries, err := r.DiffWorktree(args...)
			if err != nil {
				return err
			}

			opts := diff.RenderOptions{Context: unified, Color: useColor(cmd.OutOrStdout())}
			if minimal {
				opts.Context = 0
			}
			for _, d := range entries {
				if err := diff.Render(cmd.OutOrStdout(), d.Patch(), opts); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&unified, "unified", "U", diff.DefaultContext, "lines of context around changes")
	cmd.Flags().BoolVar(&minimal, "minimal", false, "print only changed lines, without hunk headers")
	return cmd
}
