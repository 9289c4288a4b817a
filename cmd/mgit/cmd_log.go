package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/odvcencio/mgit/pkg/repo"
)

const logDateLayout = "Mon Jan 2 15:04:05 2006 -0700"

func newLogCmd() *cobra.Command {
	var (
		limit   int
		oneline bool
	)

	cmd := &cobra.Command{
		Use:   "log [<rev>]",
		Short: "Show commit history",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openRepo()
			if err != nil {
				return err
			}
			rev := "HEAD"
			if len(args) == 1 {
				rev = args[0]
			}
			start, err := r.ResolveRef(rev)
			if err != nil {
				if errors.Is(err, repo.ErrRefNotFound) {
					return fmt.Errorf("log: %s has no commits yet", rev)
				}
				return err
			}
			entries, err := r.Log(start, limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for i, e := range entries {
				c := e.Commit
				if oneline {
					subject, _, _ := strings.Cut(c.Message, "\n")
					fmt.Fprintf(out, "%s %s\n", e.Hash.Short(), subject)
					continue
				}
				if i > 0 {
					fmt.Fprintln(out)
				}
				fmt.Fprintf(out, "commit %s\n", e.Hash)
				fmt.Fprintf(out, "Author: %s <%s>\n", c.Author.Name, c.Author.Email)
				fmt.Fprintf(out, "Date:   %s\n\n", c.Author.When.Format(logDateLayout))
				for _, line := range strings.Split(strings.TrimRight(c.Message, "\n"), "\n") {
					fmt.Fprintf(out, "    %s\n", line)
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "max-count", "n", 0, "limit the number of commits (0 = all)")
	cmd.Flags().BoolVar(&oneline, "oneline", false, "show each commit on a single line")
	return cmd
}
