package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/odvcencio/mgit/pkg/object"
)

func newVerifyObjectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify-object <hash>...",
		Short: "Re-hash stored objects and check them against their names",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openRepo()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			failed := 0
			for _, arg := range args {
				h, err := object.ParseHash(arg)
				if err != nil {
					return fmt.Errorf("verify-object: %w", err)
				}
				if err := r.Store.Verify(h); err != nil {
					fmt.Fprintf(out, "%s: %v\n", h, err)
					failed++
					continue
				}
				fmt.Fprintf(out, "%s: ok\n", h)
			}
			if failed > 0 {
				return fmt.Errorf("verify-object: %d of %d objects failed", failed, len(args))
			}
			return nil
		},
	}
}

func newFsckCmd() *cobra.Command {
	var showDangling bool

	cmd := &cobra.Command{
		Use:   "fsck",
		Short: "Verify every stored object and report unreachable ones",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openRepo()
			if err != nil {
				return err
			}
			report, err := r.Fsck()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for h, cause := range report.Corrupt {
				fmt.Fprintf(out, "corrupt %s: %v\n", h, cause)
			}
			if showDangling {
				for _, h := range report.Dangling {
					fmt.Fprintf(out, "dangling %s\n", h)
				}
			}
			if !report.OK() {
				return fmt.Errorf("fsck: %d of %d objects corrupt", len(report.Corrupt), report.Checked)
			}
			fmt.Fprintf(out, "checked %d objects\n", report.Checked)
			return nil
		},
	}
	cmd.Flags().BoolVar(&showDangling, "dangling", true, "list unreachable objects")
	return cmd
}

func newPruneCmd() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete objects unreachable from refs, HEAD and the index",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openRepo()
			if err != nil {
				return err
			}
			pruned, err := r.Prune(dryRun)
			if err != nil {
				return err
			}
			verb := "removed"
			if dryRun {
				verb = "would remove"
			}
			for _, h := range pruned {
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", verb, h)
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "only list what would be removed")
	return cmd
}
