package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/odvcencio/mgit/pkg/object"
)

func newUpdateIndexCmd() *cobra.Command {
	var cacheInfo string

	cmd := &cobra.Command{
		Use:   "update-index [--cacheinfo <mode>,<hash>,<path>] [<path>...]",
		Short: "Register file contents in the index",
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openRepo()
			if err != nil {
				return err
			}
			if cacheInfo != "" {
				parts := strings.SplitN(cacheInfo, ",", 3)
				if len(parts) != 3 {
					return fmt.Errorf("update-index: --cacheinfo expects <mode>,<hash>,<path>")
				}
				mode, err := object.ParseFileMode(parts[0])
				if err != nil {
					return fmt.Errorf("update-index: %w", err)
				}
				h, err := object.ParseHash(parts[1])
				if err != nil {
					return fmt.Errorf("update-index: %w", err)
				}
				if err := r.UpdateIndexCacheInfo(mode, h, parts[2]); err != nil {
					return err
				}
			}
			if len(args) == 0 {
				if cacheInfo == "" {
					return fmt.Errorf("update-index: nothing specified")
				}
				return nil
			}
			return r.UpdateIndex(args...)
		},
	}
	cmd.Flags().StringVar(&cacheInfo, "cacheinfo", "", "stage <mode>,<hash>,<path> directly")
	return cmd
}
