package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/odvcencio/mgit/pkg/repo"
)

func newConfigCmd() *cobra.Command {
	var list bool

	cmd := &cobra.Command{
		Use:   "config [key [value]]",
		Short: "Get or set repository options",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openRepo()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if list {
				cfg, err := r.ReadConfig()
				if err != nil {
					return err
				}
				for _, key := range repo.ConfigKeys() {
					v, _ := cfg.Get(key)
					fmt.Fprintf(out, "%s=%s\n", key, v)
				}
				return nil
			}

			switch len(args) {
			case 0:
				return fmt.Errorf("config: key required (or --list)")
			case 1:
				cfg, err := r.ReadConfig()
				if err != nil {
					return err
				}
				v, err := cfg.Get(args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(out, v)
				return nil
			default:
				return r.SetConfig(args[0], args[1])
			}
		},
	}
	cmd.Flags().BoolVarP(&list, "list", "l", false, "list all settings")
	return cmd
}
