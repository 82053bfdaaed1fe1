package main

import "github.com/spf13/cobra"

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "navsim",
		Short:         "Simulate navigations against a declarative route manifest.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newRoutesCmd(), newRunCmd())
	return root
}
