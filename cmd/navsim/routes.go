package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tailored-agentic-units/transition/manifest"
	"github.com/tailored-agentic-units/transition/route"
)

func newRoutesCmd() *cobra.Command {
	var manifestFile string

	cmd := &cobra.Command{
		Use:   "routes",
		Short: "Print the route tree of a manifest.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := manifest.Load(manifestFile)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			route.Walk(m.Routes(), func(r *route.Route, full string, depth int) bool {
				fmt.Fprintf(out, "%s%s\t%s%s\n", strings.Repeat("  ", depth), r.ID, full, capabilities(r))
				return true
			})
			return nil
		},
	}

	cmd.Flags().StringVarP(&manifestFile, "manifest", "m", "", "route manifest YAML file (required)")
	_ = cmd.MarkFlagRequired("manifest")
	return cmd
}

func capabilities(r *route.Route) string {
	var caps []string
	if r.HasLoader() {
		caps = append(caps, "loader")
	}
	if r.HasAction() {
		caps = append(caps, "action")
	}
	if r.ErrorBoundary {
		caps = append(caps, "boundary")
	}
	if len(caps) == 0 {
		return ""
	}
	return "\t[" + strings.Join(caps, " ") + "]"
}
