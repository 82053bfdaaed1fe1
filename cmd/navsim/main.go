// Command navsim drives a transition manager over a route manifest.
//
//	navsim routes --manifest routes.yaml
//	navsim run --manifest routes.yaml --follow-redirects /projects/2 POST:/projects/2?title=draft
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "navsim: %v\n", err)
		stop()
		os.Exit(1)
	}
}
