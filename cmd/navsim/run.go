package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tailored-agentic-units/transition/location"
	"github.com/tailored-agentic-units/transition/manifest"
	"github.com/tailored-agentic-units/transition/observability"
	"github.com/tailored-agentic-units/transition/transition"
)

const (
	maxRedirects = 10
	postPrefix   = "POST:"
)

type runOpts struct {
	manifestFile string
	configFile   string
	follow       bool
	trace        bool
	verbose      bool
}

// step is one line of run output.
type step struct {
	Href     string             `json:"href"`
	Outcome  transition.Outcome `json:"outcome"`
	Redirect string             `json:"redirect,omitempty"`
	Hops     int                `json:"hops,omitempty"`
	Error    string             `json:"error,omitempty"`
	Version  uint64             `json:"version,omitempty"`
}

func newRunCmd() *cobra.Command {
	var opts runOpts

	cmd := &cobra.Command{
		Use:   "run href...",
		Short: "Navigate through each href in order and print the final state.",
		Long: `Navigate through each href in order. An href prefixed with POST: is a
submission to the leaf route's action; its query string becomes the form body,
e.g. POST:/projects/2?title=draft. Each navigation's result is printed as a JSON
line, followed by the final state.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts, args)
		},
	}

	cmd.Flags().StringVarP(&opts.manifestFile, "manifest", "m", "", "route manifest YAML file (required)")
	cmd.Flags().StringVarP(&opts.configFile, "config", "c", "", "manager config file, YAML or JSON")
	cmd.Flags().BoolVar(&opts.follow, "follow-redirects", false, fmt.Sprintf("follow redirects, at most %d hops", maxRedirects))
	cmd.Flags().BoolVar(&opts.trace, "trace", false, "print every manager event to stderr after the run")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "log debug events to stderr")
	_ = cmd.MarkFlagRequired("manifest")
	return cmd
}

func run(cmd *cobra.Command, opts runOpts, hrefs []string) error {
	m, err := manifest.Load(opts.manifestFile)
	if err != nil {
		return err
	}

	cfg := transition.DefaultConfig()
	if opts.configFile != "" {
		loaded, err := transition.LoadConfig(opts.configFile)
		if err != nil {
			return err
		}
		cfg = *loaded
	}

	observer, err := newObserver(cmd.ErrOrStderr(), cfg.Observer, opts.verbose)
	if err != nil {
		return err
	}
	var recorder *observability.Recorder
	if opts.trace {
		recorder = observability.NewRecorder()
		observer = observability.NewMultiObserver(observer, recorder)
	}

	mgr, err := transition.New(m.Init(),
		transition.WithConfig(cfg),
		transition.WithObserver(observer),
	)
	if err != nil {
		return fmt.Errorf("failed to create manager: %w", err)
	}

	ctx := cmd.Context()
	enc := json.NewEncoder(cmd.OutOrStdout())

	for _, href := range hrefs {
		loc, sendOpts := parseHref(href)
		res := mgr.Send(ctx, loc, sendOpts...)

		hops := 0
		for opts.follow && res.Outcome == transition.OutcomeRedirected {
			if hops == maxRedirects {
				return fmt.Errorf("%s: more than %d redirects", href, maxRedirects)
			}
			hops++
			res = mgr.Send(ctx, *res.Redirect)
		}

		if err := enc.Encode(newStep(href, hops, res)); err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}

	final, err := json.MarshalIndent(mgr.State(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(final))

	if recorder != nil {
		writeTrace(cmd.ErrOrStderr(), recorder.Events())
	}
	return nil
}

// parseHref splits the POST: prefix off href. A submission's query string
// becomes its body.
func parseHref(href string) (location.Location, []transition.SendOption) {
	rest, post := strings.CutPrefix(href, postPrefix)
	loc := location.Parse(rest)
	if !post {
		return loc, nil
	}

	body := loc.Query()
	loc.Search = ""
	return loc, []transition.SendOption{transition.Submit("", body)}
}

func newObserver(w io.Writer, name string, verbose bool) (observability.Observer, error) {
	if name != "slog" {
		return observability.GetObserver(name)
	}

	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
	return observability.NewSlogObserver(logger), nil
}

func newStep(href string, hops int, res transition.Result) step {
	s := step{
		Href:    href,
		Outcome: res.Outcome,
		Hops:    hops,
		Version: res.Version,
	}
	if res.Redirect != nil {
		s.Redirect = res.Redirect.Href()
	}
	if res.Err != nil {
		s.Error = res.Err.Error()
	}
	return s
}

func writeTrace(w io.Writer, events []observability.Event) {
	for _, e := range events {
		fmt.Fprintf(w, "%s %-5s %s", e.Timestamp.Format("15:04:05.000"), e.Level, e.Type)
		if e.Generation != 0 {
			fmt.Fprintf(w, " gen=%d", e.Generation)
		}
		if e.RouteID != "" {
			fmt.Fprintf(w, " route=%s", e.RouteID)
		}
		for _, k := range sortedKeys(e.Data) {
			fmt.Fprintf(w, " %s=%v", k, e.Data[k])
		}
		fmt.Fprintln(w)
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
