package transition

import (
	"context"
	"fmt"

	"github.com/tailored-agentic-units/transition/location"
)

// Outcome is how a navigation ended.
type Outcome int

const (
	OutcomePending Outcome = iota
	OutcomeCommitted
	OutcomeRedirected
	OutcomeErrored
	OutcomeSuperseded
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCommitted:
		return "committed"
	case OutcomeRedirected:
		return "redirected"
	case OutcomeErrored:
		return "errored"
	case OutcomeSuperseded:
		return "superseded"
	default:
		return "pending"
	}
}

func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

func (o *Outcome) UnmarshalText(text []byte) error {
	for c := OutcomePending; c <= OutcomeSuperseded; c++ {
		if c.String() == string(text) {
			*o = c
			return nil
		}
	}
	return fmt.Errorf("unknown outcome %q", text)
}

// Result is the terminal outcome of a navigation. Version is the state
// version published by the navigation's final write, zero when it made none.
type Result struct {
	Outcome  Outcome            `json:"outcome"`
	Location location.Location  `json:"location"`
	Redirect *location.Location `json:"redirect,omitempty"`
	Err      error              `json:"-"`
	Version  uint64             `json:"version,omitempty"`
}

// Navigation is a handle on a started navigation.
type Navigation struct {
	loc        location.Location
	generation uint64
	done       chan struct{}
	result     Result
}

func newNavigation(loc location.Location, generation uint64) *Navigation {
	return &Navigation{
		loc:        loc,
		generation: generation,
		done:       make(chan struct{}),
	}
}

// Location returns the navigation's target.
func (n *Navigation) Location() location.Location {
	return n.loc
}

// Generation returns the token the navigation was issued.
func (n *Navigation) Generation() uint64 {
	return n.generation
}

// Done is closed once the navigation reached a terminal outcome and its
// notifications were delivered.
func (n *Navigation) Done() <-chan struct{} {
	return n.done
}

// Wait blocks until the navigation finishes or ctx is done. Cancelling ctx
// stops the wait, not the navigation.
func (n *Navigation) Wait(ctx context.Context) (Result, error) {
	select {
	case <-n.done:
		return n.result, nil
	case <-ctx.Done():
		return Result{Outcome: OutcomePending, Location: n.loc}, ctx.Err()
	}
}

func (n *Navigation) finish(res Result) {
	res.Location = n.loc
	n.result = res
	close(n.done)
}
