// Package diff decides which loaders a navigation has to run.
//
// It compares the committed match chain with the chain a new location
// resolves to. The shared, unchanged prefix keeps its loader data; everything
// from the first difference down reloads. Query string changes, repeated
// navigation to the same location and explicit revalidation reload the whole
// chain.
package diff

import (
	"errors"
	"fmt"
	"slices"

	"github.com/tailored-agentic-units/transition/location"
	"github.com/tailored-agentic-units/transition/route"
)

// ErrInconsistent is wrapped by InconsistencyError.
var ErrInconsistent = errors.New("inconsistent match chain")

// Reason explains why a route is in the reload set.
type Reason string

const (
	ReasonNew           Reason = "new"
	ReasonParamsChanged Reason = "params-changed"
	ReasonDiverged      Reason = "diverged"
	ReasonSearchChanged Reason = "search-changed"
	ReasonSameLocation  Reason = "same-location"
	ReasonRevalidate    Reason = "revalidate"
	ReasonInconsistent  Reason = "inconsistent"
	ReasonMissing       Reason = "missing"
)

// Snapshot is one side of the comparison.
type Snapshot struct {
	Location location.Location
	Matches  []route.Match
}

// LoadSet partitions the loader-bearing routes of the next chain. Both
// slices are in root-to-leaf order.
type LoadSet struct {
	Reload  []string
	Reuse   []string
	Reasons map[string]Reason
}

// Contains reports whether id must reload.
func (s LoadSet) Contains(id string) bool {
	return slices.Contains(s.Reload, id)
}

// Empty reports whether no loader needs to run.
func (s LoadSet) Empty() bool {
	return len(s.Reload) == 0
}

// InconsistencyError reports a route that kept its id and matched pathname
// but produced different params, which a correct matcher cannot do.
type InconsistencyError struct {
	RouteID  string
	Pathname string
	Previous route.Params
	Next     route.Params
}

func (e *InconsistencyError) Error() string {
	return fmt.Sprintf("route %s matched %s with params %v, previously %v",
		e.RouteID, e.Pathname, e.Next, e.Previous)
}

func (e *InconsistencyError) Unwrap() error {
	return ErrInconsistent
}

type options struct {
	revalidate bool
	loaded     map[string]bool
}

// Option adjusts ComputeLoadSet.
type Option func(*options)

// Revalidate forces every matched loader to reload.
func Revalidate() Option {
	return func(o *options) { o.revalidate = true }
}

// Loaded names the routes that currently hold loader data. A route that would
// otherwise be reused reloads with ReasonMissing when it is not listed.
// Without this option every reusable route is assumed to hold data.
func Loaded(ids ...string) Option {
	return func(o *options) {
		o.loaded = make(map[string]bool, len(ids))
		for _, id := range ids {
			o.loaded[id] = true
		}
	}
}

// ComputeLoadSet compares prev with next. When it detects an inconsistent
// chain it still returns a usable full-reload set alongside an
// *InconsistencyError so the caller can choose between failing and
// reloading.
func ComputeLoadSet(prev, next Snapshot, opts ...Option) (LoadSet, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	switch {
	case o.revalidate:
		return reloadAll(next.Matches, ReasonRevalidate), nil
	case prev.Location.Search != next.Location.Search:
		return reloadAll(next.Matches, ReasonSearchChanged), nil
	case prev.Location.SamePath(next.Location):
		return reloadAll(next.Matches, ReasonSameLocation), nil
	}

	set := LoadSet{Reasons: make(map[string]Reason)}
	var divergedBy Reason

	for i, m := range next.Matches {
		if m.Route == nil {
			return reloadAll(next.Matches, ReasonInconsistent), &InconsistencyError{Pathname: m.Pathname}
		}

		reason := divergedBy
		if reason == "" {
			switch {
			case i >= len(prev.Matches) || prev.Matches[i].ID() != m.ID():
				reason = ReasonNew
			case prev.Matches[i].Pathname != m.Pathname:
				reason = ReasonParamsChanged
			case !prev.Matches[i].Params.Equal(m.Params):
				return reloadAll(next.Matches, ReasonInconsistent), &InconsistencyError{
					RouteID:  m.ID(),
					Pathname: m.Pathname,
					Previous: prev.Matches[i].Params,
					Next:     m.Params,
				}
			}
			if reason != "" {
				divergedBy = ReasonDiverged
			}
		}

		if !m.Route.HasLoader() {
			continue
		}
		if reason == "" && o.loaded != nil && !o.loaded[m.ID()] {
			reason = ReasonMissing
		}
		if reason == "" {
			set.Reuse = append(set.Reuse, m.ID())
			continue
		}
		set.Reload = append(set.Reload, m.ID())
		set.Reasons[m.ID()] = reason
	}

	return set, nil
}

func reloadAll(matches []route.Match, reason Reason) LoadSet {
	set := LoadSet{Reasons: make(map[string]Reason)}
	for _, m := range matches {
		if !m.Route.HasLoader() {
			continue
		}
		set.Reload = append(set.Reload, m.ID())
		set.Reasons[m.ID()] = reason
	}
	return set
}
