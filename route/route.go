// Package route holds the static route tree and the matcher that resolves a
// location into a root-to-leaf chain of matches.
//
// Routes are configuration: they are built once, shared by reference from
// every Match, and never mutated by the transition manager.
package route

import (
	"context"
	"fmt"
	"maps"
	"net/url"
	"strings"

	"github.com/tailored-agentic-units/transition/location"
)

// Params are the dynamic segment values extracted while matching.
type Params map[string]string

// Equal reports whether p and other hold the same keys and values.
func (p Params) Equal(other Params) bool {
	return maps.Equal(p, other)
}

// LoaderArgs is what a loader receives.
type LoaderArgs struct {
	Params   Params
	Location location.Location
}

// ActionArgs is what an action receives.
type ActionArgs struct {
	Params   Params
	Location location.Location
	Body     url.Values
}

// LoaderFunc reads data for a route. Returning a Redirect value instead of
// data short-circuits the navigation.
type LoaderFunc func(ctx context.Context, args LoaderArgs) (any, error)

// ActionFunc performs a mutation for a route. Like loaders, it may return a
// Redirect value.
type ActionFunc func(ctx context.Context, args ActionArgs) (any, error)

// Route is a node in the route tree.
type Route struct {
	ID            string
	Path          string
	Children      []*Route
	Loader        LoaderFunc
	Action        ActionFunc
	ErrorBoundary bool
}

// HasLoader reports whether the route declares a loader.
func (r *Route) HasLoader() bool {
	return r != nil && r.Loader != nil
}

// HasAction reports whether the route declares an action.
func (r *Route) HasAction() bool {
	return r != nil && r.Action != nil
}

// Redirect is the control signal a loader or action returns to send the
// user elsewhere. It is a value, not an error.
type Redirect struct {
	To string
}

// RedirectTo builds a Redirect to href.
func RedirectTo(href string) Redirect {
	return Redirect{To: href}
}

// Location parses the redirect target into a fresh location.
func (r Redirect) Location() location.Location {
	return location.Parse(r.To)
}

// AsRedirect reports whether v is a redirect signal.
func AsRedirect(v any) (Redirect, bool) {
	switch r := v.(type) {
	case Redirect:
		return r, true
	case *Redirect:
		if r != nil {
			return *r, true
		}
	}
	return Redirect{}, false
}

// Walk visits every route depth-first, parents before children, with the
// full path pattern accumulated from the root. Returning false from fn skips
// the route's children.
func Walk(routes []*Route, fn func(r *Route, fullPath string, depth int) bool) {
	walk(routes, "", 0, fn)
}

func walk(routes []*Route, prefix string, depth int, fn func(*Route, string, int) bool) {
	for _, r := range routes {
		if r == nil {
			fn(nil, prefix, depth)
			continue
		}
		full := joinPath(prefix, r.Path)
		if fn(r, full, depth) && len(r.Children) > 0 {
			walk(r.Children, full, depth+1, fn)
		}
	}
}

// Find returns the route with the given id, or nil.
func Find(routes []*Route, id string) *Route {
	var found *Route
	Walk(routes, func(r *Route, _ string, _ int) bool {
		if found == nil && r != nil && r.ID == id {
			found = r
		}
		return found == nil
	})
	return found
}

// Validate checks the tree for empty or duplicate ids and misplaced splats.
func Validate(routes []*Route) error {
	seen := make(map[string]string)
	var err error

	Walk(routes, func(r *Route, full string, _ int) bool {
		if err != nil {
			return false
		}
		if r == nil {
			err = fmt.Errorf("nil route under %q", full)
			return false
		}
		if r.ID == "" {
			err = fmt.Errorf("route %q has no id", full)
			return false
		}
		if prev, dup := seen[r.ID]; dup {
			err = fmt.Errorf("duplicate route id %q (%s and %s)", r.ID, prev, full)
			return false
		}
		seen[r.ID] = full

		segs := splitPath(r.Path)
		for i, s := range segs {
			if s == "*" && (i != len(segs)-1 || len(r.Children) > 0) {
				err = fmt.Errorf("route %q: splat must be the last segment of a leaf route", r.ID)
				return false
			}
		}
		return true
	})

	return err
}

func joinPath(prefix, path string) string {
	segs := append(splitPath(prefix), splitPath(path)...)
	return "/" + strings.Join(segs, "/")
}

func splitPath(p string) []string {
	parts := strings.Split(p, "/")
	out := parts[:0]
	for _, s := range parts {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
