package transition

import (
	"encoding/json"
	"maps"
	"net/url"
	"slices"
	"time"

	"github.com/tailored-agentic-units/transition/location"
	"github.com/tailored-agentic-units/transition/route"
)

// Submission describes a mutation in flight.
type Submission struct {
	Ref       string            `json:"ref"`
	Location  location.Location `json:"location"`
	Body      url.Values        `json:"body,omitempty"`
	RouteID   string            `json:"route_id,omitempty"`
	StartedAt time.Time         `json:"started_at"`
}

// State is one published snapshot. Treat it as read-only; the manager hands
// out copies and never mutates a snapshot after publishing it.
type State struct {
	Location location.Location `json:"location"`
	Matches  []route.Match     `json:"matches"`

	LoaderData    map[string]any `json:"loader_data"`
	ActionData    any            `json:"action_data,omitempty"`
	RefActionData map[string]any `json:"ref_action_data,omitempty"`

	Error           error  `json:"-"`
	ErrorBoundaryID string `json:"error_boundary_id,omitempty"`

	NextLocation *location.Location `json:"next_location,omitempty"`
	NextMatches  []route.Match      `json:"next_matches,omitempty"`

	PendingSubmissions map[string]Submission `json:"pending_submissions,omitempty"`

	Version uint64 `json:"version"`
}

// Pending reports whether a navigation is in flight.
func (s State) Pending() bool {
	return s.NextLocation != nil
}

// Clone returns a copy whose maps and slices can be modified without
// affecting s. Values inside the maps are shared.
func (s State) Clone() State {
	c := s
	c.Matches = slices.Clone(s.Matches)
	c.NextMatches = slices.Clone(s.NextMatches)
	c.LoaderData = cloneMap(s.LoaderData)
	c.RefActionData = cloneMap(s.RefActionData)
	c.PendingSubmissions = cloneMap(s.PendingSubmissions)
	if s.NextLocation != nil {
		next := *s.NextLocation
		c.NextLocation = &next
	}
	return c
}

func (s State) MarshalJSON() ([]byte, error) {
	type plain State
	var msg string
	if s.Error != nil {
		msg = s.Error.Error()
	}
	return json.Marshal(struct {
		plain
		Error string `json:"error,omitempty"`
	}{plain(s), msg})
}

func cloneMap[V any](m map[string]V) map[string]V {
	if m == nil {
		return make(map[string]V)
	}
	return maps.Clone(m)
}

// pruneLoaderData keeps only entries for matched routes that declare a
// loader.
func pruneLoaderData(data map[string]any, matches []route.Match) map[string]any {
	out := make(map[string]any, len(matches))
	for _, m := range matches {
		if !m.Route.HasLoader() {
			continue
		}
		if v, ok := data[m.ID()]; ok {
			out[m.ID()] = v
		}
	}
	return out
}
