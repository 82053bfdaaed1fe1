// Package location defines the immutable Location value navigations carry.
//
// Two locations with the same path and query are still different navigations
// when their keys differ; identity is by Key.
package location

import (
	"net/url"
	"strings"

	"github.com/google/uuid"
)

// Location is a point in the application's URL space.
type Location struct {
	Pathname string `json:"pathname"`
	Search   string `json:"search"`
	Hash     string `json:"hash"`
	Key      string `json:"key"`
	State    any    `json:"state,omitempty"`
}

// NewKey returns a fresh, time-ordered location key.
func NewKey() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Parse splits href into pathname, search and hash and assigns a new key.
// An empty pathname becomes "/". Search and Hash keep their leading "?" and
// "#" and are empty when absent.
func Parse(href string) Location {
	loc := Location{Key: NewKey()}

	rest := href
	if i := strings.IndexByte(rest, '#'); i >= 0 {
		loc.Hash = rest[i:]
		rest = rest[:i]
	}
	if i := strings.IndexByte(rest, '?'); i >= 0 {
		loc.Search = rest[i:]
		rest = rest[:i]
	}
	if loc.Search == "?" {
		loc.Search = ""
	}
	if loc.Hash == "#" {
		loc.Hash = ""
	}

	loc.Pathname = rest
	if loc.Pathname == "" {
		loc.Pathname = "/"
	}
	if !strings.HasPrefix(loc.Pathname, "/") {
		loc.Pathname = "/" + loc.Pathname
	}
	return loc
}

// WithState returns a copy of l carrying state.
func (l Location) WithState(state any) Location {
	l.State = state
	return l
}

// WithNewKey returns a copy of l with a fresh key, for re-navigating to the
// same place.
func (l Location) WithNewKey() Location {
	l.Key = NewKey()
	return l
}

// Href renders the location back into a relative URL.
func (l Location) Href() string {
	return l.Pathname + l.Search + l.Hash
}

// SamePath reports whether l and other address the same pathname and query,
// regardless of key and hash.
func (l Location) SamePath(other Location) bool {
	return l.Pathname == other.Pathname && l.Search == other.Search
}

// Query parses Search. Malformed queries yield whatever url.ParseQuery could
// recover.
func (l Location) Query() url.Values {
	q, _ := url.ParseQuery(strings.TrimPrefix(l.Search, "?"))
	return q
}

func (l Location) String() string {
	return l.Href()
}
