package route

import (
	"encoding/json"
	"net/url"
	"strings"

	"github.com/tailored-agentic-units/transition/location"
)

// Match is one element of a resolved chain.
type Match struct {
	Route *Route `json:"-"`
	// Params accumulate from the root down to and including this route.
	Params Params `json:"params"`
	// Pathname is the portion of the URL consumed through this route.
	Pathname string `json:"pathname"`
}

// ID is the matched route's id.
func (m Match) ID() string {
	if m.Route == nil {
		return ""
	}
	return m.Route.ID
}

func (m Match) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID       string `json:"id"`
		Params   Params `json:"params"`
		Pathname string `json:"pathname"`
	}{m.ID(), m.Params, m.Pathname})
}

// Matcher resolves a location against a route tree. An empty result means
// nothing matched.
type Matcher interface {
	Match(routes []*Route, loc location.Location) []Match
}

// MatcherFunc adapts a function to Matcher.
type MatcherFunc func(routes []*Route, loc location.Location) []Match

func (f MatcherFunc) Match(routes []*Route, loc location.Location) []Match {
	return f(routes, loc)
}

// PatternMatcher matches static segments, ":name" params and a trailing "*"
// splat. Child paths are relative to their parent. When several chains match
// the one with the most specific segments wins; ties go to the deeper chain,
// then to definition order.
type PatternMatcher struct{}

func (PatternMatcher) Match(routes []*Route, loc location.Location) []Match {
	return NewIndex(routes).Match(loc)
}

type segmentKind int

const (
	segmentStatic segmentKind = iota
	segmentParam
	segmentSplat
)

type segment struct {
	kind  segmentKind
	value string
}

func (s segment) score() int {
	switch s.kind {
	case segmentStatic:
		return 3
	case segmentParam:
		return 2
	default:
		return -1
	}
}

type indexedChain struct {
	chain    []*Route
	ends     []int // pattern segments covered through chain[i]
	segments []segment
	score    int
}

// Index is a compiled route tree, reusable across matches.
type Index struct {
	chains []indexedChain
}

// NewIndex compiles every root-to-node chain of routes. Children are indexed
// before their parent so deeper chains win ties.
func NewIndex(routes []*Route) *Index {
	idx := &Index{}
	idx.add(routes, nil, nil, nil)
	return idx
}

func (idx *Index) add(routes []*Route, parents []*Route, ends []int, segs []segment) {
	for _, r := range routes {
		if r == nil {
			continue
		}

		own := compileSegments(r.Path)
		chainSegs := append(append([]segment(nil), segs...), own...)
		chain := append(append([]*Route(nil), parents...), r)
		chainEnds := append(append([]int(nil), ends...), len(chainSegs))

		if len(r.Children) > 0 {
			idx.add(r.Children, chain, chainEnds, chainSegs)
		}

		score := 0
		for _, s := range chainSegs {
			score += s.score()
		}
		idx.chains = append(idx.chains, indexedChain{
			chain:    chain,
			ends:     chainEnds,
			segments: chainSegs,
			score:    score,
		})
	}
}

// Match resolves loc against the index.
func (idx *Index) Match(loc location.Location) []Match {
	parts := splitPath(loc.Pathname)

	var best *indexedChain
	var bestValues []string
	for i := range idx.chains {
		c := &idx.chains[i]
		values, ok := matchSegments(c.segments, parts)
		if !ok {
			continue
		}
		if best == nil || c.score > best.score || (c.score == best.score && len(c.chain) > len(best.chain)) {
			best, bestValues = c, values
		}
	}
	if best == nil {
		return nil
	}

	return best.build(parts, bestValues)
}

func (c *indexedChain) build(parts, values []string) []Match {
	matches := make([]Match, len(c.chain))
	params := Params{}
	consumed := 0

	for i, r := range c.chain {
		end := c.ends[i]
		start := 0
		if i > 0 {
			start = c.ends[i-1]
		}
		for j := start; j < end; j++ {
			switch c.segments[j].kind {
			case segmentParam:
				params[c.segments[j].value] = values[j]
				consumed = j + 1
			case segmentSplat:
				params["*"] = values[j]
				consumed = len(parts)
			default:
				consumed = j + 1
			}
		}

		matches[i] = Match{
			Route:    r,
			Params:   clone(params),
			Pathname: "/" + strings.Join(parts[:consumed], "/"),
		}
	}
	return matches
}

func matchSegments(segs []segment, parts []string) ([]string, bool) {
	values := make([]string, len(segs))
	for i, s := range segs {
		if s.kind == segmentSplat {
			values[i] = strings.Join(parts[min(i, len(parts)):], "/")
			return values, true
		}
		if i >= len(parts) {
			return nil, false
		}
		switch s.kind {
		case segmentStatic:
			if parts[i] != s.value {
				return nil, false
			}
			values[i] = parts[i]
		case segmentParam:
			v, err := url.PathUnescape(parts[i])
			if err != nil {
				v = parts[i]
			}
			values[i] = v
		}
	}
	return values, len(segs) == len(parts)
}

func compileSegments(path string) []segment {
	parts := splitPath(path)
	segs := make([]segment, len(parts))
	for i, p := range parts {
		switch {
		case p == "*":
			segs[i] = segment{kind: segmentSplat}
		case strings.HasPrefix(p, ":"):
			segs[i] = segment{kind: segmentParam, value: p[1:]}
		default:
			segs[i] = segment{kind: segmentStatic, value: p}
		}
	}
	return segs
}

func clone(p Params) Params {
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}
