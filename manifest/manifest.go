// Package manifest builds route trees from YAML documents. Loaders and
// actions declared in a manifest return fixed data, redirect, or fail after
// an optional delay, which is enough to drive a transition.Manager through
// every outcome without writing Go handlers.
//
//	location: /projects/1
//	loader_data:
//	  root: {user: ada}
//	routes:
//	  - id: root
//	    path: /
//	    error_boundary: true
//	    loader: {data: {user: ada}}
//	    children:
//	      - id: project
//	        path: projects/:id
//	        loader: {data: "project {id}", delay: 50ms}
//	        action: {redirect: /projects/{id}/done}
package manifest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tailored-agentic-units/transition/location"
	"github.com/tailored-agentic-units/transition/route"
	"github.com/tailored-agentic-units/transition/transition"
)

// Handler is a static loader or action.
type Handler struct {
	Data     any           `yaml:"data,omitempty"`
	Redirect string        `yaml:"redirect,omitempty"`
	Error    string        `yaml:"error,omitempty"`
	Delay    time.Duration `yaml:"delay,omitempty"`
}

// RouteDef declares one route and its children.
type RouteDef struct {
	ID            string     `yaml:"id"`
	Path          string     `yaml:"path"`
	ErrorBoundary bool       `yaml:"error_boundary,omitempty"`
	Loader        *Handler   `yaml:"loader,omitempty"`
	Action        *Handler   `yaml:"action,omitempty"`
	Children      []RouteDef `yaml:"children,omitempty"`
}

// Counts is how often a route's handlers ran.
type Counts struct {
	Loader int `json:"loader"`
	Action int `json:"action"`
}

// Manifest is a parsed route document.
type Manifest struct {
	Location   string         `yaml:"location,omitempty"`
	LoaderData map[string]any `yaml:"loader_data,omitempty"`
	RouteDefs  []RouteDef     `yaml:"routes"`

	routes []*route.Route
	mu     sync.Mutex
	counts map[string]Counts
}

// Load reads and parses the manifest at path.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	return Parse(data)
}

// Parse decodes a manifest. Unknown fields are rejected.
func Parse(data []byte) (*Manifest, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var m Manifest
	if err := dec.Decode(&m); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("manifest is empty")
		}
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}

	if len(m.RouteDefs) == 0 {
		return nil, errors.New("manifest declares no routes")
	}
	if m.Location == "" {
		m.Location = "/"
	}

	m.counts = make(map[string]Counts)
	routes, err := m.build(m.RouteDefs)
	if err != nil {
		return nil, err
	}
	if err := route.Validate(routes); err != nil {
		return nil, fmt.Errorf("invalid manifest routes: %w", err)
	}
	m.routes = routes

	return &m, nil
}

// Routes returns the route tree. Every call returns the same tree.
func (m *Manifest) Routes() []*route.Route {
	return m.routes
}

// InitialLocation parses the manifest's starting location.
func (m *Manifest) InitialLocation() location.Location {
	return location.Parse(m.Location)
}

// Init returns manager initialization hydrated from the manifest.
func (m *Manifest) Init() transition.Init {
	return transition.Init{
		Location:   m.InitialLocation(),
		Routes:     m.routes,
		LoaderData: m.LoaderData,
	}
}

// Calls reports how often the handlers of route id ran.
func (m *Manifest) Calls(id string) Counts {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts[id]
}

func (m *Manifest) build(defs []RouteDef) ([]*route.Route, error) {
	routes := make([]*route.Route, 0, len(defs))
	for _, def := range defs {
		r := &route.Route{
			ID:            def.ID,
			Path:          def.Path,
			ErrorBoundary: def.ErrorBoundary,
		}

		if def.Loader != nil {
			if err := def.Loader.validate(); err != nil {
				return nil, fmt.Errorf("route %q loader: %w", def.ID, err)
			}
			r.Loader = m.loader(def.ID, *def.Loader)
		}
		if def.Action != nil {
			if err := def.Action.validate(); err != nil {
				return nil, fmt.Errorf("route %q action: %w", def.ID, err)
			}
			r.Action = m.action(def.ID, *def.Action)
		}

		children, err := m.build(def.Children)
		if err != nil {
			return nil, err
		}
		if len(children) > 0 {
			r.Children = children
		}

		routes = append(routes, r)
	}
	return routes, nil
}

func (m *Manifest) loader(id string, h Handler) route.LoaderFunc {
	return func(ctx context.Context, args route.LoaderArgs) (any, error) {
		m.record(id, func(c *Counts) { c.Loader++ })
		return h.respond(ctx, vars(args.Params, nil))
	}
}

func (m *Manifest) action(id string, h Handler) route.ActionFunc {
	return func(ctx context.Context, args route.ActionArgs) (any, error) {
		m.record(id, func(c *Counts) { c.Action++ })
		return h.respond(ctx, vars(args.Params, args.Body))
	}
}

func (m *Manifest) record(id string, fn func(*Counts)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.counts[id]
	fn(&c)
	m.counts[id] = c
}

func (h Handler) validate() error {
	if h.Redirect != "" && h.Error != "" {
		return errors.New("redirect and error are mutually exclusive")
	}
	if h.Delay < 0 {
		return fmt.Errorf("negative delay %s", h.Delay)
	}
	return nil
}

func (h Handler) respond(ctx context.Context, r *strings.Replacer) (any, error) {
	if h.Delay > 0 {
		timer := time.NewTimer(h.Delay)
		defer timer.Stop()

		select {
		case <-timer.C:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	switch {
	case h.Error != "":
		return nil, errors.New(r.Replace(h.Error))
	case h.Redirect != "":
		return route.RedirectTo(r.Replace(h.Redirect)), nil
	}
	return expand(h.Data, r), nil
}
