package route_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/tailored-agentic-units/transition/location"
	"github.com/tailored-agentic-units/transition/route"
)

func loader(v any) route.LoaderFunc {
	return func(ctx context.Context, args route.LoaderArgs) (any, error) { return v, nil }
}

func tree() []*route.Route {
	return []*route.Route{
		{
			ID:            "parent",
			Path:          "/",
			Loader:        loader("PARENT"),
			ErrorBoundary: true,
			Children: []*route.Route{
				{ID: "child", Path: "a", Loader: loader("CHILD")},
				{ID: "param-child", Path: "p/:param", Loader: loader("PARAM")},
				{ID: "new", Path: "p/new"},
				{
					ID:   "users",
					Path: "users/:userId",
					Children: []*route.Route{
						{ID: "user-index", Path: ""},
						{ID: "user-post", Path: "posts/:postId"},
					},
				},
				{ID: "files", Path: "files/*"},
			},
		},
	}
}

func ids(matches []route.Match) string {
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = m.ID()
	}
	return strings.Join(out, ",")
}

func TestPatternMatcher(t *testing.T) {
	tests := []struct {
		href string
		want string
	}{
		{"/", "parent"},
		{"/a", "parent,child"},
		{"/a/", "parent,child"},
		{"/p/one", "parent,param-child"},
		{"/p/new", "parent,new"},
		{"/users/7", "parent,users,user-index"},
		{"/users/7/posts/9", "parent,users,user-post"},
		{"/files/x/y/z", "parent,files"},
		{"/nope", ""},
		{"/a/b", ""},
	}

	for _, tt := range tests {
		t.Run(tt.href, func(t *testing.T) {
			got := route.PatternMatcher{}.Match(tree(), location.Parse(tt.href))
			if ids(got) != tt.want {
				t.Errorf("Match(%q) = %q, want %q", tt.href, ids(got), tt.want)
			}
		})
	}
}

func TestPatternMatcher_ParamsAndPathnames(t *testing.T) {
	matches := route.PatternMatcher{}.Match(tree(), location.Parse("/users/7/posts/9?x=1"))
	if len(matches) != 3 {
		t.Fatalf("got %d matches, want 3", len(matches))
	}

	if len(matches[0].Params) != 0 || matches[0].Pathname != "/" {
		t.Errorf("root match = %+v", matches[0])
	}
	if matches[1].Params["userId"] != "7" || matches[1].Pathname != "/users/7" {
		t.Errorf("users match = %+v", matches[1])
	}
	if _, leaked := matches[1].Params["postId"]; leaked {
		t.Error("ancestor params must not include descendant params")
	}
	leaf := matches[2]
	if leaf.Params["userId"] != "7" || leaf.Params["postId"] != "9" || leaf.Pathname != "/users/7/posts/9" {
		t.Errorf("leaf match = %+v", leaf)
	}
}

func TestPatternMatcher_Splat(t *testing.T) {
	matches := route.PatternMatcher{}.Match(tree(), location.Parse("/files/a/b.txt"))
	leaf := matches[len(matches)-1]
	if leaf.Params["*"] != "a/b.txt" {
		t.Errorf("splat = %q, want a/b.txt", leaf.Params["*"])
	}
	if leaf.Pathname != "/files/a/b.txt" {
		t.Errorf("pathname = %q", leaf.Pathname)
	}
}

func TestPatternMatcher_SharesRouteReferences(t *testing.T) {
	routes := tree()
	matches := route.PatternMatcher{}.Match(routes, location.Parse("/a"))
	if matches[0].Route != routes[0] {
		t.Error("match should reference the configured route, not a copy")
	}
}

func TestMatcherFunc(t *testing.T) {
	called := false
	m := route.MatcherFunc(func(routes []*route.Route, loc location.Location) []route.Match {
		called = true
		return nil
	})
	m.Match(nil, location.Parse("/"))
	if !called {
		t.Error("MatcherFunc did not call through")
	}
}

func TestValidate(t *testing.T) {
	if err := route.Validate(tree()); err != nil {
		t.Fatalf("Validate(tree) = %v", err)
	}

	tests := []struct {
		name   string
		routes []*route.Route
	}{
		{"empty id", []*route.Route{{Path: "/"}}},
		{"duplicate id", []*route.Route{{ID: "x", Path: "/"}, {ID: "x", Path: "/b"}}},
		{"splat not last", []*route.Route{{ID: "x", Path: "/*/a"}}},
		{"nil child", []*route.Route{{ID: "x", Path: "/", Children: []*route.Route{nil}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := route.Validate(tt.routes); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestFind(t *testing.T) {
	if r := route.Find(tree(), "user-post"); r == nil || r.Path != "posts/:postId" {
		t.Errorf("Find(user-post) = %+v", r)
	}
	if r := route.Find(tree(), "missing"); r != nil {
		t.Errorf("Find(missing) = %+v, want nil", r)
	}
}

func TestAsRedirect(t *testing.T) {
	if r, ok := route.AsRedirect(route.RedirectTo("/login")); !ok || r.To != "/login" {
		t.Errorf("AsRedirect(value) = %v, %v", r, ok)
	}
	if r, ok := route.AsRedirect(&route.Redirect{To: "/x"}); !ok || r.Location().Pathname != "/x" {
		t.Errorf("AsRedirect(pointer) = %v, %v", r, ok)
	}
	if _, ok := route.AsRedirect("data"); ok {
		t.Error("plain data reported as redirect")
	}
}

func TestNotFoundError(t *testing.T) {
	err := route.NewNotFoundError(tree(), "/aa")
	if !errors.Is(err, route.ErrNotFound) {
		t.Error("NotFoundError should wrap ErrNotFound")
	}
	if err.Suggestion != "/a" {
		t.Errorf("Suggestion = %q, want /a", err.Suggestion)
	}
	if !strings.Contains(err.Error(), "did you mean /a?") {
		t.Errorf("Error() = %q", err.Error())
	}

	far := route.NewNotFoundError(tree(), "/completely/unrelated/location")
	if far.Suggestion != "" {
		t.Errorf("unexpected suggestion %q", far.Suggestion)
	}
}
