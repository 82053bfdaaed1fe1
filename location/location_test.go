package location_test

import (
	"testing"

	"github.com/tailored-agentic-units/transition/location"
)

func TestParse(t *testing.T) {
	tests := []struct {
		href                   string
		pathname, search, hash string
	}{
		{"/", "/", "", ""},
		{"", "/", "", ""},
		{"/a", "/a", "", ""},
		{"/a?foo", "/a", "?foo", ""},
		{"/a?foo=1#top", "/a", "?foo=1", "#top"},
		{"/a#top", "/a", "", "#top"},
		{"a/b", "/a/b", "", ""},
		{"/a?", "/a", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.href, func(t *testing.T) {
			loc := location.Parse(tt.href)
			if loc.Pathname != tt.pathname || loc.Search != tt.search || loc.Hash != tt.hash {
				t.Errorf("Parse(%q) = {%q %q %q}, want {%q %q %q}",
					tt.href, loc.Pathname, loc.Search, loc.Hash, tt.pathname, tt.search, tt.hash)
			}
			if loc.Key == "" {
				t.Error("expected a key")
			}
		})
	}
}

func TestParse_UniqueKeys(t *testing.T) {
	a := location.Parse("/p/one")
	b := location.Parse("/p/one")

	if a.Key == b.Key {
		t.Fatalf("keys collided: %s", a.Key)
	}
	if !a.SamePath(b) {
		t.Error("expected SamePath for identical path+query")
	}
}

func TestSamePath_IgnoresHash(t *testing.T) {
	if !location.Parse("/a?x#one").SamePath(location.Parse("/a?x#two")) {
		t.Error("hash should not affect SamePath")
	}
	if location.Parse("/a?x").SamePath(location.Parse("/a?y")) {
		t.Error("different search reported as same")
	}
}

func TestWithNewKey(t *testing.T) {
	a := location.Parse("/a?q=1").WithState("s")
	b := a.WithNewKey()

	if a.Key == b.Key {
		t.Error("WithNewKey kept the key")
	}
	if b.Href() != "/a?q=1" || b.State != "s" {
		t.Errorf("WithNewKey changed content: %+v", b)
	}
}

func TestQuery(t *testing.T) {
	q := location.Parse("/search?q=go&page=2").Query()
	if q.Get("q") != "go" || q.Get("page") != "2" {
		t.Errorf("Query() = %v", q)
	}
}
