package manifest

import (
	"net/url"
	"sort"
	"strings"

	"github.com/tailored-agentic-units/transition/route"
)

// vars builds the placeholder replacer for one call: "{name}" for route
// params and "{form.name}" for submitted fields.
func vars(params route.Params, body url.Values) *strings.Replacer {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var pairs []string
	for _, k := range keys {
		pairs = append(pairs, "{"+k+"}", params[k])
	}

	fields := make([]string, 0, len(body))
	for k := range body {
		fields = append(fields, k)
	}
	sort.Strings(fields)

	for _, k := range fields {
		pairs = append(pairs, "{form."+k+"}", body.Get(k))
	}
	return strings.NewReplacer(pairs...)
}

// expand replaces placeholders in every string inside v. Maps and slices
// are copied so the declared data is never modified.
func expand(v any, r *strings.Replacer) any {
	switch t := v.(type) {
	case string:
		return r.Replace(t)
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = expand(val, r)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = expand(val, r)
		}
		return out
	default:
		return v
	}
}
