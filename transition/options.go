package transition

import (
	"net/url"

	"github.com/google/uuid"

	"github.com/tailored-agentic-units/transition/diff"
	"github.com/tailored-agentic-units/transition/location"
	"github.com/tailored-agentic-units/transition/observability"
	"github.com/tailored-agentic-units/transition/route"
)

// Init is the initial, typically server-rendered, state of a manager.
type Init struct {
	Location location.Location
	Routes   []*route.Route

	// LoaderData hydrates the initial matches. Entries for routes outside
	// the initial match chain are dropped.
	LoaderData map[string]any
	ActionData any

	// OnChange receives every published snapshot in order.
	OnChange func(State)

	// OnRedirect receives redirect targets. Following them is up to the
	// caller.
	OnRedirect func(location.Location)
}

// Option configures a Manager after Init has been applied.
type Option func(*Manager)

// WithConfig merges cfg over the defaults.
func WithConfig(cfg Config) Option {
	return func(m *Manager) { m.cfg.Merge(&cfg) }
}

// WithObserver overrides the observer named by the config.
func WithObserver(o observability.Observer) Option {
	return func(m *Manager) { m.observer = o }
}

// WithMatcher overrides route.PatternMatcher.
func WithMatcher(mt route.Matcher) Option {
	return func(m *Manager) { m.matcher = mt }
}

type sendOptions struct {
	submission *Submission
	diff       []diff.Option
}

// SendOption configures one navigation.
type SendOption func(*sendOptions)

// Submit marks the navigation as a submission of body to the leaf route's
// action. An empty ref is replaced with a generated one; the ref keys
// State.PendingSubmissions and State.RefActionData.
func Submit(ref string, body url.Values) SendOption {
	return func(o *sendOptions) {
		r := ref
		if r == "" {
			r = uuid.NewString()
		}
		o.submission = &Submission{Ref: r, Body: body}
	}
}

func withDiff(opts ...diff.Option) SendOption {
	return func(o *sendOptions) { o.diff = append(o.diff, opts...) }
}
