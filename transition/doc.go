// Package transition coordinates navigations with per-route data loading.
//
// A Manager owns the single authoritative State. Every navigation moves
// through pending (NextLocation set) to one terminal outcome: committed,
// redirected or errored. Starting another navigation supersedes the pending
// one; the superseded navigation never touches State again and produces no
// notifications for its loader results.
//
//	m, err := transition.New(transition.Init{
//	    Location: location.Parse("/"),
//	    Routes:   routes,
//	    OnChange: render,
//	})
//	res := m.Send(ctx, location.Parse("/projects/42"))
//	if res.Outcome == transition.OutcomeRedirected {
//	    res = m.Send(ctx, *res.Redirect)
//	}
//
// Submissions run the leaf route's action and then reload every matched
// loader:
//
//	m.Send(ctx, location.Parse("/projects/42"), transition.Submit("", form))
//
// # Concurrency
//
// State writes happen under one mutex, and only from a continuation whose
// navigation generation is still current. Loaders run on their own
// goroutines. Change and redirect callbacks are delivered in commit order,
// outside the lock, one at a time; they may call State, Start or Send.
//
// A navigation's outcome is reported only after every notification it
// queued has been delivered, so when Send returns the subscriber has seen
// the committed state. Navigations started from inside a callback are the
// exception: their notifications wait for that callback to return.
package transition
