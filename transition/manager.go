package transition

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/tailored-agentic-units/transition/diff"
	"github.com/tailored-agentic-units/transition/location"
	"github.com/tailored-agentic-units/transition/observability"
	"github.com/tailored-agentic-units/transition/parallel"
	"github.com/tailored-agentic-units/transition/route"
)

// Manager owns the transition state of one application.
type Manager struct {
	routes     []*route.Route
	matcher    route.Matcher
	observer   observability.Observer
	cfg        Config
	onChange   func(State)
	onRedirect func(location.Location)

	mu         sync.Mutex
	state      State
	generation uint64
	cancel     context.CancelFunc

	outbox     []notification
	delivering bool
	queued     uint64
	delivered  uint64
	drained    *sync.Cond
}

// notification is one queued callback. seq orders it against every other
// notification the manager has queued.
type notification struct {
	seq      uint64
	state    *State
	redirect *location.Location
}

// task is the manager-side record of one navigation.
type task struct {
	nav        *Navigation
	gen        uint64
	cancel     context.CancelFunc
	loc        location.Location
	matches    []route.Match
	prev       diff.Snapshot
	loaded     []string
	diff       []diff.Option
	submission *Submission

	// nested marks a navigation started while callbacks were being
	// delivered. Its notifications queue behind the running callback, so
	// its outcome does not wait for them.
	nested  bool
	lastSeq uint64

	actionDone bool
	actionData any
}

// loadFailure is the first signal out of a loader batch. A failure with
// neither a redirect nor a route id came from cancellation.
type loadFailure struct {
	routeID  string
	redirect *route.Redirect
	err      error
}

// redirectSignal carries a loader redirect through the fail-fast batch so
// the remaining loaders are cancelled.
type redirectSignal struct {
	routeID string
	to      route.Redirect
}

func (s *redirectSignal) Error() string {
	return fmt.Sprintf("loader %s redirected to %s", s.routeID, s.to.To)
}

// New creates a Manager hydrated from init. The initial state is published
// without a change notification.
func New(init Init, opts ...Option) (*Manager, error) {
	if err := route.Validate(init.Routes); err != nil {
		return nil, fmt.Errorf("invalid route tree: %w", err)
	}

	m := &Manager{
		routes:     init.Routes,
		matcher:    route.PatternMatcher{},
		cfg:        DefaultConfig(),
		onChange:   init.OnChange,
		onRedirect: init.OnRedirect,
	}
	m.drained = sync.NewCond(&m.mu)

	for _, opt := range opts {
		opt(m)
	}

	if m.observer == nil {
		obs, err := observability.GetObserver(m.cfg.Observer)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve observer: %w", err)
		}
		m.observer = obs
	}

	loc := normalize(init.Location)
	matches := m.matcher.Match(m.routes, loc)

	m.state = State{
		Location:           loc,
		Matches:            matches,
		LoaderData:         pruneLoaderData(init.LoaderData, matches),
		ActionData:         init.ActionData,
		RefActionData:      make(map[string]any),
		PendingSubmissions: make(map[string]Submission),
		Version:            1,
	}
	if len(matches) == 0 {
		m.state.Error = route.NewNotFoundError(m.routes, loc.Pathname)
		m.state.ErrorBoundaryID = m.rootBoundary()
	}

	m.emit(context.Background(), observability.Event{
		Type:  EventInit,
		Level: observability.LevelInfo,
		Data: map[string]any{
			"href":        loc.Href(),
			"match_count": len(matches),
			"hydrated":    len(m.state.LoaderData),
		},
	})

	return m, nil
}

// State returns a copy of the current snapshot.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.Clone()
}

// Routes returns the route tree the manager matches against.
func (m *Manager) Routes() []*route.Route {
	return m.routes
}

// Start begins a navigation to loc. Matching, the pending snapshot and its
// change notification happen before Start returns; loaders and actions run
// on a separate goroutine. Any navigation still in flight is superseded.
//
// ctx supplies values to loaders. Its cancellation does not abort the
// navigation; only a newer navigation does.
//
// Callbacks may call Start. A navigation started from a callback resolves
// without waiting for its own notifications, which are delivered after the
// callback returns.
func (m *Manager) Start(ctx context.Context, loc location.Location, opts ...SendOption) *Navigation {
	var so sendOptions
	for _, opt := range opts {
		opt(&so)
	}

	loc = normalize(loc)
	matches := m.matcher.Match(m.routes, loc)

	navCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	m.mu.Lock()
	if m.cancel != nil {
		m.cancel()
	}
	m.generation++
	m.cancel = cancel

	t := &task{
		gen:     m.generation,
		cancel:  cancel,
		loc:     loc,
		matches: matches,
		prev:    diff.Snapshot{Location: m.state.Location, Matches: m.state.Matches},
		loaded:  slices.Collect(maps.Keys(m.state.LoaderData)),
		diff:    so.diff,
		nested:  m.delivering,
	}
	t.nav = newNavigation(loc, t.gen)

	next := m.state.Clone()
	target := loc
	next.NextLocation = &target
	next.NextMatches = matches
	if so.submission != nil {
		sub := *so.submission
		sub.Location = loc
		sub.StartedAt = time.Now()
		if len(matches) > 0 {
			sub.RouteID = matches[len(matches)-1].ID()
		}
		next.PendingSubmissions[sub.Ref] = sub
		t.submission = &sub
	}
	t.lastSeq = m.publishLocked(&next)
	m.mu.Unlock()

	data := map[string]any{
		"href":       loc.Href(),
		"key":        loc.Key,
		"submission": t.submission != nil,
	}
	if t.submission != nil {
		data["ref"] = t.submission.Ref
	}
	m.emit(navCtx, observability.Event{
		Type:       EventNavigationStart,
		Level:      observability.LevelInfo,
		Generation: t.gen,
		Data:       data,
	})
	m.emit(navCtx, observability.Event{
		Type:       EventPending,
		Level:      observability.LevelVerbose,
		Generation: t.gen,
		Data: map[string]any{
			"version":     next.Version,
			"match_count": len(matches),
		},
	})
	m.flush()

	go m.run(navCtx, t)
	return t.nav
}

// Send starts a navigation and waits for its outcome. If ctx ends first the
// result is OutcomePending with Err set to ctx.Err().
func (m *Manager) Send(ctx context.Context, loc location.Location, opts ...SendOption) Result {
	res, err := m.Start(ctx, loc, opts...).Wait(ctx)
	if err != nil {
		res.Err = err
	}
	return res
}

// Revalidate reloads every loader of the committed location.
func (m *Manager) Revalidate(ctx context.Context) Result {
	m.mu.Lock()
	loc := m.state.Location.WithNewKey()
	m.mu.Unlock()

	return m.Send(ctx, loc, withDiff(diff.Revalidate()))
}

func (m *Manager) run(ctx context.Context, t *task) {
	defer t.cancel()

	var res Result
	switch {
	case len(t.matches) == 0:
		res = m.notFound(ctx, t)
	case t.submission != nil:
		res = m.submit(ctx, t)
	default:
		res = m.load(ctx, t)
	}

	m.awaitDelivery(t)
	t.nav.finish(res)
}

func (m *Manager) notFound(ctx context.Context, t *task) Result {
	err := route.NewNotFoundError(m.routes, t.loc.Pathname)
	boundary := m.rootBoundary()

	return m.commit(ctx, t, err, func(s *State) {
		data := make(map[string]any)
		if v, ok := s.LoaderData[boundary]; ok {
			data[boundary] = v
		}
		s.LoaderData = data
		s.Error = err
		s.ErrorBoundaryID = boundary
	})
}

func (m *Manager) load(ctx context.Context, t *task) Result {
	opts := append([]diff.Option{diff.Loaded(t.loaded...)}, t.diff...)
	set, err := diff.ComputeLoadSet(t.prev, diff.Snapshot{Location: t.loc, Matches: t.matches}, opts...)
	if err != nil {
		m.emit(ctx, observability.Event{
			Type:       EventInconsistent,
			Level:      observability.LevelWarning,
			Generation: t.gen,
			Data: map[string]any{
				"error":  err.Error(),
				"strict": m.cfg.Strict,
			},
		})
		if m.cfg.Strict {
			boundary := t.matches[boundaryIndex(t.matches, 0)].ID()
			return m.commit(ctx, t, err, func(s *State) {
				s.LoaderData = make(map[string]any)
				s.Error = err
				s.ErrorBoundaryID = boundary
			})
		}
	}

	m.emit(ctx, observability.Event{
		Type:       EventLoadSet,
		Level:      observability.LevelVerbose,
		Generation: t.gen,
		Data: map[string]any{
			"reload":  set.Reload,
			"reuse":   set.Reuse,
			"reasons": set.Reasons,
		},
	})

	values, fail := m.runLoaders(ctx, t, set.Reload)
	if fail != nil {
		return m.fail(ctx, t, fail, set.Reuse)
	}

	return m.commit(ctx, t, nil, func(s *State) {
		data := retain(s.LoaderData, set.Reuse)
		maps.Copy(data, values)
		s.LoaderData = data
	})
}

func (m *Manager) submit(ctx context.Context, t *task) Result {
	leafIdx := len(t.matches) - 1
	leaf := t.matches[leafIdx]

	m.emit(ctx, observability.Event{
		Type:       EventActionStart,
		Level:      observability.LevelInfo,
		Generation: t.gen,
		RouteID:    leaf.ID(),
		Data:       map[string]any{"ref": t.submission.Ref},
	})

	var value any
	var err error
	if !leaf.Route.HasAction() {
		err = &ActionError{RouteID: leaf.ID(), Err: ErrNoAction}
	} else {
		// Supersession does not cancel an action; only the timeout does.
		value, err = m.invoke(context.WithoutCancel(ctx), func(ctx context.Context) (any, error) {
			return leaf.Route.Action(ctx, route.ActionArgs{
				Params:   leaf.Params,
				Location: t.loc,
				Body:     t.submission.Body,
			})
		})
		if err != nil {
			err = &ActionError{RouteID: leaf.ID(), Err: err}
		}
	}

	m.emit(ctx, observability.Event{
		Type:       EventActionComplete,
		Level:      observability.LevelInfo,
		Generation: t.gen,
		RouteID:    leaf.ID(),
		Data: map[string]any{
			"ref":   t.submission.Ref,
			"error": err != nil,
		},
	})

	if err == nil {
		if r, ok := route.AsRedirect(value); ok {
			return m.redirect(ctx, t, r)
		}
		t.actionDone = true
		t.actionData = value
	}

	if !m.current(t) {
		return m.abandon(ctx, t)
	}

	if err != nil {
		idx := boundaryIndex(t.matches, leafIdx)
		boundary := t.matches[idx].ID()

		values, fail := m.runLoaders(ctx, t, loaderIDs(t.matches[:idx]))
		if fail != nil {
			return m.fail(ctx, t, fail, nil)
		}
		return m.commit(ctx, t, err, func(s *State) {
			s.LoaderData = values
			s.Error = err
			s.ErrorBoundaryID = boundary
		})
	}

	values, fail := m.runLoaders(ctx, t, loaderIDs(t.matches))
	if fail != nil {
		return m.fail(ctx, t, fail, nil)
	}
	return m.commit(ctx, t, nil, func(s *State) {
		s.LoaderData = values
	})
}

// fail settles a navigation whose loader batch did not complete. keep lists
// the routes whose committed data survives the error.
func (m *Manager) fail(ctx context.Context, t *task, f *loadFailure, keep []string) Result {
	if f.redirect != nil {
		return m.redirect(ctx, t, *f.redirect)
	}

	idx := 0
	for i, match := range t.matches {
		if match.ID() == f.routeID {
			idx = i
			break
		}
	}
	boundary := t.matches[boundaryIndex(t.matches, idx)].ID()

	return m.commit(ctx, t, f.err, func(s *State) {
		s.LoaderData = retain(s.LoaderData, keep)
		s.Error = f.err
		s.ErrorBoundaryID = boundary
	})
}

func (m *Manager) runLoaders(ctx context.Context, t *task, ids []string) (map[string]any, *loadFailure) {
	values := make(map[string]any, len(ids))
	if len(ids) == 0 {
		return values, nil
	}

	byID := make(map[string]route.Match, len(t.matches))
	for _, match := range t.matches {
		byID[match.ID()] = match
	}

	cfg := parallel.Config{
		MaxWorkers: m.cfg.MaxConcurrency,
		Observer:   m.observer,
	}

	res, err := parallel.ProcessParallel(ctx, cfg, ids, func(ctx context.Context, id string) (any, error) {
		v, err := m.callLoader(ctx, t, byID[id])
		if err != nil {
			return nil, &LoaderError{RouteID: id, Err: err}
		}
		if r, ok := route.AsRedirect(v); ok {
			return nil, &redirectSignal{routeID: id, to: r}
		}
		return v, nil
	})
	if err != nil {
		var sig *redirectSignal
		if errors.As(err, &sig) {
			return nil, &loadFailure{routeID: sig.routeID, redirect: &sig.to}
		}
		var le *LoaderError
		if errors.As(err, &le) {
			return nil, &loadFailure{routeID: le.RouteID, err: le}
		}
		return nil, &loadFailure{err: err}
	}

	for i, id := range ids {
		if res.Done[i] {
			values[id] = res.Results[i]
		}
	}
	return values, nil
}

func (m *Manager) callLoader(ctx context.Context, t *task, match route.Match) (any, error) {
	m.emit(ctx, observability.Event{
		Type:       EventLoaderStart,
		Level:      observability.LevelVerbose,
		Generation: t.gen,
		RouteID:    match.ID(),
	})

	start := time.Now()
	v, err := m.invoke(ctx, func(ctx context.Context) (any, error) {
		return match.Route.Loader(ctx, route.LoaderArgs{
			Params:   match.Params,
			Location: t.loc,
		})
	})

	m.emit(ctx, observability.Event{
		Type:       EventLoaderComplete,
		Level:      observability.LevelVerbose,
		Generation: t.gen,
		RouteID:    match.ID(),
		Data: map[string]any{
			"duration": time.Since(start).String(),
			"error":    err != nil,
		},
	})
	return v, err
}

// invoke runs fn on its own goroutine so a handler that ignores ctx cannot
// hold the navigation past cancellation or the configured timeout. Panics
// become ErrPanic.
func (m *Manager) invoke(ctx context.Context, fn func(context.Context) (any, error)) (any, error) {
	if m.cfg.LoaderTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.cfg.LoaderTimeout)
		defer cancel()
	}

	type outcome struct {
		value any
		err   error
	}
	done := make(chan outcome, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("%w: %v", ErrPanic, r)}
			}
		}()
		v, err := fn(ctx)
		done <- outcome{value: v, err: err}
	}()

	select {
	case o := <-done:
		return o.value, o.err
	case <-ctx.Done():
		select {
		case o := <-done:
			return o.value, o.err
		default:
			return nil, ctx.Err()
		}
	}
}

// commit publishes the navigation's terminal state if it is still current.
// apply receives a copy of the committed state with the location, matches
// and submission bookkeeping already updated.
func (m *Manager) commit(ctx context.Context, t *task, failure error, apply func(*State)) Result {
	m.mu.Lock()
	if t.gen != m.generation {
		m.mu.Unlock()
		return m.abandon(ctx, t)
	}

	next := m.state.Clone()
	next.Location = t.loc
	next.Matches = t.matches
	next.NextLocation = nil
	next.NextMatches = nil
	next.Error = nil
	next.ErrorBoundaryID = ""
	next.ActionData = nil
	if t.submission != nil {
		delete(next.PendingSubmissions, t.submission.Ref)
		if t.actionDone {
			next.ActionData = t.actionData
			next.RefActionData[t.submission.Ref] = t.actionData
		}
	}
	apply(&next)

	t.lastSeq = m.publishLocked(&next)
	m.cancel = nil
	m.mu.Unlock()

	outcome := OutcomeCommitted
	if failure != nil {
		outcome = OutcomeErrored
		m.emit(ctx, observability.Event{
			Type:       EventError,
			Level:      observability.LevelError,
			Generation: t.gen,
			RouteID:    next.ErrorBoundaryID,
			Data: map[string]any{
				"href":    t.loc.Href(),
				"version": next.Version,
				"error":   failure.Error(),
			},
		})
	} else {
		m.emit(ctx, observability.Event{
			Type:       EventCommit,
			Level:      observability.LevelInfo,
			Generation: t.gen,
			Data: map[string]any{
				"href":         t.loc.Href(),
				"version":      next.Version,
				"loader_count": len(next.LoaderData),
			},
		})
	}

	m.flush()
	return Result{Outcome: outcome, Err: failure, Version: next.Version}
}

// redirect aborts the navigation without committing: the pending location
// is cleared in one published state and the redirect notification follows
// it.
func (m *Manager) redirect(ctx context.Context, t *task, r route.Redirect) Result {
	target := r.Location()

	m.mu.Lock()
	if t.gen != m.generation {
		m.mu.Unlock()
		return m.abandon(ctx, t)
	}
	next := m.state.Clone()
	next.NextLocation = nil
	next.NextMatches = nil
	settled := settleSubmission(&next, t)
	m.publishLocked(&next)
	m.cancel = nil
	t.lastSeq = m.enqueueLocked(notification{redirect: &target})
	m.mu.Unlock()

	if settled {
		m.settled(ctx, t, next.Version)
	}
	m.emit(ctx, observability.Event{
		Type:       EventRedirect,
		Level:      observability.LevelInfo,
		Generation: t.gen,
		Data: map[string]any{
			"href":    t.loc.Href(),
			"target":  target.Href(),
			"version": next.Version,
		},
	})

	m.flush()
	return Result{Outcome: OutcomeRedirected, Redirect: &target, Version: next.Version}
}

// abandon ends a superseded navigation. Only a submission's own pending
// entry is touched.
func (m *Manager) abandon(ctx context.Context, t *task) Result {
	m.mu.Lock()
	var version uint64
	if t.submission != nil {
		next := m.state.Clone()
		if settleSubmission(&next, t) {
			t.lastSeq = m.publishLocked(&next)
			version = next.Version
		}
	}
	m.mu.Unlock()

	if version != 0 {
		m.settled(ctx, t, version)
	}
	m.emit(ctx, observability.Event{
		Type:       EventSuperseded,
		Level:      observability.LevelVerbose,
		Generation: t.gen,
		Data:       map[string]any{"href": t.loc.Href()},
	})

	m.flush()
	return Result{Outcome: OutcomeSuperseded, Version: version}
}

// settleSubmission removes t's pending submission entry from next, recording
// the action result on success. It reports whether next changed.
func settleSubmission(next *State, t *task) bool {
	if t.submission == nil {
		return false
	}
	ref := t.submission.Ref
	if _, ok := next.PendingSubmissions[ref]; !ok {
		return false
	}
	delete(next.PendingSubmissions, ref)
	if t.actionDone {
		next.RefActionData[ref] = t.actionData
	}
	return true
}

func (m *Manager) settled(ctx context.Context, t *task, version uint64) {
	m.emit(ctx, observability.Event{
		Type:       EventSubmissionSettle,
		Level:      observability.LevelVerbose,
		Generation: t.gen,
		Data: map[string]any{
			"ref":         t.submission.Ref,
			"version":     version,
			"action_done": t.actionDone,
		},
	})
}

func (m *Manager) current(t *task) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return t.gen == m.generation
}

// publishLocked makes next the current state and queues its change
// notification, returning the notification's sequence number.
func (m *Manager) publishLocked(next *State) uint64 {
	next.Version = m.state.Version + 1
	m.state = *next
	published := next.Clone()
	return m.enqueueLocked(notification{state: &published})
}

func (m *Manager) enqueueLocked(n notification) uint64 {
	m.queued++
	n.seq = m.queued
	m.outbox = append(m.outbox, n)
	return n.seq
}

// flush delivers queued notifications. One goroutine delivers at a time;
// notifications queued meanwhile are picked up by the delivering goroutine,
// which keeps them in publication order.
func (m *Manager) flush() {
	for {
		m.mu.Lock()
		if m.delivering || len(m.outbox) == 0 {
			m.mu.Unlock()
			return
		}
		batch := m.outbox
		m.outbox = nil
		m.delivering = true
		m.mu.Unlock()

		m.deliver(batch)
	}
}

func (m *Manager) deliver(batch []notification) {
	defer func() {
		m.mu.Lock()
		m.delivering = false
		m.delivered = max(m.delivered, batch[len(batch)-1].seq)
		m.drained.Broadcast()
		m.mu.Unlock()
	}()

	for _, n := range batch {
		switch {
		case n.state != nil:
			if m.onChange != nil {
				m.onChange(*n.state)
			}
		case n.redirect != nil:
			if m.onRedirect != nil {
				m.onRedirect(*n.redirect)
			}
		}

		m.mu.Lock()
		m.delivered = n.seq
		m.drained.Broadcast()
		m.mu.Unlock()
	}
}

// awaitDelivery blocks until every notification t queued has reached its
// callback, whichever goroutine delivers it.
func (m *Manager) awaitDelivery(t *task) {
	if t.nested {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for m.delivered < t.lastSeq {
		m.drained.Wait()
	}
}

// rootBoundary is the first top-level route declaring an error boundary,
// else the first top-level route.
func (m *Manager) rootBoundary() string {
	for _, r := range m.routes {
		if r.ErrorBoundary {
			return r.ID
		}
	}
	if len(m.routes) > 0 {
		return m.routes[0].ID
	}
	return ""
}

func (m *Manager) emit(ctx context.Context, e observability.Event) {
	e.Timestamp = time.Now()
	e.Source = source
	m.observer.OnEvent(ctx, e)
}

// boundaryIndex walks up from the match at index from to the nearest route
// declaring an error boundary, falling back to the root match.
func boundaryIndex(matches []route.Match, from int) int {
	for i := from; i >= 0; i-- {
		if matches[i].Route.ErrorBoundary {
			return i
		}
	}
	return 0
}

func loaderIDs(matches []route.Match) []string {
	var ids []string
	for _, match := range matches {
		if match.Route.HasLoader() {
			ids = append(ids, match.ID())
		}
	}
	return ids
}

func retain(data map[string]any, ids []string) map[string]any {
	out := make(map[string]any, len(ids))
	for _, id := range ids {
		if v, ok := data[id]; ok {
			out[id] = v
		}
	}
	return out
}

func normalize(loc location.Location) location.Location {
	if loc.Pathname == "" {
		loc.Pathname = "/"
	}
	if loc.Key == "" {
		loc.Key = location.NewKey()
	}
	return loc
}
