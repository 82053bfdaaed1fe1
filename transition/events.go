package transition

import "github.com/tailored-agentic-units/transition/observability"

// Transition event types emitted by the manager.
const (
	EventInit             observability.EventType = "transition.init"
	EventNavigationStart  observability.EventType = "transition.navigation.start"
	EventPending          observability.EventType = "transition.pending"
	EventLoadSet          observability.EventType = "transition.loadset"
	EventLoaderStart      observability.EventType = "transition.loader.start"
	EventLoaderComplete   observability.EventType = "transition.loader.complete"
	EventActionStart      observability.EventType = "transition.action.start"
	EventActionComplete   observability.EventType = "transition.action.complete"
	EventCommit           observability.EventType = "transition.commit"
	EventRedirect         observability.EventType = "transition.redirect"
	EventError            observability.EventType = "transition.error"
	EventSuperseded       observability.EventType = "transition.superseded"
	EventSubmissionSettle observability.EventType = "transition.submission.settle"
	EventInconsistent     observability.EventType = "transition.inconsistent"
)

const source = "transition.Manager"
