// Package observability provides the event model shared by the transition
// manager, the diff engine and the loader fan-out. Level values follow the
// OpenTelemetry SeverityNumber ranges so events can be forwarded to an OTel
// log pipeline without translation.
package observability

import (
	"context"
	"log/slog"
	"time"
)

// Level is the severity of an Event.
type Level int

const (
	LevelVerbose Level = 5  // OTel DEBUG (5-8)
	LevelInfo    Level = 9  // OTel INFO (9-12)
	LevelWarning Level = 13 // OTel WARN (13-16)
	LevelError   Level = 17 // OTel ERROR (17-20)
)

// String returns the OTel severity text for the level.
func (l Level) String() string {
	switch {
	case l <= 4:
		return "TRACE"
	case l <= 8:
		return "DEBUG"
	case l <= 12:
		return "INFO"
	case l <= 16:
		return "WARN"
	case l <= 20:
		return "ERROR"
	default:
		return "FATAL"
	}
}

// SlogLevel maps the level onto the closest slog.Level.
func (l Level) SlogLevel() slog.Level {
	switch {
	case l <= 8:
		return slog.LevelDebug
	case l <= 12:
		return slog.LevelInfo
	case l <= 16:
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}

// EventType names an event. Packages declare their own constants,
// e.g. "transition.commit" or "parallel.start".
type EventType string

// Event describes something that happened during a navigation. Data holds
// remaining execution metadata (hrefs, versions, counts), never loader
// payloads.
type Event struct {
	Type      EventType
	Level     Level
	Timestamp time.Time
	Source    string

	// Generation identifies the navigation that emitted the event. Zero for
	// events outside any navigation, such as hydration.
	Generation uint64

	// RouteID is set on events about a single route's loader or action.
	RouteID string

	Data map[string]any
}

// Attrs returns the event's identifying fields and Data as slog attributes,
// with the typed fields first.
func (e Event) Attrs() []slog.Attr {
	attrs := make([]slog.Attr, 0, len(e.Data)+3)
	attrs = append(attrs, slog.String("source", e.Source))
	if e.Generation != 0 {
		attrs = append(attrs, slog.Uint64("generation", e.Generation))
	}
	if e.RouteID != "" {
		attrs = append(attrs, slog.String("route_id", e.RouteID))
	}
	for k, v := range e.Data {
		attrs = append(attrs, slog.Any(k, v))
	}
	return attrs
}

// Observer receives events. Implementations must not block the caller for
// long and must be safe for concurrent use: loader goroutines emit events.
type Observer interface {
	OnEvent(ctx context.Context, event Event)
}

// NoOpObserver discards every event.
type NoOpObserver struct{}

func (NoOpObserver) OnEvent(ctx context.Context, event Event) {}
