package observability_test

import (
	"bytes"
	"context"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/tailored-agentic-units/transition/observability"
)

func TestLevel_String(t *testing.T) {
	tests := []struct {
		name  string
		level observability.Level
		want  string
	}{
		{name: "trace range", level: 1, want: "TRACE"},
		{name: "verbose", level: observability.LevelVerbose, want: "DEBUG"},
		{name: "info", level: observability.LevelInfo, want: "INFO"},
		{name: "warning", level: observability.LevelWarning, want: "WARN"},
		{name: "error", level: observability.LevelError, want: "ERROR"},
		{name: "fatal range", level: 21, want: "FATAL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.level.String(); got != tt.want {
				t.Errorf("Level(%d).String() = %q, want %q", tt.level, got, tt.want)
			}
		})
	}
}

func TestLevel_SlogLevel(t *testing.T) {
	tests := []struct {
		level observability.Level
		want  slog.Level
	}{
		{observability.LevelVerbose, slog.LevelDebug},
		{observability.LevelInfo, slog.LevelInfo},
		{observability.LevelWarning, slog.LevelWarn},
		{observability.LevelError, slog.LevelError},
	}

	for _, tt := range tests {
		if got := tt.level.SlogLevel(); got != tt.want {
			t.Errorf("Level(%d).SlogLevel() = %v, want %v", tt.level, got, tt.want)
		}
	}
}

func TestMultiObserver_FansOutAndSkipsNil(t *testing.T) {
	r1 := observability.NewRecorder()
	r2 := observability.NewRecorder()
	multi := observability.NewMultiObserver(nil, r1, nil, r2)

	multi.OnEvent(context.Background(), observability.Event{
		Type:      "transition.commit",
		Level:     observability.LevelInfo,
		Timestamp: time.Now(),
		Source:    "test",
	})

	for i, r := range []*observability.Recorder{r1, r2} {
		if got := r.Count("transition.commit"); got != 1 {
			t.Errorf("recorder %d: got %d events, want 1", i, got)
		}
	}
}

func TestSlogObserver_LevelFiltering(t *testing.T) {
	tests := []struct {
		name      string
		level     observability.Level
		minLevel  slog.Level
		expectLog bool
	}{
		{"verbose at debug handler", observability.LevelVerbose, slog.LevelDebug, true},
		{"verbose at info handler", observability.LevelVerbose, slog.LevelInfo, false},
		{"info at warn handler", observability.LevelInfo, slog.LevelWarn, false},
		{"error at error handler", observability.LevelError, slog.LevelError, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: tt.minLevel}))

			observability.NewSlogObserver(logger).OnEvent(context.Background(), observability.Event{
				Type:   "transition.pending",
				Level:  tt.level,
				Source: "test",
			})

			if got := buf.Len() > 0; got != tt.expectLog {
				t.Errorf("logged = %v, want %v (buf: %q)", got, tt.expectLog, buf.String())
			}
		})
	}
}

func TestSlogObserver_Attributes(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	observability.NewSlogObserver(logger).OnEvent(context.Background(), observability.Event{
		Type:       "transition.commit",
		Level:      observability.LevelInfo,
		Source:     "transition.Manager",
		Generation: 3,
		RouteID:    "root",
		Data:       map[string]any{"version": 4},
	})

	out := buf.String()
	for _, want := range []string{"transition.commit", "source=transition.Manager", "generation=3", "route_id=root", "version=4"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q: %s", want, out)
		}
	}
}

func TestRecorder_ConcurrentCapture(t *testing.T) {
	r := observability.NewRecorder()

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for range 50 {
				r.OnEvent(context.Background(), observability.Event{
					Type: "parallel.worker.start",
					Data: map[string]any{"worker": id},
				})
			}
		}(i)
	}
	wg.Wait()

	if got := r.Count("parallel.worker.start"); got != 400 {
		t.Errorf("got %d events, want 400", got)
	}

	r.Reset()
	if len(r.Events()) != 0 {
		t.Error("Reset did not clear events")
	}
}

func TestRecorder_TypesInOrder(t *testing.T) {
	r := observability.NewRecorder()
	for _, typ := range []observability.EventType{"a", "b", "c"} {
		r.OnEvent(context.Background(), observability.Event{Type: typ})
	}

	want := []observability.EventType{"a", "b", "c"}
	if got := r.Types(); !slices.Equal(got, want) {
		t.Errorf("Types() = %v, want %v", got, want)
	}
}

func TestEvent_AttrsOmitUnsetFields(t *testing.T) {
	attrs := observability.Event{Source: "transition.Manager"}.Attrs()
	if len(attrs) != 1 || attrs[0].Key != "source" {
		t.Errorf("Attrs() = %v, want only source", attrs)
	}
}

func TestRecorder_Navigation(t *testing.T) {
	r := observability.NewRecorder()
	for _, gen := range []uint64{1, 2, 1, 0} {
		r.OnEvent(context.Background(), observability.Event{Type: "transition.loader.start", Generation: gen})
	}

	if got := len(r.Navigation(1)); got != 2 {
		t.Errorf("Navigation(1) returned %d events, want 2", got)
	}
	if got := len(r.Navigation(3)); got != 0 {
		t.Errorf("Navigation(3) returned %d events, want 0", got)
	}
}

func TestRegistry(t *testing.T) {
	for _, name := range []string{"noop", "slog"} {
		if _, err := observability.GetObserver(name); err != nil {
			t.Errorf("GetObserver(%q): %v", name, err)
		}
	}

	if _, err := observability.GetObserver("nonexistent"); err == nil {
		t.Error("expected error for unknown observer")
	}

	r := observability.NewRecorder()
	observability.RegisterObserver("test-recorder", r)

	obs, err := observability.GetObserver("test-recorder")
	if err != nil {
		t.Fatalf("GetObserver after register: %v", err)
	}
	obs.OnEvent(context.Background(), observability.Event{Type: "x"})
	if r.Count("x") != 1 {
		t.Error("registered observer did not receive the event")
	}

	if !slices.Contains(observability.Names(), "test-recorder") {
		t.Errorf("Names() = %v, missing test-recorder", observability.Names())
	}
}
