// Package sink routes diagnostic events from the association engine to
// consumers: an in-process callback, slog, JSON lines on a writer, or a
// SQLite store. The engine itself only knows the OnEvent callback; sinks
// exist so hosts can observe scans without wiring their own plumbing.
// A failing sink is logged and skipped, never propagated: observability
// must not change scan outcomes.
package sink

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"

	"github.com/hazyhaar/swatchmatch/diag"
)

// Sink consumes diagnostic events.
type Sink interface {
	Emit(ctx context.Context, ev diag.Event) error
}

// NewCallback wraps an in-process function as a Sink. Zero serialisation.
func NewCallback(fn func(diag.Event)) Sink {
	return callbackSink{fn}
}

type callbackSink struct {
	fn func(diag.Event)
}

func (c callbackSink) Emit(_ context.Context, ev diag.Event) error {
	c.fn(ev)
	return nil
}

// NewStdout creates a JSON-lines sink on w. Writes are serialised; the
// engine may run associations for different images concurrently.
func NewStdout(w io.Writer) Sink {
	return &stdoutSink{w: w}
}

type stdoutSink struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *stdoutSink) Emit(_ context.Context, ev diag.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.w.Write(data); err != nil {
		return err
	}
	_, err = s.w.Write([]byte{'\n'})
	return err
}

// NewSlog bridges events to structured logging. Rejections log at debug,
// terminal outcomes at info.
func NewSlog(logger *slog.Logger) Sink {
	if logger == nil {
		logger = slog.Default()
	}
	return slogSink{logger}
}

type slogSink struct {
	logger *slog.Logger
}

func (s slogSink) Emit(ctx context.Context, ev diag.Event) error {
	attrs := []any{"kind", ev.Kind}
	if ev.Phase != "" {
		attrs = append(attrs, "phase", ev.Phase)
	}
	if ev.Tier > 0 {
		attrs = append(attrs, "tier", ev.Tier)
	}
	if ev.Distance != nil {
		attrs = append(attrs, "distance", *ev.Distance)
	}
	if ev.Reason != "" {
		attrs = append(attrs, "reason", ev.Reason)
	}
	if ev.Image != nil {
		attrs = append(attrs, "image_index", ev.Image.Index)
	}
	switch ev.Kind {
	case diag.AssociationSucceeded, diag.AssociationFailed:
		s.logger.InfoContext(ctx, "association", attrs...)
	default:
		s.logger.DebugContext(ctx, "association", attrs...)
	}
	return nil
}

// Router fans one event out to several sinks. Sink errors are logged and
// swallowed so one broken consumer cannot starve the others.
type Router struct {
	sinks  []Sink
	logger *slog.Logger
}

// NewRouter creates a Router. A nil logger falls back to slog.Default().
func NewRouter(logger *slog.Logger, sinks ...Sink) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{sinks: sinks, logger: logger}
}

// Emit delivers ev to every sink.
func (r *Router) Emit(ctx context.Context, ev diag.Event) {
	for _, s := range r.sinks {
		if err := s.Emit(ctx, ev); err != nil {
			r.logger.Warn("sink: emit failed", "kind", ev.Kind, "error", err)
		}
	}
}

// Func adapts the Router to the engine's OnEvent callback.
func (r *Router) Func(ctx context.Context) diag.Func {
	return func(ev diag.Event) { r.Emit(ctx, ev) }
}
