// Package progrock implements ports.Tracer by recording each span as a
// progrock vertex.
package progrock

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/opencontainers/go-digest"
	"github.com/vito/progrock"
	"go.trai.ch/claimgraph/internal/core/ports"
)

// Tracer implements ports.Tracer on a progrock recorder.
type Tracer struct {
	w   progrock.Writer
	rec *progrock.Recorder
	seq atomic.Uint64
}

// New creates a Tracer recording to a fresh tape.
func New() *Tracer {
	return NewTracer(progrock.NewTape())
}

// NewTracer creates a Tracer recording to w.
func NewTracer(w progrock.Writer) *Tracer {
	return &Tracer{
		w:   w,
		rec: progrock.NewRecorder(w),
	}
}

// Start records a new vertex. Attributes are written to its stdout.
func (t *Tracer) Start(ctx context.Context, name string, opts ...ports.SpanOption) (context.Context, ports.Span) {
	// Spans repeat names, so the digest carries a sequence number.
	n := t.seq.Add(1)
	v := t.rec.Vertex(digest.FromString(fmt.Sprintf("%s#%d", name, n)), name)

	span := &Span{vertex: v}
	cfg := ports.NewSpanConfig(opts...)
	for _, key := range slices.Sorted(maps.Keys(cfg.Attributes)) {
		span.SetAttribute(key, cfg.Attributes[key])
	}
	return ctx, span
}

// Close flushes and closes the recording session.
func (t *Tracer) Close() error {
	if c, ok := t.w.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}

// Span wraps a *progrock.VertexRecorder.
type Span struct {
	vertex *progrock.VertexRecorder

	mu   sync.Mutex
	err  error
	once sync.Once
}

// End marks the vertex done, failed if an error was recorded.
func (s *Span) End() {
	s.once.Do(func() {
		s.mu.Lock()
		err := s.err
		s.mu.Unlock()
		s.vertex.Done(err)
	})
}

// RecordError remembers the first error reported for the vertex.
func (s *Span) RecordError(err error) {
	if err == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err == nil {
		s.err = err
	}
}

// SetAttribute writes the pair to the vertex output.
func (s *Span) SetAttribute(key string, value any) {
	_, _ = fmt.Fprintf(s.vertex.Stdout(), "%s=%v\n", key, value)
}
