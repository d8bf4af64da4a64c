package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.trai.ch/claimgraph/internal/core/ports"
)

// Sender receives span messages. *tea.Program satisfies it.
type Sender interface {
	Send(msg tea.Msg)
}

// TUIBridge implements sdktrace.SpanProcessor to bridge OTel spans to Bubble Tea messages.
type TUIBridge struct {
	sender Sender
}

// NewTUIBridge returns a new TUIBridge.
func NewTUIBridge(sender Sender) *TUIBridge {
	return &TUIBridge{
		sender: sender,
	}
}

// OnStart is called when a span starts.
func (b *TUIBridge) OnStart(parent context.Context, s sdktrace.ReadWriteSpan) {
	if b.sender == nil {
		return
	}

	sc := s.SpanContext()
	if !sc.IsValid() {
		return
	}

	var parentID string
	if parentSpan := trace.SpanFromContext(parent); parentSpan.SpanContext().IsValid() {
		parentID = parentSpan.SpanContext().SpanID().String()
	}

	b.sender.Send(MsgSpanStart{
		SpanID:    sc.SpanID().String(),
		ParentID:  parentID,
		Name:      s.Name(),
		StartTime: s.StartTime(),
	})
}

// OnEnd is called when a span ends.
func (b *TUIBridge) OnEnd(s sdktrace.ReadOnlySpan) {
	if b.sender == nil {
		return
	}

	sc := s.SpanContext()
	if !sc.IsValid() {
		return
	}

	b.sender.Send(MsgSpanEnd{
		SpanID:   sc.SpanID().String(),
		Name:     s.Name(),
		Duration: s.EndTime().Sub(s.StartTime()),
		Err:      spanError(s),
	})
}

// ForceFlush does nothing.
func (b *TUIBridge) ForceFlush(_ context.Context) error {
	return nil
}

// Shutdown does nothing.
func (b *TUIBridge) Shutdown(_ context.Context) error {
	return nil
}

// SpanLogger implements sdktrace.SpanProcessor by logging every finished span.
type SpanLogger struct {
	logger ports.Logger
}

// NewSpanLogger returns a new SpanLogger.
func NewSpanLogger(logger ports.Logger) *SpanLogger {
	return &SpanLogger{logger: logger}
}

// OnStart does nothing.
func (l *SpanLogger) OnStart(_ context.Context, _ sdktrace.ReadWriteSpan) {}

// OnEnd logs the span name and duration.
func (l *SpanLogger) OnEnd(s sdktrace.ReadOnlySpan) {
	d := s.EndTime().Sub(s.StartTime()).Round(time.Microsecond)
	if err := spanError(s); err != nil {
		l.logger.Warn(fmt.Sprintf("%s failed after %s: %v", s.Name(), d, err))
		return
	}
	l.logger.Info(fmt.Sprintf("%s finished in %s", s.Name(), d))
}

// ForceFlush does nothing.
func (l *SpanLogger) ForceFlush(_ context.Context) error {
	return nil
}

// Shutdown does nothing.
func (l *SpanLogger) Shutdown(_ context.Context) error {
	return nil
}

func spanError(s sdktrace.ReadOnlySpan) error {
	if s.Status().Code != codes.Error {
		return nil
	}
	desc := s.Status().Description
	if desc == "" {
		desc = "span failed"
	}
	return errors.New(desc)
}
