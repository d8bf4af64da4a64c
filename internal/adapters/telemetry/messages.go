package telemetry

import (
	"time"
)

// MsgSpanStart indicates a span has started.
type MsgSpanStart struct {
	SpanID    string
	ParentID  string // empty for root spans
	Name      string
	StartTime time.Time
}

// MsgSpanEnd indicates a span has finished.
type MsgSpanEnd struct {
	SpanID   string
	Name     string
	Duration time.Duration
	Err      error
}
