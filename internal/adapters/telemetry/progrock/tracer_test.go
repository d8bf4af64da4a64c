package progrock_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/claimgraph/internal/adapters/telemetry/progrock"
	"go.trai.ch/claimgraph/internal/core/ports"
)

func TestTracer_SatisfiesPort(_ *testing.T) {
	var _ ports.Tracer = (*progrock.Tracer)(nil)
	var _ ports.Span = (*progrock.Span)(nil)
}

func TestTracer_RecordsSpans(t *testing.T) {
	tracer := progrock.New()
	require.NotNil(t, tracer)

	ctx := context.Background()
	got, span := tracer.Start(ctx, "levelcache.load", ports.WithAttribute("level", "claims"))
	assert.Equal(t, ctx, got)

	span.SetAttribute("nodes", 3)
	span.RecordError(errors.New("boom"))
	span.End()
	span.End()

	_, again := tracer.Start(ctx, "levelcache.load")
	again.End()

	assert.NoError(t, tracer.Close())
}
