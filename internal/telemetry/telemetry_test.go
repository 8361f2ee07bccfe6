// internal/telemetry/telemetry_test.go
package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestSetupWithoutEndpointIsNoop(t *testing.T) {
	tp, shutdown, err := Setup(context.Background(), "librarium", "")
	require.NoError(t, err)

	_, span := tp.Tracer("test").Start(context.Background(), "noop")
	assert.False(t, span.SpanContext().IsValid())
	assert.NoError(t, shutdown(context.Background()))
}

func TestSetupWithEndpoint(t *testing.T) {
	tp, shutdown, err := Setup(context.Background(), "librarium", "http://127.0.0.1:4318")
	require.NoError(t, err)
	assert.IsType(t, &sdktrace.TracerProvider{}, tp)

	_, span := tp.Tracer("test").Start(context.Background(), "op")
	assert.True(t, span.SpanContext().IsValid())
	span.End()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	// Nothing listens on the endpoint; shutdown with a dead context must still return.
	_ = shutdown(ctx)
}
