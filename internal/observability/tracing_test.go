package observability

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
)

func TestInitTracingDisabled(t *testing.T) {
	shutdown, err := InitTracing(TracingConfig{ServiceName: "spilledin-test"})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))

	ctx, span := StartSpan(context.Background(), "recap", "generate", attribute.Int("month", 3))
	assert.NotNil(t, ctx)
	span.End(errors.New("boom"))
}

func TestInitTracingUnknownExporter(t *testing.T) {
	_, err := InitTracing(TracingConfig{ServiceName: "spilledin-test", Enabled: true, Exporter: "carrier-pigeon"})
	assert.Error(t, err)
}

func TestTrackQueryObserves(t *testing.T) {
	done := TrackQuery("monthly_stats", "confessions")
	done()
}
