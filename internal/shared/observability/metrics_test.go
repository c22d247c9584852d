package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestStatementsTotal(t *testing.T) {
	before := testutil.ToFloat64(StatementsTotal.WithLabelValues("evaluate"))
	StatementsTotal.WithLabelValues("evaluate").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(StatementsTotal.WithLabelValues("evaluate")))
}

func TestTracerIsUsableWithoutProvider(t *testing.T) {
	_, span := Tracer.Start(t.Context(), "test")
	defer span.End()
	assert.False(t, span.SpanContext().IsValid())
}
