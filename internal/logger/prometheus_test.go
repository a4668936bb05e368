package logger

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestPrometheusHook(t *testing.T) {
	h := NewPrometheusHook("test")

	before := testutil.ToFloat64(h.counter.WithLabelValues("warn"))

	h.Run(nil, zerolog.WarnLevel, "first")
	h.Run(nil, zerolog.WarnLevel, "second")
	h.Run(nil, zerolog.NoLevel, "ignored")

	assert.InDelta(t, before+2, testutil.ToFloat64(h.counter.WithLabelValues("warn")), 0)
	assert.Same(t, h.counter, NewPrometheusHook("other").counter)
}
