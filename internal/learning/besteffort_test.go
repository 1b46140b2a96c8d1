package learning

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/danielpatrickdp/adaptive-context/internal/metrics"
)

func TestRunBestEffortSuccess(t *testing.T) {
	v, ok := RunBestEffort(nil, nil, "op", func() (int, error) { return 7, nil })
	assert.True(t, ok)
	assert.Equal(t, 7, v)
}

func TestRunBestEffortSwallowsError(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	m := metrics.New(prometheus.NewRegistry())

	v, ok := RunBestEffort(zap.New(core), m, "append_trace", func() (int, error) {
		return 7, errors.New("disk full")
	})
	assert.False(t, ok)
	assert.Zero(t, v)

	entries := logs.FilterMessage("best-effort operation failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
	assert.Equal(t, "append_trace", entries[0].ContextMap()["op"])
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BestEffortFailuresTotal.WithLabelValues("append_trace")))
}

func TestRunBestEffortRecoversPanic(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)

	v, ok := RunBestEffort(zap.New(core), nil, "capture", func() (string, error) {
		panic("boom")
	})
	assert.False(t, ok)
	assert.Empty(t, v)
	assert.Equal(t, 1, logs.FilterMessage("best-effort operation panicked").Len())
}
