package xdlock_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/zimeng1/mc-base/pkg/distributed/xdlock"
	"github.com/zimeng1/mc-base/pkg/observability/xlog"
	"github.com/zimeng1/mc-base/pkg/observability/xmetrics"
)

// logLines 解析 JSON 日志
func logLines(t *testing.T, buf *syncBuffer) []map[string]any {
	t.Helper()
	var lines []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m), line)
		lines = append(lines, m)
	}
	return lines
}

func TestDiagnostics_LogLevels(t *testing.T) {
	ctx := context.Background()
	logger, buf := newBufferLogger(t, xlog.LevelDebug)
	mr, c := setup(t, variants[0], xdlock.WithLogger(logger))

	require.True(t, c.TryAcquire(ctx, "k", "A", 10*time.Second))
	require.False(t, c.TryAcquire(ctx, "k", "B", 10*time.Second))
	require.False(t, c.Release(ctx, "k", "B"))
	require.True(t, c.Release(ctx, "k", "A"))
	require.False(t, c.TryAcquire(ctx, "", "A", time.Second))
	mr.Close()
	require.False(t, c.TryAcquire(ctx, "k", "A", time.Second))

	lines := logLines(t, buf)
	require.Len(t, lines, 6)

	want := []struct {
		level   string
		outcome string
	}{
		{"DEBUG", "acquired"},
		{"DEBUG", "contended"},
		{"WARN", "mismatch"},
		{"DEBUG", "released"},
		{"WARN", "invalid_argument"},
		{"ERROR", "transport_unavailable"},
	}
	for i, w := range want {
		assert.Equal(t, w.level, lines[i]["level"], "line %d", i)
		assert.Equal(t, w.outcome, lines[i][xlog.KeyOutcome], "line %d", i)
		assert.Equal(t, "xdlock", lines[i][xlog.KeyComponent])
		assert.Equal(t, "standalone", lines[i][xlog.KeyTransport])
	}

	assert.Equal(t, "acquire", lines[0][xlog.KeyOperation])
	assert.Equal(t, "10s", lines[0][xlog.KeyLease])
	assert.Equal(t, "release", lines[2][xlog.KeyOperation])
	assert.NotContains(t, lines[2], xlog.KeyLease)
	assert.Contains(t, lines[4], xlog.KeyError)
	assert.Contains(t, lines[5], xlog.KeyError)

	// 被占用时附带剩余 TTL
	assert.Equal(t, "10s", lines[1][xlog.KeyTTL])
}

func TestDiagnostics_ContentionTTLDisabled(t *testing.T) {
	ctx := context.Background()
	logger, buf := newBufferLogger(t, xlog.LevelDebug)
	_, c := setup(t, variants[0], xdlock.WithLogger(logger), xdlock.WithContentionTTL(false))

	require.True(t, c.TryAcquire(ctx, "k", "A", 10*time.Second))
	require.False(t, c.TryAcquire(ctx, "k", "B", 10*time.Second))

	lines := logLines(t, buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "contended", lines[1][xlog.KeyOutcome])
	assert.NotContains(t, lines[1], xlog.KeyTTL)
}

// inspectingTransport 在 countingTransport 之上记录 Inspect 次数
type inspectingTransport struct {
	countingTransport
	inspects atomic.Int32
}

func (f *inspectingTransport) Inspect(context.Context, string) (xdlock.LeaseState, error) {
	f.inspects.Add(1)
	return xdlock.LeaseState{Held: true, TTL: 4 * time.Second}, nil
}

// Info 级别下竞争不产生日志，也不发起额外查询
func TestDiagnostics_ContentionQuietAtInfo(t *testing.T) {
	ctx := context.Background()
	ft := &inspectingTransport{}

	logger, buf := newBufferLogger(t, xlog.LevelInfo)
	c, err := xdlock.New(ft, xdlock.WithLogger(logger))
	require.NoError(t, err)
	require.False(t, c.TryAcquire(ctx, "k", "B", 10*time.Second))
	assert.Equal(t, int32(0), ft.inspects.Load())
	assert.Empty(t, strings.TrimSpace(buf.String()))

	debugLogger, debugBuf := newBufferLogger(t, xlog.LevelDebug)
	c, err = xdlock.New(ft, xdlock.WithLogger(debugLogger))
	require.NoError(t, err)
	require.False(t, c.TryAcquire(ctx, "k", "B", 10*time.Second))
	assert.Equal(t, int32(1), ft.inspects.Load())
	assert.Contains(t, debugBuf.String(), `"ttl":"4s"`)

	acquires, _ := ft.calls()
	assert.Equal(t, 2, acquires)
}

func TestDiagnostics_DoesNotChangeResult(t *testing.T) {
	ctx := context.Background()
	ft := &countingTransport{acquireCode: 1, releaseCode: 1}

	var failed bool
	logger, _, err := xlog.New().
		SetOutput(failingWriter{}).
		SetLevel(xlog.LevelDebug).
		SetOnError(func(error) { failed = true }).
		Build()
	require.NoError(t, err)

	c, err := xdlock.New(ft, xdlock.WithLogger(logger))
	require.NoError(t, err)
	assert.True(t, c.TryAcquire(ctx, "k", "T", time.Second))
	assert.True(t, c.Release(ctx, "k", "T"))
	assert.True(t, failed)
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func newTestObserver(t *testing.T) (xmetrics.Observer, *tracetest.InMemoryExporter, *sdkmetric.ManualReader) {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		_ = mp.Shutdown(context.Background())
	})
	obs, err := xmetrics.NewOTelObserver(
		xmetrics.WithTracerProvider(tp),
		xmetrics.WithMeterProvider(mp),
	)
	require.NoError(t, err)
	return obs, exporter, reader
}

func spanAttr(attrs []attribute.KeyValue, key string) (attribute.Value, bool) {
	for _, kv := range attrs {
		if string(kv.Key) == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestDiagnostics_Spans(t *testing.T) {
	ctx := context.Background()
	obs, exporter, reader := newTestObserver(t)
	mr, c := setup(t, variants[0], xdlock.WithObserver(obs), xdlock.WithKeyPrefix("lock:"))

	require.True(t, c.TryAcquire(ctx, "k", "A", 3*time.Second))
	require.False(t, c.TryAcquire(ctx, "k", "B", 3*time.Second))
	require.True(t, c.Release(ctx, "k", "A"))
	mr.Close()
	require.False(t, c.Release(ctx, "k", "A"))

	spans := exporter.GetSpans()
	require.Len(t, spans, 4)

	want := []struct {
		name    string
		outcome string
		code    codes.Code
	}{
		{"xdlock.acquire", "acquired", codes.Ok},
		{"xdlock.acquire", "contended", codes.Ok},
		{"xdlock.release", "released", codes.Ok},
		{"xdlock.release", "transport_unavailable", codes.Error},
	}
	for i, w := range want {
		s := spans[i]
		assert.Equal(t, w.name, s.Name)
		assert.Equal(t, w.code, s.Status.Code, s.Name)
		v, ok := spanAttr(s.Attributes, "outcome")
		require.True(t, ok)
		assert.Equal(t, w.outcome, v.AsString())
		v, ok = spanAttr(s.Attributes, "lock.key")
		require.True(t, ok)
		assert.Equal(t, "lock:k", v.AsString())
	}

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))
	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != xmetrics.MetricOperationTotal {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
		}
	}
	assert.Equal(t, int64(4), total)
}

func TestOutcomeOf(t *testing.T) {
	tests := []struct {
		err  error
		want xdlock.Outcome
	}{
		{nil, ""},
		{xdlock.ErrLockContended, xdlock.OutcomeContended},
		{xdlock.ErrReleaseMismatch, xdlock.OutcomeMismatch},
		{xdlock.ErrEmptyKey, xdlock.OutcomeInvalidArgument},
		{xdlock.ErrInvalidLease, xdlock.OutcomeInvalidArgument},
		{xdlock.ErrTransportUnavailable, xdlock.OutcomeTransportUnavailable},
		{xdlock.ErrUnexpectedResult, xdlock.OutcomeScriptFailure},
		{errors.New("unknown"), xdlock.OutcomeScriptFailure},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, xdlock.OutcomeOf(tt.err), "%v", tt.err)
	}
}

func TestStats_NilCoordinator(t *testing.T) {
	var c *xdlock.Coordinator
	assert.Equal(t, xdlock.Stats{}, c.Stats())
}
