package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	for _, line := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
		if len(line) == 0 {
			continue
		}
		var m map[string]interface{}
		require.NoError(t, json.Unmarshal(line, &m))
		out = append(out, m)
	}
	return out
}

func TestLoggerLevelsAndFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LoggerConfig{Level: InfoLevel, Output: &buf, Service: "repdata", Version: "1.2.3"})

	logger.Debug("hidden")
	logger.WithField("run_id", "01H").Info("run started")
	logger.WithError(errors.New("boom")).WarnWithFields("stage slow", map[string]interface{}{"stage": "expand"})

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 2)

	assert.Equal(t, "run started", lines[0]["msg"])
	assert.Equal(t, "info", lines[0]["level"])
	assert.Equal(t, "01H", lines[0]["run_id"])
	assert.Equal(t, "repdata", lines[0]["service"])
	assert.Equal(t, "1.2.3", lines[0]["version"])

	assert.Equal(t, "warning", lines[1]["level"])
	assert.Equal(t, "boom", lines[1]["error"])
	assert.Equal(t, "expand", lines[1]["stage"])
}

func TestLoggerTextFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LoggerConfig{Level: DebugLevel, Output: &buf, Format: "text"})
	logger.Debugf("rows=%d", 3)

	assert.Contains(t, buf.String(), "rows=3")
	assert.Contains(t, buf.String(), "level=debug")
}

func TestLogLevelFromString(t *testing.T) {
	tests := map[string]LogLevel{
		"debug":   DebugLevel,
		"INFO":    InfoLevel,
		"warning": WarnLevel,
		"warn":    WarnLevel,
		"error":   ErrorLevel,
		"bogus":   InfoLevel,
	}
	for in, want := range tests {
		assert.Equal(t, want, LogLevelFromString(in), in)
	}
}

func TestLoggerWithContextAddsTraceIDs(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LoggerConfig{Output: &buf})

	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(tracetest.NewSpanRecorder()))
	defer func() { _ = tp.Shutdown(context.Background()) }()
	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	logger.WithContext(ctx).Info("inside span")
	span.End()

	logger.WithContext(context.Background()).Info("outside span")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 2)
	assert.Equal(t, span.SpanContext().TraceID().String(), lines[0]["trace_id"])
	assert.NotContains(t, lines[1], "trace_id")
}

func TestNoopTelemetry(t *testing.T) {
	tel, err := SetupTelemetry(context.Background(), TelemetryConfig{})
	require.NoError(t, err)

	ctx, span := tel.Tracer.Start(context.Background(), "stage")
	tel.StageRows.Add(ctx, 10)
	tel.RowsWritten.Add(ctx, 5, metric.WithAttributes())
	tel.RunDuration.Record(ctx, 1.5)
	span.End()

	assert.NoError(t, tel.Shutdown(context.Background()))
}
