package lgr

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/mdobak/go-xerrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
)

func TestLoggerAddsTraceIDs(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSON(&buf, slog.LevelInfo)

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	}))

	logger.InfoContext(ctx, "classified")

	var rec map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", rec["trace_id"])
	assert.Equal(t, "00f067aa0ba902b7", rec["span_id"])
}

func TestLoggerWithoutSpan(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSON(&buf, slog.LevelInfo)

	logger.Info("classified")

	var rec map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.NotContains(t, rec, "trace_id")
}

func TestErrorsCarryStackTrace(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSON(&buf, slog.LevelInfo)

	logger.Error("load failed", slog.Any("error", xerrors.New("model missing")))

	var rec struct {
		Error struct {
			Msg   string       `json:"msg"`
			Trace []stackFrame `json:"trace"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "model missing", rec.Error.Msg)
	assert.NotEmpty(t, rec.Error.Trace)
}

func TestPlainErrorsHaveNoTrace(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSON(&buf, slog.LevelInfo)

	logger.Error("load failed", slog.Any("error", errors.New("model missing")))

	var rec map[string]map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "model missing", rec["error"]["msg"])
	assert.NotContains(t, rec["error"], "trace")
}

func TestPrettyHandlerLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newPrettyHandler(&buf, slog.LevelWarn))

	logger.Info("hidden")
	logger.With(slog.String("camera", "cam0")).Warn("shown", slog.Int("votes", 3))

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
	assert.Contains(t, out, `"camera":"cam0"`)
	assert.Contains(t, out, `"votes":3`)
}

func TestLevelFromString(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, levelFromString("debug"))
	assert.Equal(t, slog.LevelWarn, levelFromString("WARN"))
	assert.Equal(t, slog.LevelError, levelFromString("error"))
	assert.Equal(t, slog.LevelInfo, levelFromString(""))
}

func TestNewTraceContextStampsRecords(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSON(&buf, slog.LevelInfo)

	ctx := NewTraceContext(context.Background())
	require.NotEmpty(t, TraceID(ctx))
	assert.NotEqual(t, TraceID(ctx), TraceID(NewTraceContext(context.Background())))

	logger.WarnContext(ctx, "classifier did not vote")

	var rec map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, TraceID(ctx), rec["trace_id"])
	assert.NotEmpty(t, rec["span_id"])
}

func TestTraceIDWithoutSpan(t *testing.T) {
	assert.Empty(t, TraceID(context.Background()))
}

func TestWithStackAddsTraceOnce(t *testing.T) {
	assert.NoError(t, WithStack(nil))

	plain := errors.New("model missing")
	traced := WithStack(plain)
	require.ErrorIs(t, traced, plain)
	assert.Equal(t, "model missing", traced.Error())
	require.NotEmpty(t, xerrors.StackTrace(traced))

	assert.Same(t, traced, WithStack(traced))

	var buf bytes.Buffer
	NewJSON(&buf, slog.LevelInfo).Error("load failed", slog.Any("error", traced))

	var rec struct {
		Error struct {
			Trace []stackFrame `json:"trace"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	require.NotEmpty(t, rec.Error.Trace)
	assert.Equal(t, "TestWithStackAddsTraceOnce", lastPart(rec.Error.Trace[0].Func))
}

func lastPart(fn string) string {
	if i := strings.LastIndex(fn, "."); i >= 0 {
		return fn[i+1:]
	}
	return fn
}
