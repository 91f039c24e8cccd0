package tracing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func setupTracer(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	shutdown, err := InitWithExporter("storefront-test", exporter, 1.0)
	require.NoError(t, err)
	t.Cleanup(func() { _ = shutdown(context.Background()) })
	return exporter
}

func TestStartSpan(t *testing.T) {
	setupTracer(t)

	t.Run("创建根Span", func(t *testing.T) {
		ctx, span := StartSpan(context.Background(), "checkout", "CreateOrder")
		defer span.End()

		assert.True(t, span.SpanContext().IsValid())
		assert.Len(t, ExtractTraceID(ctx), 32)
		assert.Len(t, ExtractSpanID(ctx), 16)
	})

	t.Run("子Span继承TraceID", func(t *testing.T) {
		ctx, parent := StartSpan(context.Background(), "checkout", "CreateOrder")
		defer parent.End()

		childCtx, child := StartSpan(ctx, "checkout", "ReserveLine")
		defer child.End()

		assert.Equal(t, ExtractTraceID(ctx), ExtractTraceID(childCtx))
		assert.NotEqual(t, ExtractSpanID(ctx), ExtractSpanID(childCtx))
	})
}

func TestEndSpan(t *testing.T) {
	exporter := setupTracer(t)

	_, ok := StartSpan(context.Background(), "checkout", "Ok")
	ok.SetAttributes(attribute.Int("lines", 2))
	EndSpan(ok, nil)

	_, failed := StartSpan(context.Background(), "checkout", "Failed")
	EndSpan(failed, errors.New("库存不足"))

	require.NoError(t, flush())

	spans := exporter.GetSpans()
	require.Len(t, spans, 2)
	assert.Equal(t, codes.Ok, spans[0].Status.Code)
	assert.Equal(t, codes.Error, spans[1].Status.Code)
	assert.Equal(t, "库存不足", spans[1].Status.Description)
	assert.NotEmpty(t, spans[1].Events, "错误应记录为Span事件")
}

func TestExtractIDs_NoSpan(t *testing.T) {
	assert.Empty(t, ExtractTraceID(context.Background()))
	assert.Empty(t, ExtractSpanID(context.Background()))
}

// flush Batcher异步导出，读取前强制刷新
func flush() error {
	tp, ok := otel.GetTracerProvider().(*sdktrace.TracerProvider)
	if !ok {
		return errors.New("全局TracerProvider不是SDK实现")
	}
	return tp.ForceFlush(context.Background())
}
