package tracing

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace/noop"
)

func TestInitWithoutEndpointIsNoop(t *testing.T) {
	tp, shutdown, err := Init(context.Background(), DefaultConfig())
	require.NoError(t, err)
	require.NotNil(t, tp)
	assert.NoError(t, shutdown(context.Background()))
}

func TestInitRejectsUnknownProtocol(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Endpoint = "collector:4318"
	cfg.Protocol = "carrier-pigeon"
	_, _, err := Init(context.Background(), cfg)
	assert.ErrorContains(t, err, "unknown protocol")
}

func TestInitWithEndpoint(t *testing.T) {
	for _, protocol := range []string{"http", "grpc"} {
		t.Run(protocol, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Endpoint = "localhost:4318"
			cfg.Protocol = protocol
			cfg.Insecure = true

			tp, shutdown, err := Init(context.Background(), cfg)
			require.NoError(t, err)
			t.Cleanup(func() {
				ctx, cancel := context.WithTimeout(context.Background(), time.Second)
				defer cancel()
				_ = shutdown(ctx)
				otel.SetTracerProvider(noop.NewTracerProvider())
			})

			sdkTP, ok := tp.(*sdktrace.TracerProvider)
			require.True(t, ok)
			assert.Same(t, sdkTP, otel.GetTracerProvider())
		})
	}
}

func TestHandlerRecordsServerSpan(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	h := Handler(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}), tp)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/auth/login", nil))

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Len(t, w.Header().Get(TraceIDHeader), 32)

	spans := rec.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "POST /auth/login", spans[0].Name())
	assert.Equal(t, w.Header().Get(TraceIDHeader), spans[0].SpanContext().TraceID().String())
}

func TestSampler(t *testing.T) {
	assert.Equal(t, sdktrace.AlwaysSample().Description(), sampler(1).Description())
	assert.Equal(t, sdktrace.NeverSample().Description(), sampler(0).Description())
	assert.Equal(t, sdktrace.TraceIDRatioBased(0.25).Description(), sampler(0.25).Description())
}
