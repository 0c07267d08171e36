package interceptor

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"mercator-hq/aiguard/pkg/telemetry/tracing"
)

func TestIntercept_GuardSpan(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tracer := tracing.NewWithProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder)))
	t.Cleanup(func() { tracer.Shutdown(context.Background()) })

	ok := newTestEngine(t, &fakeGuard{resp: okResponse()}, WithTracer(tracer))
	ok.Intercept(context.Background(), newRequest("openai/gpt-4o"), CallCompletion)

	failing := newTestEngine(t, &fakeGuard{err: errors.New("down")}, WithTracer(tracer))
	failing.Intercept(context.Background(), newRequest("openai/gpt-4o"), CallCompletion)

	// Pass-through decisions make no span.
	ok.Intercept(context.Background(), newRequest("mistral/large"), CallCompletion)

	spans := recorder.Ended()
	if len(spans) != 2 {
		t.Fatalf("expected 2 guard spans, got %d", len(spans))
	}
	for _, s := range spans {
		if s.Name() != "aiguard.guard_text" {
			t.Errorf("unexpected span name %q", s.Name())
		}
	}
	if spans[0].Status().Code == codes.Error {
		t.Error("successful call marked as error")
	}
	if spans[1].Status().Code != codes.Error {
		t.Error("failed call not marked as error")
	}
}
