package api

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"google.golang.org/grpc"
	grpccodes "google.golang.org/grpc/codes"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/signalsfoundry/orbit-engine/internal/logging"
	"github.com/signalsfoundry/orbit-engine/kb"
)

func installRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})
	return rec
}

func TestTracingInterceptorStartsNamedSpan(t *testing.T) {
	rec := installRecorder(t)
	interceptor := TracingUnaryServerInterceptor()
	info := &grpc.UnaryServerInfo{FullMethod: "/" + ServiceName + "/" + MethodAdvance}

	ctx := logging.ContextWithRequestID(context.Background(), "req-7")
	_, err := interceptor(ctx, nil, info, func(ctx context.Context, req interface{}) (interface{}, error) {
		_, child := StartChildSpan(ctx, "engine.tick", "Earth", attribute.Float64("orbit.wall_delta", 0.5))
		child.End()
		return nil, nil
	})
	if err != nil {
		t.Fatalf("interceptor: %v", err)
	}

	spans := rec.Ended()
	if len(spans) != 2 {
		t.Fatalf("got %d ended spans, want 2", len(spans))
	}
	child, server := spans[0], spans[1]
	if server.Name() != "Engine/EngineService/Advance" {
		t.Fatalf("server span name = %q", server.Name())
	}
	if child.Parent().SpanID() != server.SpanContext().SpanID() {
		t.Fatal("child span is not parented to the server span")
	}

	want := map[attribute.Key]string{
		"rpc.method": "Advance",
		"request_id": "req-7",
	}
	for _, kv := range server.Attributes() {
		if v, ok := want[kv.Key]; ok && kv.Value.AsString() == v {
			delete(want, kv.Key)
		}
	}
	if len(want) != 0 {
		t.Fatalf("server span missing attributes %v", want)
	}

	var body string
	for _, kv := range child.Attributes() {
		if kv.Key == "orbit.body" {
			body = kv.Value.AsString()
		}
	}
	if body != "Earth" {
		t.Fatalf("child span orbit.body = %q, want Earth", body)
	}
}

func TestTracingInterceptorRecordsStatus(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantCode   grpccodes.Code
		wantStatus codes.Code
	}{
		{name: "ok", err: nil, wantCode: grpccodes.OK, wantStatus: codes.Unset},
		{name: "unknown body", err: ToStatusError(kb.ErrBodyNotFound), wantCode: grpccodes.NotFound, wantStatus: codes.Error},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := installRecorder(t)
			interceptor := TracingUnaryServerInterceptor()
			info := &grpc.UnaryServerInfo{FullMethod: "/" + ServiceName + "/" + MethodGetBodyPosition}
			req, err := bodyQueryToStruct(bodyQuery{Name: "Pluto", Elapsed: 3})
			if err != nil {
				t.Fatalf("bodyQueryToStruct: %v", err)
			}

			_, _ = interceptor(context.Background(), req, info, func(context.Context, interface{}) (interface{}, error) {
				return &structpb.Struct{}, tt.err
			})

			spans := rec.Ended()
			if len(spans) != 1 {
				t.Fatalf("got %d ended spans, want 1", len(spans))
			}
			span := spans[0]
			if span.Status().Code != tt.wantStatus {
				t.Fatalf("span status = %v, want %v", span.Status().Code, tt.wantStatus)
			}
			var gotCode int64 = -1
			var body string
			for _, kv := range span.Attributes() {
				switch kv.Key {
				case "rpc.grpc.status_code":
					gotCode = kv.Value.AsInt64()
				case "orbit.body":
					body = kv.Value.AsString()
				}
			}
			if gotCode != int64(tt.wantCode) {
				t.Fatalf("rpc.grpc.status_code = %d, want %d", gotCode, tt.wantCode)
			}
			if body != "Pluto" {
				t.Fatalf("orbit.body = %q, want Pluto", body)
			}
		})
	}
}
