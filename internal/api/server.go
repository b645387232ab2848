package api

import (
	"github.com/signalsfoundry/orbit-engine/internal/logging"
	"github.com/signalsfoundry/orbit-engine/internal/observability"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
)

// NewServer returns a gRPC server with EngineService registered behind the
// request-ID, tracing and (when rpcMetrics is non-nil) metrics interceptors.
func NewServer(svc EngineServer, log logging.Logger, rpcMetrics *observability.RPCCollector, extra ...grpc.ServerOption) *grpc.Server {
	interceptors := []grpc.UnaryServerInterceptor{
		RequestIDUnaryServerInterceptor(log),
		TracingUnaryServerInterceptor(),
	}
	if rpcMetrics != nil {
		interceptors = append(interceptors, rpcMetrics.UnaryServerInterceptor())
	}

	opts := append([]grpc.ServerOption{
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(interceptors...),
	}, extra...)

	server := grpc.NewServer(opts...)
	RegisterEngineServer(server, svc)
	return server
}
