package api

import (
	"context"
	"errors"

	"github.com/signalsfoundry/orbit-engine/core"
	"github.com/signalsfoundry/orbit-engine/internal/logging"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ServiceName is the fully-qualified gRPC service name.
const ServiceName = "orbitengine.v1.EngineService"

// EngineServer is the server API for EngineService. Messages are protobuf
// well-known types so no generated code is needed.
type EngineServer interface {
	Advance(context.Context, *wrapperspb.DoubleValue) (*structpb.Struct, error)
	SetPlaying(context.Context, *wrapperspb.BoolValue) (*emptypb.Empty, error)
	SetSpeed(context.Context, *wrapperspb.DoubleValue) (*emptypb.Empty, error)
	Reset(context.Context, *emptypb.Empty) (*emptypb.Empty, error)
	GetClock(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	GetFrame(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	GetPositions(context.Context, *wrapperspb.DoubleValue) (*structpb.Struct, error)
	GetBodyPosition(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListBodies(context.Context, *emptypb.Empty) (*structpb.ListValue, error)
}

// unaryMethod builds a MethodDesc for a handler taking Req and returning Resp.
func unaryMethod[Req any, PReq interface {
	*Req
	proto.Message
}, Resp any](name string, call func(EngineServer, context.Context, PReq) (Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := PReq(new(Req))
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(EngineServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/" + name}
			handler := func(ctx context.Context, req interface{}) (interface{}, error) {
				return call(srv.(EngineServer), ctx, req.(PReq))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// EngineServiceDesc describes EngineService for grpc.Server registration.
var EngineServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*EngineServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryMethod(MethodAdvance, EngineServer.Advance),
		unaryMethod(MethodSetPlaying, EngineServer.SetPlaying),
		unaryMethod(MethodSetSpeed, EngineServer.SetSpeed),
		unaryMethod(MethodReset, EngineServer.Reset),
		unaryMethod(MethodGetClock, EngineServer.GetClock),
		unaryMethod(MethodGetFrame, EngineServer.GetFrame),
		unaryMethod(MethodGetPositions, EngineServer.GetPositions),
		unaryMethod(MethodGetBodyPosition, EngineServer.GetBodyPosition),
		unaryMethod(MethodListBodies, EngineServer.ListBodies),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "orbitengine/v1/engine.proto",
}

// Method names of EngineService.
const (
	MethodAdvance         = "Advance"
	MethodSetPlaying      = "SetPlaying"
	MethodSetSpeed        = "SetSpeed"
	MethodReset           = "Reset"
	MethodGetClock        = "GetClock"
	MethodGetFrame        = "GetFrame"
	MethodGetPositions    = "GetPositions"
	MethodGetBodyPosition = "GetBodyPosition"
	MethodListBodies      = "ListBodies"
)

// RegisterEngineServer registers srv on s.
func RegisterEngineServer(s grpc.ServiceRegistrar, srv EngineServer) {
	s.RegisterService(&EngineServiceDesc, srv)
}

// EngineService implements EngineServer over a SimulationEngine.
type EngineService struct {
	engine *core.SimulationEngine
	log    logging.Logger
}

var _ EngineServer = (*EngineService)(nil)

// NewEngineService wires the service to an engine and optional logger.
func NewEngineService(engine *core.SimulationEngine, log logging.Logger) *EngineService {
	if log == nil {
		log = logging.Noop()
	}
	return &EngineService{engine: engine, log: log}
}

func (s *EngineService) ensureReady() error {
	if s == nil || s.engine == nil {
		return ToStatusError(errors.New("engine service is not initialised"))
	}
	return nil
}

func (s *EngineService) logger(ctx context.Context) logging.Logger {
	if l := logging.LoggerFromContext(ctx); l != nil {
		return l
	}
	return s.log
}

// Advance applies one wall-clock delta to the clock and returns the frame
// evaluated at the new elapsed time.
func (s *EngineService) Advance(ctx context.Context, in *wrapperspb.DoubleValue) (*structpb.Struct, error) {
	if err := s.ensureReady(); err != nil {
		return nil, err
	}
	ctx, span := StartChildSpan(ctx, "engine.tick", "", attribute.Float64("orbit.wall_delta", in.GetValue()))
	defer span.End()

	frame, err := s.engine.Tick(in.GetValue())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.logger(ctx).Warn(ctx, "advance rejected", logging.Float64("wall_delta", in.GetValue()), logging.Err(err))
		return nil, ToStatusError(err)
	}
	span.SetAttributes(
		attribute.Float64("orbit.elapsed_seconds", frame.ElapsedSeconds),
		attribute.Int("orbit.bodies", len(frame.Positions)),
	)
	return encode(FrameToStruct(frame))
}

func (s *EngineService) SetPlaying(ctx context.Context, in *wrapperspb.BoolValue) (*emptypb.Empty, error) {
	if err := s.ensureReady(); err != nil {
		return nil, err
	}
	s.engine.SetPlaying(in.GetValue())
	s.logger(ctx).Info(ctx, "playback changed", logging.Bool("playing", in.GetValue()))
	return &emptypb.Empty{}, nil
}

func (s *EngineService) SetSpeed(ctx context.Context, in *wrapperspb.DoubleValue) (*emptypb.Empty, error) {
	if err := s.ensureReady(); err != nil {
		return nil, err
	}
	if err := s.engine.SetSpeed(in.GetValue()); err != nil {
		return nil, ToStatusError(err)
	}
	s.logger(ctx).Info(ctx, "speed changed", logging.Float64("speed", in.GetValue()))
	return &emptypb.Empty{}, nil
}

func (s *EngineService) Reset(ctx context.Context, _ *emptypb.Empty) (*emptypb.Empty, error) {
	if err := s.ensureReady(); err != nil {
		return nil, err
	}
	s.engine.Reset()
	s.logger(ctx).Info(ctx, "clock reset")
	return &emptypb.Empty{}, nil
}

func (s *EngineService) GetClock(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	if err := s.ensureReady(); err != nil {
		return nil, err
	}
	return encode(ClockToStruct(s.engine.ClockState()))
}

// GetFrame returns the frame produced by the most recent tick or reset.
func (s *EngineService) GetFrame(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	if err := s.ensureReady(); err != nil {
		return nil, err
	}
	return encode(FrameToStruct(s.engine.Store().LatestFrame()))
}

// GetPositions evaluates every body at an explicit elapsed time without
// touching the clock.
func (s *EngineService) GetPositions(ctx context.Context, in *wrapperspb.DoubleValue) (*structpb.Struct, error) {
	if err := s.ensureReady(); err != nil {
		return nil, err
	}
	_, span := StartChildSpan(ctx, "engine.positions", "", attribute.Float64("orbit.elapsed_seconds", in.GetValue()))
	defer span.End()
	return encode(FrameToStruct(s.engine.Positions(in.GetValue())))
}

func (s *EngineService) GetBodyPosition(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if err := s.ensureReady(); err != nil {
		return nil, err
	}
	q, err := bodyQueryFromStruct(in)
	if err != nil {
		return nil, ToStatusError(err)
	}
	_, span := StartChildSpan(ctx, "engine.position", q.Name, attribute.Float64("orbit.elapsed_seconds", q.Elapsed))
	defer span.End()

	pos, err := s.engine.Position(q.Name, q.Elapsed)
	if err != nil {
		span.RecordError(err)
		return nil, ToStatusError(err)
	}
	return encode(structpb.NewStruct(positionFields(q.Name, pos)))
}

func (s *EngineService) ListBodies(ctx context.Context, _ *emptypb.Empty) (*structpb.ListValue, error) {
	if err := s.ensureReady(); err != nil {
		return nil, err
	}
	l, err := BodiesToList(s.engine.Store().ListBodies())
	if err != nil {
		return nil, ToStatusError(err)
	}
	return l, nil
}

func encode(s *structpb.Struct, err error) (*structpb.Struct, error) {
	if err != nil {
		return nil, ToStatusError(err)
	}
	return s, nil
}
