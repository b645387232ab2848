package api

import (
	"context"

	"github.com/signalsfoundry/orbit-engine/model"
	"github.com/signalsfoundry/orbit-engine/timectrl"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// EngineClient is a typed client for EngineService.
type EngineClient struct {
	cc grpc.ClientConnInterface
}

// NewEngineClient wraps an established connection.
func NewEngineClient(cc grpc.ClientConnInterface) *EngineClient {
	return &EngineClient{cc: cc}
}

func fullMethod(name string) string { return "/" + ServiceName + "/" + name }

// Advance applies a wall-clock delta and returns the resulting frame.
func (c *EngineClient) Advance(ctx context.Context, wallDeltaSeconds float64, opts ...grpc.CallOption) (model.Frame, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, fullMethod(MethodAdvance), wrapperspb.Double(wallDeltaSeconds), out, opts...); err != nil {
		return model.Frame{}, err
	}
	return FrameFromStruct(out)
}

func (c *EngineClient) SetPlaying(ctx context.Context, playing bool, opts ...grpc.CallOption) error {
	return c.cc.Invoke(ctx, fullMethod(MethodSetPlaying), wrapperspb.Bool(playing), new(emptypb.Empty), opts...)
}

func (c *EngineClient) SetSpeed(ctx context.Context, multiplier float64, opts ...grpc.CallOption) error {
	return c.cc.Invoke(ctx, fullMethod(MethodSetSpeed), wrapperspb.Double(multiplier), new(emptypb.Empty), opts...)
}

func (c *EngineClient) Reset(ctx context.Context, opts ...grpc.CallOption) error {
	return c.cc.Invoke(ctx, fullMethod(MethodReset), &emptypb.Empty{}, new(emptypb.Empty), opts...)
}

func (c *EngineClient) GetClock(ctx context.Context, opts ...grpc.CallOption) (timectrl.ClockState, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, fullMethod(MethodGetClock), &emptypb.Empty{}, out, opts...); err != nil {
		return timectrl.ClockState{}, err
	}
	return ClockFromStruct(out), nil
}

// GetFrame returns the frame stored by the most recent tick or reset.
func (c *EngineClient) GetFrame(ctx context.Context, opts ...grpc.CallOption) (model.Frame, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, fullMethod(MethodGetFrame), &emptypb.Empty{}, out, opts...); err != nil {
		return model.Frame{}, err
	}
	return FrameFromStruct(out)
}

// GetPositions evaluates all bodies at elapsed without advancing the clock.
func (c *EngineClient) GetPositions(ctx context.Context, elapsed float64, opts ...grpc.CallOption) (model.Frame, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, fullMethod(MethodGetPositions), wrapperspb.Double(elapsed), out, opts...); err != nil {
		return model.Frame{}, err
	}
	return FrameFromStruct(out)
}

func (c *EngineClient) GetBodyPosition(ctx context.Context, name string, elapsed float64, opts ...grpc.CallOption) (model.PositionResult, error) {
	in, err := bodyQueryToStruct(bodyQuery{Name: name, Elapsed: elapsed})
	if err != nil {
		return model.PositionResult{}, err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, fullMethod(MethodGetBodyPosition), in, out, opts...); err != nil {
		return model.PositionResult{}, err
	}
	_, pos, err := positionFromStruct(out)
	return pos, err
}

func (c *EngineClient) ListBodies(ctx context.Context, opts ...grpc.CallOption) ([]model.OrbitalBody, error) {
	out := new(structpb.ListValue)
	if err := c.cc.Invoke(ctx, fullMethod(MethodListBodies), &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}
	return BodiesFromList(out)
}
