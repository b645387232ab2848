package api

import (
	"errors"

	"github.com/signalsfoundry/orbit-engine/kb"
	"github.com/signalsfoundry/orbit-engine/model"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ErrMalformedMessage indicates a request payload missing required fields.
var ErrMalformedMessage = errors.New("malformed message")

// ToStatusError maps engine errors onto gRPC status codes.
func ToStatusError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	switch {
	case errors.Is(err, kb.ErrBodyNotFound):
		return status.Error(codes.NotFound, err.Error())

	case errors.Is(err, model.ErrInvalidInput),
		errors.Is(err, model.ErrInvalidConfiguration),
		errors.Is(err, ErrMalformedMessage):
		return status.Error(codes.InvalidArgument, err.Error())

	case errors.Is(err, kb.ErrBodyExists):
		return status.Error(codes.AlreadyExists, err.Error())

	default:
		return status.Error(codes.Internal, err.Error())
	}
}
