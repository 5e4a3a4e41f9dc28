package ingress

import (
	"errors"

	"github.com/signalsfoundry/ransched/internal/sched"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ErrInvalidMessage is returned when a request body cannot be decoded into
// the expected message.
var ErrInvalidMessage = errors.New("invalid message")

// ToStatusError maps scheduler errors onto gRPC status codes.
func ToStatusError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	switch {
	case errors.Is(err, sched.ErrUENotFound):
		return status.Error(codes.NotFound, err.Error())

	case errors.Is(err, ErrInvalidMessage),
		errors.Is(err, sched.ErrInvalidRequest),
		errors.Is(err, sched.ErrUnknownCell):
		return status.Error(codes.InvalidArgument, err.Error())

	case errors.Is(err, sched.ErrUEExists):
		return status.Error(codes.AlreadyExists, err.Error())

	case errors.Is(err, sched.ErrCapacity):
		return status.Error(codes.ResourceExhausted, err.Error())

	default:
		return status.Error(codes.Internal, err.Error())
	}
}
