package configsvc

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/signalsfoundry/groundproc/rdf"
	"github.com/signalsfoundry/groundproc/rdfpb"
	"github.com/signalsfoundry/groundproc/store"
)

// ErrInvalidRequest is used for client-side validation failures.
var ErrInvalidRequest = errors.New("invalid request")

// ToStatusError maps store and parser errors onto gRPC status codes.
func ToStatusError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	switch {
	case errors.Is(err, store.ErrNotFound),
		errors.Is(err, rdf.ErrKeyNotFound):
		return status.Error(codes.NotFound, err.Error())

	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, rdfpb.ErrBadRecord),
		errors.Is(err, rdf.ErrNullCommand),
		errors.Is(err, rdf.ErrBadGlyph),
		errors.Is(err, rdf.ErrBadUnitVerb),
		errors.Is(err, rdf.ErrIncludeCycle):
		return status.Error(codes.InvalidArgument, err.Error())

	case errors.Is(err, rdf.ErrOpenSource),
		errors.Is(err, rdf.ErrReadSource):
		return status.Error(codes.FailedPrecondition, err.Error())

	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())

	default:
		return status.Error(codes.Internal, err.Error())
	}
}
