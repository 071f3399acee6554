package regionrpc

import (
	"errors"

	"github.com/signalsfoundry/skyregion/internal/classreg"
	"github.com/signalsfoundry/skyregion/pos"
	"github.com/signalsfoundry/skyregion/sphgeom"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ErrInvalidRequest marks a request message that is missing a field or has
// one of the wrong type.
var ErrInvalidRequest = errors.New("invalid request")

// FieldError ties a failure to the request field that caused it.
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string { return e.Field + ": " + e.Err.Error() }
func (e *FieldError) Unwrap() error { return e.Err }

// ToStatusError maps parser, geometry and request errors onto gRPC status
// codes. Client-side failures carry an errdetails.BadRequest naming the
// offending field.
func ToStatusError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	var formatErr *pos.FormatError
	switch {
	case errors.As(err, &formatErr),
		errors.Is(err, ErrInvalidRequest),
		errors.Is(err, sphgeom.ErrInvalidLatitude),
		errors.Is(err, sphgeom.ErrDegeneratePolygon),
		errors.Is(err, sphgeom.ErrNotConvex),
		errors.Is(err, sphgeom.ErrInvalidPolygonLoop):
		return badRequest(err)

	case errors.Is(err, classreg.ErrMemberNotFound),
		errors.Is(err, classreg.ErrMemberType):
		return status.Error(codes.Unimplemented, err.Error())

	default:
		return status.Error(codes.Internal, err.Error())
	}
}

func badRequest(err error) error {
	field := "pos"
	var fieldErr *FieldError
	if errors.As(err, &fieldErr) {
		field = fieldErr.Field
	}

	st := status.New(codes.InvalidArgument, err.Error())
	detailed, derr := st.WithDetails(&errdetails.BadRequest{
		FieldViolations: []*errdetails.BadRequest_FieldViolation{{
			Field:       field,
			Description: err.Error(),
		}},
	})
	if derr != nil {
		return st.Err()
	}
	return detailed.Err()
}

// FieldViolations extracts BadRequest field names from a status error.
func FieldViolations(err error) []string {
	st, ok := status.FromError(err)
	if !ok {
		return nil
	}
	var fields []string
	for _, d := range st.Details() {
		if br, ok := d.(*errdetails.BadRequest); ok {
			for _, v := range br.GetFieldViolations() {
				fields = append(fields, v.GetField())
			}
		}
	}
	return fields
}
