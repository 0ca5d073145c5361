package apierror

import (
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FromStatus maps a gRPC error onto the taxonomy. Errors that carry no gRPC
// status are treated as transport failures.
func FromStatus(err error, debug bool) *Error {
	if err == nil {
		return nil
	}
	if apiErr, ok := AsAPIError(err); ok {
		return apiErr
	}

	st, ok := status.FromError(err)
	if !ok {
		return classifyTransport(err, debug)
	}

	kind, code := fromGRPCCode(st.Code())
	message := ""
	if kind != KindNetwork {
		message = st.Message()
	} else if debug && st.Message() != "" {
		message = networkMessages[code] + " (" + st.Message() + ")"
	}

	return New(kind, 0, code, message, err)
}

func fromGRPCCode(c codes.Code) (Kind, string) {
	switch c {
	case codes.Unauthenticated:
		return KindUnauthorized, CodeUnauthenticated
	case codes.InvalidArgument, codes.FailedPrecondition, codes.OutOfRange:
		return KindValidation, grpcCode(c)
	case codes.PermissionDenied:
		return KindForbidden, grpcCode(c)
	case codes.NotFound:
		return KindNotFound, grpcCode(c)
	case codes.ResourceExhausted:
		return KindRateLimited, grpcCode(c)
	case codes.DeadlineExceeded:
		return KindNetwork, CodeTimeout
	case codes.Unavailable, codes.Canceled:
		return KindNetwork, CodeNetworkError
	case codes.Internal, codes.DataLoss, codes.Unknown, codes.Unimplemented:
		return KindServer, grpcCode(c)
	default:
		return KindUnknown, grpcCode(c)
	}
}

// grpcCode renders codes.InvalidArgument as INVALID_ARGUMENT.
func grpcCode(c codes.Code) string {
	name := c.String()
	var b strings.Builder
	for i, r := range name {
		if i > 0 && r >= 'A' && r <= 'Z' {
			b.WriteByte('_')
		}
		b.WriteRune(r)
	}
	return strings.ToUpper(b.String())
}
