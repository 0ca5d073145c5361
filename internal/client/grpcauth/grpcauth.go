// Package grpcauth carries bearer authentication and the refresh protocol
// over gRPC unary calls.
package grpcauth

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"

	"github.com/dmitrijs2005/gofood/internal/client/apierror"
	"github.com/dmitrijs2005/gofood/internal/client/authn"
	"github.com/dmitrijs2005/gofood/internal/client/refresh"
	"github.com/dmitrijs2005/gofood/internal/client/transport"
	"github.com/dmitrijs2005/gofood/internal/common"
)

// callMethod marks the carrier request built for a gRPC call; it never goes
// through an HTTP transport.
const callMethod = "GRPC"

func withCredentials(ctx context.Context, call *transport.Request) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}

	md.Delete(common.GRPCAuthorizationKey)
	if v := call.Header.Get(common.AuthorizationHeaderName); v != "" {
		md.Set(common.GRPCAuthorizationKey, v)
	}
	if v := call.Header.Get(common.RequestIDHeaderName); v != "" {
		md.Set(common.GRPCRequestIDKey, v)
	}

	return metadata.NewOutgoingContext(ctx, md)
}

// UnaryInterceptor authenticates every call, recovers Unauthenticated
// through coord, and maps failures onto apierror kinds. A call is replayed
// at most once.
func UnaryInterceptor(a *authn.Authenticator, coord *refresh.Coordinator, debug bool) grpc.UnaryClientInterceptor {
	return func(
		ctx context.Context,
		method string,
		req, reply interface{},
		cc *grpc.ClientConn,
		invoker grpc.UnaryInvoker,
		opts ...grpc.CallOption,
	) error {

		var attempt func(ctx context.Context, call *transport.Request) error
		attempt = func(ctx context.Context, call *transport.Request) error {
			err := invoker(withCredentials(ctx, call), method, req, reply, cc, opts...)
			if err == nil {
				return nil
			}

			apiErr := apierror.FromStatus(err, debug)
			if apiErr.Kind != apierror.KindUnauthorized {
				return apiErr
			}

			_, err = coord.Recover(ctx, call, func(ctx context.Context, r *transport.Request, token string) (*transport.Response, error) {
				a.AuthenticateWith(r, token)
				return nil, attempt(ctx, r)
			})
			return err
		}

		call := transport.NewRequest(callMethod, method, nil)
		return attempt(ctx, a.Authenticate(ctx, call))
	}
}

// NewConn dials target without transport security and installs interceptor.
func NewConn(target string, interceptor grpc.UnaryClientInterceptor, opts ...grpc.DialOption) (*grpc.ClientConn, error) {
	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(interceptor),
	}, opts...)
	return grpc.NewClient(target, opts...)
}
