// Package common contains shared constants and sentinel errors used across
// the gofood client components.
package common

const (
	// AuthorizationHeaderName carries the bearer credential on outbound requests.
	AuthorizationHeaderName = "Authorization"

	// BearerPrefix precedes the access token in the Authorization header.
	BearerPrefix = "Bearer "

	// RequestIDHeaderName correlates a request (and its replay) in server logs.
	RequestIDHeaderName = "X-Request-Id"

	// GRPCAuthorizationKey is the gRPC metadata key for the bearer credential.
	GRPCAuthorizationKey = "authorization"

	// GRPCRequestIDKey is the gRPC metadata key for the request id.
	GRPCRequestIDKey = "x-request-id"
)
