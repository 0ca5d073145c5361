// Package authn attaches credentials to outgoing requests.
package authn

import (
	"context"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/gofood/internal/client/tokens"
	"github.com/dmitrijs2005/gofood/internal/client/transport"
	"github.com/dmitrijs2005/gofood/internal/common"
	"github.com/dmitrijs2005/gofood/internal/logging"
)

// Authenticator reads the current access token from the store and stamps it
// on requests. It fails open: with no token, or when the store cannot be
// read, the request goes out unauthenticated and the server decides.
type Authenticator struct {
	store tokens.Store
	log   logging.Logger
}

func New(store tokens.Store, log logging.Logger) *Authenticator {
	if log == nil {
		log = logging.NewNop()
	}
	return &Authenticator{store: store, log: log}
}

// Token returns the current access token, or "" when none is usable.
func (a *Authenticator) Token(ctx context.Context) string {
	token, err := a.store.AccessToken(ctx)
	if err != nil {
		a.log.Warn(ctx, "token store read failed, sending unauthenticated", "error", err)
		return ""
	}
	return token
}

// Authenticate sets Authorization (or removes a stale one when there is no
// token) and makes sure the request carries a request id. req is modified in
// place and returned for chaining.
func (a *Authenticator) Authenticate(ctx context.Context, req *transport.Request) *transport.Request {
	return a.AuthenticateWith(req, a.Token(ctx))
}

// AuthenticateWith is Authenticate with a token the caller already holds,
// e.g. the one just delivered by a refresh.
func (a *Authenticator) AuthenticateWith(req *transport.Request, token string) *transport.Request {
	if token == "" {
		req.Header.Del(common.AuthorizationHeaderName)
	} else {
		req.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+token)
	}
	if req.Header.Get(common.RequestIDHeaderName) == "" {
		req.Header.Set(common.RequestIDHeaderName, NewRequestID())
	}
	return req
}

// NewRequestID returns a random (v4) request id.
func NewRequestID() string {
	return uuid.NewString()
}
