package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/dmitrijs2005/gofood/internal/client/apierror"
	"github.com/dmitrijs2005/gofood/internal/client/authn"
	"github.com/dmitrijs2005/gofood/internal/client/tokens"
	"github.com/dmitrijs2005/gofood/internal/client/transport"
	"github.com/dmitrijs2005/gofood/internal/common"
	"github.com/dmitrijs2005/gofood/internal/logging"
)

const (
	LoginPath  = "/auth/login"
	LogoutPath = "/auth/logout"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login exchanges credentials for a token pair and stores it. A rejected
// login is reported as is (typically Unauthorized or Validation); it never
// triggers a refresh.
func (c *Client) Login(ctx context.Context, email, password string) error {
	body, err := json.Marshal(loginRequest{Email: email, Password: password})
	if err != nil {
		return apierror.New(apierror.KindValidation, 0, CodeInvalidRequest, "", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	req := transport.NewRequest(http.MethodPost, c.endpoint(LoginPath), body)
	req.Header.Set(common.RequestIDHeaderName, authn.NewRequestID())

	resp, err := c.send(ctx, req)
	if err != nil {
		return err
	}

	var pair tokens.Pair
	if err := resp.Decode(&pair); err != nil {
		return apierror.New(apierror.KindUnknown, resp.Status, CodeInvalidResponse, "", err)
	}
	if err := pair.Validate(); err != nil {
		return apierror.New(apierror.KindUnknown, resp.Status, CodeInvalidResponse, "", err)
	}

	// a refresh started under the previous session must not overwrite this one
	if _, err := c.refresh.Reset(ctx, pair); err != nil {
		return apierror.New(apierror.KindUnknown, 0, CodeTokenStore, "", err)
	}

	c.log.Info(ctx, "logged in", "access_token", logging.RedactToken(pair.AccessToken))
	return nil
}

// Logout ends the session locally: the server is told on a best-effort
// basis, any pending refresh is cancelled and the store is cleared. Calling
// it again is harmless.
func (c *Client) Logout(ctx context.Context) error {
	if token := c.authn.Token(ctx); token != "" {
		sendCtx, cancel := context.WithTimeout(ctx, c.requestTimeout)
		req := c.authn.AuthenticateWith(transport.NewRequest(http.MethodPost, c.endpoint(LogoutPath), nil), token)
		if _, err := c.send(sendCtx, req); err != nil {
			c.log.Warn(ctx, "server logout failed, clearing local session anyway", "error", err)
		}
		cancel()
	}

	n, err := c.refresh.Reset(ctx, tokens.Pair{})
	if n > 0 {
		c.log.Info(ctx, "pending requests rejected by logout", "waiters", n)
	}
	if err != nil {
		return apierror.New(apierror.KindUnknown, 0, CodeTokenStore, "", err)
	}
	c.log.Info(ctx, "logged out")
	return nil
}

// IsAuthenticated reports whether an access token is stored. It says nothing
// about whether the server still accepts it.
func (c *Client) IsAuthenticated(ctx context.Context) bool {
	return c.authn.Token(ctx) != ""
}

// SessionExpiry returns the exp claim of the stored access token, unverified.
// ok is false when there is no token or it carries no expiry.
func (c *Client) SessionExpiry(ctx context.Context) (time.Time, bool) {
	token := c.authn.Token(ctx)
	if token == "" {
		return time.Time{}, false
	}
	return tokens.ExpiresAt(token)
}
