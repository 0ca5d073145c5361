package api

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/gofood/internal/client/apierror"
	"github.com/dmitrijs2005/gofood/internal/client/apitest"
)

func TestLogin(t *testing.T) {
	srv := apitest.NewTest(t, apitest.WithAccessTTL(time.Hour))
	c, store := newTestClient(t, srv)
	ctx := context.Background()

	assert.False(t, c.IsAuthenticated(ctx))
	require.NoError(t, c.Login(ctx, apitest.DefaultEmail, apitest.DefaultPassword))
	assert.True(t, c.IsAuthenticated(ctx))

	refreshToken, _ := store.RefreshToken(ctx)
	assert.NotEmpty(t, refreshToken)

	exp, ok := c.SessionExpiry(ctx)
	require.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, time.Minute)

	_, err := c.Get(ctx, "/me")
	require.NoError(t, err)
}

func TestLogin_WrongPasswordDoesNotRefresh(t *testing.T) {
	srv := apitest.NewTest(t)
	c, _ := newTestClient(t, srv)

	err := c.Login(context.Background(), apitest.DefaultEmail, "wrong")

	apiErr := requireKind(t, err, apierror.ErrUnauthorized)
	assert.Equal(t, "INVALID_CREDENTIALS", apiErr.Code)
	assert.Equal(t, "Invalid email or password", apiErr.Message)
	assert.Zero(t, srv.RefreshCalls())
	assert.False(t, c.IsAuthenticated(context.Background()))
}

func TestLogin_Validation(t *testing.T) {
	srv := apitest.NewTest(t)
	c, _ := newTestClient(t, srv)

	err := c.Login(context.Background(), "", "")

	apiErr := requireKind(t, err, apierror.ErrValidation)
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.Status)
	assert.Contains(t, apiErr.Message, "email should not be empty")
}

func TestLogout_IsIdempotent(t *testing.T) {
	srv := apitest.NewTest(t)
	c, _ := newTestClient(t, srv)
	ctx := context.Background()
	require.NoError(t, c.Login(ctx, apitest.DefaultEmail, apitest.DefaultPassword))
	require.Equal(t, 1, srv.LiveRefreshTokens())

	require.NoError(t, c.Logout(ctx))
	assert.False(t, c.IsAuthenticated(ctx))
	assert.Zero(t, srv.LiveRefreshTokens())
	assert.Equal(t, 1, srv.Hits("/auth/logout"))

	require.NoError(t, c.Logout(ctx))
	assert.Equal(t, 1, srv.Hits("/auth/logout"))

	_, ok := c.SessionExpiry(ctx)
	assert.False(t, ok)
}

func TestLogout_ServerUnreachableStillClears(t *testing.T) {
	srv := apitest.New()
	c, _ := loggedIn(t, srv)
	srv.Close()

	require.NoError(t, c.Logout(context.Background()))
	assert.False(t, c.IsAuthenticated(context.Background()))
}

func TestLogout_RejectsPendingRefresh(t *testing.T) {
	srv := apitest.NewTest(t)
	c, _ := loggedIn(t, srv)
	srv.ExpireAccessTokens()
	release := srv.GateRefresh()
	defer release()

	errc := make(chan error, 1)
	go func() {
		_, err := c.Get(context.Background(), "/restaurants")
		errc <- err
	}()
	require.Eventually(t, func() bool { return c.refresh.Pending() == 1 }, 3*time.Second, time.Millisecond)

	// the server-side logout is rejected (token expired) and that is fine
	require.NoError(t, c.Logout(context.Background()))

	requireKind(t, <-errc, apierror.ErrSessionExpired)
	assert.False(t, c.IsAuthenticated(context.Background()))
	assert.Equal(t, 1, srv.RefreshCalls())
}

func TestLogin_ReplacesPendingRefresh(t *testing.T) {
	srv := apitest.NewTest(t)
	c, store := loggedIn(t, srv)
	ctx := context.Background()
	srv.ExpireAccessTokens()
	release := srv.GateRefresh()
	defer release()

	errc := make(chan error, 1)
	go func() {
		_, err := c.Get(ctx, "/restaurants")
		errc <- err
	}()
	require.Eventually(t, func() bool { return c.refresh.Pending() == 1 }, 3*time.Second, time.Millisecond)

	require.NoError(t, c.Login(ctx, apitest.DefaultEmail, apitest.DefaultPassword))
	requireKind(t, <-errc, apierror.ErrSessionExpired)

	access, _ := store.AccessToken(ctx)
	refreshToken, _ := store.RefreshToken(ctx)

	release()
	require.Eventually(t, func() bool { return c.refresh.Stats().Discarded == 1 }, 3*time.Second, time.Millisecond)

	gotAccess, _ := store.AccessToken(ctx)
	gotRefresh, _ := store.RefreshToken(ctx)
	assert.Equal(t, access, gotAccess)
	assert.Equal(t, refreshToken, gotRefresh)

	_, err := c.Get(ctx, "/me")
	require.NoError(t, err)
}
