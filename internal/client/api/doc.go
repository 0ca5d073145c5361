// Package api is the resilient client for the food-delivery REST API.
//
// # Overview
//
// Client wraps a transport.Transport with three behaviours:
//  1. every request carries the current access token as a bearer credential;
//  2. every failure is returned as an *apierror.Error from a closed taxonomy;
//  3. a 401 is recovered through a shared refresh.Coordinator, so a burst of
//     requests that fail with an expired token costs a single refresh call and
//     each request is replayed at most once.
//
// The session lifecycle (Login, Logout, IsAuthenticated, SessionExpiry) lives
// on the same Client so that the token store has exactly one owner.
//
// # Errors
//
// Callers branch on kinds with errors.Is:
//
//	resp, err := c.Get(ctx, "/restaurants")
//	switch {
//	case errors.Is(err, apierror.ErrSessionExpired):
//	    // send the user to the login screen
//	case errors.Is(err, apierror.ErrNetwork):
//	    // offer a retry
//	}
//
// Concurrency
//
// A Client is safe for concurrent use; create one per API base URL and
// share it.
package api
