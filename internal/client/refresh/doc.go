// Package refresh serialises access-token refresh across concurrent requests.
//
// # Protocol
//
// A request that fails with 401 is handed to Coordinator.Recover. The first
// such request while the coordinator is Idle starts exactly one refresh call
// and becomes the first waiter; requests that fail while the refresh is in
// flight only join the waiter list. When the refresh completes:
//
//   - success: the new pair is persisted, then every waiter receives the new
//     access token and replays its own request once;
//   - failure (transport error, non-2xx from the refresh endpoint, malformed
//     body, missing refresh token, timeout): the store is cleared once, then
//     every waiter is rejected with apierror.ErrSessionExpired.
//
// A request whose Retried flag is already set never joins a cycle; it fails
// with SessionExpired straight away. This bounds every request to at most one
// refresh-driven replay.
//
// Waiters are released only after the store has been written or cleared.
// No ordering between waiters is guaranteed.
//
// ClearPendingRefresh tears the current cycle down (explicit logout): the
// refresh call is cancelled, waiters are rejected, and a refresh that still
// manages to complete is discarded.
package refresh
