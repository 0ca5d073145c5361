// Package apierror defines the closed error taxonomy returned by the API
// client and the classifier that maps raw transport outcomes onto it.
//
// # Taxonomy
//
// Every failure surfaced to callers is an *Error carrying a Kind, an optional
// HTTP status, a stable machine Code and a non-empty user-facing Message:
//
//	Network        no response received; Code is one of TIMEOUT,
//	               CONNECTION_REFUSED, SERVER_NOT_FOUND, NETWORK_UNREACHABLE,
//	               NETWORK_ERROR
//	Validation     400, 422
//	Unauthorized   401 (before a refresh was attempted)
//	Forbidden      403
//	NotFound       404
//	Timeout        408
//	RateLimited    429
//	Server         5xx
//	SessionExpired terminal; the refresh failed or a replay was rejected again
//	Unknown        anything else, Code HTTP_{status}
//
// Callers match kinds with errors.Is against the package sentinels:
//
//	if errors.Is(err, apierror.ErrSessionExpired) {
//	    // force re-authentication
//	}
//
// Classification is pure: the same Outcome always yields the same Error.
package apierror
