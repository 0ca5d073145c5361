package apierror

import (
	"errors"
	"fmt"
	"strconv"
)

// Kind is the top-level category of an API failure.
type Kind string

const (
	KindNetwork        Kind = "network"
	KindValidation     Kind = "validation"
	KindUnauthorized   Kind = "unauthorized"
	KindForbidden      Kind = "forbidden"
	KindNotFound       Kind = "not_found"
	KindTimeout        Kind = "timeout"
	KindRateLimited    Kind = "rate_limited"
	KindServer         Kind = "server"
	KindSessionExpired Kind = "session_expired"
	KindUnknown        Kind = "unknown"
)

// Stable codes synthesized by the client when the server supplies none.
const (
	CodeTimeout            = "TIMEOUT"
	CodeConnectionRefused  = "CONNECTION_REFUSED"
	CodeServerNotFound     = "SERVER_NOT_FOUND"
	CodeNetworkUnreachable = "NETWORK_UNREACHABLE"
	CodeNetworkError       = "NETWORK_ERROR"
	CodeUnauthenticated    = "UNAUTHENTICATED"
	CodeSessionExpired     = "SESSION_EXPIRED"
)

// HTTPCode returns the synthesized code for an HTTP status, e.g. HTTP_418.
func HTTPCode(status int) string {
	return "HTTP_" + strconv.Itoa(status)
}

// Error is the only error type the client returns to its callers.
// Values are never modified after construction.
type Error struct {
	Kind    Kind
	Status  int // 0 when no response was received
	Code    string
	Message string

	cause error
}

// Sentinels for errors.Is matching by kind.
var (
	ErrNetwork        = &Error{Kind: KindNetwork}
	ErrValidation     = &Error{Kind: KindValidation}
	ErrUnauthorized   = &Error{Kind: KindUnauthorized}
	ErrForbidden      = &Error{Kind: KindForbidden}
	ErrNotFound       = &Error{Kind: KindNotFound}
	ErrTimeout        = &Error{Kind: KindTimeout}
	ErrRateLimited    = &Error{Kind: KindRateLimited}
	ErrServer         = &Error{Kind: KindServer}
	ErrSessionExpired = &Error{Kind: KindSessionExpired}
	ErrUnknown        = &Error{Kind: KindUnknown}
)

// New builds an Error. An empty message is replaced by the default for the
// kind (or code, for network errors).
func New(kind Kind, status int, code, message string, cause error) *Error {
	if message == "" {
		message = defaultMessage(kind, code)
	}
	return &Error{Kind: kind, Status: status, Code: code, Message: message, cause: cause}
}

// SessionExpired builds the terminal error that tells the application to
// force a new login.
func SessionExpired(cause error) *Error {
	return New(KindSessionExpired, 0, CodeSessionExpired, "", cause)
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s (%s, status %d): %s", e.Kind, e.Code, e.Status, e.Message)
	}
	return fmt.Sprintf("%s (%s): %s", e.Kind, e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Is matches another *Error by kind, and by code when the target has one.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Kind != e.Kind {
		return false
	}
	return t.Code == "" || t.Code == e.Code
}

// Terminal reports whether the client must not retry the failure automatically.
func (e *Error) Terminal() bool {
	return e.Kind == KindSessionExpired
}

// IsAPIError reports whether err is (or wraps) an *Error.
func IsAPIError(err error) bool {
	_, ok := AsAPIError(err)
	return ok
}

// AsAPIError extracts the *Error from err's chain.
func AsAPIError(err error) (*Error, bool) {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}
