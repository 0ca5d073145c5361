package apierror

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"os"
	"strings"
	"syscall"
)

// Outcome is a raw transport result. Err != nil means no response was
// received; otherwise Status and Body describe an HTTP error response.
type Outcome struct {
	Status int
	Body   []byte
	Err    error
}

// Classify maps an outcome onto the taxonomy. In debug mode the raw
// transport message is appended to network errors; production builds only
// ever show the fixed message.
func Classify(o Outcome, debug bool) *Error {
	if o.Err != nil {
		return classifyTransport(o.Err, debug)
	}
	return classifyStatus(o.Status, o.Body)
}

// FromError turns any error into an *Error. Values that already are (or wrap)
// an *Error are returned as is; anything else is a transport failure.
func FromError(err error, debug bool) *Error {
	if err == nil {
		return nil
	}
	if apiErr, ok := AsAPIError(err); ok {
		return apiErr
	}
	return classifyTransport(err, debug)
}

func classifyTransport(err error, debug bool) *Error {
	code := networkCode(err)
	msg := networkMessages[code]
	if debug {
		msg += " (" + err.Error() + ")"
	}
	return New(KindNetwork, 0, code, msg, err)
}

func networkCode(err error) string {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return CodeTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return CodeTimeout
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return CodeServerNotFound
	}

	switch {
	case errors.Is(err, syscall.ECONNREFUSED):
		return CodeConnectionRefused
	case errors.Is(err, syscall.ENETUNREACH), errors.Is(err, syscall.EHOSTUNREACH):
		return CodeNetworkUnreachable
	default:
		return CodeNetworkError
	}
}

func classifyStatus(status int, body []byte) *Error {
	kind := kindForStatus(status)

	code, message := serverDetails(body)
	if code == "" {
		code = HTTPCode(status)
		if status == http.StatusUnauthorized {
			code = CodeUnauthenticated
		}
	}

	return New(kind, status, code, message, nil)
}

func kindForStatus(status int) Kind {
	switch {
	case status == http.StatusUnauthorized:
		return KindUnauthorized
	case status == http.StatusBadRequest, status == http.StatusUnprocessableEntity:
		return KindValidation
	case status == http.StatusForbidden:
		return KindForbidden
	case status == http.StatusNotFound:
		return KindNotFound
	case status == http.StatusRequestTimeout:
		return KindTimeout
	case status == http.StatusTooManyRequests:
		return KindRateLimited
	case status >= 500 && status <= 599:
		return KindServer
	default:
		return KindUnknown
	}
}

// serverDetails pulls a machine code and a message out of an error body.
// Recognised shapes:
//
//	{"code": "OUT_OF_STOCK", "message": "..."}
//	{"message": ["email must be an email", "..."]}
//	{"error": {"code": "...", "message": "..."}}
//	{"error": "rate_limited", "message": "..."}
//
// A string "error" value is taken as a code only when it has no spaces;
// otherwise it is a human message.
func serverDetails(body []byte) (code, message string) {
	if len(body) == 0 {
		return "", ""
	}

	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return "", ""
	}

	code = stringField(raw["code"])
	message = messageField(raw["message"])

	switch v := raw["error"].(type) {
	case map[string]any:
		if code == "" {
			code = stringField(v["code"])
		}
		if message == "" {
			message = messageField(v["message"])
		}
	case string:
		v = strings.TrimSpace(v)
		if strings.ContainsAny(v, " \t") {
			if message == "" {
				message = v
			}
		} else if code == "" {
			code = v
		}
	}

	return code, message
}

func stringField(v any) string {
	s, _ := v.(string)
	return strings.TrimSpace(s)
}

func messageField(v any) string {
	switch m := v.(type) {
	case string:
		return strings.TrimSpace(m)
	case []any:
		parts := make([]string, 0, len(m))
		for _, p := range m {
			if s := stringField(p); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, "; ")
	default:
		return ""
	}
}
