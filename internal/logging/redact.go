package logging

import "strings"

// RedactToken hides a credential while keeping a short prefix, so that two
// different tokens can still be told apart in logs.
func RedactToken(token string) string {
	if token == "" {
		return ""
	}
	if len(token) <= 8 {
		return "[REDACTED]"
	}
	return token[:4] + "…[REDACTED]"
}

// RedactAuthorization redacts the credential part of an Authorization header value.
func RedactAuthorization(v string) string {
	scheme, token, ok := strings.Cut(v, " ")
	if !ok {
		return RedactToken(v)
	}
	return scheme + " " + RedactToken(token)
}
