package common

import "errors"

var (
	// Token lifecycle errors.
	ErrNoRefreshToken         = errors.New("no refresh token")
	ErrRefreshRejected        = errors.New("refresh rejected")
	ErrInvalidRefreshResponse = errors.New("invalid refresh response")
	ErrRefreshCancelled       = errors.New("refresh cancelled")
	ErrInvalidTokenPair       = errors.New("invalid token pair")

	// Local storage errors.
	ErrCorruptedTokenData = errors.New("corrupted token data")
)
