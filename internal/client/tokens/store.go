// Package tokens holds the access/refresh credential pair and the stores
// that persist it.
//
// The API client only reads the access token on the hot path; the pair is
// written on login, on a successful refresh, and cleared on logout or on an
// unrecoverable refresh failure.
package tokens

import (
	"context"
	"strings"

	"github.com/dmitrijs2005/gofood/internal/common"
)

// Pair is the credential pair issued by the auth endpoints.
type Pair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Validate reports common.ErrInvalidTokenPair when either token is blank.
func (p Pair) Validate() error {
	if strings.TrimSpace(p.AccessToken) == "" || strings.TrimSpace(p.RefreshToken) == "" {
		return common.ErrInvalidTokenPair
	}
	return nil
}

// Store persists the credential pair. Missing tokens are reported as empty
// strings with a nil error. Implementations must be safe for concurrent use.
type Store interface {
	AccessToken(ctx context.Context) (string, error)
	RefreshToken(ctx context.Context) (string, error)
	SetTokens(ctx context.Context, access, refresh string) error
	ClearAllTokens(ctx context.Context) error
}
