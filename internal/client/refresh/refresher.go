package refresh

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/gofood/internal/client/apierror"
	"github.com/dmitrijs2005/gofood/internal/client/authn"
	"github.com/dmitrijs2005/gofood/internal/client/tokens"
	"github.com/dmitrijs2005/gofood/internal/client/transport"
	"github.com/dmitrijs2005/gofood/internal/common"
)

// RefreshPath is the refresh endpoint relative to the API base URL.
const RefreshPath = "/auth/refresh-token"

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// HTTPRefresher calls the refresh endpoint over the raw transport, so a 401
// from the endpoint is a plain failure and never re-enters the coordinator.
type HTTPRefresher struct {
	url       string
	transport transport.Transport
}

func NewHTTPRefresher(baseURL string, t transport.Transport) *HTTPRefresher {
	return &HTTPRefresher{
		url:       strings.TrimRight(baseURL, "/") + RefreshPath,
		transport: t,
	}
}

func (r *HTTPRefresher) Refresh(ctx context.Context, refreshToken string) (tokens.Pair, error) {
	body, err := json.Marshal(refreshRequest{RefreshToken: refreshToken})
	if err != nil {
		return tokens.Pair{}, fmt.Errorf("encode refresh request: %w", err)
	}

	req := transport.NewRequest(http.MethodPost, r.url, body)
	req.Header.Set(common.RequestIDHeaderName, authn.NewRequestID())

	resp, err := r.transport.Do(ctx, req)
	if err != nil {
		return tokens.Pair{}, fmt.Errorf("refresh request: %w", err)
	}
	if !resp.OK() {
		// Only the description is kept: the caller reports SessionExpired
		// and the chain must not also match the endpoint's own kind.
		classified := apierror.Classify(apierror.Outcome{Status: resp.Status, Body: resp.Body}, false)
		return tokens.Pair{}, fmt.Errorf("%w: %s", common.ErrRefreshRejected, classified)
	}

	var pair tokens.Pair
	if err := resp.Decode(&pair); err != nil {
		return tokens.Pair{}, fmt.Errorf("%w: %w", common.ErrInvalidRefreshResponse, err)
	}
	if err := pair.Validate(); err != nil {
		return tokens.Pair{}, fmt.Errorf("%w: %w", common.ErrInvalidRefreshResponse, err)
	}
	return pair, nil
}
