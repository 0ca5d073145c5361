package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrijs2005/gofood/internal/client/apierror"
	"github.com/dmitrijs2005/gofood/internal/client/authn"
	"github.com/dmitrijs2005/gofood/internal/client/refresh"
	"github.com/dmitrijs2005/gofood/internal/client/tokens"
	"github.com/dmitrijs2005/gofood/internal/client/transport"
	"github.com/dmitrijs2005/gofood/internal/common"
	"github.com/dmitrijs2005/gofood/internal/logging"
)

var ErrInvalidBaseURL = errors.New("invalid base URL")

type Client struct {
	baseURL        *url.URL
	store          tokens.Store
	transport      transport.Transport
	authn          *authn.Authenticator
	refresh        *refresh.Coordinator
	log            logging.Logger
	requestTimeout time.Duration
	debug          bool
}

func New(opts Options) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidBaseURL, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidBaseURL, opts.BaseURL)
	}

	c := &Client{
		baseURL:        base,
		store:          opts.Store,
		transport:      opts.Transport,
		log:            opts.Logger,
		requestTimeout: opts.RequestTimeout,
		debug:          opts.Debug,
	}
	if c.store == nil {
		c.store = tokens.NewMemoryStore()
	}
	if c.transport == nil {
		if opts.HTTPClient != nil {
			c.transport = transport.NewHTTPTransportWithClient(opts.HTTPClient)
		} else {
			// per-call deadlines come from ctx
			c.transport = transport.NewHTTPTransport(0)
		}
	}
	if c.log == nil {
		c.log = logging.NewNop()
	}
	if c.requestTimeout <= 0 {
		c.requestTimeout = DefaultRequestTimeout
	}

	refresher := opts.Refresher
	if refresher == nil {
		refresher = refresh.NewHTTPRefresher(base.String(), c.transport)
	}

	c.authn = authn.New(c.store, c.log)
	c.refresh = refresh.NewCoordinator(c.store, refresher, opts.RefreshTimeout, c.log)
	return c, nil
}

func (c *Client) Get(ctx context.Context, path string, opts ...RequestOption) (*transport.Response, error) {
	return c.Do(ctx, http.MethodGet, path, nil, opts...)
}

func (c *Client) Post(ctx context.Context, path string, body any, opts ...RequestOption) (*transport.Response, error) {
	return c.Do(ctx, http.MethodPost, path, body, opts...)
}

func (c *Client) Put(ctx context.Context, path string, body any, opts ...RequestOption) (*transport.Response, error) {
	return c.Do(ctx, http.MethodPut, path, body, opts...)
}

func (c *Client) Patch(ctx context.Context, path string, body any, opts ...RequestOption) (*transport.Response, error) {
	return c.Do(ctx, http.MethodPatch, path, body, opts...)
}

func (c *Client) Delete(ctx context.Context, path string, opts ...RequestOption) (*transport.Response, error) {
	return c.Do(ctx, http.MethodDelete, path, nil, opts...)
}

// Do sends an authenticated request. Responses with a status below 400 are
// returned as is; anything else comes back as an *apierror.Error. A 401 is
// recovered through the refresh protocol before it reaches the caller.
func (c *Client) Do(ctx context.Context, method, path string, body any, opts ...RequestOption) (*transport.Response, error) {
	ro := newRequestOptions(opts)

	payload, err := encodeBody(body)
	if err != nil {
		return nil, apierror.New(apierror.KindValidation, 0, CodeInvalidRequest, "", err)
	}
	target, err := c.resolve(path, ro.query)
	if err != nil {
		return nil, apierror.New(apierror.KindValidation, 0, CodeInvalidRequest, "", err)
	}

	timeout := c.requestTimeout
	if ro.timeout > 0 {
		timeout = ro.timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req := transport.NewRequest(method, target, payload)
	for k, vs := range ro.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	c.authn.Authenticate(ctx, req)

	return c.execute(ctx, req)
}

// ClearPendingRefresh abandons an in-flight refresh; its waiters fail with
// SessionExpired.
func (c *Client) ClearPendingRefresh() {
	c.refresh.ClearPendingRefresh()
}

// RefreshState exposes the coordinator state, mostly for diagnostics.
func (c *Client) RefreshState() refresh.State {
	return c.refresh.State()
}

func (c *Client) execute(ctx context.Context, req *transport.Request) (*transport.Response, error) {
	resp, err := c.send(ctx, req)
	if err == nil {
		return resp, nil
	}

	apiErr := apierror.FromError(err, c.debug)
	if apiErr.Kind != apierror.KindUnauthorized {
		return nil, apiErr
	}
	return c.refresh.Recover(ctx, req, c.replay)
}

func (c *Client) replay(ctx context.Context, req *transport.Request, accessToken string) (*transport.Response, error) {
	c.authn.AuthenticateWith(req, accessToken)
	c.log.Debug(ctx, "replaying request", "method", req.Method, "url", req.URL, "request_id", req.Header.Get(common.RequestIDHeaderName))
	return c.execute(ctx, req)
}

// send performs one attempt and classifies the outcome without entering the
// refresh protocol.
func (c *Client) send(ctx context.Context, req *transport.Request) (*transport.Response, error) {
	start := time.Now()
	c.log.Debug(ctx, "request",
		"method", req.Method,
		"url", req.URL,
		"request_id", req.Header.Get(common.RequestIDHeaderName),
		"authorization", logging.RedactAuthorization(req.Header.Get(common.AuthorizationHeaderName)),
		"retried", req.Retried,
	)

	resp, err := c.transport.Do(ctx, req)
	if err != nil {
		apiErr := apierror.Classify(apierror.Outcome{Err: err}, c.debug)
		c.log.Debug(ctx, "request failed", "method", req.Method, "url", req.URL, "code", apiErr.Code, "elapsed", time.Since(start))
		return nil, apiErr
	}

	c.log.Debug(ctx, "response", "method", req.Method, "url", req.URL, "status", resp.Status, "bytes", len(resp.Body), "elapsed", time.Since(start))
	if resp.OK() {
		return resp, nil
	}
	return nil, apierror.Classify(apierror.Outcome{Status: resp.Status, Body: resp.Body}, c.debug)
}

// resolve joins path onto the base URL. Absolute URLs are used unchanged.
func (c *Client) resolve(path string, query url.Values) (string, error) {
	var u *url.URL
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		parsed, err := url.Parse(path)
		if err != nil {
			return "", fmt.Errorf("parse url: %w", err)
		}
		u = parsed
	} else {
		rel, err := url.Parse(path)
		if err != nil {
			return "", fmt.Errorf("parse path: %w", err)
		}
		u = c.baseURL.JoinPath(rel.Path)
		u.RawQuery = rel.RawQuery
	}

	if len(query) > 0 {
		q := u.Query()
		for k, vs := range query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

func (c *Client) endpoint(path string) string {
	return c.baseURL.JoinPath(path).String()
}
