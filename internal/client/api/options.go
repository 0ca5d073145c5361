package api

import (
	"net/http"
	"net/url"
	"time"

	"github.com/dmitrijs2005/gofood/internal/client/refresh"
	"github.com/dmitrijs2005/gofood/internal/client/tokens"
	"github.com/dmitrijs2005/gofood/internal/client/transport"
	"github.com/dmitrijs2005/gofood/internal/logging"
)

const DefaultRequestTimeout = 30 * time.Second

// Options configure a Client. Only BaseURL is required.
type Options struct {
	BaseURL string

	// Store defaults to an in-memory store.
	Store tokens.Store
	// Transport defaults to an HTTPTransport over HTTPClient.
	Transport transport.Transport
	// HTTPClient is used only when Transport is nil, e.g. to install a
	// custom RoundTripper or TLS config.
	HTTPClient *http.Client
	// Refresher defaults to an HTTPRefresher over Transport.
	Refresher refresh.Refresher
	Logger    logging.Logger

	RequestTimeout time.Duration
	RefreshTimeout time.Duration

	// Debug appends raw transport messages to network errors.
	Debug bool
}

type requestOptions struct {
	header  http.Header
	query   url.Values
	timeout time.Duration
}

// RequestOption customises a single call.
type RequestOption func(*requestOptions)

// WithHeader adds a header to the request. Authorization is always
// overwritten by the client.
func WithHeader(key, value string) RequestOption {
	return func(o *requestOptions) {
		o.header.Add(key, value)
	}
}

// WithQuery adds a query parameter.
func WithQuery(key, value string) RequestOption {
	return func(o *requestOptions) {
		o.query.Add(key, value)
	}
}

// WithTimeout overrides the client's request timeout for this call. The
// budget covers the whole call, refresh wait and replay included.
func WithTimeout(d time.Duration) RequestOption {
	return func(o *requestOptions) {
		o.timeout = d
	}
}

func newRequestOptions(opts []RequestOption) *requestOptions {
	o := &requestOptions{header: make(http.Header), query: make(url.Values)}
	for _, opt := range opts {
		opt(o)
	}
	return o
}
