// Package transport is the thin HTTP primitive under the API client: it
// issues one request and returns status, headers and the fully read body, or
// a transport-level failure when no response was received.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Request is a replayable outbound request. Body is buffered so the same
// request can be sent again after a token refresh.
type Request struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte

	// Retried is set once the request has gone through a refresh cycle.
	// It is never reset.
	Retried bool
}

// NewRequest builds a Request with an empty header map.
func NewRequest(method, url string, body []byte) *Request {
	return &Request{Method: method, URL: url, Header: make(http.Header), Body: body}
}

// Response is a fully read HTTP response.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// OK reports a status below 400.
func (r *Response) OK() bool {
	return r.Status < http.StatusBadRequest
}

// Decode unmarshals the JSON body into v.
func (r *Response) Decode(v any) error {
	if len(r.Body) == 0 {
		return fmt.Errorf("decode response: empty body")
	}
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Transport sends a single request. It returns a Response for every status
// code (including 4xx/5xx) and an error only when no response was received.
type Transport interface {
	Do(ctx context.Context, req *Request) (*Response, error)
}

// HTTPTransport implements Transport on top of *http.Client.
type HTTPTransport struct {
	client *http.Client
}

// NewHTTPTransport returns a transport whose client enforces timeout per
// request. A zero timeout means no client-side limit beyond ctx.
func NewHTTPTransport(timeout time.Duration) *HTTPTransport {
	return &HTTPTransport{client: &http.Client{Timeout: timeout}}
}

// NewHTTPTransportWithClient wraps an existing client, e.g. one with a
// custom RoundTripper.
func NewHTTPTransportWithClient(c *http.Client) *HTTPTransport {
	if c == nil {
		c = http.DefaultClient
	}
	return &HTTPTransport{client: c}
}

func (t *HTTPTransport) Do(ctx context.Context, req *Request) (*Response, error) {
	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	if req.Body != nil && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if httpReq.Header.Get("Accept") == "" {
		httpReq.Header.Set("Accept", "application/json")
	}

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	return &Response{Status: resp.StatusCode, Header: resp.Header, Body: payload}, nil
}
