package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/Popie52/pinger/internal/model"
)

const (
	HeaderContentType   = "content-type"
	HeaderAcceptCharset = "Accept-Charset"
	HeaderRequestID     = "X-Request-ID"
)

// DefaultHeaders go on every request.
func DefaultHeaders() http.Header {
	h := http.Header{}
	h.Set(HeaderContentType, "application/json")
	h.Set(HeaderAcceptCharset, "UTF-8")
	return h
}

type Options struct {
	// Timeout bounds one attempt. Zero means no timeout.
	Timeout time.Duration
	// Retries is the number of extra attempts after a transport error or 5xx.
	Retries   int
	RetryWait time.Duration
	Transport http.RoundTripper
}

type Client struct {
	http      *http.Client
	headers   http.Header
	retries   int
	retryWait time.Duration
}

func New(opts Options) *Client {
	if opts.RetryWait <= 0 {
		opts.RetryWait = 200 * time.Millisecond
	}
	if opts.Retries < 0 {
		opts.Retries = 0
	}
	return &Client{
		http: &http.Client{
			Timeout:   opts.Timeout,
			Transport: opts.Transport,
		},
		headers:   DefaultHeaders(),
		retries:   opts.Retries,
		retryWait: opts.RetryWait,
	}
}

// StatusError marks a 5xx answer so it can be retried.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status code: %d", e.Code)
}

// Do sends one request to ep with the fixed headers plus extra. It returns
// the final HTTP status; err is set only when no response was received.
func (c *Client) Do(ctx context.Context, ep model.Endpoint, extra http.Header) (int, error) {
	var status int

	op := func() error {
		req, err := c.newRequest(ctx, ep, extra)
		if err != nil {
			return backoff.Permanent(err)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			return err
		}
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()

		status = resp.StatusCode
		if status >= 500 {
			return &StatusError{Code: status}
		}
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.retryWait
	b.MaxElapsedTime = 0

	err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(b, uint64(c.retries)), ctx))

	var se *StatusError
	if errors.As(err, &se) {
		return se.Code, nil
	}
	if err != nil {
		return 0, err
	}
	return status, nil
}

func (c *Client) newRequest(ctx context.Context, ep model.Endpoint, extra http.Header) (*http.Request, error) {
	method := ep.Method
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if method == http.MethodPost {
		body = strings.NewReader("{}")
	}

	req, err := http.NewRequestWithContext(ctx, method, ep.URL, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	for k, vs := range c.headers {
		req.Header[k] = append([]string(nil), vs...)
	}
	for k, vs := range extra {
		req.Header[k] = append([]string(nil), vs...)
	}
	return req, nil
}
