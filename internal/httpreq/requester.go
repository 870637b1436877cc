// Package httpreq is the generic outbound HTTP worker: a requester
// performing arbitrary HTTPS calls under per-request deadlines, plus the
// event handler that binds it to the dispatch engine.
package httpreq

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/arc-self/push-gateway/internal/events"
)

// ErrorKind partitions transport failures for classification.
type ErrorKind int

const (
	// ErrorTimeout means the per-request deadline expired.
	ErrorTimeout ErrorKind = iota
	// ErrorConnection means the request never produced a response.
	ErrorConnection
	// ErrorInternal means the response arrived but could not be read.
	ErrorInternal
)

// RequestError is a failed outbound request.
type RequestError struct {
	Kind  ErrorKind
	Cause error
}

func (e *RequestError) Error() string {
	switch e.Kind {
	case ErrorTimeout:
		return "request timeout"
	case ErrorConnection:
		return "connection error"
	default:
		return "internal error"
	}
}

func (e *RequestError) Unwrap() error { return e.Cause }

// Result is a completed outbound request.
type Result struct {
	Status  int
	Body    []byte
	Headers http.Header
}

// Requester performs outbound HTTPS requests with connection reuse.
type Requester struct {
	client *http.Client
}

// NewRequester builds a requester with keep-alive connections. Request
// deadlines come from each event, not from the client.
func NewRequester() *Requester {
	return &Requester{client: &http.Client{}}
}

// Do performs one request under the event's deadline and reads the full
// response body.
func (r *Requester) Do(ctx context.Context, event *events.HTTPRequest) (*Result, *RequestError) {
	timeout := time.Duration(event.Timeout) * time.Millisecond
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, string(event.RequestType), requestURI(event), strings.NewReader(event.Body))
	if err != nil {
		return nil, &RequestError{Kind: ErrorConnection, Cause: err}
	}
	for k, v := range event.Headers {
		req.Header.Set(k, v)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, &RequestError{Kind: ErrorTimeout, Cause: err}
		}
		return nil, &RequestError{Kind: ErrorConnection, Cause: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, &RequestError{Kind: ErrorTimeout, Cause: err}
		}
		return nil, &RequestError{Kind: ErrorInternal, Cause: err}
	}

	return &Result{Status: resp.StatusCode, Body: body, Headers: resp.Header}, nil
}

// requestURI appends the optional query parameters to the event URI.
func requestURI(event *events.HTTPRequest) string {
	if len(event.Params) == 0 {
		return event.URI
	}

	values := url.Values{}
	for k, v := range event.Params {
		values.Set(k, v)
	}

	separator := "?"
	if strings.Contains(event.URI, "?") {
		separator = "&"
	}
	return event.URI + separator + values.Encode()
}
