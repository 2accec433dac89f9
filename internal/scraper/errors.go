package scraper

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// FetchKind classifies a fetch failure
type FetchKind string

// Fetch failure classes
const (
	KindTimeout    FetchKind = "timeout"
	KindConnection FetchKind = "connection"
	KindHTTPStatus FetchKind = "http-status"
	KindRender     FetchKind = "render"
	KindCancelled  FetchKind = "cancelled"
)

// FetchError is the error returned by every Fetcher
type FetchError struct {
	Kind       FetchKind
	StatusCode int
	// Message overrides the kind as the error prefix.
	Message string
	Err     error
}

func (e *FetchError) Error() string {
	prefix := e.Message
	if prefix == "" {
		prefix = string(e.Kind)
	}
	if e.Kind == KindHTTPStatus {
		prefix = fmt.Sprintf("http-status:%d", e.StatusCode)
	}
	if e.Err != nil && e.Kind != KindCancelled {
		return fmt.Sprintf("%s: %v", prefix, e.Err)
	}
	return prefix
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// IsCancelled reports whether err stems from caller cancellation
func IsCancelled(err error) bool {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind == KindCancelled
	}
	return errors.Is(err, context.Canceled)
}

// classifyTransport maps a static fetch error. parent is the caller's
// context; its expiry means cancellation rather than a fetch timeout.
func classifyTransport(parent context.Context, err error) *FetchError {
	if parent.Err() != nil {
		return &FetchError{Kind: KindCancelled, Err: parent.Err()}
	}

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &FetchError{Kind: KindTimeout, Err: err}
	}
	return &FetchError{Kind: KindConnection, Err: err}
}

// classifyRender maps a rendering session error
func classifyRender(parent context.Context, err error) *FetchError {
	if parent.Err() != nil {
		return &FetchError{Kind: KindCancelled, Err: parent.Err()}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &FetchError{Kind: KindRender, Message: "browser timeout", Err: err}
	}
	return &FetchError{Kind: KindRender, Message: "browser error", Err: err}
}
