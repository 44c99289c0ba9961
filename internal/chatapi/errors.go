package chatapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/sony/gobreaker"
)

var (
	// ErrKeyNotFound is returned when a response object lacks the configured key.
	ErrKeyNotFound = errors.New("response key not found")
	// ErrResponseTooLarge is returned when a response body exceeds 4 MiB.
	ErrResponseTooLarge = errors.New("response too large")
)

// Kind classifies a failed call.
type Kind int

const (
	KindNetwork Kind = iota
	KindTimeout
	KindNoConnectivity
	KindConnection
	KindServer
)

func (k Kind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindNoConnectivity:
		return "no_connectivity"
	case KindConnection:
		return "connection"
	case KindServer:
		return "server"
	default:
		return "network"
	}
}

// Error is returned by every Client operation that did not yield a usable response.
type Error struct {
	Op         string
	Kind       Kind
	StatusCode int    // set for KindServer
	Body       string // response body, verbatim, for KindServer
	Err        error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindServer:
		body := e.Body
		if body == "" {
			body = "Unknown error"
		}
		return fmt.Sprintf("%s error: %d %s", e.Op, e.StatusCode, body)
	case KindTimeout:
		return "Request timeout - " + e.cause()
	case KindNoConnectivity:
		return "No internet connection - " + e.cause()
	case KindConnection:
		return "Connection error - " + e.cause()
	default:
		return "Network error: " + e.cause()
	}
}

func (e *Error) cause() string {
	if e.Err == nil {
		return e.Op
	}
	return e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// IsTimeout reports whether err is a timeout from the chat service.
func IsTimeout(err error) bool {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind == KindTimeout
	}
	return errors.Is(err, context.DeadlineExceeded)
}

// KindOf returns the Kind of err, or KindNetwork if err is not an *Error.
func KindOf(err error) Kind {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return KindNetwork
}

// transportError classifies a failure that prevented any response.
func transportError(op string, err error) *Error {
	return &Error{Op: op, Kind: classify(err), Err: err}
}

func classify(err error) Kind {
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		if dnsErr.IsTimeout {
			return KindTimeout
		}
		return KindNoConnectivity
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return KindConnection
	}
	if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		return KindConnection
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return KindConnection
	}
	return KindNetwork
}
