// Package transport defines the XHR-shaped contract the request adapter
// drives for a single network exchange.
package transport

import "io"

// ReadyState mirrors the XMLHttpRequest readyState values.
type ReadyState int

const (
	Unsent ReadyState = iota
	Opened
	HeadersReceived
	Loading
	Done
)

func (s ReadyState) String() string {
	switch s {
	case Unsent:
		return "UNSENT"
	case Opened:
		return "OPENED"
	case HeadersReceived:
		return "HEADERS_RECEIVED"
	case Loading:
		return "LOADING"
	case Done:
		return "DONE"
	default:
		return "UNKNOWN"
	}
}

// Progress describes transfer progress. Total is -1 when unknown.
type Progress struct {
	Loaded int64
	Total  int64
}

// LengthComputable reports whether Total is known.
func (p Progress) LengthComputable() bool {
	return p.Total >= 0
}

// Transport performs one exchange. Implementations call the ready state
// handler at least once with Done, after which Status, AllResponseHeaders
// and the response accessors are stable.
type Transport interface {
	Open(method, url string) error
	SetRequestHeader(name, value string)
	SetWithCredentials(bool)
	SetResponseType(string)
	Send(body io.Reader) error
	Abort()

	ReadyState() ReadyState
	Status() int
	AllResponseHeaders() string
	// Response returns the body shaped by the response type.
	Response() any
	ResponseText() string

	OnReadyStateChange(func())
	OnProgress(func(Progress))
}

// Factory creates a fresh Transport per exchange.
type Factory func() Transport
