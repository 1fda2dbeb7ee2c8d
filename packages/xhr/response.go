package xhr

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/abdul-hamid-achik/qxhr/packages/headers"
)

var (
	// ErrUnsupportedMethod is returned for methods other than
	// GET, POST, PUT, PATCH, DELETE and HEAD.
	ErrUnsupportedMethod = errors.New("xhr: unsupported method")
	// ErrMissingURL is returned when a request has no URL.
	ErrMissingURL = errors.New("xhr: missing url")
	// ErrTimeout marks a ResponseError caused by the request timeout.
	ErrTimeout = errors.New("xhr: request timed out")
	// ErrNetwork marks a ResponseError with status 0 that did not time out.
	ErrNetwork = errors.New("xhr: network error")
	// ErrStatus marks a ResponseError with a non-2xx HTTP status.
	ErrStatus = errors.New("xhr: unsuccessful status")
)

// Response is the result of a completed exchange.
type Response struct {
	Data    any
	Status  int
	Headers *headers.Getter
	Config  *Config
}

// Header returns a response header, ignoring case.
func (r *Response) Header(name string) string {
	return r.Headers.Get(name)
}

// IsSuccess reports whether the status is in the 2xx range.
func (r *Response) IsSuccess() bool {
	return isSuccess(r.Status)
}

func isSuccess(status int) bool {
	return 200 <= status && status < 300
}

// ResponseError is the rejection of an exchange that completed without a
// 2xx status. The Response is fully populated so callers can inspect the
// status, headers and body of the failure.
type ResponseError struct {
	Response *Response
	// TimedOut is set when the exchange was aborted by its timeout.
	TimedOut bool
	// Cause is set when the transport could not start the exchange.
	Cause error
}

func (e *ResponseError) Error() string {
	var b strings.Builder
	if e.Response != nil && e.Response.Config != nil {
		b.WriteString(e.Response.Config.Method)
		b.WriteString(" ")
		b.WriteString(e.Response.Config.URL)
		b.WriteString(": ")
	}

	status := 0
	if e.Response != nil {
		status = e.Response.Status
	}
	switch {
	case e.TimedOut:
		b.WriteString("request timed out")
	case status == 0:
		b.WriteString("request failed")
	default:
		b.WriteString(fmt.Sprintf("http %d", status))
		if t := http.StatusText(status); t != "" {
			b.WriteString(" ")
			b.WriteString(t)
		}
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

// Unwrap exposes ErrTimeout, ErrNetwork or ErrStatus plus the Cause.
func (e *ResponseError) Unwrap() []error {
	var errs []error
	switch {
	case e.TimedOut:
		errs = append(errs, ErrTimeout)
	case e.Response == nil || e.Response.Status == 0:
		errs = append(errs, ErrNetwork)
	default:
		errs = append(errs, ErrStatus)
	}
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	return errs
}

// AsResponseError extracts a *ResponseError from err.
func AsResponseError(err error) (*ResponseError, bool) {
	var re *ResponseError
	if errors.As(err, &re) {
		return re, true
	}
	return nil, false
}

// StatusOf returns the response status carried by err, or -1 when err does
// not carry a response.
func StatusOf(err error) int {
	if re, ok := AsResponseError(err); ok && re.Response != nil {
		return re.Response.Status
	}
	return -1
}

// FailedResponse returns the response e rejected.
func (e *ResponseError) FailedResponse() *Response {
	return e.Response
}

// ResponseOf returns the response carried by err. Besides *ResponseError,
// any error in the chain with a FailedResponse() *Response method counts,
// so interceptors rejecting a response can keep it reachable.
func ResponseOf(err error) *Response {
	var rc interface{ FailedResponse() *Response }
	if errors.As(err, &rc) {
		return rc.FailedResponse()
	}
	return nil
}

// NotSentError reports a request rejected before it reached the transport,
// by a request interceptor or the request transform.
type NotSentError struct {
	// Config is the request as it entered the interceptor chain.
	Config *Config
	Err    error
}

func (e *NotSentError) Error() string {
	return e.Err.Error()
}

func (e *NotSentError) Unwrap() error {
	return e.Err
}

// ConfigOf returns the request config err is about, or nil.
func ConfigOf(err error) *Config {
	if r := ResponseOf(err); r != nil {
		return r.Config
	}
	var ns *NotSentError
	if errors.As(err, &ns) {
		return ns.Config
	}
	return nil
}
