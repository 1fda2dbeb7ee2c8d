// Package xhr is a future-returning HTTP request helper built on an
// XHR-shaped transport.
//
// A Client normalizes each request configuration against its Defaults,
// merges default headers, runs request interceptors, performs the exchange
// through a transport.Transport, runs response interceptors and decodes the
// response body through the transform pipeline:
//   - Defaults: JSON transforms, Accept and per-method Content-Type headers
//   - Interceptors: ordered request/response stages that may recover errors
//   - Pending: in-flight configurations for introspection
//   - Timeouts: the only cancellation path; a timed out exchange settles
//     with status 0
//
// The package-level functions use Default, a Client over net/http.
package xhr
