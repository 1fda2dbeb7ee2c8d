// Package interceptors provides ready-made xhr interceptors: request ids,
// client side rate limiting, structured logging, JSON Schema validation of
// response bodies and Prometheus metrics.
package interceptors
