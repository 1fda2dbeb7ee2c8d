// Package cmd implements the qxhr CLI commands using Cobra.
//
// Available commands:
//   - get, head, delete, post, put, patch: Send one request with that method
//   - request: Send a request with an explicit method
//   - history: List or clear recorded requests
//   - serve: Start the local echo server
//   - version: Show qxhr version information
//
// Request commands share flags for headers, query parameters, timeouts,
// response selection, schema validation, rate limiting and repeated runs
// with a latency summary.
package cmd
