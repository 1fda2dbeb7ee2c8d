// Package output renders xhr responses for the terminal.
//
// Supported output formats:
//   - Console: status line, headers in verbose mode and a pretty body
//   - JSON: one machine-readable object per response
//
// Select extracts part of a JSON body with gjson path syntax.
package output
