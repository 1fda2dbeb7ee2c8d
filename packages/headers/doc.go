// Package headers provides case-insensitive HTTP header utilities.
//
// It covers:
//   - Parsing raw response header blocks into a lower-cased map
//   - Lazy, memoized header lookup through a Getter
//   - Literal and computed header values
//   - Merging request headers with common and per-method defaults
package headers
