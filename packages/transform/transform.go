// Package transform applies ordered body transformers to outgoing request
// payloads and incoming response bodies.
package transform

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"reflect"
	"strings"

	"github.com/abdul-hamid-achik/qxhr/packages/headers"
)

// Func transforms a body. It receives the previous body and read access to
// the headers of the message being transformed.
type Func func(body any, h *headers.Getter) (any, error)

// Chain is an ordered list of transformers.
type Chain []Func

// Single wraps one transformer as a chain.
func Single(fn Func) Chain {
	return Chain{fn}
}

// Apply runs body through every transformer of chain in order. The first
// error stops the pipeline.
func Apply(body any, h *headers.Getter, chain Chain) (any, error) {
	for i, fn := range chain {
		if fn == nil {
			continue
		}
		var err error
		body, err = fn(body, h)
		if err != nil {
			return nil, fmt.Errorf("transform %d: %w", i, err)
		}
	}
	return body, nil
}

// IsRaw reports whether body is sent as-is rather than JSON encoded.
func IsRaw(body any) bool {
	switch body.(type) {
	case string, []byte, json.RawMessage, io.Reader, fs.File:
		return true
	}
	return false
}

// JSONRequest encodes any non-raw, non-nil body as JSON text. Typed nils
// such as a nil map or pointer count as no body.
func JSONRequest(body any, _ *headers.Getter) (any, error) {
	if isNil(body) {
		return nil, nil
	}
	if IsRaw(body) {
		return body, nil
	}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode request body: %w", err)
	}
	return string(data), nil
}

// JSONResponse decodes textual bodies whose Content-Type mentions json.
// Numbers are kept as json.Number.
func JSONResponse(body any, h *headers.Getter) (any, error) {
	var data []byte
	switch b := body.(type) {
	case string:
		data = []byte(b)
	case []byte:
		data = b
	default:
		return body, nil
	}

	if !strings.Contains(h.Get("content-type"), "json") {
		return body, nil
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return body, nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("decode response body: %w", err)
	}
	return v, nil
}

// DefaultRequest returns the default request chain.
func DefaultRequest() Chain {
	return Chain{JSONRequest}
}

// DefaultResponse returns the default response chain.
func DefaultResponse() Chain {
	return Chain{JSONResponse}
}

func isNil(body any) bool {
	if body == nil {
		return true
	}
	v := reflect.ValueOf(body)
	switch v.Kind() {
	case reflect.Map, reflect.Slice, reflect.Pointer, reflect.Interface, reflect.Func, reflect.Chan:
		return v.IsNil()
	}
	return false
}
