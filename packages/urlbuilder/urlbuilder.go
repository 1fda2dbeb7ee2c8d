// Package urlbuilder serializes query parameters onto a URL in a stable,
// key-sorted order.
package urlbuilder

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// Build appends params to rawURL as a query string. Keys are emitted in
// lexicographic order. Nil values are skipped, slices expand to one pair per
// element, and maps, structs and pointers are sent as their JSON text.
func Build(rawURL string, params map[string]any) string {
	if len(params) == 0 {
		return rawURL
	}

	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var parts []string
	for _, key := range keys {
		value := params[key]
		if isNil(value) {
			continue
		}
		for _, v := range expand(value) {
			parts = append(parts, EncodeComponent(key)+"="+EncodeComponent(stringify(v)))
		}
	}
	if len(parts) == 0 {
		return rawURL
	}

	sep := "?"
	if strings.Contains(rawURL, "?") {
		sep = "&"
	}
	return rawURL + sep + strings.Join(parts, "&")
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

func expand(v any) []any {
	if _, ok := v.([]byte); ok {
		return []any{v}
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return []any{v}
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out
}

func stringify(v any) string {
	if v == nil {
		return "null"
	}
	switch val := v.(type) {
	case string:
		return val
	case []byte:
		return string(val)
	case fmt.Stringer:
		return val.String()
	}

	switch reflect.ValueOf(v).Kind() {
	case reflect.Map, reflect.Struct, reflect.Pointer, reflect.Slice, reflect.Array, reflect.Interface:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(data)
	}
	return fmt.Sprint(v)
}

// EncodeComponent escapes s the way JavaScript's encodeURIComponent does:
// letters, digits and -_.!~*'() are kept, everything else is percent-encoded
// as UTF-8.
func EncodeComponent(s string) string {
	const hex = "0123456789ABCDEF"
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if keep(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hex[c>>4])
		b.WriteByte(hex[c&0x0F])
	}
	return b.String()
}

func keep(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	return strings.IndexByte("-_.!~*'()", c) >= 0
}
