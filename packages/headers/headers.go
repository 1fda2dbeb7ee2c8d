package headers

import "strings"

// Value is a header value. It is either a literal string or a function
// evaluated once per exchange when headers are merged.
type Value struct {
	literal  string
	computed func() (string, bool)
}

// Literal returns a fixed header value.
func Literal(s string) Value {
	return Value{literal: s}
}

// Computed returns a header value produced by fn at merge time. When fn
// reports false the header is dropped from the exchange.
func Computed(fn func() (string, bool)) Value {
	return Value{computed: fn}
}

// IsComputed reports whether the value is produced by a function.
func (v Value) IsComputed() bool {
	return v.computed != nil
}

// Resolve returns the string value. Computed values are invoked on every call.
func (v Value) Resolve() (string, bool) {
	if v.computed != nil {
		return v.computed()
	}
	return v.literal, true
}

// Map holds header values keyed by name. Lookups are case-insensitive, keys
// keep the spelling they were inserted with.
type Map map[string]Value

// FromStrings builds a Map of literal values.
func FromStrings(m map[string]string) Map {
	out := make(Map, len(m))
	for k, v := range m {
		out[k] = Literal(v)
	}
	return out
}

// Clone returns a shallow copy of m. A nil map clones to an empty one.
func (m Map) Clone() Map {
	out := make(Map, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Key returns the stored spelling of name, if any.
func (m Map) Key(name string) (string, bool) {
	if _, ok := m[name]; ok {
		return name, true
	}
	for k := range m {
		if strings.EqualFold(k, name) {
			return k, true
		}
	}
	return "", false
}

// Has reports whether a header named name exists, ignoring case.
func (m Map) Has(name string) bool {
	_, ok := m.Key(name)
	return ok
}

// Get returns the value stored under name, ignoring case.
func (m Map) Get(name string) (Value, bool) {
	k, ok := m.Key(name)
	if !ok {
		return Value{}, false
	}
	return m[k], true
}

// Set stores v under name, replacing every spelling of the same header.
func (m Map) Set(name string, v Value) {
	m.Del(name)
	m[name] = v
}

// SetString stores a literal value under name.
func (m Map) SetString(name, value string) {
	m.Set(name, Literal(value))
}

// Del removes every spelling of name.
func (m Map) Del(name string) {
	for k := range m {
		if strings.EqualFold(k, name) {
			delete(m, k)
		}
	}
}

// Resolve evaluates computed values in place. Entries whose function reports
// no value are removed.
func (m Map) Resolve() Map {
	for k, v := range m {
		if !v.IsComputed() {
			continue
		}
		if s, ok := v.Resolve(); ok {
			m[k] = Literal(s)
		} else {
			delete(m, k)
		}
	}
	return m
}

// Literals returns the resolved string form of m. Computed values are
// evaluated; absent ones are skipped.
func (m Map) Literals() map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		if s, ok := v.Resolve(); ok {
			out[k] = s
		}
	}
	return out
}
