package xhr

import (
	"strings"
	"sync"
	"time"

	"github.com/abdul-hamid-achik/qxhr/packages/headers"
	"github.com/abdul-hamid-achik/qxhr/packages/transform"
)

const (
	// DefaultAccept is sent on every request unless overridden.
	DefaultAccept = "application/json, text/plain, */*"
	// ContentTypeJSON is sent on POST, PUT and PATCH unless overridden.
	ContentTypeJSON = "application/json;charset=utf-8"
)

// CommonHeaders is the DefaultHeaders key applying to every method.
const CommonHeaders = "common"

// DefaultHeaders holds headers applied to every request (Common) and per
// method (Methods, keyed by lower-case method name).
type DefaultHeaders struct {
	Common  headers.Map
	Methods map[string]headers.Map
}

func (h DefaultHeaders) clone() DefaultHeaders {
	out := DefaultHeaders{
		Common:  h.Common.Clone(),
		Methods: make(map[string]headers.Map, len(h.Methods)),
	}
	for m, hm := range h.Methods {
		out.Methods[m] = hm.Clone()
	}
	return out
}

// DefaultValues is the plain data behind Defaults.
type DefaultValues struct {
	TransformRequest  transform.Chain
	TransformResponse transform.Chain
	Headers           DefaultHeaders
	WithCredentials   *bool
	// Timeout applies to requests that do not set their own.
	Timeout time.Duration
}

func (v DefaultValues) clone() DefaultValues {
	out := v
	out.TransformRequest = append(transform.Chain(nil), v.TransformRequest...)
	out.TransformResponse = append(transform.Chain(nil), v.TransformResponse...)
	out.Headers = v.Headers.clone()
	if v.WithCredentials != nil {
		out.WithCredentials = Bool(*v.WithCredentials)
	}
	return out
}

// Defaults is the mutable configuration a Client reads on every call.
// Changes affect requests started afterwards only.
type Defaults struct {
	mu sync.RWMutex
	v  DefaultValues
}

// NewDefaults returns the JSON-oriented defaults.
func NewDefaults() *Defaults {
	return &Defaults{v: DefaultValues{
		TransformRequest:  transform.DefaultRequest(),
		TransformResponse: transform.DefaultResponse(),
		Headers: DefaultHeaders{
			Common: headers.Map{"Accept": headers.Literal(DefaultAccept)},
			Methods: map[string]headers.Map{
				"post":  {"Content-Type": headers.Literal(ContentTypeJSON)},
				"put":   {"Content-Type": headers.Literal(ContentTypeJSON)},
				"patch": {"Content-Type": headers.Literal(ContentTypeJSON)},
			},
		},
	}}
}

// Snapshot returns a deep copy of the current values.
func (d *Defaults) Snapshot() DefaultValues {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.v.clone()
}

// Update mutates the defaults under lock.
func (d *Defaults) Update(fn func(*DefaultValues)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	fn(&d.v)
	if d.v.Headers.Common == nil {
		d.v.Headers.Common = headers.Map{}
	}
	if d.v.Headers.Methods == nil {
		d.v.Headers.Methods = map[string]headers.Map{}
	}
}

// Clone returns independent Defaults with the same values.
func (d *Defaults) Clone() *Defaults {
	return &Defaults{v: d.Snapshot()}
}

// SetHeader sets a default header for scope, which is CommonHeaders or a
// method name in any case.
func (d *Defaults) SetHeader(scope, name string, v headers.Value) {
	d.Update(func(dv *DefaultValues) {
		target := scopeHeaders(dv, scope)
		target.Set(name, v)
	})
}

// DelHeader removes a default header from scope.
func (d *Defaults) DelHeader(scope, name string) {
	d.Update(func(dv *DefaultValues) {
		scopeHeaders(dv, scope).Del(name)
	})
}

func scopeHeaders(dv *DefaultValues, scope string) headers.Map {
	scope = strings.ToLower(scope)
	if scope == CommonHeaders {
		if dv.Headers.Common == nil {
			dv.Headers.Common = headers.Map{}
		}
		return dv.Headers.Common
	}
	if dv.Headers.Methods == nil {
		dv.Headers.Methods = map[string]headers.Map{}
	}
	if dv.Headers.Methods[scope] == nil {
		dv.Headers.Methods[scope] = headers.Map{}
	}
	return dv.Headers.Methods[scope]
}

// SetWithCredentials sets the credentials default used when a request does
// not specify one.
func (d *Defaults) SetWithCredentials(v bool) {
	d.Update(func(dv *DefaultValues) {
		dv.WithCredentials = Bool(v)
	})
}
