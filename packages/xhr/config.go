package xhr

import (
	"fmt"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/qxhr/packages/headers"
	"github.com/abdul-hamid-achik/qxhr/packages/transform"
)

// Supported request methods.
const (
	MethodGet    = "GET"
	MethodPost   = "POST"
	MethodPut    = "PUT"
	MethodPatch  = "PATCH"
	MethodDelete = "DELETE"
	MethodHead   = "HEAD"
)

var methods = map[string]bool{
	MethodGet:    true,
	MethodPost:   true,
	MethodPut:    true,
	MethodPatch:  true,
	MethodDelete: true,
	MethodHead:   true,
}

// Config describes one request.
type Config struct {
	Method  string
	URL     string
	Params  map[string]any
	Data    any
	Headers headers.Map

	// A nil chain means "use the client default"; an empty one disables it.
	TransformRequest  transform.Chain
	TransformResponse transform.Chain

	WithCredentials *bool
	ResponseType    string
	Timeout         time.Duration
}

// Bool returns a pointer to b, for optional Config fields.
func Bool(b bool) *bool {
	return &b
}

// Clone returns a copy of c with its own header and params maps.
func (c *Config) Clone() *Config {
	out := *c
	if c.Headers != nil {
		out.Headers = c.Headers.Clone()
	}
	if c.Params != nil {
		out.Params = make(map[string]any, len(c.Params))
		for k, v := range c.Params {
			out.Params[k] = v
		}
	}
	if c.WithCredentials != nil {
		out.WithCredentials = Bool(*c.WithCredentials)
	}
	return &out
}

// normalize copies c over the defaults, resolves headers and validates the
// result. The caller's Config is never modified.
func normalize(c Config, d DefaultValues) (*Config, error) {
	conf := c.Clone()

	if conf.TransformRequest == nil {
		conf.TransformRequest = d.TransformRequest
	}
	if conf.TransformResponse == nil {
		conf.TransformResponse = d.TransformResponse
	}

	conf.Method = strings.ToUpper(strings.TrimSpace(conf.Method))
	if conf.Method == "" {
		conf.Method = MethodGet
	}
	if !methods[conf.Method] {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedMethod, c.Method)
	}
	if strings.TrimSpace(conf.URL) == "" {
		return nil, ErrMissingURL
	}

	conf.Headers = headers.Merge(c.Headers, d.Headers.Common, d.Headers.Methods[strings.ToLower(conf.Method)])

	if conf.WithCredentials == nil && d.WithCredentials != nil {
		conf.WithCredentials = Bool(*d.WithCredentials)
	}
	if conf.Timeout < 0 {
		conf.Timeout = 0
	}
	if conf.Timeout == 0 && d.Timeout > 0 {
		conf.Timeout = d.Timeout
	}

	return conf, nil
}
