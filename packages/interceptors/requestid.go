package interceptors

import (
	"github.com/abdul-hamid-achik/qxhr/packages/headers"
	"github.com/abdul-hamid-achik/qxhr/packages/xhr"
	"github.com/google/uuid"
)

// DefaultRequestIDHeader is the header RequestID sets when given "".
const DefaultRequestIDHeader = "X-Request-Id"

// RequestID tags every request with a random UUID under header, unless the
// caller already set one.
func RequestID(header string) xhr.Interceptor {
	if header == "" {
		header = DefaultRequestIDHeader
	}
	return xhr.Interceptor{
		Request: func(c *xhr.Config) (*xhr.Config, error) {
			if c.Headers == nil {
				c.Headers = headers.Map{}
			}
			if !c.Headers.Has(header) {
				c.Headers.SetString(header, uuid.NewString())
			}
			return c, nil
		},
	}
}
