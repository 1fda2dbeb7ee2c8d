package interceptors

import (
	"net/url"
	"sync"
	"time"

	"github.com/abdul-hamid-achik/qxhr/packages/xhr"
)

// timing remembers when each request config entered the chain.
type timing struct {
	starts sync.Map
}

func (t *timing) start(c *xhr.Config) {
	t.starts.Store(c, time.Now())
}

// stop returns how long ago c started. Configs that never passed start, or
// were replaced by a later interceptor, report false.
func (t *timing) stop(c *xhr.Config) (time.Duration, bool) {
	if c == nil {
		return 0, false
	}
	v, ok := t.starts.LoadAndDelete(c)
	if !ok {
		return 0, false
	}
	return time.Since(v.(time.Time)), true
}

// forget drops the start of a request that failed without a response.
func (t *timing) forget(err error) bool {
	_, ok := t.stop(xhr.ConfigOf(err))
	return ok
}

// endpoint is the low-cardinality label for a request URL.
func endpoint(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}
	return u.Host + u.Path
}
