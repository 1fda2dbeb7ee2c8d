package stats

import (
	"net/url"
	"sync"
	"time"

	"github.com/abdul-hamid-achik/qxhr/packages/xhr"
)

// Interceptor returns an interceptor recording every exchange that reaches
// the transport into r.
func (r *Recorder) Interceptor() xhr.Interceptor {
	var starts sync.Map

	record := func(resp *xhr.Response, failed, timedOut bool) {
		if resp == nil || resp.Config == nil {
			return
		}
		v, ok := starts.LoadAndDelete(resp.Config)
		if !ok {
			return
		}
		r.Record(Result{
			Endpoint: endpointOf(resp.Config),
			Status:   resp.Status,
			Duration: time.Since(v.(time.Time)),
			Failed:   failed,
			TimedOut: timedOut,
		})
	}

	return xhr.Interceptor{
		Request: func(c *xhr.Config) (*xhr.Config, error) {
			starts.Store(c, time.Now())
			return c, nil
		},
		Response: func(resp *xhr.Response) (*xhr.Response, error) {
			record(resp, false, false)
			return resp, nil
		},
		ResponseError: func(err error) (*xhr.Response, error) {
			if resp := xhr.ResponseOf(err); resp != nil {
				re, _ := xhr.AsResponseError(err)
				record(resp, true, re != nil && re.TimedOut)
			} else if c := xhr.ConfigOf(err); c != nil {
				starts.Delete(c)
			}
			return nil, err
		},
	}
}

func endpointOf(c *xhr.Config) string {
	u, err := url.Parse(c.URL)
	if err != nil || u.Host == "" {
		return c.Method + " " + c.URL
	}
	return c.Method + " " + u.Host + u.Path
}
