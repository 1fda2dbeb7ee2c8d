package history

import (
	"context"
	"sync"
	"time"

	"github.com/abdul-hamid-achik/qxhr/packages/xhr"
	"github.com/sirupsen/logrus"
)

// Interceptor records every exchange into s. Write failures are logged and
// never affect the request outcome.
func (s *Store) Interceptor(logger logrus.FieldLogger) xhr.Interceptor {
	var starts sync.Map

	record := func(resp *xhr.Response, timedOut bool, cause error) {
		if resp == nil || resp.Config == nil {
			return
		}
		v, ok := starts.LoadAndDelete(resp.Config)
		if !ok {
			return
		}
		started := v.(time.Time)

		e := Entry{
			StartedAt: started,
			Method:    resp.Config.Method,
			URL:       resp.Config.URL,
			Status:    resp.Status,
			Duration:  time.Since(started),
			TimedOut:  timedOut,
		}
		if cause != nil {
			e.Error = cause.Error()
		}
		if _, err := s.Add(context.Background(), e); err != nil {
			logger.WithError(err).Warn("failed to record request history")
		}
	}

	return xhr.Interceptor{
		Request: func(c *xhr.Config) (*xhr.Config, error) {
			starts.Store(c, time.Now())
			return c, nil
		},
		Response: func(resp *xhr.Response) (*xhr.Response, error) {
			record(resp, false, nil)
			return resp, nil
		},
		ResponseError: func(err error) (*xhr.Response, error) {
			if resp := xhr.ResponseOf(err); resp != nil {
				re, _ := xhr.AsResponseError(err)
				record(resp, re != nil && re.TimedOut, err)
			} else if c := xhr.ConfigOf(err); c != nil {
				starts.Delete(c)
			}
			return nil, err
		},
	}
}
