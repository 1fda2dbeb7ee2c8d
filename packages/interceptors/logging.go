package interceptors

import (
	"github.com/abdul-hamid-achik/qxhr/packages/xhr"
	"github.com/sirupsen/logrus"
)

// Logging logs every request and its outcome on logger. Successful
// responses log at info, failures at warn.
func Logging(logger logrus.FieldLogger) xhr.Interceptor {
	t := &timing{}

	return xhr.Interceptor{
		Request: func(c *xhr.Config) (*xhr.Config, error) {
			t.start(c)
			logger.WithFields(logrus.Fields{
				"method": c.Method,
				"url":    c.URL,
			}).Debug("request")
			return c, nil
		},
		Response: func(r *xhr.Response) (*xhr.Response, error) {
			entry := logger.WithFields(responseFields(t, r))
			entry.Info("response")
			return r, nil
		},
		ResponseError: func(err error) (*xhr.Response, error) {
			entry := logger.WithError(err)
			if r := xhr.ResponseOf(err); r != nil {
				entry = entry.WithFields(responseFields(t, r))
			} else {
				t.forget(err)
			}
			entry.Warn("request failed")
			return nil, err
		},
	}
}

func responseFields(t *timing, r *xhr.Response) logrus.Fields {
	fields := logrus.Fields{"status": r.Status}
	if r.Config != nil {
		fields["method"] = r.Config.Method
		fields["url"] = r.Config.URL
	}
	if d, ok := t.stop(r.Config); ok {
		fields["duration"] = d
	}
	return fields
}
