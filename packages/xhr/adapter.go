package xhr

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/abdul-hamid-achik/qxhr/packages/future"
	"github.com/abdul-hamid-achik/qxhr/packages/headers"
	"github.com/abdul-hamid-achik/qxhr/packages/transport"
	"github.com/abdul-hamid-achik/qxhr/packages/urlbuilder"
	"github.com/sirupsen/logrus"
)

// abortedStatus is the locally observed status of an exchange cancelled by
// its timeout. It is outside every real HTTP status range.
const abortedStatus = -1

// legacyNoContent is reported by some transports instead of 204.
const legacyNoContent = 1223

func normalizeStatus(status int) int {
	if status == legacyNoContent {
		status = 204
	}
	if status < 0 {
		return 0
	}
	return status
}

// exchange is the state of one transport round trip.
type exchange struct {
	client *Client
	conf   *Config
	tr     transport.Transport
	d      *future.Deferred[*Response]
	log    logrus.FieldLogger
	start  time.Time

	mu       sync.Mutex
	status   int
	settled  bool
	timedOut bool
	timer    *time.Timer
}

// send performs the exchange for an already normalized and transformed
// request. The returned future settles exactly once.
func (c *Client) send(conf *Config, body any) *future.Future[*Response] {
	url := urlbuilder.Build(conf.URL, conf.Params)
	x := &exchange{
		client: c,
		conf:   conf,
		tr:     c.factory(),
		d:      future.NewDeferred[*Response](),
		start:  time.Now(),
		log: c.logger.WithFields(logrus.Fields{
			"method": conf.Method,
			"url":    url,
		}),
	}

	c.pending.add(conf)
	x.log.Debug("exchange started")

	x.tr.OnReadyStateChange(func() {
		if x.tr.ReadyState() == transport.Done {
			x.complete()
		}
	})
	x.tr.OnProgress(func(p transport.Progress) {
		x.d.Notify(p)
	})

	if err := x.tr.Open(conf.Method, url); err != nil {
		x.fail(err)
		return x.d.Future()
	}

	for name, value := range conf.Headers.Literals() {
		if value != "" {
			x.tr.SetRequestHeader(name, value)
		}
	}
	if conf.WithCredentials != nil && *conf.WithCredentials {
		x.tr.SetWithCredentials(true)
	}
	if conf.ResponseType != "" {
		x.tr.SetResponseType(conf.ResponseType)
	}

	reader, err := bodyReader(body)
	if err != nil {
		x.fail(err)
		return x.d.Future()
	}
	if err := x.tr.Send(reader); err != nil {
		x.fail(err)
		return x.d.Future()
	}

	if conf.Timeout > 0 {
		x.mu.Lock()
		if !x.settled {
			x.timer = time.AfterFunc(conf.Timeout, x.onTimeout)
		}
		x.mu.Unlock()
	}

	return x.d.Future()
}

// onTimeout marks the exchange aborted, asks the transport to stop and
// settles right away so a slow or ignored abort cannot delay the caller.
func (x *exchange) onTimeout() {
	x.mu.Lock()
	if x.settled {
		x.mu.Unlock()
		return
	}
	x.status = abortedStatus
	x.timedOut = true
	x.mu.Unlock()

	x.log.WithField("timeout", x.conf.Timeout).Debug("exchange timed out, aborting")
	x.tr.Abort()
	x.complete()
}

func (x *exchange) complete() {
	x.mu.Lock()
	if x.settled {
		x.mu.Unlock()
		return
	}
	x.settled = true
	if x.timer != nil {
		x.timer.Stop()
	}
	aborted := x.status == abortedStatus
	timedOut := x.timedOut
	x.mu.Unlock()

	var (
		data       any
		rawHeaders string
		status     = abortedStatus
	)
	if !aborted {
		rawHeaders = x.tr.AllResponseHeaders()
		if x.conf.ResponseType != "" {
			data = x.tr.Response()
		} else {
			data = x.tr.ResponseText()
		}
		status = x.tr.Status()
	}

	x.settle(&Response{
		Data:    data,
		Status:  normalizeStatus(status),
		Headers: headers.NewGetter(rawHeaders),
		Config:  x.conf,
	}, timedOut, nil)
}

// fail settles an exchange the transport could not start.
func (x *exchange) fail(cause error) {
	x.mu.Lock()
	if x.settled {
		x.mu.Unlock()
		return
	}
	x.settled = true
	x.mu.Unlock()

	x.settle(&Response{
		Status:  0,
		Headers: headers.NewGetter(""),
		Config:  x.conf,
	}, false, cause)
}

func (x *exchange) settle(resp *Response, timedOut bool, cause error) {
	x.client.pending.remove(x.conf)

	log := x.log.WithFields(logrus.Fields{
		"status":   resp.Status,
		"duration": time.Since(x.start),
	})
	if isSuccess(resp.Status) {
		log.Debug("exchange completed")
		x.d.Resolve(resp)
		return
	}

	if cause != nil {
		log = log.WithError(cause)
	}
	log.Debug("exchange failed")
	x.d.Reject(&ResponseError{Response: resp, TimedOut: timedOut, Cause: cause})
}

// bodyReader turns a transformed body into what the transport sends.
// Empty bodies are sent as nil.
func bodyReader(body any) (io.Reader, error) {
	switch b := body.(type) {
	case nil:
		return nil, nil
	case string:
		if b == "" {
			return nil, nil
		}
		return strings.NewReader(b), nil
	case []byte:
		if len(b) == 0 {
			return nil, nil
		}
		return bytes.NewReader(b), nil
	case json.RawMessage:
		if len(b) == 0 {
			return nil, nil
		}
		return bytes.NewReader(b), nil
	case io.Reader:
		return b, nil
	default:
		return nil, fmt.Errorf("xhr: cannot send body of type %T, add a request transform", body)
	}
}
