package xhr

import (
	"context"
	"errors"

	"github.com/abdul-hamid-achik/qxhr/packages/future"
	"github.com/abdul-hamid-achik/qxhr/packages/headers"
	"github.com/abdul-hamid-achik/qxhr/packages/logging"
	"github.com/abdul-hamid-achik/qxhr/packages/transform"
	"github.com/abdul-hamid-achik/qxhr/packages/transport"
	"github.com/abdul-hamid-achik/qxhr/packages/transport/nethttp"
	"github.com/sirupsen/logrus"
)

// Client performs requests against its own Defaults, Interceptors and
// Pending list.
type Client struct {
	defaults     *Defaults
	interceptors *Interceptors
	pending      *Pending
	factory      transport.Factory
	logger       logrus.FieldLogger
}

type ClientOption func(*Client)

// New returns a Client over net/http with the JSON defaults.
func New(opts ...ClientOption) *Client {
	c := &Client{
		defaults:     NewDefaults(),
		interceptors: &Interceptors{},
		pending:      &Pending{},
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.factory == nil {
		c.factory = nethttp.NewClient().Factory()
	}
	if c.logger == nil {
		c.logger = logging.Discard()
	}

	return c
}

// WithTransport sets the factory used to create one transport per exchange.
func WithTransport(f transport.Factory) ClientOption {
	return func(c *Client) {
		c.factory = f
	}
}

// WithDefaults makes the client read d instead of fresh JSON defaults.
func WithDefaults(d *Defaults) ClientOption {
	return func(c *Client) {
		c.defaults = d
	}
}

// WithLogger sets the logger used for exchange diagnostics.
func WithLogger(l logrus.FieldLogger) ClientOption {
	return func(c *Client) {
		c.logger = l
	}
}

// WithInterceptors registers interceptors in order.
func WithInterceptors(is ...Interceptor) ClientOption {
	return func(c *Client) {
		for _, i := range is {
			c.interceptors.Use(i)
		}
	}
}

// Defaults returns the mutable defaults read on every request.
func (c *Client) Defaults() *Defaults {
	return c.defaults
}

// Interceptors returns the interceptor registry.
func (c *Client) Interceptors() *Interceptors {
	return c.interceptors
}

// Pending returns the in-flight request list.
func (c *Client) Pending() *Pending {
	return c.pending
}

// Request starts the request described by cfg. The future fulfils with a
// 2xx Response and otherwise fails with a *ResponseError, a *NotSentError
// when the request never reached the transport, or whatever error a response
// interceptor produced.
func (c *Client) Request(cfg Config) *future.Future[*Response] {
	defs := c.defaults.Snapshot()

	conf, err := normalize(cfg, defs)
	if err != nil {
		return future.Rejected[*Response](err)
	}

	interceptors := c.interceptors.List()

	chain := future.Resolved(conf)
	for _, i := range interceptors {
		if i.hasRequest() {
			chain = future.Chain(chain, i.Request, i.RequestError)
		}
	}

	resp := future.Bind(future.Chain(chain, nil, func(err error) (*Config, error) {
		return nil, notSent(conf, err)
	}), func(next *Config) *future.Future[*Response] {
		if next == nil {
			return future.Rejected[*Response](notSent(conf, errNilConfig))
		}
		return c.serverRequest(next)
	})

	for _, i := range interceptors {
		if i.hasResponse() {
			resp = future.Chain(resp, i.Response, i.ResponseError)
		}
	}

	return resp
}

// serverRequest transforms the request body, runs the exchange and
// transforms the response body on either outcome.
func (c *Client) serverRequest(conf *Config) *future.Future[*Response] {
	reqHeaders := headers.FromMap(conf.Headers.Literals())
	body, err := transform.Apply(conf.Data, reqHeaders, conf.TransformRequest)
	if err != nil {
		return future.Rejected[*Response](notSent(conf, err))
	}

	if body == nil {
		conf.Headers.Del("Content-Type")
	}

	sent := c.send(conf, body)

	return future.Then(sent, func(resp *Response) (*Response, error) {
		return transformResponse(resp, conf)
	}, func(err error) (*Response, error) {
		re, ok := AsResponseError(err)
		if !ok || re.Response == nil {
			return nil, err
		}
		// The failure keeps its status and timeout flag; a body that cannot
		// be transformed stays raw and the transform error joins the cause.
		data, terr := transform.Apply(re.Response.Data, re.Response.Headers, conf.TransformResponse)
		if terr != nil {
			re.Cause = errors.Join(re.Cause, terr)
			return nil, re
		}
		re.Response.Data = data
		return nil, re
	})
}

var errNilConfig = errors.New("xhr: request interceptor returned nil config")

// notSent tags err with conf unless it already names a request.
func notSent(conf *Config, err error) error {
	var ns *NotSentError
	if errors.As(err, &ns) {
		return err
	}
	return &NotSentError{Config: conf, Err: err}
}

func transformResponse(resp *Response, conf *Config) (*Response, error) {
	data, err := transform.Apply(resp.Data, resp.Headers, conf.TransformResponse)
	if err != nil {
		return nil, err
	}
	resp.Data = data
	if !isSuccess(resp.Status) {
		return nil, &ResponseError{Response: resp}
	}
	return resp, nil
}

// Do runs cfg and waits for the outcome. Cancelling ctx stops the wait but
// not the exchange; set Config.Timeout to bound the exchange itself.
func (c *Client) Do(ctx context.Context, cfg Config) (*Response, error) {
	return c.Request(cfg).Await(ctx)
}

func withDefaults(cfg *Config, method, url string) Config {
	var out Config
	if cfg != nil {
		out = *cfg
	}
	out.Method = method
	out.URL = url
	return out
}

// Get requests url with GET.
func (c *Client) Get(url string, cfg *Config) *future.Future[*Response] {
	return c.Request(withDefaults(cfg, MethodGet, url))
}

// Delete requests url with DELETE.
func (c *Client) Delete(url string, cfg *Config) *future.Future[*Response] {
	return c.Request(withDefaults(cfg, MethodDelete, url))
}

// Head requests url with HEAD.
func (c *Client) Head(url string, cfg *Config) *future.Future[*Response] {
	return c.Request(withDefaults(cfg, MethodHead, url))
}

// Post sends data to url with POST.
func (c *Client) Post(url string, data any, cfg *Config) *future.Future[*Response] {
	out := withDefaults(cfg, MethodPost, url)
	out.Data = data
	return c.Request(out)
}

// Put sends data to url with PUT.
func (c *Client) Put(url string, data any, cfg *Config) *future.Future[*Response] {
	out := withDefaults(cfg, MethodPut, url)
	out.Data = data
	return c.Request(out)
}

// Patch sends data to url with PATCH.
func (c *Client) Patch(url string, data any, cfg *Config) *future.Future[*Response] {
	out := withDefaults(cfg, MethodPatch, url)
	out.Data = data
	return c.Request(out)
}
