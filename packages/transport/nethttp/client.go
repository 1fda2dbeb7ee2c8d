// Package nethttp binds the XHR-shaped transport contract to net/http.
//
// It provides:
//   - A shared, tuned http.Client per Client value
//   - Cookie handling only for exchanges sent with credentials
//   - gzip, deflate and brotli response decoding
//   - Download progress reporting
package nethttp

import (
	"crypto/tls"
	"net/http"
	"net/http/cookiejar"
	neturl "net/url"
	"time"

	"github.com/abdul-hamid-achik/qxhr/packages/transport"
)

const (
	// DefaultMaxRedirects is the maximum number of redirects to follow
	DefaultMaxRedirects = 10
	// DefaultMaxIdleConns is the maximum number of idle connections in the pool
	DefaultMaxIdleConns = 100
	// DefaultMaxIdleConnsPerHost is the maximum number of idle connections per host
	DefaultMaxIdleConnsPerHost = 10
	// DefaultIdleConnTimeout is how long idle connections stay in the pool
	DefaultIdleConnTimeout = 90 * time.Second
)

// Client creates Transports that share one connection pool and cookie jar.
type Client struct {
	plain       *http.Client
	credentials *http.Client

	followRedirect bool
	maxRedirects   int
	validateSSL    bool
	proxyURL       string
	compress       bool
	jar            http.CookieJar
}

type ClientOption func(*Client)

func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		followRedirect: true,
		maxRedirects:   DefaultMaxRedirects,
		validateSSL:    true,
		compress:       true,
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.jar == nil {
		// cookiejar.New only fails on a bad PublicSuffixList
		c.jar, _ = cookiejar.New(nil)
	}

	rt := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        DefaultMaxIdleConns,
		MaxIdleConnsPerHost: DefaultMaxIdleConnsPerHost,
		IdleConnTimeout:     DefaultIdleConnTimeout,
	}

	if !c.validateSSL {
		rt.TLSClientConfig = &tls.Config{
			InsecureSkipVerify: true,
		}
	}

	if c.proxyURL != "" {
		proxyURL, err := neturl.Parse(c.proxyURL)
		if err == nil {
			rt.Proxy = http.ProxyURL(proxyURL)
		}
	}

	redirectPolicy := func(req *http.Request, via []*http.Request) error {
		if !c.followRedirect {
			return http.ErrUseLastResponse
		}
		if len(via) >= c.maxRedirects {
			return http.ErrUseLastResponse
		}
		return nil
	}

	c.plain = &http.Client{
		Transport:     rt,
		CheckRedirect: redirectPolicy,
	}
	c.credentials = &http.Client{
		Transport:     rt,
		CheckRedirect: redirectPolicy,
		Jar:           c.jar,
	}

	return c
}

func WithFollowRedirects(follow bool) ClientOption {
	return func(c *Client) {
		c.followRedirect = follow
	}
}

func WithMaxRedirects(max int) ClientOption {
	return func(c *Client) {
		c.maxRedirects = max
	}
}

// WithValidateSSL enables or disables SSL certificate validation
func WithValidateSSL(validate bool) ClientOption {
	return func(c *Client) {
		c.validateSSL = validate
	}
}

// WithProxy sets the proxy URL for all requests
func WithProxy(proxyURL string) ClientOption {
	return func(c *Client) {
		c.proxyURL = proxyURL
	}
}

// WithCompression controls whether Accept-Encoding is advertised and
// compressed responses are decoded.
func WithCompression(enabled bool) ClientOption {
	return func(c *Client) {
		c.compress = enabled
	}
}

// WithCookieJar sets the jar used by exchanges sent with credentials.
func WithCookieJar(jar http.CookieJar) ClientOption {
	return func(c *Client) {
		c.jar = jar
	}
}

// Jar returns the cookie jar used for credentialed exchanges.
func (c *Client) Jar() http.CookieJar {
	return c.jar
}

// NewTransport returns a transport for one exchange.
func (c *Client) NewTransport() *Transport {
	return &Transport{
		client: c,
		header: make(http.Header),
	}
}

// Factory adapts c to transport.Factory.
func (c *Client) Factory() transport.Factory {
	return func() transport.Transport {
		return c.NewTransport()
	}
}
