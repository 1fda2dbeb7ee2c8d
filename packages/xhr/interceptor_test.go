package xhr

import (
	"errors"
	"sync"
	"testing"

	"github.com/abdul-hamid-achik/qxhr/packages/transport/transporttest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) add(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, s)
}

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func tracing(rec *recorder, name string) Interceptor {
	return Interceptor{
		Request: func(c *Config) (*Config, error) {
			rec.add(name + ".request")
			return c, nil
		},
		Response: func(r *Response) (*Response, error) {
			rec.add(name + ".response")
			return r, nil
		},
	}
}

func TestInterceptors_RunInRegistrationOrder(t *testing.T) {
	rec := &recorder{}
	c, _ := newTestClient(ok, WithInterceptors(tracing(rec, "a"), tracing(rec, "b")))

	_, err := c.Get("http://api.test/", nil).Wait()
	require.NoError(t, err)

	assert.Equal(t, []string{"a.request", "b.request", "a.response", "b.response"}, rec.list())
}

func TestInterceptors_RequestRewrite(t *testing.T) {
	c, srv := newTestClient(ok)
	c.Interceptors().Use(Interceptor{
		Request: func(conf *Config) (*Config, error) {
			conf.Headers.SetString("X-Token", "abc")
			conf.URL += "?v=1"
			return conf, nil
		},
	})

	_, err := c.Get("http://api.test/", nil).Wait()
	require.NoError(t, err)

	req := srv.Last().Request()
	assert.Equal(t, "abc", req.Header["X-Token"])
	assert.Equal(t, "http://api.test/?v=1", req.URL)
}

func TestInterceptors_RequestErrorShortCircuits(t *testing.T) {
	rec := &recorder{}
	denied := errors.New("denied")

	c, srv := newTestClient(ok)
	c.Interceptors().Use(Interceptor{
		Request: func(*Config) (*Config, error) { return nil, denied },
	})
	c.Interceptors().Use(tracing(rec, "later"))
	c.Interceptors().Use(Interceptor{
		ResponseError: func(err error) (*Response, error) {
			rec.add("responseError")
			return nil, err
		},
	})

	_, err := c.Get("http://api.test/", nil).Wait()
	assert.ErrorIs(t, err, denied)
	assert.Empty(t, srv.Fakes())
	assert.Equal(t, []string{"responseError"}, rec.list())
}

func TestInterceptors_RequestErrorRecovers(t *testing.T) {
	c, srv := newTestClient(ok)
	c.Interceptors().Use(Interceptor{
		Request: func(*Config) (*Config, error) { return nil, errors.New("first") },
	})
	c.Interceptors().Use(Interceptor{
		RequestError: func(error) (*Config, error) {
			return &Config{Method: MethodGet, URL: "http://fallback.test/", Headers: nil}, nil
		},
	})

	_, err := c.Get("http://api.test/", nil).Wait()
	require.NoError(t, err)
	assert.Equal(t, "http://fallback.test/", srv.Last().Request().URL)
}

func TestInterceptors_ResponseErrorRecovers(t *testing.T) {
	c, _ := newTestClient(func(*transporttest.Request) *transporttest.Reply {
		return transporttest.JSON(503, `{"retry":true}`)
	})
	c.Interceptors().Use(Interceptor{
		ResponseError: func(err error) (*Response, error) {
			re, ok := AsResponseError(err)
			if !ok {
				return nil, err
			}
			return &Response{Status: 200, Data: "cached", Headers: re.Response.Headers, Config: re.Response.Config}, nil
		},
	})

	resp, err := c.Get("http://api.test/", nil).Wait()
	require.NoError(t, err)
	assert.Equal(t, "cached", resp.Data)
}

func TestInterceptors_ResponseRejects(t *testing.T) {
	c, _ := newTestClient(ok)
	bad := errors.New("bad payload")
	c.Interceptors().Use(Interceptor{
		Response: func(*Response) (*Response, error) { return nil, bad },
	})

	_, err := c.Get("http://api.test/", nil).Wait()
	assert.ErrorIs(t, err, bad)
}

func TestInterceptors_PanicBecomesError(t *testing.T) {
	c, _ := newTestClient(ok)
	c.Interceptors().Use(Interceptor{
		Request: func(*Config) (*Config, error) { panic("kaboom") },
	})

	_, err := c.Get("http://api.test/", nil).Wait()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kaboom")
}

func TestInterceptors_Eject(t *testing.T) {
	rec := &recorder{}
	c, _ := newTestClient(ok)

	id := c.Interceptors().Use(tracing(rec, "a"))
	c.Interceptors().Use(tracing(rec, "b"))
	assert.Equal(t, 2, c.Interceptors().Len())

	assert.True(t, c.Interceptors().Eject(id))
	assert.False(t, c.Interceptors().Eject(id))

	_, err := c.Get("http://api.test/", nil).Wait()
	require.NoError(t, err)
	assert.Equal(t, []string{"b.request", "b.response"}, rec.list())

	c.Interceptors().Clear()
	assert.Equal(t, 0, c.Interceptors().Len())
}

func TestInterceptors_NilConfigRejected(t *testing.T) {
	c, srv := newTestClient(ok)
	c.Interceptors().Use(Interceptor{
		Request: func(*Config) (*Config, error) { return nil, nil },
	})

	_, err := c.Get("http://api.test/", nil).Wait()
	assert.ErrorIs(t, err, errNilConfig)
	require.NotNil(t, ConfigOf(err))
	assert.Equal(t, MethodGet, ConfigOf(err).Method)
	assert.Empty(t, srv.Fakes())
}
