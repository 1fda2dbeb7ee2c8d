package xhr

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/abdul-hamid-achik/qxhr/packages/headers"
	"github.com/abdul-hamid-achik/qxhr/packages/transform"
	"github.com/abdul-hamid-achik/qxhr/packages/transport"
	"github.com/abdul-hamid-achik/qxhr/packages/transport/transporttest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(handler transporttest.HandlerFunc, opts ...ClientOption) (*Client, *transporttest.Server) {
	srv := transporttest.NewServer(handler)
	opts = append([]ClientOption{WithTransport(srv.Factory())}, opts...)
	return New(opts...), srv
}

func ok(*transporttest.Request) *transporttest.Reply {
	return transporttest.JSON(200, `{}`)
}

func TestRequest_DefaultHeaders(t *testing.T) {
	c, srv := newTestClient(ok)

	_, err := c.Get("http://api.test/items", nil).Wait()
	require.NoError(t, err)

	req := srv.Last().Request()
	assert.Equal(t, "GET", req.Method)
	assert.Equal(t, DefaultAccept, req.Header["Accept"])
	assert.NotContains(t, req.Header, "Content-Type")
	assert.False(t, req.HasBody)
}

func TestRequest_PostSerializesJSON(t *testing.T) {
	c, srv := newTestClient(ok)

	_, err := c.Post("http://api.test/items", map[string]any{"name": "widget", "qty": 2}, nil).Wait()
	require.NoError(t, err)

	req := srv.Last().Request()
	assert.Equal(t, "POST", req.Method)
	assert.Equal(t, ContentTypeJSON, req.Header["Content-Type"])
	assert.JSONEq(t, `{"name":"widget","qty":2}`, string(req.Body))
}

func TestRequest_RawBodySentAsIs(t *testing.T) {
	c, srv := newTestClient(ok)

	_, err := c.Put("http://api.test/items/1", "plain text", nil).Wait()
	require.NoError(t, err)

	assert.Equal(t, "plain text", string(srv.Last().Request().Body))
}

func TestRequest_ContentTypeDroppedWithoutBody(t *testing.T) {
	c, srv := newTestClient(ok)

	_, err := c.Post("http://api.test/ping", nil, &Config{
		Headers: headers.FromStrings(map[string]string{"content-type": "text/plain"}),
	}).Wait()
	require.NoError(t, err)

	req := srv.Last().Request()
	assert.NotContains(t, req.Header, "Content-Type")
	assert.NotContains(t, req.Header, "content-type")
	assert.False(t, req.HasBody)
}

func TestRequest_TypedNilBodySendsNothing(t *testing.T) {
	c, srv := newTestClient(ok)

	_, err := c.Post("http://api.test/ping", map[string]any(nil), nil).Wait()
	require.NoError(t, err)

	req := srv.Last().Request()
	assert.NotContains(t, req.Header, "Content-Type")
	assert.False(t, req.HasBody)
	assert.Empty(t, req.Body)
}

func TestRequest_HeadersCaseInsensitive(t *testing.T) {
	c, srv := newTestClient(ok)

	_, err := c.Post("http://api.test/items", "x", &Config{
		Headers: headers.FromStrings(map[string]string{
			"accept":       "text/html",
			"CONTENT-TYPE": "text/plain",
		}),
	}).Wait()
	require.NoError(t, err)

	req := srv.Last().Request()
	assert.Equal(t, "text/html", req.Header["accept"])
	assert.Equal(t, "text/plain", req.Header["CONTENT-TYPE"])
	assert.NotContains(t, req.Header, "Accept")
	assert.NotContains(t, req.Header, "Content-Type")
}

func TestRequest_ComputedHeaders(t *testing.T) {
	c, srv := newTestClient(ok)

	var calls int
	c.Defaults().SetHeader(CommonHeaders, "X-Call", headers.Computed(func() (string, bool) {
		calls++
		return string(rune('0' + calls)), true
	}))
	c.Defaults().SetHeader(CommonHeaders, "X-Absent", headers.Computed(func() (string, bool) {
		return "", false
	}))

	for i := 0; i < 2; i++ {
		_, err := c.Get("http://api.test/", nil).Wait()
		require.NoError(t, err)
	}

	fakes := srv.Fakes()
	require.Len(t, fakes, 2)
	assert.Equal(t, "1", fakes[0].Request().Header["X-Call"])
	assert.Equal(t, "2", fakes[1].Request().Header["X-Call"])
	assert.NotContains(t, fakes[0].Request().Header, "X-Absent")
}

func TestRequest_MethodDefaultOverridesCommon(t *testing.T) {
	c, srv := newTestClient(ok)
	c.Defaults().SetHeader(CommonHeaders, "x-mode", headers.Literal("common"))
	c.Defaults().SetHeader("GET", "X-Mode", headers.Literal("get"))

	_, err := c.Get("http://api.test/", nil).Wait()
	require.NoError(t, err)

	req := srv.Last().Request()
	assert.Equal(t, "get", req.Header["X-Mode"])
	assert.NotContains(t, req.Header, "x-mode")
}

func TestRequest_ParamsSorted(t *testing.T) {
	c, srv := newTestClient(ok)

	_, err := c.Get("http://api.test/search", &Config{
		Params: map[string]any{"q": "a b", "page": 2, "empty": nil, "tag": []string{"x", "y"}},
	}).Wait()
	require.NoError(t, err)

	assert.Equal(t, "http://api.test/search?page=2&q=a%20b&tag=x&tag=y", srv.Last().Request().URL)
}

func TestRequest_DecodesJSON(t *testing.T) {
	c, _ := newTestClient(func(*transporttest.Request) *transporttest.Reply {
		return transporttest.JSON(200, `{"foo":"bar"}`)
	})

	resp, err := c.Get("http://api.test/json", nil).Wait()
	require.NoError(t, err)

	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "bar", data["foo"])
	assert.Equal(t, 200, resp.Status)
	assert.Equal(t, "application/json", resp.Header("content-type"))
	assert.Equal(t, "GET", resp.Config.Method)
}

func TestRequest_TextNotDecoded(t *testing.T) {
	c, _ := newTestClient(func(*transporttest.Request) *transporttest.Reply {
		return &transporttest.Reply{Status: 200, Headers: "Content-Type: text/plain\r\n", Body: `{"foo":"bar"}`}
	})

	resp, err := c.Get("http://api.test/text", nil).Wait()
	require.NoError(t, err)
	assert.Equal(t, `{"foo":"bar"}`, resp.Data)
}

func TestRequest_ErrorStatusRejectsWithData(t *testing.T) {
	c, _ := newTestClient(func(*transporttest.Request) *transporttest.Reply {
		return transporttest.JSON(404, `{"error":"not found"}`)
	})

	_, err := c.Get("http://api.test/missing", nil).Wait()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrStatus))

	re, ok := AsResponseError(err)
	require.True(t, ok)
	assert.Equal(t, 404, re.Response.Status)
	assert.Equal(t, map[string]any{"error": "not found"}, re.Response.Data)
	assert.Equal(t, 404, StatusOf(err))
	assert.Contains(t, err.Error(), "http 404 Not Found")
}

func TestRequest_TimeoutKeepsFlagThroughTransforms(t *testing.T) {
	c, _ := newTestClient(func(*transporttest.Request) *transporttest.Reply {
		return &transporttest.Reply{Status: 200, Delay: 500 * time.Millisecond}
	})

	_, err := c.Get("http://api.test/slow", &Config{Timeout: 30 * time.Millisecond}).Wait()

	re, ok := AsResponseError(err)
	require.True(t, ok)
	assert.True(t, re.TimedOut)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.NotErrorIs(t, err, ErrNetwork)
	assert.Contains(t, err.Error(), "request timed out")
}

func TestRequest_ErrorStatusWithMalformedJSON(t *testing.T) {
	c, _ := newTestClient(func(*transporttest.Request) *transporttest.Reply {
		return transporttest.JSON(404, `{"error":`)
	})

	_, err := c.Get("http://api.test/missing", nil).Wait()
	require.Error(t, err)

	re, ok := AsResponseError(err)
	require.True(t, ok)
	assert.ErrorIs(t, err, ErrStatus)
	assert.Equal(t, 404, StatusOf(err))
	assert.Equal(t, `{"error":`, re.Response.Data)
	require.Error(t, re.Cause)
	assert.Contains(t, err.Error(), "http 404 Not Found")
}

func TestRequest_LegacyNoContent(t *testing.T) {
	c, _ := newTestClient(func(*transporttest.Request) *transporttest.Reply {
		return &transporttest.Reply{Status: 1223}
	})

	resp, err := c.Delete("http://api.test/items/1", nil).Wait()
	require.NoError(t, err)
	assert.Equal(t, 204, resp.Status)
}

func TestRequest_NegativeStatusIsNetworkError(t *testing.T) {
	c, _ := newTestClient(func(*transporttest.Request) *transporttest.Reply {
		return &transporttest.Reply{Status: -5}
	})

	_, err := c.Get("http://api.test/", nil).Wait()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNetwork))
	assert.Equal(t, 0, StatusOf(err))
}

func TestRequest_Timeout(t *testing.T) {
	c, srv := newTestClient(func(*transporttest.Request) *transporttest.Reply {
		return &transporttest.Reply{Status: 200, Body: "late", Delay: 700 * time.Millisecond}
	})

	start := time.Now()
	_, err := c.Get("http://api.test/slow", &Config{Timeout: 100 * time.Millisecond}).Wait()
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTimeout))
	assert.Equal(t, 0, StatusOf(err))
	assert.Less(t, elapsed, 500*time.Millisecond)
	assert.True(t, srv.Last().Aborted())
	assert.Equal(t, 0, c.Pending().Len())
}

func TestRequest_TimeoutSettlesWhenAbortIgnored(t *testing.T) {
	c, _ := newTestClient(func(*transporttest.Request) *transporttest.Reply {
		return &transporttest.Reply{Status: 200, Delay: 700 * time.Millisecond, IgnoreAbort: true}
	})

	start := time.Now()
	_, err := c.Get("http://api.test/slow", &Config{Timeout: 50 * time.Millisecond}).Wait()

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTimeout))
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestRequest_DefaultTimeout(t *testing.T) {
	c, _ := newTestClient(func(*transporttest.Request) *transporttest.Reply {
		return &transporttest.Reply{Status: 200, Delay: 700 * time.Millisecond}
	})
	c.Defaults().Update(func(v *DefaultValues) { v.Timeout = 50 * time.Millisecond })

	_, err := c.Get("http://api.test/slow", nil).Wait()
	assert.True(t, errors.Is(err, ErrTimeout))
}

func TestRequest_PendingTracksInFlight(t *testing.T) {
	c, srv := newTestClient(func(*transporttest.Request) *transporttest.Reply { return nil })

	f1 := c.Get("http://api.test/a", nil)
	f2 := c.Get("http://api.test/a", nil)

	require.Eventually(t, func() bool { return c.Pending().Len() == 2 }, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return len(srv.Fakes()) == 2 }, time.Second, 5*time.Millisecond)

	list := c.Pending().List()
	assert.Equal(t, "http://api.test/a", list[0].URL)
	assert.NotSame(t, list[0], list[1])

	for _, f := range srv.Fakes() {
		require.Eventually(t, func() bool { return f.ReadyState() == transport.Opened }, time.Second, 5*time.Millisecond)
		f.Complete(200, "", "ok", nil)
	}

	_, err := f1.Wait()
	require.NoError(t, err)
	_, err = f2.Wait()
	require.NoError(t, err)
	assert.Equal(t, 0, c.Pending().Len())
}

func TestRequest_ProgressForwarded(t *testing.T) {
	c, srv := newTestClient(func(*transporttest.Request) *transporttest.Reply { return nil })

	f := c.Get("http://api.test/download", nil)

	var (
		mu  sync.Mutex
		got []any
	)
	f.OnProgress(func(p any) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, p)
	})

	require.Eventually(t, func() bool {
		last := srv.Last()
		return last != nil && last.ReadyState() == transport.Opened
	}, time.Second, 5*time.Millisecond)

	fake := srv.Last()
	fake.EmitProgress(transport.Progress{Loaded: 5, Total: 10})
	fake.EmitProgress(transport.Progress{Loaded: 10, Total: 10})
	fake.Complete(200, "", "done", nil)

	_, err := f.Wait()
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []any{
		transport.Progress{Loaded: 5, Total: 10},
		transport.Progress{Loaded: 10, Total: 10},
	}, got)
}

func TestRequest_WithCredentials(t *testing.T) {
	c, srv := newTestClient(ok)

	_, err := c.Get("http://api.test/", nil).Wait()
	require.NoError(t, err)
	assert.False(t, srv.Last().Request().WithCredentials)

	c.Defaults().SetWithCredentials(true)
	_, err = c.Get("http://api.test/", nil).Wait()
	require.NoError(t, err)
	assert.True(t, srv.Last().Request().WithCredentials)

	_, err = c.Get("http://api.test/", &Config{WithCredentials: Bool(false)}).Wait()
	require.NoError(t, err)
	assert.False(t, srv.Last().Request().WithCredentials)
}

func TestRequest_ResponseType(t *testing.T) {
	c, srv := newTestClient(func(*transporttest.Request) *transporttest.Reply {
		return &transporttest.Reply{Status: 200, Body: "abc", Response: []byte("abc")}
	})

	resp, err := c.Get("http://api.test/blob", &Config{ResponseType: "arraybuffer"}).Wait()
	require.NoError(t, err)
	assert.Equal(t, "arraybuffer", srv.Last().Request().ResponseType)
	assert.Equal(t, []byte("abc"), resp.Data)
}

func TestRequest_Validation(t *testing.T) {
	c, srv := newTestClient(ok)

	_, err := c.Request(Config{Method: "TRACE", URL: "http://api.test/"}).Wait()
	assert.ErrorIs(t, err, ErrUnsupportedMethod)

	_, err = c.Request(Config{Method: "get"}).Wait()
	assert.ErrorIs(t, err, ErrMissingURL)

	assert.Empty(t, srv.Fakes())
}

func TestRequest_MethodDefaultsToGet(t *testing.T) {
	c, srv := newTestClient(ok)

	_, err := c.Request(Config{URL: "http://api.test/"}).Wait()
	require.NoError(t, err)
	assert.Equal(t, "GET", srv.Last().Request().Method)
}

func TestRequest_CallerConfigUntouched(t *testing.T) {
	c, _ := newTestClient(ok)

	cfg := Config{
		Method:  "post",
		URL:     "http://api.test/",
		Data:    map[string]any{"a": 1},
		Headers: headers.FromStrings(map[string]string{"X-Trace": "1"}),
	}
	_, err := c.Request(cfg).Wait()
	require.NoError(t, err)

	assert.Equal(t, "post", cfg.Method)
	assert.Len(t, cfg.Headers, 1)
	assert.Nil(t, cfg.TransformRequest)
}

func TestRequest_CustomTransforms(t *testing.T) {
	c, srv := newTestClient(func(*transporttest.Request) *transporttest.Reply {
		return &transporttest.Reply{Status: 200, Body: "hello"}
	})

	upper := func(body any, _ *headers.Getter) (any, error) {
		return "<" + body.(string) + ">", nil
	}
	resp, err := c.Post("http://api.test/", "x", &Config{
		TransformRequest:  transform.Single(upper),
		TransformResponse: transform.Single(upper),
	}).Wait()
	require.NoError(t, err)

	assert.Equal(t, "<x>", string(srv.Last().Request().Body))
	assert.Equal(t, "<hello>", resp.Data)
}

func TestRequest_TransformErrorRejects(t *testing.T) {
	c, srv := newTestClient(ok)

	boom := errors.New("boom")
	_, err := c.Post("http://api.test/", "x", &Config{
		TransformRequest: transform.Single(func(any, *headers.Getter) (any, error) { return nil, boom }),
	}).Wait()

	assert.ErrorIs(t, err, boom)
	assert.Empty(t, srv.Fakes())

	var ns *NotSentError
	require.ErrorAs(t, err, &ns)
	require.NotNil(t, ConfigOf(err))
	assert.Equal(t, "http://api.test/", ConfigOf(err).URL)
	assert.Nil(t, ResponseOf(err))
}

func TestResponseOf(t *testing.T) {
	resp := &Response{Status: 404, Config: &Config{URL: "http://api.test/"}}
	err := fmt.Errorf("wrapped: %w", &ResponseError{Response: resp})

	assert.Same(t, resp, ResponseOf(err))
	assert.Same(t, resp.Config, ConfigOf(err))
	assert.Nil(t, ResponseOf(errors.New("plain")))
	assert.Nil(t, ConfigOf(errors.New("plain")))
}

func TestRequest_DefaultsReadPerCall(t *testing.T) {
	c, srv := newTestClient(ok)

	_, err := c.Get("http://api.test/", nil).Wait()
	require.NoError(t, err)
	assert.NotContains(t, srv.Last().Request().Header, "Authorization")

	c.Defaults().SetHeader(CommonHeaders, "Authorization", headers.Literal("Bearer t"))
	_, err = c.Get("http://api.test/", nil).Wait()
	require.NoError(t, err)
	assert.Equal(t, "Bearer t", srv.Last().Request().Header["Authorization"])

	c.Defaults().DelHeader(CommonHeaders, "authorization")
	_, err = c.Get("http://api.test/", nil).Wait()
	require.NoError(t, err)
	assert.NotContains(t, srv.Last().Request().Header, "Authorization")
}

func TestDo_ContextCancel(t *testing.T) {
	c, _ := newTestClient(func(*transporttest.Request) *transporttest.Reply { return nil })

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := c.Do(ctx, Config{URL: "http://api.test/"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRequest_NetworkErrorFromTransport(t *testing.T) {
	failing := func() transport.Transport { return &openFailure{Fake: transporttest.NewFake(nil)} }
	c := New(WithTransport(failing))

	_, err := c.Get("http://api.test/", nil).Wait()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNetwork)
	assert.ErrorIs(t, err, errRefused)
	assert.Equal(t, 0, c.Pending().Len())
}

var errRefused = errors.New("refused")

type openFailure struct {
	*transporttest.Fake
}

func (o *openFailure) Open(string, string) error {
	return errRefused
}
