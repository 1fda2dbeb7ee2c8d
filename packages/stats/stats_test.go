package stats

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/abdul-hamid-achik/qxhr/packages/transport/transporttest"
	"github.com/abdul-hamid-achik/qxhr/packages/xhr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder_Record(t *testing.T) {
	r := NewRecorder()
	r.Record(Result{Endpoint: "GET a", Status: 200, Duration: 100 * time.Millisecond})
	r.Record(Result{Endpoint: "GET a", Status: 200, Duration: 150 * time.Millisecond})
	r.Record(Result{Endpoint: "GET b", Status: 500, Duration: 50 * time.Millisecond, Failed: true})
	r.Record(Result{Endpoint: "GET b", Duration: time.Second, TimedOut: true})
	r.Stop()

	s := r.Summary()
	assert.Equal(t, int64(4), s.Total)
	assert.Equal(t, int64(2), s.Success)
	assert.Equal(t, int64(2), s.Failed)
	assert.Equal(t, int64(1), s.Timeouts)
	assert.InDelta(t, 0.5, s.ErrorRate(), 0.001)
	assert.InDelta(t, float64(50*time.Millisecond), float64(s.Min), float64(time.Millisecond))
	assert.InDelta(t, float64(time.Second), float64(s.Max), float64(10*time.Millisecond))

	require.Len(t, s.Endpoints, 2)
	assert.Equal(t, "GET a", s.Endpoints[0].Endpoint)
	assert.Equal(t, int64(0), s.Endpoints[0].Failed)
	assert.Equal(t, int64(2), s.Endpoints[1].Failed)
}

func TestRecorder_Empty(t *testing.T) {
	s := NewRecorder().Summary()
	assert.Equal(t, int64(0), s.Total)
	assert.Equal(t, 0.0, s.ErrorRate())
	assert.Empty(t, s.Endpoints)
}

func TestRecorder_Interceptor(t *testing.T) {
	rec := NewRecorder()
	status := 200
	srv := transporttest.NewServer(func(*transporttest.Request) *transporttest.Reply {
		return &transporttest.Reply{Status: status}
	})
	c := xhr.New(xhr.WithTransport(srv.Factory()), xhr.WithInterceptors(rec.Interceptor()))

	_, err := c.Get("http://api.test/items?page=2", nil).Wait()
	require.NoError(t, err)

	status = 404
	_, err = c.Get("http://api.test/items", nil).Wait()
	require.Error(t, err)

	s := rec.Summary()
	assert.Equal(t, int64(2), s.Total)
	assert.Equal(t, int64(1), s.Failed)
	require.Len(t, s.Endpoints, 1)
	assert.Equal(t, "GET api.test/items", s.Endpoints[0].Endpoint)
}

func TestReporter_Summary(t *testing.T) {
	r := NewRecorder()
	r.Record(Result{Endpoint: "GET a", Duration: 20 * time.Millisecond})
	r.Record(Result{Endpoint: "GET a", Duration: time.Second, TimedOut: true})

	var buf bytes.Buffer
	NewReporter(WithWriter(&buf), WithNoColor(true), WithVerbose(true)).Summary(r.Summary())

	out := buf.String()
	assert.Contains(t, out, "SUMMARY")
	assert.Contains(t, out, "Timeouts:   1")
	assert.Contains(t, out, "Failed:     1 (50.0%)")
	assert.Contains(t, out, "GET a: 2 total, 1 failed")
}

func TestReporter_JSON(t *testing.T) {
	r := NewRecorder()
	r.Record(Result{Endpoint: "GET a", Duration: 20 * time.Millisecond})

	var buf bytes.Buffer
	require.NoError(t, NewReporter(WithWriter(&buf)).JSON(r.Summary()))

	var out map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, 1.0, out["requests"].(map[string]any)["total"])
	assert.Len(t, out["endpoints"], 1)
}

func TestFormatLatency(t *testing.T) {
	assert.Equal(t, "500µs", formatLatency(500*time.Microsecond))
	assert.Equal(t, "42ms", formatLatency(42*time.Millisecond))
	assert.Equal(t, "1.5s", formatLatency(1500*time.Millisecond))
}

// bodyRejected stands in for a response interceptor that refuses a 2xx body.
type bodyRejected struct {
	resp *xhr.Response
}

func (e *bodyRejected) Error() string                 { return "body rejected" }
func (e *bodyRejected) FailedResponse() *xhr.Response { return e.resp }

func TestRecorder_InterceptorCountsRejectedBodies(t *testing.T) {
	rec := NewRecorder()
	srv := transporttest.NewServer(func(*transporttest.Request) *transporttest.Reply {
		return transporttest.JSON(200, `{}`)
	})
	reject := xhr.Interceptor{
		Response: func(r *xhr.Response) (*xhr.Response, error) {
			return nil, &bodyRejected{resp: r}
		},
	}
	c := xhr.New(xhr.WithTransport(srv.Factory()), xhr.WithInterceptors(reject, rec.Interceptor()))

	for i := 0; i < 3; i++ {
		_, err := c.Get("http://api.test/items", nil).Wait()
		require.Error(t, err)
	}

	s := rec.Summary()
	assert.Equal(t, int64(3), s.Total)
	assert.Equal(t, int64(3), s.Failed)
}

func TestRecorder_InterceptorTimeout(t *testing.T) {
	rec := NewRecorder()
	srv := transporttest.NewServer(func(*transporttest.Request) *transporttest.Reply {
		return &transporttest.Reply{Status: 200, Delay: 500 * time.Millisecond}
	})
	c := xhr.New(xhr.WithTransport(srv.Factory()), xhr.WithInterceptors(rec.Interceptor()))

	_, err := c.Get("http://api.test/slow", &xhr.Config{Timeout: 20 * time.Millisecond}).Wait()
	require.Error(t, err)

	s := rec.Summary()
	assert.Equal(t, int64(1), s.Timeouts)
	assert.Equal(t, int64(1), s.Failed)
}
