package nethttp

import (
	"compress/flate"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/abdul-hamid-achik/qxhr/packages/transport"
	"github.com/andybalholm/brotli"
)

var (
	ErrNotOpened   = errors.New("nethttp: transport is not opened")
	ErrAlreadySent = errors.New("nethttp: request already sent")
)

// Transport is a single net/http exchange driven through the XHR contract.
type Transport struct {
	client *Client

	mu              sync.Mutex
	method          string
	url             string
	header          http.Header
	withCredentials bool
	responseType    string
	state           transport.ReadyState
	sent            bool
	finished        bool
	cancel          context.CancelFunc

	status     int
	rawHeaders string
	body       []byte

	onReady    func()
	onProgress func(transport.Progress)
}

var _ transport.Transport = (*Transport)(nil)

func (t *Transport) Open(method, url string) error {
	req, err := http.NewRequest(method, url, nil)
	if err != nil {
		return fmt.Errorf("nethttp: open %s %s: %w", method, url, err)
	}
	if req.URL.Scheme != "http" && req.URL.Scheme != "https" {
		return fmt.Errorf("nethttp: unsupported URL scheme %q", req.URL.Scheme)
	}

	t.mu.Lock()
	t.method = method
	t.url = url
	t.state = transport.Opened
	t.mu.Unlock()

	t.fireReady()
	return nil
}

func (t *Transport) SetRequestHeader(name, value string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.header.Add(name, value)
}

func (t *Transport) SetWithCredentials(v bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.withCredentials = v
}

func (t *Transport) SetResponseType(v string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.responseType = v
}

func (t *Transport) Send(body io.Reader) error {
	t.mu.Lock()
	if t.state != transport.Opened {
		t.mu.Unlock()
		return ErrNotOpened
	}
	if t.sent {
		t.mu.Unlock()
		return ErrAlreadySent
	}
	t.sent = true

	ctx, cancel := context.WithCancel(context.Background())
	t.cancel = cancel

	req, err := http.NewRequestWithContext(ctx, t.method, t.url, body)
	if err != nil {
		t.mu.Unlock()
		cancel()
		return err
	}
	req.Header = t.header.Clone()
	if t.client.compress && req.Header.Get("Accept-Encoding") == "" {
		req.Header.Set("Accept-Encoding", "gzip, deflate, br")
	}

	hc := t.client.plain
	if t.withCredentials {
		hc = t.client.credentials
	}
	t.mu.Unlock()

	go t.run(ctx, hc, req)
	return nil
}

func (t *Transport) run(ctx context.Context, hc *http.Client, req *http.Request) {
	defer t.cancelContext()

	resp, err := hc.Do(req)
	if err != nil {
		t.finish(0, "", nil)
		return
	}
	defer resp.Body.Close()

	t.setState(transport.HeadersReceived)

	reader, decoded, err := decodeBody(resp)
	if err != nil {
		t.finish(0, "", nil)
		return
	}
	if closer, ok := reader.(io.Closer); ok && decoded {
		defer closer.Close()
	}

	total := resp.ContentLength
	if decoded {
		resp.Header.Del("Content-Encoding")
		resp.Header.Del("Content-Length")
		total = -1
	}

	t.setState(transport.Loading)

	body, err := io.ReadAll(&progressReader{r: reader, total: total, notify: t.notify})
	if err != nil || ctx.Err() != nil {
		t.finish(0, "", nil)
		return
	}

	t.finish(resp.StatusCode, formatHeaders(resp.Header), body)
}

func decodeBody(resp *http.Response) (io.Reader, bool, error) {
	switch strings.ToLower(resp.Header.Get("Content-Encoding")) {
	case "gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, false, err
		}
		return gz, true, nil
	case "deflate":
		return flate.NewReader(resp.Body), true, nil
	case "br":
		return brotli.NewReader(resp.Body), true, nil
	default:
		return resp.Body, false, nil
	}
}

// formatHeaders renders h the way getAllResponseHeaders does: one
// "name: value" line per value, CRLF separated, names sorted.
func formatHeaders(h http.Header) string {
	keys := make([]string, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		for _, v := range h[k] {
			b.WriteString(strings.ToLower(k))
			b.WriteString(": ")
			b.WriteString(v)
			b.WriteString("\r\n")
		}
	}
	return b.String()
}

func (t *Transport) finish(status int, rawHeaders string, body []byte) {
	t.mu.Lock()
	if t.finished {
		t.mu.Unlock()
		return
	}
	t.finished = true
	t.status = status
	t.rawHeaders = rawHeaders
	t.body = body
	t.state = transport.Done
	t.mu.Unlock()

	t.fireReady()
}

func (t *Transport) setState(s transport.ReadyState) {
	t.mu.Lock()
	if t.finished {
		t.mu.Unlock()
		return
	}
	t.state = s
	t.mu.Unlock()
	t.fireReady()
}

func (t *Transport) cancelContext() {
	t.mu.Lock()
	cancel := t.cancel
	t.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Abort cancels an in-flight exchange. The ready state handler then fires
// with Done and status 0.
func (t *Transport) Abort() {
	t.mu.Lock()
	if !t.sent || t.finished {
		t.mu.Unlock()
		return
	}
	cancel := t.cancel
	t.mu.Unlock()

	cancel()
	t.finish(0, "", nil)
}

func (t *Transport) ReadyState() transport.ReadyState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

func (t *Transport) Status() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

func (t *Transport) AllResponseHeaders() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.rawHeaders
}

func (t *Transport) ResponseText() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return string(t.body)
}

// Response shapes the body by response type: "arraybuffer" and "blob" give
// []byte, "json" gives the decoded value (nil when invalid), anything else
// gives a string.
func (t *Transport) Response() any {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch t.responseType {
	case "arraybuffer", "blob":
		return append([]byte(nil), t.body...)
	case "json":
		var v any
		if err := json.Unmarshal(t.body, &v); err != nil {
			return nil
		}
		return v
	default:
		return string(t.body)
	}
}

func (t *Transport) OnReadyStateChange(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onReady = fn
}

func (t *Transport) OnProgress(fn func(transport.Progress)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onProgress = fn
}

func (t *Transport) fireReady() {
	t.mu.Lock()
	fn := t.onReady
	t.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (t *Transport) notify(p transport.Progress) {
	t.mu.Lock()
	fn := t.onProgress
	t.mu.Unlock()
	if fn != nil {
		fn(p)
	}
}

type progressReader struct {
	r      io.Reader
	loaded int64
	total  int64
	notify func(transport.Progress)
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.loaded += int64(n)
		p.notify(transport.Progress{Loaded: p.loaded, Total: p.total})
	}
	return n, err
}
