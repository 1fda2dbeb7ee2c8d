// Package transporttest provides a scriptable in-memory Transport for tests.
package transporttest

import (
	"io"
	"sync"
	"time"

	"github.com/abdul-hamid-achik/qxhr/packages/transport"
)

// Request is what a Fake observed from the adapter.
type Request struct {
	Method          string
	URL             string
	Header          map[string]string
	HeaderOrder     []string
	Body            []byte
	HasBody         bool
	WithCredentials bool
	ResponseType    string
}

// Reply scripts how a Fake completes.
type Reply struct {
	Status   int
	Headers  string
	Body     string
	Response any
	Delay    time.Duration
	Progress []transport.Progress
	// IgnoreAbort keeps the exchange running when Abort is called.
	IgnoreAbort bool
}

// HandlerFunc produces the reply for an observed request. Returning nil
// leaves the exchange open until Complete is called.
type HandlerFunc func(*Request) *Reply

// Fake is a Transport driven by a HandlerFunc.
type Fake struct {
	handler HandlerFunc

	mu       sync.Mutex
	req      Request
	state    transport.ReadyState
	status   int
	headers  string
	text     string
	response any
	aborted  bool
	finished bool
	reply    *Reply
	abortCh  chan struct{}

	onReady    func()
	onProgress func(transport.Progress)
}

var _ transport.Transport = (*Fake)(nil)

// NewFake returns a Fake answering with handler.
func NewFake(handler HandlerFunc) *Fake {
	return &Fake{
		handler: handler,
		req:     Request{Header: make(map[string]string)},
		abortCh: make(chan struct{}),
	}
}

func (f *Fake) Open(method, url string) error {
	f.mu.Lock()
	f.req.Method = method
	f.req.URL = url
	f.state = transport.Opened
	f.mu.Unlock()
	f.fireReady()
	return nil
}

func (f *Fake) SetRequestHeader(name, value string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.req.Header[name]; !ok {
		f.req.HeaderOrder = append(f.req.HeaderOrder, name)
	}
	f.req.Header[name] = value
}

func (f *Fake) SetWithCredentials(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.req.WithCredentials = v
}

func (f *Fake) SetResponseType(v string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.req.ResponseType = v
}

func (f *Fake) Send(body io.Reader) error {
	var data []byte
	if body != nil {
		var err error
		if data, err = io.ReadAll(body); err != nil {
			return err
		}
	}

	f.mu.Lock()
	f.req.Body = data
	f.req.HasBody = body != nil
	req := f.req
	f.mu.Unlock()

	var reply *Reply
	if f.handler != nil {
		reply = f.handler(&req)
	}
	if reply == nil {
		return nil
	}

	f.mu.Lock()
	f.reply = reply
	f.mu.Unlock()

	go f.play(reply)
	return nil
}

func (f *Fake) play(r *Reply) {
	if r.Delay > 0 {
		timer := time.NewTimer(r.Delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-f.abortCh:
			if !r.IgnoreAbort {
				return
			}
			<-timer.C
		}
	}
	for _, p := range r.Progress {
		f.notify(p)
	}
	f.Complete(r.Status, r.Headers, r.Body, r.Response)
}

// Complete finishes the exchange. Later calls are ignored.
func (f *Fake) Complete(status int, headers, text string, response any) {
	f.mu.Lock()
	if f.finished {
		f.mu.Unlock()
		return
	}
	f.finished = true
	f.status = status
	f.headers = headers
	f.text = text
	f.response = response
	f.state = transport.Done
	f.mu.Unlock()
	f.fireReady()
}

// EmitProgress delivers a progress event to the adapter.
func (f *Fake) EmitProgress(p transport.Progress) {
	f.notify(p)
}

func (f *Fake) Abort() {
	f.mu.Lock()
	if f.aborted || f.finished {
		f.mu.Unlock()
		return
	}
	f.aborted = true
	ignore := f.reply != nil && f.reply.IgnoreAbort
	close(f.abortCh)
	f.mu.Unlock()

	if !ignore {
		f.Complete(0, "", "", nil)
	}
}

// Aborted reports whether Abort was called.
func (f *Fake) Aborted() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.aborted
}

// Request returns a copy of what the adapter sent.
func (f *Fake) Request() Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	r := f.req
	r.Header = make(map[string]string, len(f.req.Header))
	for k, v := range f.req.Header {
		r.Header[k] = v
	}
	return r
}

func (f *Fake) ReadyState() transport.ReadyState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *Fake) Status() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status
}

func (f *Fake) AllResponseHeaders() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.headers
}

func (f *Fake) Response() any {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.response != nil {
		return f.response
	}
	return f.text
}

func (f *Fake) ResponseText() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.text
}

func (f *Fake) OnReadyStateChange(fn func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onReady = fn
}

func (f *Fake) OnProgress(fn func(transport.Progress)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onProgress = fn
}

func (f *Fake) fireReady() {
	f.mu.Lock()
	fn := f.onReady
	f.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (f *Fake) notify(p transport.Progress) {
	f.mu.Lock()
	fn := f.onProgress
	f.mu.Unlock()
	if fn != nil {
		fn(p)
	}
}

// Server hands out Fakes and remembers every one it created.
type Server struct {
	handler HandlerFunc

	mu    sync.Mutex
	fakes []*Fake
}

// NewServer returns a Server whose fakes answer with handler.
func NewServer(handler HandlerFunc) *Server {
	return &Server{handler: handler}
}

// Factory returns a transport.Factory creating recorded Fakes.
func (s *Server) Factory() transport.Factory {
	return func() transport.Transport {
		f := NewFake(s.handler)
		s.mu.Lock()
		s.fakes = append(s.fakes, f)
		s.mu.Unlock()
		return f
	}
}

// Fakes returns every Fake created so far.
func (s *Server) Fakes() []*Fake {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*Fake(nil), s.fakes...)
}

// Last returns the most recent Fake, or nil.
func (s *Server) Last() *Fake {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.fakes) == 0 {
		return nil
	}
	return s.fakes[len(s.fakes)-1]
}

// JSON is a convenience reply with a JSON content type.
func JSON(status int, body string) *Reply {
	return &Reply{
		Status:  status,
		Headers: "Content-Type: application/json\r\n",
		Body:    body,
	}
}
