package output

import (
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/abdul-hamid-achik/qxhr/packages/xhr"
)

// JSONResponse is the machine-readable form of a response.
type JSONResponse struct {
	Request  *JSONRequest      `json:"request,omitempty"`
	Status   int               `json:"status"`
	Headers  map[string]string `json:"headers,omitempty"`
	Data     any               `json:"data"`
	Duration float64           `json:"duration"` // milliseconds
	Error    string            `json:"error,omitempty"`
	TimedOut bool              `json:"timedOut,omitempty"`
}

// JSONRequest identifies the request of a JSONResponse.
type JSONRequest struct {
	Method string `json:"method"`
	URL    string `json:"url"`
}

// JSONFormatter writes one JSON object per line.
type JSONFormatter struct {
	writer io.Writer
}

type JSONOption func(*JSONFormatter)

func WithJSONWriter(w io.Writer) JSONOption {
	return func(f *JSONFormatter) {
		f.writer = w
	}
}

func NewJSONFormatter(opts ...JSONOption) *JSONFormatter {
	f := &JSONFormatter{writer: os.Stdout}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func toJSON(resp *xhr.Response, duration time.Duration) JSONResponse {
	out := JSONResponse{
		Status:   resp.Status,
		Headers:  resp.Headers.All(),
		Data:     resp.Data,
		Duration: float64(duration.Microseconds()) / 1000,
	}
	if b, ok := resp.Data.([]byte); ok {
		if json.Valid(b) {
			out.Data = json.RawMessage(b)
		} else {
			out.Data = string(b)
		}
	}
	if resp.Config != nil {
		out.Request = &JSONRequest{Method: resp.Config.Method, URL: resp.Config.URL}
	}
	return out
}

func (f *JSONFormatter) FormatResponse(resp *xhr.Response, duration time.Duration) {
	f.encode(toJSON(resp, duration))
}

func (f *JSONFormatter) FormatError(err error) {
	out := JSONResponse{Error: err.Error()}
	if re, ok := xhr.AsResponseError(err); ok && re.Response != nil {
		out = toJSON(re.Response, 0)
		out.Error = err.Error()
		out.TimedOut = re.TimedOut
	}
	f.encode(out)
}

func (f *JSONFormatter) encode(v JSONResponse) {
	_ = json.NewEncoder(f.writer).Encode(v)
}
