package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"time"

	"github.com/abdul-hamid-achik/qxhr/packages/xhr"
	"github.com/fatih/color"
)

// Formatter renders request outcomes.
type Formatter interface {
	FormatResponse(resp *xhr.Response, duration time.Duration)
	FormatError(err error)
}

// formatValue formats a value for display, truncating long text
func formatValue(v any, maxLen int) string {
	str := fmt.Sprintf("%v", v)
	if len(str) > maxLen {
		return str[:maxLen] + "..."
	}
	return str
}

type ConsoleFormatter struct {
	writer  io.Writer
	verbose bool
	noColor bool
}

type ConsoleOption func(*ConsoleFormatter)

func NewConsoleFormatter(opts ...ConsoleOption) *ConsoleFormatter {
	f := &ConsoleFormatter{
		writer: os.Stdout,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func WithWriter(w io.Writer) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.writer = w
	}
}

// WithVerbose prints the request line and response headers.
func WithVerbose(v bool) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.verbose = v
	}
}

func WithNoColor(nc bool) ConsoleOption {
	return func(f *ConsoleFormatter) {
		f.noColor = nc
	}
}

func (f *ConsoleFormatter) color(attrs ...color.Attribute) func(a ...any) string {
	c := color.New(attrs...)
	if f.noColor {
		c.DisableColor()
	}
	return c.SprintFunc()
}

func (f *ConsoleFormatter) statusColor(status int) func(a ...any) string {
	switch {
	case status >= 200 && status < 300:
		return f.color(color.FgGreen)
	case status >= 300 && status < 400:
		return f.color(color.FgCyan)
	case status >= 400 && status < 500:
		return f.color(color.FgYellow)
	default:
		return f.color(color.FgRed)
	}
}

func (f *ConsoleFormatter) FormatResponse(resp *xhr.Response, duration time.Duration) {
	bold := f.color(color.Bold)
	dim := f.color(color.Faint)
	cyan := f.color(color.FgCyan)

	if f.verbose && resp.Config != nil {
		fmt.Fprintf(f.writer, "%s %s\n", bold(resp.Config.Method), resp.Config.URL)
	}

	status := fmt.Sprintf("%d", resp.Status)
	if text := http.StatusText(resp.Status); text != "" {
		status += " " + text
	}
	fmt.Fprintf(f.writer, "%s %s\n", f.statusColor(resp.Status)(status), cyan(fmt.Sprintf("(%dms)", duration.Milliseconds())))

	if f.verbose {
		all := resp.Headers.All()
		names := make([]string, 0, len(all))
		for name := range all {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(f.writer, "%s %s\n", dim(name+":"), all[name])
		}
		fmt.Fprintln(f.writer)
	}

	f.FormatBody(resp.Data)
}

// FormatBody prints data as indented JSON, or as text when it is a string
// or bytes.
func (f *ConsoleFormatter) FormatBody(data any) {
	switch d := data.(type) {
	case nil:
		return
	case string:
		if d != "" {
			fmt.Fprintln(f.writer, d)
		}
		return
	case []byte:
		if json.Valid(d) {
			var buf bytes.Buffer
			if json.Indent(&buf, d, "", "  ") == nil {
				fmt.Fprintln(f.writer, buf.String())
				return
			}
		}
		fmt.Fprintf(f.writer, "[%d bytes]\n", len(d))
		return
	}

	out, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		fmt.Fprintln(f.writer, formatValue(data, 1000))
		return
	}
	fmt.Fprintln(f.writer, string(out))
}

// FormatError prints err. Response errors also print the response.
func (f *ConsoleFormatter) FormatError(err error) {
	red := f.color(color.FgRed)
	fmt.Fprintf(f.writer, "%s %v\n", red("Error:"), err)

	if re, ok := xhr.AsResponseError(err); ok && re.Response != nil && re.Response.Status > 0 {
		f.FormatBody(re.Response.Data)
	}
}

func (f *ConsoleFormatter) FormatHeader(version string) {
	bold := f.color(color.Bold)
	fmt.Fprintf(f.writer, "%s %s\n", bold("qxhr"), version)
}

// FormatPending prints the in-flight request list.
func (f *ConsoleFormatter) FormatPending(pending []*xhr.Config) {
	yellow := f.color(color.FgYellow)
	fmt.Fprintf(f.writer, "%s %d\n", yellow("Pending:"), len(pending))
	for _, c := range pending {
		fmt.Fprintf(f.writer, "  %s %s\n", c.Method, c.URL)
	}
}
