package stats

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
)

// Reporter prints summaries.
type Reporter struct {
	writer  io.Writer
	noColor bool
	verbose bool

	green  *color.Color
	red    *color.Color
	yellow *color.Color
	bold   *color.Color
}

// ReporterOption configures a Reporter.
type ReporterOption func(*Reporter)

func WithWriter(w io.Writer) ReporterOption {
	return func(r *Reporter) {
		r.writer = w
	}
}

func WithNoColor(noColor bool) ReporterOption {
	return func(r *Reporter) {
		r.noColor = noColor
	}
}

// WithVerbose adds the per-endpoint breakdown.
func WithVerbose(verbose bool) ReporterOption {
	return func(r *Reporter) {
		r.verbose = verbose
	}
}

func NewReporter(opts ...ReporterOption) *Reporter {
	r := &Reporter{writer: os.Stdout}
	for _, opt := range opts {
		opt(r)
	}

	r.green = color.New(color.FgGreen)
	r.red = color.New(color.FgRed)
	r.yellow = color.New(color.FgYellow)
	r.bold = color.New(color.Bold)
	if r.noColor {
		for _, c := range []*color.Color{r.green, r.red, r.yellow, r.bold} {
			c.DisableColor()
		}
	}
	return r
}

// Summary prints s as a human readable block.
func (r *Reporter) Summary(s *Summary) {
	fmt.Fprintln(r.writer)
	r.bold.Fprintln(r.writer, "SUMMARY")
	fmt.Fprintln(r.writer, strings.Repeat("─", 40))

	fmt.Fprintf(r.writer, "Duration:   %s\n", formatDuration(s.Elapsed))
	fmt.Fprintf(r.writer, "Total:      ")
	r.bold.Fprintf(r.writer, "%d", s.Total)
	fmt.Fprintf(r.writer, " requests (%.1f req/s)\n", s.RPS)

	fmt.Fprintf(r.writer, "Success:    ")
	r.green.Fprintf(r.writer, "%d", s.Success)
	fmt.Fprintln(r.writer)

	fmt.Fprintf(r.writer, "Failed:     ")
	if s.Failed > 0 {
		r.red.Fprintf(r.writer, "%d", s.Failed)
	} else {
		fmt.Fprintf(r.writer, "%d", s.Failed)
	}
	fmt.Fprintf(r.writer, " (%.1f%%)\n", s.ErrorRate()*100)

	if s.Timeouts > 0 {
		fmt.Fprintf(r.writer, "Timeouts:   ")
		r.yellow.Fprintf(r.writer, "%d\n", s.Timeouts)
	}

	fmt.Fprintln(r.writer)
	r.bold.Fprintln(r.writer, "LATENCY")
	fmt.Fprintf(r.writer, "  p50: %s | p95: %s | p99: %s\n",
		formatLatency(s.P50), formatLatency(s.P95), formatLatency(s.P99))
	fmt.Fprintf(r.writer, "  min: %s | mean: %s | max: %s\n",
		formatLatency(s.Min), formatLatency(s.Mean), formatLatency(s.Max))

	if r.verbose && len(s.Endpoints) > 0 {
		fmt.Fprintln(r.writer)
		r.bold.Fprintln(r.writer, "ENDPOINTS")
		for _, e := range s.Endpoints {
			fmt.Fprintf(r.writer, "  %s: %d total, %d failed, p50 %s, p95 %s\n",
				e.Endpoint, e.Total, e.Failed, formatLatency(e.P50), formatLatency(e.P95))
		}
	}
	fmt.Fprintln(r.writer)
}

// JSON writes s as indented JSON with latencies in milliseconds.
func (r *Reporter) JSON(s *Summary) error {
	endpoints := make([]map[string]any, 0, len(s.Endpoints))
	for _, e := range s.Endpoints {
		endpoints = append(endpoints, map[string]any{
			"endpoint": e.Endpoint,
			"total":    e.Total,
			"failed":   e.Failed,
			"p50":      e.P50.Milliseconds(),
			"p95":      e.P95.Milliseconds(),
			"mean":     e.Mean.Milliseconds(),
		})
	}

	out := map[string]any{
		"duration": s.Elapsed.String(),
		"requests": map[string]any{
			"total":    s.Total,
			"success":  s.Success,
			"failed":   s.Failed,
			"timeouts": s.Timeouts,
		},
		"rps": s.RPS,
		"latency": map[string]any{
			"p50":  s.P50.Milliseconds(),
			"p95":  s.P95.Milliseconds(),
			"p99":  s.P99.Milliseconds(),
			"min":  s.Min.Milliseconds(),
			"max":  s.Max.Milliseconds(),
			"mean": s.Mean.Milliseconds(),
		},
		"endpoints": endpoints,
	}

	enc := json.NewEncoder(r.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	minutes := int(d.Minutes())
	seconds := int(d.Seconds()) % 60
	return fmt.Sprintf("%dm %02ds", minutes, seconds)
}

func formatLatency(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%dµs", d.Microseconds())
	}
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}
