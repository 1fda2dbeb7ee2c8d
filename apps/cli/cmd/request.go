package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/abdul-hamid-achik/qxhr/packages/core/config"
	"github.com/abdul-hamid-achik/qxhr/packages/history"
	"github.com/abdul-hamid-achik/qxhr/packages/interceptors"
	"github.com/abdul-hamid-achik/qxhr/packages/output"
	"github.com/abdul-hamid-achik/qxhr/packages/stats"
	"github.com/abdul-hamid-achik/qxhr/packages/transport"
	"github.com/abdul-hamid-achik/qxhr/packages/transport/nethttp"
	"github.com/abdul-hamid-achik/qxhr/packages/xhr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type requestOptions struct {
	headers         []string
	params          []string
	data            string
	timeout         time.Duration
	withCredentials bool
	responseType    string
	selectPath      string
	schema          string
	history         string
	rate            float64
	burst           int
	repeat          int
	concurrency     int
	interval        time.Duration
	metrics         bool
	requestID       bool
	output          string
	watch           bool
}

var reqOpts requestOptions

var verbs = []struct {
	method string
	short  string
	body   bool
}{
	{xhr.MethodGet, "Send a GET request", false},
	{xhr.MethodHead, "Send a HEAD request", false},
	{xhr.MethodDelete, "Send a DELETE request", false},
	{xhr.MethodPost, "Send a POST request", true},
	{xhr.MethodPut, "Send a PUT request", true},
	{xhr.MethodPatch, "Send a PATCH request", true},
}

func requestCommands() []*cobra.Command {
	cmds := make([]*cobra.Command, 0, len(verbs)+1)
	for _, v := range verbs {
		method := v.method
		c := &cobra.Command{
			Use:   strings.ToLower(method) + " <url>",
			Short: v.short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runRequest(cmd, method, args[0])
			},
		}
		addRequestFlags(c, v.body)
		cmds = append(cmds, c)
	}

	requestCmd := &cobra.Command{
		Use:   "request <method> <url>",
		Short: "Send a request with an explicit method",
		Long: `Send a request through the qxhr pipeline and print the settled response.

Default headers come from the config file and are merged below the headers
given with -H. Non-2xx statuses, timeouts and network failures exit non-zero.

Examples:
  qxhr request GET https://api.example.com/users -q page=2
  qxhr request POST https://api.example.com/users -d '{"name":"ada"}'
  qxhr get https://api.example.com/users/1 --select name
  qxhr get https://api.example.com/health --repeat 200 --concurrency 10 --rate 50
  qxhr post https://api.example.com/upload -d @payload.json -H "X-Trace: 1"`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRequest(cmd, strings.ToUpper(args[0]), args[1])
		},
	}
	addRequestFlags(requestCmd, true)
	return append(cmds, requestCmd)
}

func addRequestFlags(c *cobra.Command, body bool) {
	f := c.Flags()
	f.StringArrayVarP(&reqOpts.headers, "header", "H", nil, "Request header as name:value (repeatable)")
	f.StringArrayVarP(&reqOpts.params, "query", "q", nil, "Query parameter as key=value (repeatable)")
	if body {
		f.StringVarP(&reqOpts.data, "data", "d", "", "Request body, @file to read a file or @- for stdin")
	}
	f.DurationVar(&reqOpts.timeout, "timeout", getEnvDuration("QXHR_TIMEOUT", 0), "Request timeout, 0 uses the config default (env: QXHR_TIMEOUT)")
	f.BoolVar(&reqOpts.withCredentials, "with-credentials", false, "Send credentials with the request")
	f.StringVar(&reqOpts.responseType, "response-type", "", "Response type: text, json, arraybuffer, blob")
	f.StringVar(&reqOpts.selectPath, "select", "", "Print only the value at this JSON path (e.g. data.items[0].id)")
	f.StringVar(&reqOpts.schema, "schema", "", "Reject responses that do not match this JSON schema file")
	f.StringVar(&reqOpts.history, "history", getEnvString("QXHR_HISTORY", ""), "Record requests into this SQLite database (env: QXHR_HISTORY)")
	f.Float64Var(&reqOpts.rate, "rate", getEnvFloat("QXHR_RATE", 0), "Maximum requests per second, 0 for unlimited (env: QXHR_RATE)")
	f.IntVar(&reqOpts.burst, "burst", 1, "Requests allowed at once above --rate")
	f.IntVarP(&reqOpts.repeat, "repeat", "n", 1, "Send the request this many times and print a latency summary")
	f.IntVar(&reqOpts.concurrency, "concurrency", getEnvInt("QXHR_CONCURRENCY", 1), "Requests in flight at once with --repeat (env: QXHR_CONCURRENCY)")
	f.DurationVar(&reqOpts.interval, "interval", 0, "Pause between requests of one worker with --repeat")
	f.BoolVar(&reqOpts.metrics, "metrics", getEnvBool("QXHR_METRICS", false), "Print Prometheus metrics to stderr when done (env: QXHR_METRICS)")
	f.BoolVar(&reqOpts.requestID, "request-id", false, "Add a request id header to every request")
	f.StringVarP(&reqOpts.output, "output", "o", getEnvString("QXHR_OUTPUT", "console"), "Output format: console, json (env: QXHR_OUTPUT)")
	f.BoolVarP(&reqOpts.watch, "watch", "w", false, "Reload request defaults when the config file changes")
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigCh)
		select {
		case <-sigCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}

func runRequest(cmd *cobra.Command, method, url string) error {
	if reqOpts.output != "console" && reqOpts.output != "json" {
		return withExitCode(ExitUsageError, fmt.Errorf("unknown output format %q", reqOpts.output))
	}
	if reqOpts.repeat < 1 {
		return withExitCode(ExitUsageError, fmt.Errorf("--repeat must be at least 1"))
	}

	reqCfg, err := buildRequestConfig(cmd, method, url)
	if err != nil {
		return withExitCode(ExitUsageError, err)
	}

	ctx, cancel := signalContext()
	defer cancel()

	client, closeClient, err := newClient(ctx, settings.config, settings.logger)
	if err != nil {
		return err
	}
	defer closeClient()

	var registry *prometheus.Registry
	if reqOpts.metrics {
		registry = prometheus.NewRegistry()
		client.Interceptors().Use(interceptors.NewMetrics(registry).Interceptor())
		defer dumpMetrics(cmd.ErrOrStderr(), registry, settings.logger)
	}

	if reqOpts.watch {
		watchConfig(ctx, client, settings.logger)
	}

	if reqOpts.repeat > 1 {
		return runRepeated(ctx, cmd, client, reqCfg)
	}
	return runOnce(ctx, cmd, client, reqCfg)
}

// buildRequestConfig turns the command line into a request config. Only
// flags given explicitly override the client defaults.
func buildRequestConfig(cmd *cobra.Command, method, url string) (*xhr.Config, error) {
	hs, err := parseHeaderFlags(reqOpts.headers)
	if err != nil {
		return nil, err
	}
	params, err := parseParamFlags(reqOpts.params)
	if err != nil {
		return nil, err
	}
	data, err := parseData(reqOpts.data)
	if err != nil {
		return nil, err
	}

	c := &xhr.Config{
		Method:       method,
		URL:          url,
		Params:       params,
		Data:         data,
		Headers:      hs,
		ResponseType: reqOpts.responseType,
		Timeout:      reqOpts.timeout,
	}
	if cmd.Flags().Changed("with-credentials") {
		c.WithCredentials = xhr.Bool(reqOpts.withCredentials)
	}
	return c, nil
}

// newClient builds a client over net/http with the interceptors selected by
// the config file and flags. The returned func releases what the
// interceptors hold open.
func newClient(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*xhr.Client, func(), error) {
	transportClient := nethttp.NewClient(cfg.TransportOptions()...)
	client := xhr.New(
		xhr.WithTransport(transportClient.Factory()),
		xhr.WithLogger(logger),
	)
	cfg.ApplyTo(client.Defaults())

	closers := []func(){}
	closeAll := func() {
		for _, c := range closers {
			c()
		}
	}

	if reqOpts.requestID || cfg.GetRequestID() {
		client.Interceptors().Use(interceptors.RequestID(cfg.RequestID.Header))
	}

	rps, burst := cfg.RateLimit.RPS, cfg.RateLimit.Burst
	if reqOpts.rate > 0 {
		rps, burst = reqOpts.rate, reqOpts.burst
	}
	if rps > 0 {
		client.Interceptors().Use(interceptors.RateLimit(ctx, interceptors.NewLimiter(rps, burst)))
	}

	client.Interceptors().Use(interceptors.Logging(logger))

	if path := firstNonEmpty(reqOpts.history, cfg.History.Path); path != "" {
		store, err := history.Open(path)
		if err != nil {
			return nil, nil, withExitCode(ExitConfigError, err)
		}
		closers = append(closers, func() { _ = store.Close() })
		client.Interceptors().Use(store.Interceptor(logger))
	}

	if reqOpts.schema != "" {
		schema, err := interceptors.SchemaFile(reqOpts.schema)
		if err != nil {
			closeAll()
			return nil, nil, withExitCode(ExitUsageError, err)
		}
		client.Interceptors().Use(schema)
	}

	return client, closeAll, nil
}

func watchConfig(ctx context.Context, client *xhr.Client, logger *logrus.Logger) {
	path := resolveConfigPath(settings.configPath)
	if path == "" {
		logger.Warn("--watch given but no config file is in use")
		return
	}

	go func() {
		err := config.Watch(ctx, path, func(c *config.Config, err error) {
			if err != nil {
				logger.WithError(err).Warn("config reload failed")
				return
			}
			c.ApplyTo(client.Defaults())
			logger.WithField("path", path).Info("config reloaded")
		})
		if err != nil {
			logger.WithError(err).Warn("config watch stopped")
		}
	}()
}

func newFormatter(w io.Writer) output.Formatter {
	if reqOpts.output == "json" {
		return output.NewJSONFormatter(output.WithJSONWriter(w))
	}
	return output.NewConsoleFormatter(
		output.WithWriter(w),
		output.WithVerbose(verboseFlag > 0),
		output.WithNoColor(noColorFlag || settings.config.GetNoColor()),
	)
}

func runOnce(ctx context.Context, cmd *cobra.Command, client *xhr.Client, reqCfg *xhr.Config) error {
	formatter := newFormatter(cmd.OutOrStdout())
	logger := settings.logger

	start := time.Now()
	f := client.Request(*reqCfg)

	if verboseFlag > 0 {
		f.OnProgress(func(p any) {
			if pr, ok := p.(transport.Progress); ok {
				logger.WithFields(logrus.Fields{
					"loaded": pr.Loaded,
					"total":  pr.Total,
				}).Debug("progress")
			}
		})
		if reqOpts.output == "console" {
			output.NewConsoleFormatter(
				output.WithWriter(cmd.ErrOrStderr()),
				output.WithNoColor(noColorFlag || settings.config.GetNoColor()),
			).FormatPending(client.Pending().List())
		}
	}

	resp, err := f.Await(ctx)
	duration := time.Since(start)
	if err != nil {
		formatter.FormatError(err)
		return reportedError(exitCodeForRequest(err), err)
	}

	if reqOpts.selectPath != "" {
		selected, err := selectData(resp, reqOpts.selectPath)
		if err != nil {
			formatter.FormatError(err)
			return reportedError(ExitHTTPError, err)
		}
		resp = selected
	}

	formatter.FormatResponse(resp, duration)
	return nil
}

// selectData returns a copy of resp whose Data is the value at path.
func selectData(resp *xhr.Response, path string) (*xhr.Response, error) {
	value, ok, err := output.Select(resp.Data, path)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("path %q not found in response", path)
	}
	out := *resp
	out.Data = value
	return &out, nil
}

func runRepeated(ctx context.Context, cmd *cobra.Command, client *xhr.Client, reqCfg *xhr.Config) error {
	recorder := stats.NewRecorder()
	client.Interceptors().Use(recorder.Interceptor())

	workers := reqOpts.concurrency
	if workers < 1 {
		workers = 1
	}
	if workers > reqOpts.repeat {
		workers = reqOpts.repeat
	}

	jobs := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range jobs {
				if _, err := client.Request(*reqCfg).Await(ctx); err != nil {
					settings.logger.WithError(err).Debug("request failed")
				}
				if reqOpts.interval > 0 {
					select {
					case <-time.After(reqOpts.interval):
					case <-ctx.Done():
					}
				}
			}
		}()
	}

send:
	for i := 0; i < reqOpts.repeat; i++ {
		select {
		case jobs <- struct{}{}:
		case <-ctx.Done():
			break send
		}
	}
	close(jobs)
	wg.Wait()
	recorder.Stop()

	summary := recorder.Summary()
	reporter := stats.NewReporter(
		stats.WithWriter(cmd.OutOrStdout()),
		stats.WithNoColor(noColorFlag || settings.config.GetNoColor()),
		stats.WithVerbose(verboseFlag > 0),
	)
	if reqOpts.output == "json" {
		if err := reporter.JSON(summary); err != nil {
			return err
		}
	} else {
		reporter.Summary(summary)
	}

	if summary.Failed > 0 {
		return reportedError(ExitHTTPError, fmt.Errorf("%d of %d requests failed", summary.Failed, summary.Total))
	}
	if ctx.Err() != nil {
		return reportedError(ExitNetworkError, ctx.Err())
	}
	return nil
}

// exitCodeForRequest classifies a rejected request.
func exitCodeForRequest(err error) int {
	var schemaErr *interceptors.SchemaError
	switch {
	case errors.Is(err, xhr.ErrTimeout):
		return ExitTimeout
	case errors.Is(err, xhr.ErrUnsupportedMethod), errors.Is(err, xhr.ErrMissingURL):
		return ExitUsageError
	case errors.As(err, &schemaErr):
		return ExitHTTPError
	}
	if re, ok := xhr.AsResponseError(err); ok && re.Response != nil && re.Response.Status > 0 {
		return ExitHTTPError
	}
	return ExitNetworkError
}

func dumpMetrics(w io.Writer, registry *prometheus.Registry, logger logrus.FieldLogger) {
	families, err := registry.Gather()
	if err != nil {
		logger.WithError(err).Warn("failed to gather metrics")
		return
	}
	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			logger.WithError(err).Warn("failed to encode metrics")
			return
		}
	}
}
