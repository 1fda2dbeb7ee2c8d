package cmd

import (
	"fmt"
	"time"

	"github.com/abdul-hamid-achik/qxhr/packages/echo"
	"github.com/spf13/cobra"
)

var (
	servePortFlag  int
	serveDelayFlag string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start a local echo server to send requests against",
	Long: `Start an HTTP server that reflects requests back as JSON.

Routes:
  GET  /json/{key}/{value}  {"key": "value"}
       /headers             the request headers, lower-cased
       /echo/url            the request URL and query
       /echo                method, headers and body
       /status/{code}       an empty JSON object with that status
       /latency/{ms}        responds after ms milliseconds

Examples:
  qxhr serve
  qxhr serve --port 8080 --delay 50ms`,
	Args: cobra.NoArgs,
	RunE: serveCommand,
}

func init() {
	serveCmd.Flags().IntVarP(&servePortFlag, "port", "p", getEnvInt("QXHR_PORT", echo.DefaultPort), "Port to listen on (env: QXHR_PORT)")
	serveCmd.Flags().StringVarP(&serveDelayFlag, "delay", "d", "0", "Delay to add to all responses (e.g., 100ms, 1s)")
}

func serveCommand(cmd *cobra.Command, args []string) error {
	var delay time.Duration
	if serveDelayFlag != "0" {
		var err error
		delay, err = time.ParseDuration(serveDelayFlag)
		if err != nil {
			return withExitCode(ExitUsageError, fmt.Errorf("invalid delay value %q: %w", serveDelayFlag, err))
		}
	}

	server := echo.NewServer(
		echo.WithPort(servePortFlag),
		echo.WithDelay(delay),
		echo.WithLogger(settings.logger),
	)

	fmt.Fprintf(cmd.OutOrStdout(), "Echo server on http://localhost:%d (%d routes)\n", servePortFlag, len(server.Routes()))

	ctx, cancel := signalContext()
	defer cancel()

	if err := server.Start(ctx); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "\nEcho server stopped")
	return nil
}
