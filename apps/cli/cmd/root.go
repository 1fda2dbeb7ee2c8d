package cmd

import (
	"fmt"
	"os"

	"github.com/abdul-hamid-achik/qxhr/packages/core/config"
	"github.com/abdul-hamid-achik/qxhr/packages/logging"
	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

var (
	configFlag    string
	logLevelFlag  string
	logFormatFlag string
	noColorFlag   bool
	verboseFlag   int
)

// settings holds what every command resolves before it runs.
var settings struct {
	configPath string
	config     *config.Config
	logger     *logrus.Logger
}

var rootCmd = &cobra.Command{
	Use:   "qxhr",
	Short: "Promise-style HTTP requests from the command line.",
	Long: `qxhr sends HTTP requests through a deferred request pipeline with
default headers, interceptors, timeouts and JSON transforms, and prints
the settled response.`,
	SilenceErrors:     true,
	SilenceUsage:      true,
	PersistentPreRunE: loadSettings,
}

func Execute(v, bt string) {
	version = v
	buildTime = bt
	if err := rootCmd.Execute(); err != nil {
		if !isReported(err) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(exitCodeOf(err))
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", getEnvString("QXHR_CONFIG", ""), "Config file (env: QXHR_CONFIG, default: .qxhr.yaml in the current directory)")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", getEnvString("QXHR_LOG_LEVEL", ""), "Log level: trace, debug, info, warn, error (env: QXHR_LOG_LEVEL)")
	rootCmd.PersistentFlags().StringVar(&logFormatFlag, "log-format", getEnvString("QXHR_LOG_FORMAT", ""), "Log format: text, json (env: QXHR_LOG_FORMAT)")
	rootCmd.PersistentFlags().BoolVar(&noColorFlag, "no-color", getEnvBool("QXHR_NO_COLOR", false), "Disable colored output (env: QXHR_NO_COLOR)")
	rootCmd.PersistentFlags().CountVarP(&verboseFlag, "verbose", "v", "Verbose output (-v request line and headers, -vv debug logs)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(historyCmd)
	for _, c := range requestCommands() {
		rootCmd.AddCommand(c)
	}
}

// loadSettings reads the config file and builds the logger. Flags win over
// the file.
func loadSettings(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig(configFlag)
	if err != nil {
		return withExitCode(ExitConfigError, err)
	}

	if noColorFlag || cfg.GetNoColor() {
		color.NoColor = true
	}

	logConfig := logging.DefaultConfig()
	logConfig.Level = logging.Level(firstNonEmpty(logLevelFlag, cfg.Log.Level))
	logConfig.Format = firstNonEmpty(logFormatFlag, cfg.Log.Format, logConfig.Format)
	if verboseFlag > 1 && logLevelFlag == "" {
		logConfig.Level = logging.LevelDebug
	}

	settings.configPath = configFlag
	settings.config = cfg
	settings.logger = logging.New(logConfig)
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
