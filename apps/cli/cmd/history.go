package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/abdul-hamid-achik/qxhr/packages/history"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	historyDBFlag    string
	historyLimitFlag int
	historyJSONFlag  bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List requests recorded with --history",
	Long: `List the most recent requests recorded into a history database.

The database is taken from --db, the QXHR_HISTORY environment variable or
history.path in the config file.

Examples:
  qxhr history --db requests.db
  qxhr history --limit 5 --json
  qxhr history clear`,
	Args: cobra.NoArgs,
	RunE: historyList,
}

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every recorded request",
	Args:  cobra.NoArgs,
	RunE:  historyClear,
}

func init() {
	historyCmd.PersistentFlags().StringVar(&historyDBFlag, "db", getEnvString("QXHR_HISTORY", ""), "History database (env: QXHR_HISTORY)")
	historyCmd.Flags().IntVarP(&historyLimitFlag, "limit", "n", 20, "Number of entries to show, 0 for all")
	historyCmd.Flags().BoolVar(&historyJSONFlag, "json", false, "Print entries as JSON")
	historyCmd.AddCommand(historyClearCmd)
}

func openHistory() (*history.Store, error) {
	path := firstNonEmpty(historyDBFlag, settings.config.History.Path)
	if path == "" {
		return nil, withExitCode(ExitUsageError, fmt.Errorf("no history database, set --db or history.path"))
	}
	store, err := history.Open(path)
	if err != nil {
		return nil, withExitCode(ExitConfigError, err)
	}
	return store, nil
}

func historyList(cmd *cobra.Command, args []string) error {
	store, err := openHistory()
	if err != nil {
		return err
	}
	defer store.Close()

	entries, err := store.Recent(context.Background(), historyLimitFlag)
	if err != nil {
		return err
	}

	if historyJSONFlag {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}
	printHistory(cmd.OutOrStdout(), entries)
	return nil
}

func printHistory(w io.Writer, entries []history.Entry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No requests recorded")
		return
	}

	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	dim := color.New(color.Faint).SprintFunc()

	for _, e := range entries {
		status := fmt.Sprintf("%3d", e.Status)
		switch {
		case e.TimedOut:
			status = red("T/O")
		case e.Status >= http.StatusOK && e.Status < http.StatusMultipleChoices:
			status = green(status)
		default:
			status = red(status)
		}
		fmt.Fprintf(w, "%s %s %-6s %s %s\n",
			dim(e.StartedAt.Local().Format("2006-01-02 15:04:05")),
			status,
			e.Method,
			e.URL,
			dim(fmt.Sprintf("(%dms)", e.Duration.Milliseconds())),
		)
		if e.Error != "" && verboseFlag > 0 {
			fmt.Fprintf(w, "    %s\n", red(e.Error))
		}
	}
}

func historyClear(cmd *cobra.Command, args []string) error {
	store, err := openHistory()
	if err != nil {
		return err
	}
	defer store.Close()

	n, err := store.Clear(context.Background())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d entries\n", n)
	return nil
}
