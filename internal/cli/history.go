package cli

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/mcp-compliance-runner/internal/history"
	"github.com/spf13/cobra"
)

func newHistoryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect stored compliance runs",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List stored runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			offset, _ := cmd.Flags().GetInt("offset")
			return withStore(cmd, func(store history.Store) error {
				runs, err := store.List(cmd.Context(), limit, offset)
				if err != nil {
					return err
				}
				printRuns(cmd.OutOrStdout(), runs)
				return nil
			})
		},
	}
	list.Flags().Int("limit", 20, "maximum number of runs to list")
	list.Flags().Int("offset", 0, "number of runs to skip")

	export := &cobra.Command{
		Use:   "export",
		Short: "Export every stored run as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, _ := cmd.Flags().GetString("output")
			return withStore(cmd, func(store history.Store) error {
				if path == "" {
					return store.ExportJSON(cmd.Context(), cmd.OutOrStdout())
				}
				f, err := os.Create(path)
				if err != nil {
					return fmt.Errorf("failed to create export file: %w", err)
				}
				defer f.Close()
				return store.ExportJSON(cmd.Context(), f)
			})
		},
	}
	export.Flags().StringP("output", "o", "", "write the export to a file instead of stdout")

	cmd.AddCommand(list, export)
	return cmd
}

// withStore opens the configured history store for the duration of fn
func withStore(cmd *cobra.Command, fn func(history.Store) error) error {
	manager, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := newLogger(manager)
	if err != nil {
		return err
	}
	defer closeLogger(logger)

	store, err := history.Open(cmd.Context(), manager.GetConfig().History, logger)
	if err != nil {
		return setupError("failed to open run history: %v", err)
	}
	if store == nil {
		return setupError("run history is not configured (set history.driver and history.dsn)")
	}
	defer store.Close()

	if err := fn(store); err != nil {
		return setupError("%v", err)
	}
	return nil
}

func printRuns(w io.Writer, runs []*history.Record) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN ID\tTIMESTAMP\tSPEC\tSERVER\tSTATUS\tPASSED\tFAILED\tSKIPPED\tMUST FAILURES")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\t%d\t%d\t%d\n",
			r.RunID, r.Timestamp.Format("2006-01-02 15:04:05"), r.SpecVersion, r.ServerURL, r.Status,
			r.Summary.Passed, r.Summary.Failed, r.Summary.Skipped, r.Summary.MustFailures)
	}
	tw.Flush()
}
