package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/cny-realestate-etl/internal/model"
	"github.com/sells-group/cny-realestate-etl/internal/store"
)

var statusOutput string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show warehouse contents and load history",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("status"); err != nil {
			return err
		}
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}
		stats, err := st.Stats(ctx)
		if err != nil {
			return eris.Wrap(err, "status")
		}
		loads, err := st.ListLoads(ctx)
		if err != nil {
			return eris.Wrap(err, "status")
		}

		switch statusOutput {
		case "yaml":
			return writeStatusYAML(os.Stdout, stats, loads)
		case "table":
			formatStats(os.Stdout, stats)
			formatLoads(os.Stdout, loads)
			return nil
		default:
			return eris.Errorf("status: unknown output %q", statusOutput)
		}
	},
}

func init() {
	statusCmd.Flags().StringVarP(&statusOutput, "output", "o", "table", "table or yaml")
	rootCmd.AddCommand(statusCmd)
}

type statusReport struct {
	Warehouse *store.Stats       `yaml:"warehouse"`
	Loads     []model.LoadMarker `yaml:"loads"`
}

func writeStatusYAML(out io.Writer, stats *store.Stats, loads []model.LoadMarker) error {
	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	if err := enc.Encode(statusReport{Warehouse: stats, Loads: loads}); err != nil {
		return eris.Wrap(err, "status: encode yaml")
	}
	return eris.Wrap(enc.Close(), "status: flush yaml")
}

func formatStats(out io.Writer, s *store.Stats) {
	coverage := 0.0
	if s.Parcels > 0 {
		coverage = float64(s.ParcelsWithZip) / float64(s.Parcels) * 100
	}
	_, _ = fmt.Fprintf(out, "parcels: %d (%d with zip, %.1f%%)\n", s.Parcels, s.ParcelsWithZip, coverage)
	_, _ = fmt.Fprintf(out, "assessments: %d  ratios: %d\n", s.Assessments, s.Ratios)
	_, _ = fmt.Fprintf(out, "loads: %d complete, %d failed\n\n", s.CompletedLoads, s.FailedLoads)
}

// formatLoads writes a tabular representation of load markers to out.
func formatLoads(out io.Writer, loads []model.LoadMarker) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "DATASET\tCOUNTY\tYEAR\tSTATUS\tSTARTED\tDURATION\tROWS\tSKIPPED\tERROR")
	_, _ = fmt.Fprintln(w, "-------\t------\t----\t------\t-------\t--------\t----\t-------\t-----")

	for _, l := range loads {
		dur := "-"
		if l.CompletedAt != nil {
			dur = l.CompletedAt.Sub(l.StartedAt).Round(time.Second).String()
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\t%s\t%d\t%d\t%s\n",
			l.Dataset,
			l.CountyName,
			l.Year,
			l.Status,
			l.StartedAt.Format("2006-01-02 15:04"),
			dur,
			l.RowsLoaded,
			l.RowsSkipped,
			truncate(l.Error, 60),
		)
	}
	_ = w.Flush()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
