package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/horas/internal/model"
	"github.com/Tiliavir/horas/internal/timecalc"
)

var (
	exportTenant string
	exportPeriod periodFlags
	exportFormat string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export stored tasks to stdout",
	Args:  cobra.NoArgs,
	RunE:  runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportTenant, "tenant", "", "Tenant id")
	exportCmd.Flags().StringVar(&exportPeriod.from, "from", "", "First day (YYYY-MM-DD, default start of this week)")
	exportCmd.Flags().StringVar(&exportPeriod.to, "to", "", "Last day (YYYY-MM-DD)")
	exportCmd.Flags().StringVar(&exportFormat, "format", "csv", "Output format: csv, json")
}

func runExport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	tenant, loc, err := tenantLocation(cfg, exportTenant)
	if err != nil {
		return err
	}
	p, err := exportPeriod.period(time.Now(), loc, thisWeek)
	if err != nil {
		return err
	}
	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	tasks, err := store.TasksBetween(ctx, tenant.ID, timecalc.DayKey(p.From), timecalc.DayKey(p.To))
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch exportFormat {
	case "json":
		if tasks == nil {
			tasks = []model.Task{}
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(tasks)
	case "csv":
		printCSV(out, tasks)
		return nil
	}
	return fmt.Errorf("unknown format %q (want csv or json)", exportFormat)
}

func printCSV(w io.Writer, tasks []model.Task) {
	fmt.Fprintln(w, "id,date,description,duration_seconds,updated_at")
	for _, t := range tasks {
		fmt.Fprintf(w, "%s,%s,%s,%d,%s\n",
			t.ID,
			t.Date,
			csvEscape(t.Description),
			t.TimeSpentSeconds,
			t.UpdatedAt.Format(time.RFC3339Nano),
		)
	}
}

// csvEscape wraps a field in quotes if it contains a comma, quote, or newline.
func csvEscape(s string) string {
	if !strings.ContainsAny(s, ",\"\n\r") {
		return s
	}
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
