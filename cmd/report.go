package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/horas/internal/model"
	"github.com/Tiliavir/horas/internal/ticket"
	"github.com/Tiliavir/horas/internal/timecalc"
)

const noTicket = "(no ticket)"

var (
	reportTenant string
	reportPeriod periodFlags
	reportFormat string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Show time per day and per ticket",
	Args:  cobra.NoArgs,
	RunE:  runReport,
}

func init() {
	reportCmd.Flags().StringVar(&reportTenant, "tenant", "", "Tenant id")
	reportCmd.Flags().BoolVar(&reportPeriod.week, "week", false, "Report for this week (default)")
	reportCmd.Flags().BoolVar(&reportPeriod.today, "today", false, "Report for today")
	reportCmd.Flags().StringVar(&reportPeriod.from, "from", "", "First day (YYYY-MM-DD)")
	reportCmd.Flags().StringVar(&reportPeriod.to, "to", "", "Last day (YYYY-MM-DD)")
	reportCmd.Flags().StringVar(&reportFormat, "format", "md", "Output format: md, csv, json")
}

// report is the totals of one tenant over a period.
type report struct {
	Label        string           `json:"period"`
	Days         map[string]int64 `json:"days"`
	Tickets      map[string]int64 `json:"tickets"`
	TotalSeconds int64            `json:"total_seconds"`
}

func buildReport(label string, tasks []model.Task, matcher *ticket.Matcher) report {
	r := report{Label: label, Days: map[string]int64{}, Tickets: map[string]int64{}}
	for _, t := range tasks {
		key := noTicket
		if m, ok := matcher.Match(t.Description); ok {
			key = m.TicketID
		}
		r.Days[t.Date] += t.TimeSpentSeconds
		r.Tickets[key] += t.TimeSpentSeconds
		r.TotalSeconds += t.TimeSpentSeconds
	}
	return r
}

func sortedKeys(m map[string]int64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func runReport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	tenant, loc, err := tenantLocation(cfg, reportTenant)
	if err != nil {
		return err
	}
	matcher, err := ticket.Compile(tenant.TicketPatterns)
	if err != nil {
		return err
	}
	p, err := reportPeriod.period(time.Now(), loc, thisWeek)
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
	label := timecalc.DayKey(p.From) + " – " + timecalc.DayKey(p.To)
	if monday, sunday := timecalc.WeekRange(p.From); monday.Equal(p.From) && sunday.Equal(p.To) {
		label = "Week " + timecalc.ISOWeekLabel(p.From)
	}
	return writeReport(cmd.OutOrStdout(), buildReport(label, tasks, matcher), reportFormat)
}

func writeReport(w io.Writer, r report, format string) error {
	switch format {
	case "csv":
		fmt.Fprintln(w, "kind,key,duration_minutes")
		for _, d := range sortedKeys(r.Days) {
			fmt.Fprintf(w, "day,%s,%d\n", d, r.Days[d]/60)
		}
		for _, k := range sortedKeys(r.Tickets) {
			fmt.Fprintf(w, "ticket,%s,%d\n", csvEscape(k), r.Tickets[k]/60)
		}
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	case "md", "":
		fmt.Fprintln(w, headerStyle.Render(r.Label))
		fmt.Fprintln(w, "--------------------------------")
		for _, d := range sortedKeys(r.Days) {
			fmt.Fprintf(w, "%-20s%s\n", d, timecalc.FormatDuration(r.Days[d]))
		}
		fmt.Fprintln(w, "--------------------------------")
		for _, k := range sortedKeys(r.Tickets) {
			fmt.Fprintf(w, "%-20s%s\n", k, timecalc.FormatDuration(r.Tickets[k]))
		}
		fmt.Fprintln(w, "--------------------------------")
		fmt.Fprintf(w, "%-20s%s\n", "Total", timecalc.FormatDuration(r.TotalSeconds))
	default:
		return fmt.Errorf("unknown format %q (want md, csv or json)", format)
	}
	return nil
}
