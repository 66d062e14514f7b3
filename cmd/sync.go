package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Tiliavir/horas/internal/model"
	"github.com/Tiliavir/horas/internal/registry"
	"github.com/Tiliavir/horas/internal/timecalc"
	"github.com/Tiliavir/horas/internal/worklog"
)

var (
	syncTenant string
	syncAll    bool
	syncPeriod periodFlags
	syncDryRun bool
)

// maxParallelTenants bounds concurrent passes for --all.
const maxParallelTenants = 4

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Push tracked time to issue tracker worklogs",
	Long: `Fetch time entries for the period (yesterday by default), total them per
day and description, and create or update one worklog per total on the
ticket the description mentions.

Exit status is 1 when a tenant could not be synchronized at all and 2 when
some worklogs failed; those tasks are retried on the next run.`,
	Args: cobra.NoArgs,
	RunE: runSync,
}

func init() {
	f := syncCmd.Flags()
	f.StringVar(&syncTenant, "tenant", "", "Tenant id")
	f.BoolVar(&syncAll, "all", false, "Synchronize every configured tenant")
	f.StringVar(&syncPeriod.date, "date", "", "Single day (YYYY-MM-DD)")
	f.StringVar(&syncPeriod.from, "from", "", "First day (YYYY-MM-DD)")
	f.StringVar(&syncPeriod.to, "to", "", "Last day (YYYY-MM-DD, default today)")
	f.BoolVar(&syncPeriod.today, "today", false, "Synchronize today")
	f.BoolVar(&syncPeriod.week, "week", false, "Synchronize this week")
	f.BoolVar(&syncDryRun, "dry-run", false, "Read everything, write nothing remotely")
	syncCmd.MarkFlagsMutuallyExclusive("tenant", "all")
	syncCmd.MarkFlagsMutuallyExclusive("date", "from", "today", "week")
}

type tenantRun struct {
	id     string
	period model.Period
	result worklog.Result
	err    error
}

func runSync(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ids := []string{syncTenant}
	if syncAll {
		ids = cfg.TenantIDs()
		if len(ids) == 0 {
			return fmt.Errorf("no tenants configured")
		}
	}

	runs := make([]tenantRun, len(ids))
	now := time.Now()
	for i, id := range ids {
		_, loc, err := tenantLocation(cfg, id)
		if err != nil {
			return err
		}
		p, err := syncPeriod.period(now, loc, yesterday)
		if err != nil {
			return err
		}
		runs[i] = tenantRun{id: id, period: p}
	}

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	engine := &worklog.Engine{
		Store:   store,
		Tenants: &registry.Registry{Config: cfg, Logger: slog.Default(), Prompt: cmd.OutOrStdout()},
		DryRun:  syncDryRun,
		Logger:  slog.Default(),
	}

	var g errgroup.Group
	g.SetLimit(maxParallelTenants)
	for i := range runs {
		run := &runs[i]
		g.Go(func() error {
			run.result, run.err = engine.Synchronize(ctx, run.id, run.period)
			return nil
		})
	}
	_ = g.Wait()

	out := cmd.OutOrStdout()
	var aborted, failed int
	for _, run := range runs {
		printRun(out, run)
		if run.err != nil {
			aborted++
		}
		failed += run.result.Failed
	}
	switch {
	case aborted > 0:
		return fmt.Errorf("%d of %d tenants could not be synchronized", aborted, len(runs))
	case failed > 0:
		return &exitError{code: 2, err: fmt.Errorf("%d worklogs failed, they will be retried on the next run", failed)}
	}
	return nil
}

func printRun(w io.Writer, run tenantRun) {
	label := fmt.Sprintf("%s  %s", run.id, timecalc.DayKey(run.period.From))
	if !run.period.To.Equal(run.period.From) {
		label += " – " + timecalc.DayKey(run.period.To)
	}
	if syncDryRun {
		label += "  (dry run)"
	}
	fmt.Fprintln(w, headerStyle.Render(label))

	if run.err != nil {
		fmt.Fprintf(w, "  %s %v\n", errorStyle.Render(abortReason(run.err)), run.err)
		return
	}

	failures := map[string]error{}
	for _, f := range run.result.Failures {
		failures[f.Task.ID] = f.Err
	}
	for _, tr := range run.result.Tasks {
		line := fmt.Sprintf("  %s %s  %s (%s)", renderOutcome(tr.Outcome), tr.Task.Date, tr.Task.Description,
			timecalc.FormatDuration(tr.Task.TimeSpentSeconds))
		if err, ok := failures[tr.Task.ID]; ok {
			line += "\n      " + faintStyle.Render(err.Error())
		}
		fmt.Fprintln(w, line)
	}

	r := run.result
	fmt.Fprintln(w, faintStyle.Render(fmt.Sprintf(
		"  %d aggregated, %d created, %d updated, %d unchanged, %d without ticket, %d failed",
		r.Aggregated, r.Created, r.Updated, r.Unchanged, r.Unmatched, r.Failed)))
}

func abortReason(err error) string {
	switch {
	case errors.Is(err, worklog.ErrConfiguration):
		return "Configuration:"
	case errors.Is(err, worklog.ErrSourceFetch):
		return "Time source:"
	case errors.Is(err, context.Canceled):
		return "Cancelled:"
	default:
		return "Error:"
	}
}
