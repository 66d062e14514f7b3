package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/horas/internal/model"
	"github.com/Tiliavir/horas/internal/registry"
	"github.com/Tiliavir/horas/internal/syncstate"
	"github.com/Tiliavir/horas/internal/timecalc"
)

var (
	tasksTenant string
	tasksSince  string
	tasksStale  bool
)

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "List stored daily task totals",
	Long: `List the tenant's tasks updated after --since (all tasks by default), or
with --stale the tasks the next sync will push.`,
	Args: cobra.NoArgs,
	RunE: runTasks,
}

func init() {
	tasksCmd.Flags().StringVar(&tasksTenant, "tenant", "", "Tenant id")
	tasksCmd.Flags().StringVar(&tasksSince, "since", "", "Only tasks updated after this instant (RFC3339 or YYYY-MM-DD)")
	tasksCmd.Flags().BoolVar(&tasksStale, "stale", false, "Only tasks not yet pushed in their current state")
	tasksCmd.MarkFlagsMutuallyExclusive("since", "stale")
}

func runTasks(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	tenant, loc, err := tenantLocation(cfg, tasksTenant)
	if err != nil {
		return err
	}
	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	out := cmd.OutOrStdout()
	if tasksStale {
		marks := syncstate.New(store, registry.SynchronizerName(tenant), syncstate.WithContentMarks(tenant.ContentMarks))
		tasks, err := marks.StaleTasks(ctx, tenant.ID)
		if err != nil {
			return err
		}
		printTasks(out, tasks)
		return nil
	}

	since, err := parseSince(tasksSince, loc)
	if err != nil {
		return err
	}
	var tasks []model.Task
	for task, err := range store.TasksDueSince(ctx, tenant.ID, since) {
		if err != nil {
			return err
		}
		tasks = append(tasks, task)
	}
	printTasks(out, tasks)
	return nil
}

func parseSince(s string, loc *time.Location) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return timecalc.ParseDay(s, loc)
}

// printTasks groups tasks by date and prints them.
func printTasks(w io.Writer, tasks []model.Task) {
	if len(tasks) == 0 {
		fmt.Fprintln(w, "No tasks found.")
		return
	}
	var currentDay string
	for _, t := range tasks {
		if t.Date != currentDay {
			fmt.Fprintln(w, headerStyle.Render(t.Date))
			currentDay = t.Date
		}
		fmt.Fprintf(w, "  %-8s  %s  %s\n", timecalc.FormatDuration(t.TimeSpentSeconds), t.Description,
			faintStyle.Render(t.UpdatedAt.Local().Format("2006-01-02 15:04:05")))
	}
}
