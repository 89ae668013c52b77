package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/IshaanNene/TrendGoat/internal/scheduler"
	"github.com/IshaanNene/TrendGoat/internal/types"
)

var (
	scheduleInterval time.Duration
	scheduleSources  []string
)

// schedulerCmd creates the "scheduler" command group. The schedule itself
// runs inside "serve"; these commands edit its persisted state.
func schedulerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scheduler",
		Short: "Inspect or change the background collection schedule",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show the schedule",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, sched, err := openScheduler(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			printSchedule(sched.Status())
			return nil
		},
	})

	enable := &cobra.Command{
		Use:   "enable",
		Short: "Enable the schedule; serve resumes it on start",
		RunE: func(cmd *cobra.Command, _ []string) error {
			srcs, err := types.ParseSources(scheduleSources)
			if err != nil {
				return err
			}
			a, sched, err := openScheduler(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			defer sched.Shutdown()

			enabled := true
			st, err := sched.UpdateSettings(scheduler.Settings{Interval: scheduleInterval, Sources: srcs, Enabled: &enabled})
			if err != nil {
				return err
			}
			printSchedule(st)
			return nil
		},
	}
	enable.Flags().DurationVarP(&scheduleInterval, "interval", "i", 0, "collection interval, 5m to 24h (default: keep current)")
	enable.Flags().StringSliceVarP(&scheduleSources, "sources", "s", nil, "sources to collect (default: keep current)")
	cmd.AddCommand(enable)

	cmd.AddCommand(&cobra.Command{
		Use:   "disable",
		Short: "Disable the schedule",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, sched, err := openScheduler(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			if err := sched.Stop(); err != nil {
				return err
			}
			fmt.Println("Schedule disabled")
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "trigger",
		Short: "Run a scheduled collection now and record it in the schedule status",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.withEngine(); err != nil {
				return err
			}
			sched, err := scheduler.New(&a.cfg.Scheduler, a.engine, a.logger)
			if err != nil {
				return err
			}
			if err := sched.TriggerNow(cmd.Context()); err != nil {
				return err
			}
			sched.Wait()
			if report := a.engine.LastReport(); report != nil {
				printRunReport(report)
			}
			printSchedule(sched.Status())
			return nil
		},
	})

	return cmd
}

// openScheduler loads the persisted schedule without an engine attached.
func openScheduler(cmd *cobra.Command) (*app, *scheduler.Scheduler, error) {
	a, err := newApp(cmd.Context(), nil)
	if err != nil {
		return nil, nil, err
	}
	sched, err := scheduler.New(&a.cfg.Scheduler, nil, a.logger)
	if err != nil {
		a.Close()
		return nil, nil, err
	}
	return a, sched, nil
}

func printSchedule(st scheduler.Status) {
	state := "disabled"
	if st.Enabled {
		state = "enabled"
	}
	fmt.Printf("Schedule:     %s, every %d minutes\n", state, st.IntervalMinutes)
	fmt.Printf("Sources:      %v\n", st.Sources)
	if st.LastRun != nil {
		fmt.Printf("Last run:     %s\n", st.LastRun.Local().Format(time.DateTime))
	}
	if st.NextRun != nil && st.Enabled {
		fmt.Printf("Next run:     %s\n", st.NextRun.Local().Format(time.DateTime))
	}
	fmt.Printf("Collections:  %d (%d succeeded, %d failed)\n", st.CollectionCount, st.SuccessCount, st.ErrorCount)
	if st.LastError != "" {
		fmt.Printf("Last error:   %s\n", st.LastError)
	}
}
