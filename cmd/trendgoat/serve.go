package main

import (
	"github.com/spf13/cobra"

	"github.com/IshaanNene/TrendGoat/internal/api"
	"github.com/IshaanNene/TrendGoat/internal/config"
	"github.com/IshaanNene/TrendGoat/internal/dashboard"
	"github.com/IshaanNene/TrendGoat/internal/scheduler"
)

var (
	servePort   int
	serveHost   string
	noScheduler bool
)

// serveCmd creates the "serve" subcommand.
func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the dashboard and JSON API",
		Long: `Serve the dashboard pages, the JSON API and Prometheus metrics. A
schedule that was enabled when the previous process exited is resumed.`,
		RunE: runServe,
	}
	cmd.Flags().IntVarP(&servePort, "port", "p", 0, "listen port (default from config, 5000)")
	cmd.Flags().StringVar(&serveHost, "host", "", "listen address (default from config)")
	cmd.Flags().BoolVar(&noScheduler, "no-scheduler", false, "do not resume the background schedule")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, func(cfg *config.Config) {
		if servePort > 0 {
			cfg.Dashboard.Port = servePort
		}
		if serveHost != "" {
			cfg.Dashboard.Host = serveHost
		}
	})
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
	if !noScheduler {
		if err := sched.AutoStart(ctx); err != nil {
			a.logger.Warn("could not resume schedule", "error", err)
		}
	}
	defer sched.Shutdown()

	dash, err := dashboard.New(a.logger)
	if err != nil {
		return err
	}

	srv := api.NewServer(api.Options{
		Config:    a.cfg,
		Engine:    a.engine,
		Store:     a.store,
		Keywords:  a.keywords,
		Trending:  a.trending,
		Scheduler: sched,
		Logs:      a.logs,
		Metrics:   a.metrics,
		Pages:     dash.Routes,
	}, a.logger)
	return srv.ListenAndServe(ctx)
}
