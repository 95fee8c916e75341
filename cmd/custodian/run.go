package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/custodian/pkg/cli"
	"mercator-hq/custodian/pkg/config"
	"mercator-hq/custodian/pkg/retention/policies"
	"mercator-hq/custodian/pkg/retention/scanner"
	"mercator-hq/custodian/pkg/server"
	"mercator-hq/custodian/pkg/telemetry/health"
)

var runFlags struct {
	listenAddress string
	dryRun        bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the scheduler, policy watcher and ops server",
	Long: `Run custodian as a long-lived service.

The service imports the configured policy file, schedules the expiry scan
and the upcoming-expiry notifier, optionally watches the policy file for
changes, and serves /health, /ready, /version and /metrics.

Examples:
  # Start with a config file
  custodian run --config /etc/custodian/config.yaml

  # Override the ops listen address
  custodian run --listen 0.0.0.0:9090

  # Validate configuration and connectivity without starting
  custodian run --dry-run`,
	RunE: runService,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override ops server listen address")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config and connectivity, then exit")
}

func runService(cmd *cobra.Command, args []string) error {
	cfg := config.GetConfig()
	if runFlags.listenAddress != "" {
		cfg.Server.ListenAddress = runFlags.listenAddress
	}

	ctx, stop := cli.SetupSignalHandler(cmd.Context())
	defer stop()

	a, err := newApp(cfg)
	if err != nil {
		return cli.NewCommandError("run", err)
	}
	defer a.Close()

	if runFlags.dryRun {
		status := a.healthChecker().CheckReadiness(ctx)
		fmt.Fprintf(cmd.OutOrStdout(), "configuration valid, readiness: %s\n", status.Status)
		return nil
	}

	if cfg.Policies.FilePath != "" {
		watcher, err := policies.NewWatcher(a.policies, cfg.Policies.FilePath, cfg.Policies.Debounce)
		if err != nil {
			return cli.NewCommandError("run", err)
		}
		result, err := watcher.Reload(ctx)
		if err != nil {
			return cli.NewCommandError("run", fmt.Errorf("policy import failed: %w", err))
		}
		slog.Info("policy file imported",
			"path", cfg.Policies.FilePath,
			"created", result.Created,
			"updated", result.Updated,
			"unchanged", result.Unchanged,
		)

		if cfg.Policies.Watch {
			go func() {
				if err := watcher.Watch(ctx); err != nil {
					slog.Error("policy file watcher failed", "error", err)
				}
			}()
			defer watcher.Stop()
		}
	}

	sched := scanner.NewCronScheduler()
	if err := scanner.Register(sched, a.scanner, &cfg.Scanner, &cfg.Notifications); err != nil {
		return cli.NewCommandError("run", err)
	}
	sched.Start(ctx)
	defer sched.Stop()

	for _, job := range []string{scanner.ScanJob, scanner.NotifyJob} {
		if next := sched.NextRun(job); next != nil {
			slog.Info("job scheduled", "job", job, "next_run", next.Format(time.RFC3339))
		}
	}

	if !cfg.Server.Enabled {
		<-ctx.Done()
		return nil
	}

	checker := a.healthChecker()
	checker.RegisterCheck("scheduler", health.SchedulerCheck(sched.NextRun, scheduledJobs(cfg)...))

	metricsHandler := a.metrics.Handler()
	if !cfg.Telemetry.Metrics.Enabled {
		metricsHandler = nil
	}
	srv := server.NewServer(&cfg.Server, checker, metricsHandler, cfg.Telemetry.Metrics.Path, server.BuildInfo{
		Version:   Version,
		Commit:    GitCommit,
		BuildTime: BuildDate,
	})

	if err := srv.Start(ctx); err != nil {
		return cli.NewCommandError("run", err)
	}
	slog.Info("custodian stopped")
	return nil
}

// scheduledJobs lists the jobs the readiness check expects to find.
func scheduledJobs(cfg *config.Config) []string {
	var jobs []string
	if cfg.Scanner.Enabled {
		jobs = append(jobs, scanner.ScanJob)
	}
	if cfg.Notifications.Enabled {
		jobs = append(jobs, scanner.NotifyJob)
	}
	return jobs
}
