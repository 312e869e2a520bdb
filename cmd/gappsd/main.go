// Command gappsd is the daemon binary: loads its INI config, connects to
// MySQL and the Directory/Reports APIs, and runs the supervised queue
// manager until SIGINT or a restart request. Grounded on the teacher's
// cmd/api/main.go wiring order (config -> logger -> database -> server),
// generalized from an HTTP server to the queue supervisor.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/vzanotti/gappsd-go/internal/config"
	"github.com/vzanotti/gappsd-go/internal/directory"
	"github.com/vzanotti/gappsd-go/internal/logging"
	"github.com/vzanotti/gappsd-go/internal/metrics"
	"github.com/vzanotti/gappsd-go/internal/queue"
	"github.com/vzanotti/gappsd-go/internal/queue/handlers"
	"github.com/vzanotti/gappsd-go/internal/scheduler"
	"github.com/vzanotti/gappsd-go/internal/sqlstore"
	"github.com/vzanotti/gappsd-go/internal/store"
	"github.com/vzanotti/gappsd-go/internal/supervisor"
)

const (
	exitConfigError = 78 // EX_CONFIG
	exitTempFail    = 75 // EX_TEMPFAIL, ask the process supervisor to relaunch us
)

func main() {
	configPath := pflag.String("config", "", "path to the gappsd INI config file (required)")
	verbose := pflag.Bool("verbose", false, "also log to stdout")
	pflag.Parse()

	if *configPath == "" {
		fmt.Fprintln(os.Stderr, "gappsd: --config is required")
		os.Exit(exitConfigError)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "gappsd:", err)
		os.Exit(exitConfigError)
	}

	log := logging.New(cfg.Daemon, cfg.Gapps.Domain, *verbose)
	defer log.Close()

	if cfg.Daemon.PIDFile != "" {
		if err := os.WriteFile(cfg.Daemon.PIDFile, []byte(fmt.Sprintf("%d\n", os.Getpid())), 0o644); err != nil {
			log.Fatal("write pid file", "error", err)
		}
		defer os.Remove(cfg.Daemon.PIDFile)
	}

	sqlStore, err := sqlstore.Open(cfg.MySQL)
	if err != nil {
		log.Fatal("connect to mysql", "error", err)
	}
	defer sqlStore.Close()
	sqlStore.Recycle(10 * time.Minute)

	ctx := context.Background()
	dirClient, err := directory.New(ctx, cfg.Gapps, cfg.Daemon.TokenExpiration)
	if err != nil {
		log.Fatal("connect to google workspace admin apis", "error", err)
	}

	queueStore := queue.NewSQLStore(sqlStore)
	mirror := store.New(sqlStore)

	registry := queue.NewRegistry()
	handlers.Register(registry, handlers.Deps{
		Directory:     dirClient,
		Store:         mirror,
		Queue:         queueStore,
		Log:           log,
		AdminOnlyJobs: cfg.Daemon.AdminOnlyJobs,
		ReportBacklog: cfg.Daemon.ActivityBacklog,
	})

	if cfg.Daemon.MetricsPort != 0 {
		go metrics.Serve(cfg.Daemon.MetricsPort, log)
	}

	sched, err := scheduler.New(queueStore, log, cfg.Daemon.UsageReportCron, cfg.Daemon.AccountReportCron)
	if err != nil {
		log.Fatal("invalid report schedule", "error", err)
	}
	sched.Start()
	defer sched.Stop()

	manager := queue.NewManager(queueStore, registry, log, queue.Delays{
		Immediate: 1 * time.Second,
		Normal:    cfg.Daemon.QueueDelayNormal,
		Offline:   cfg.Daemon.QueueDelayOffline,
		MinDelay:  cfg.Daemon.QueueMinDelay,
	}, cfg.Daemon.ReadOnly, cfg.Daemon.JobSoftfailDelay, cfg.Daemon.JobSoftfailThreshold)

	sup := supervisor.New(manager, dirClient, log, cfg.Daemon.MaxRunTime)
	if err := sup.Run(ctx); err != nil {
		if err == supervisor.ErrRestartRequested {
			os.Exit(exitTempFail)
		}
		log.Fatal("supervisor terminated unexpectedly", "error", err)
	}
}
