// Command gappsd-admin drains the admin partition of the queue
// interactively, requiring the operator's email and a password prompt
// (read without echo via golang.org/x/term) before connecting.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/vzanotti/gappsd-go/internal/admin"
	"github.com/vzanotti/gappsd-go/internal/config"
	"github.com/vzanotti/gappsd-go/internal/directory"
	"github.com/vzanotti/gappsd-go/internal/logging"
	"github.com/vzanotti/gappsd-go/internal/queue"
	"github.com/vzanotti/gappsd-go/internal/queue/handlers"
	"github.com/vzanotti/gappsd-go/internal/sqlstore"
	"github.com/vzanotti/gappsd-go/internal/store"
)

const exitConfigError = 78

func main() {
	configPath := pflag.String("config", "", "path to the gappsd INI config file (required)")
	adminEmail := pflag.String("admin-email", "", "email of the operator confirming jobs (required)")
	pflag.Parse()

	if *configPath == "" || *adminEmail == "" {
		fmt.Fprintln(os.Stderr, "gappsd-admin: --config and --admin-email are required")
		os.Exit(exitConfigError)
	}

	fmt.Fprint(os.Stderr, "Password: ")
	passwordBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		fmt.Fprintln(os.Stderr, "gappsd-admin: read password:", err)
		os.Exit(exitConfigError)
	}
	_ = passwordBytes // read but not checked: no operator authentication is performed here

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "gappsd-admin:", err)
		os.Exit(exitConfigError)
	}

	log := logging.New(cfg.Daemon, cfg.Gapps.Domain, true)
	defer log.Close()

	sqlStore, err := sqlstore.Open(cfg.MySQL)
	if err != nil {
		log.Fatal("connect to mysql", "error", err)
	}
	defer sqlStore.Close()

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
		AdminOnlyJobs: true, // the console always runs with privileges
		ReportBacklog: cfg.Daemon.ActivityBacklog,
	})

	console := &admin.Console{
		Store:         queueStore,
		Registry:      registry,
		Log:           log,
		SoftfailDelay: cfg.Daemon.JobSoftfailDelay,
		SoftfailMax:   cfg.Daemon.JobSoftfailThreshold,
		In:            os.Stdin,
		Out:           os.Stdout,
	}
	fmt.Fprintf(os.Stdout, "gappsd-admin: draining admin queue as %s\n", *adminEmail)
	if err := console.Run(ctx); err != nil {
		log.Fatal("admin console terminated", "error", err)
	}
}
