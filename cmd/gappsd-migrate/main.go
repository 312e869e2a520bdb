// Command gappsd-migrate applies the gapps_queue/gapps_accounts/
// gapps_nicknames/gapps_reporting schema via goose, for operators and for
// integration tests that spin up a throwaway database. The daemon itself
// never auto-migrates in production.
package main

import (
	"database/sql"
	"fmt"
	"os"

	_ "github.com/go-sql-driver/mysql"
	"github.com/pressly/goose/v3"
	"github.com/spf13/pflag"

	"github.com/vzanotti/gappsd-go/internal/config"
	"github.com/vzanotti/gappsd-go/internal/sqlstore"
)

func main() {
	configPath := pflag.String("config", "", "path to the gappsd INI config file (required)")
	direction := pflag.String("direction", "up", "migration direction: up or down")
	pflag.Parse()

	if *configPath == "" {
		fmt.Fprintln(os.Stderr, "gappsd-migrate: --config is required")
		os.Exit(1)
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "gappsd-migrate:", err)
		os.Exit(1)
	}

	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&loc=UTC",
		cfg.MySQL.Username, cfg.MySQL.Password, cfg.MySQL.Hostname, cfg.MySQL.Port, cfg.MySQL.Database)
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		fmt.Fprintln(os.Stderr, "gappsd-migrate: open:", err)
		os.Exit(1)
	}
	defer db.Close()

	goose.SetBaseFS(sqlstore.Migrations)
	if err := goose.SetDialect("mysql"); err != nil {
		fmt.Fprintln(os.Stderr, "gappsd-migrate:", err)
		os.Exit(1)
	}

	switch *direction {
	case "up":
		err = goose.Up(db, "migrations")
	case "down":
		err = goose.Down(db, "migrations")
	default:
		fmt.Fprintln(os.Stderr, "gappsd-migrate: --direction must be up or down")
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "gappsd-migrate:", err)
		os.Exit(1)
	}
}
