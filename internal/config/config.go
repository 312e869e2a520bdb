// Package config loads the daemon's INI configuration file and exposes it
// as a typed struct, the way the rest of this codebase expects: one Load
// constructor, one struct, no globals.
package config

import (
	"fmt"
	"time"

	"gopkg.in/ini.v1"
)

// Config holds every key the core reads from the INI file, grouped by
// section the way the file itself is grouped.
type Config struct {
	MySQL  MySQL
	Gapps  Gapps
	Daemon Daemon
}

type MySQL struct {
	Hostname string
	Port     int
	Username string
	Password string
	Database string
}

type Gapps struct {
	Domain       string
	Customer     string
	OAuth2Client string
	OAuth2Secret string
	OAuth2User   string
	AdminEmail   string
}

type Daemon struct {
	ActivityBacklog        int
	AdminOnlyJobs          bool
	JobSoftfailDelay       time.Duration
	JobSoftfailThreshold   int
	LogfileName            string
	LogfileRotation        int
	LogfileBacklog         int
	Logmail                string
	LogmailDelay           time.Duration
	LogmailSMTP            string
	LogmailDomainInSubject bool
	QueueMinDelay          time.Duration
	QueueDelayNormal       time.Duration
	QueueDelayOffline      time.Duration
	QueueWarnOverflow      time.Duration
	TokenExpiration        time.Duration
	MaxRunTime             time.Duration
	ReadOnly               bool
	PIDFile                string
	MetricsPort            int
	UsageReportCron        string
	AccountReportCron      string
}

// Error reports a missing or malformed mandatory key. It is always fatal:
// the daemon has no sane default to fall back to for core configuration.
type Error struct {
	Key string
	Err error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("config: key %q: %v", e.Key, e.Err)
	}
	return fmt.Sprintf("config: missing mandatory key %q", e.Key)
}

func (e *Error) Unwrap() error { return e.Err }

// Load reads and validates the INI file at path. Every key named in the
// external interface is mandatory except the operational-tuning knobs
// below, which the original daemon also defaults.
func Load(path string) (*Config, error) {
	f, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("config: load %s: %w", path, err)
	}

	cfg := &Config{}
	mysql := f.Section("mysql")
	for _, kv := range []struct {
		key string
		dst *string
	}{
		{"hostname", &cfg.MySQL.Hostname},
		{"username", &cfg.MySQL.Username},
		{"password", &cfg.MySQL.Password},
		{"database", &cfg.MySQL.Database},
	} {
		v, err := mustString(mysql, kv.key)
		if err != nil {
			return nil, err
		}
		*kv.dst = v
	}
	cfg.MySQL.Port = mysql.Key("port").MustInt(3306)

	gapps := f.Section("gapps")
	for _, kv := range []struct {
		key string
		dst *string
	}{
		{"domain", &cfg.Gapps.Domain},
		{"customer", &cfg.Gapps.Customer},
		{"oauth2-client", &cfg.Gapps.OAuth2Client},
		{"oauth2-secret", &cfg.Gapps.OAuth2Secret},
		{"oauth2-user", &cfg.Gapps.OAuth2User},
		{"admin-email", &cfg.Gapps.AdminEmail},
	} {
		v, err := mustString(gapps, kv.key)
		if err != nil {
			return nil, err
		}
		*kv.dst = v
	}

	d := f.Section("gappsd")
	cfg.Daemon.ActivityBacklog = d.Key("activity-backlog").MustInt(1000)
	cfg.Daemon.AdminOnlyJobs = d.Key("admin-only-jobs").MustBool(true)
	cfg.Daemon.JobSoftfailDelay = d.Key("job-softfail-delay").MustDuration(5 * time.Minute)
	cfg.Daemon.JobSoftfailThreshold = d.Key("job-softfail-threshold").MustInt(5)
	cfg.Daemon.LogfileName = d.Key("logfile-name").String()
	cfg.Daemon.LogfileRotation = d.Key("logfile-rotation").MustInt(7)
	cfg.Daemon.LogfileBacklog = d.Key("logfile-backlog").MustInt(14)
	cfg.Daemon.Logmail = d.Key("logmail").String()
	cfg.Daemon.LogmailDelay = d.Key("logmail-delay").MustDuration(15 * time.Minute)
	cfg.Daemon.LogmailSMTP = d.Key("logmail-smtp").String()
	cfg.Daemon.LogmailDomainInSubject = d.Key("logmail-domain-in-subject").MustBool(false)
	cfg.Daemon.QueueMinDelay = d.Key("queue-min-delay").MustDuration(time.Second)
	cfg.Daemon.QueueDelayNormal = d.Key("queue-delay-normal").MustDuration(10 * time.Second)
	cfg.Daemon.QueueDelayOffline = d.Key("queue-delay-offline").MustDuration(60 * time.Second)
	cfg.Daemon.QueueWarnOverflow = d.Key("queue-warn-overflow").MustDuration(time.Hour)
	cfg.Daemon.TokenExpiration = d.Key("token-expiration").MustDuration(55 * time.Minute)
	cfg.Daemon.MaxRunTime = d.Key("max-run-time").MustDuration(10 * time.Minute)
	cfg.Daemon.ReadOnly = d.Key("read-only").MustBool(false)
	cfg.Daemon.PIDFile = d.Key("pid-file").String()
	cfg.Daemon.MetricsPort = d.Key("metrics-port").MustInt(0)
	cfg.Daemon.UsageReportCron = d.Key("usage-report-cron").MustString("0 6 * * *")
	cfg.Daemon.AccountReportCron = d.Key("account-report-cron").MustString("30 6 * * *")

	return cfg, nil
}

func mustString(sec *ini.Section, key string) (string, error) {
	if !sec.HasKey(key) {
		return "", &Error{Key: sec.Name() + "." + key}
	}
	v := sec.Key(key).String()
	if v == "" {
		return "", &Error{Key: sec.Name() + "." + key}
	}
	return v, nil
}
