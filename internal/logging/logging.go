// Package logging builds the daemon's structured logger: a rotating file
// sink plus a rate-limited mail sink for the critical events operators
// need to be paged on. Generalizes the teacher's zap.SugaredLogger wrapper
// from a single stdout encoder to the daemon's file+mail sink pair.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/vzanotti/gappsd-go/internal/config"
)

// Logger wraps zap's SugaredLogger and adds a Critical level: zap has no
// native level past Error that matches the daemon's "requires operator
// attention" semantics, so Critical is Error level plus a
// severity=critical field, and Critical also hands the event to the
// mail sink directly.
type Logger struct {
	*zap.SugaredLogger
	mailer *Mailer
}

// New builds a Logger writing to the rotating file named by the daemon
// config, optionally also echoing to stdout when verbose is set. domain
// is the Workspace domain the mail sink interpolates into its subject
// line when gappsd.logmail-domain-in-subject is set.
func New(cfg config.Daemon, domain string, verbose bool) *Logger {
	rotator := &lumberjack.Logger{
		Filename:   cfg.LogfileName,
		MaxAge:     cfg.LogfileRotation,
		MaxBackups: cfg.LogfileBacklog,
		Compress:   true,
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "timestamp"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderCfg.EncodeDuration = zapcore.StringDurationEncoder
	encoderCfg.EncodeCaller = zapcore.ShortCallerEncoder
	encoder := zapcore.NewJSONEncoder(encoderCfg)

	cores := []zapcore.Core{
		zapcore.NewCore(encoder, zapcore.AddSync(rotator), zapcore.DebugLevel),
	}
	if verbose {
		cores = append(cores, zapcore.NewCore(zapcore.NewConsoleEncoder(encoderCfg), zapcore.Lock(zapcore.AddSync(newStdout())), zapcore.DebugLevel))
	}

	mailer := NewMailer(cfg, domain)
	core := zapcore.NewTee(cores...)
	l := zap.New(core, zap.AddCaller()).Sugar()
	return &Logger{SugaredLogger: l, mailer: mailer}
}

// Critical logs at error level and, if a mail sink is configured, queues
// the message for rate-limited delivery to the operator mailing list.
func (l *Logger) Critical(subject string, keysAndValues ...interface{}) {
	l.Errorw(subject, append(keysAndValues, "severity", "critical")...)
	if l.mailer != nil {
		l.mailer.Enqueue(subject, keysAndValues)
	}
}

// Fatal logs a fatal error and exits, matching the teacher's convention.
func (l *Logger) Fatal(msg string, keysAndValues ...interface{}) {
	l.Fatalw(msg, keysAndValues...)
}

// Close flushes buffered log output and stops the mailer's background timer.
func (l *Logger) Close() {
	_ = l.Sync()
	if l.mailer != nil {
		l.mailer.Stop()
	}
}
