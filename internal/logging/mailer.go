package logging

import (
	"fmt"
	"net/smtp"
	"sync"
	"time"

	"github.com/vzanotti/gappsd-go/internal/config"
)

// Mailer coalesces critical log events by subject and flushes them to an
// SMTP relay at most once per configured delay, so a burst of identical
// failures (e.g. every queued job hitting the same credential error)
// produces one operator email instead of one per row.
type Mailer struct {
	cfg    config.Daemon
	domain string
	mu     sync.Mutex
	queue  map[string][]string
	timer  *time.Timer
	done   chan struct{}
}

// NewMailer returns nil when no mail sink is configured (gappsd.logmail
// empty), matching spec's optional-sink behavior. domain is interpolated
// into the subject line when cfg.LogmailDomainInSubject is set.
func NewMailer(cfg config.Daemon, domain string) *Mailer {
	if cfg.Logmail == "" || cfg.LogmailSMTP == "" {
		return nil
	}
	m := &Mailer{
		cfg:    cfg,
		domain: domain,
		queue:  make(map[string][]string),
		done:   make(chan struct{}),
	}
	go m.loop()
	return m
}

// Enqueue records one occurrence of subject for the next flush.
func (m *Mailer) Enqueue(subject string, kv []interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue[subject] = append(m.queue[subject], fmt.Sprint(kv...))
}

func (m *Mailer) loop() {
	ticker := time.NewTicker(m.cfg.LogmailDelay)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			m.flush()
		case <-m.done:
			m.flush()
			return
		}
	}
}

func (m *Mailer) flush() {
	m.mu.Lock()
	batch := m.queue
	m.queue = make(map[string][]string)
	m.mu.Unlock()

	for subject, occurrences := range batch {
		full := fmt.Sprintf("[gappsd] %s", subject)
		if m.cfg.LogmailDomainInSubject {
			full = fmt.Sprintf("[gappsd-%s] %s", m.domain, subject)
		}
		body := fmt.Sprintf("%d occurrence(s):\n", len(occurrences))
		for _, o := range occurrences {
			body += o + "\n"
		}
		msg := []byte("Subject: " + full + "\r\n\r\n" + body)
		_ = smtp.SendMail(m.cfg.LogmailSMTP, nil, "gappsd@localhost", []string{m.cfg.Logmail}, msg)
	}
}

// Stop flushes any pending batch and stops the background timer.
func (m *Mailer) Stop() {
	close(m.done)
}
