package alert

import (
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"
	"sync"
	"time"

	"github.com/soundprediction/mediagraph/pkg/config"
)

// Alerter defines an interface for sending alerts
type Alerter interface {
	Alert(subject, message string) error
}

// DefaultQuietPeriod suppresses repeats of the same subject.
const DefaultQuietPeriod = 15 * time.Minute

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// EmailAlerter implements Alerter using SMTP
type EmailAlerter struct {
	cfg    config.AlertConfig
	send   sendFunc
	quiet  time.Duration
	now    func() time.Time
	logger *slog.Logger

	mu   sync.Mutex
	last map[string]time.Time
}

// New returns an EmailAlerter when alerting is enabled and a NoOpAlerter otherwise.
func New(cfg config.AlertConfig, logger *slog.Logger) Alerter {
	if !cfg.Enabled {
		return &NoOpAlerter{}
	}
	a := NewEmailAlerter(cfg)
	if logger != nil {
		a.logger = logger
	}
	return a
}

// NewEmailAlerter creates a new email alerter
func NewEmailAlerter(cfg config.AlertConfig) *EmailAlerter {
	return &EmailAlerter{
		cfg:    cfg,
		send:   smtp.SendMail,
		quiet:  DefaultQuietPeriod,
		now:    time.Now,
		logger: slog.Default(),
		last:   make(map[string]time.Time),
	}
}

// Alert sends an email with the given subject and message. A subject that
// was sent within the quiet period is dropped.
func (a *EmailAlerter) Alert(subject, message string) error {
	if !a.cfg.Enabled {
		return nil
	}

	a.mu.Lock()
	now := a.now()
	if prev, ok := a.last[subject]; ok && now.Sub(prev) < a.quiet {
		a.mu.Unlock()
		a.logger.Debug("Alert suppressed", "subject", subject)
		return nil
	}
	a.last[subject] = now
	a.mu.Unlock()

	var auth smtp.Auth
	if a.cfg.Username != "" {
		auth = smtp.PlainAuth("", a.cfg.Username, a.cfg.Password, a.cfg.SMTPHost)
	}

	to := a.cfg.To
	msg := []byte(fmt.Sprintf("From: %s\r\n"+
		"To: %s\r\n"+
		"Subject: [mediagraph] %s\r\n"+
		"\r\n"+
		"%s\r\n", a.cfg.From, strings.Join(to, ","), subject, message))

	addr := fmt.Sprintf("%s:%d", a.cfg.SMTPHost, a.cfg.SMTPPort)

	if err := a.send(addr, auth, a.cfg.From, to, msg); err != nil {
		// allow a retry on the next call
		a.mu.Lock()
		delete(a.last, subject)
		a.mu.Unlock()
		return fmt.Errorf("failed to send alert email: %w", err)
	}

	a.logger.Info("Alert sent", "subject", subject, "recipients", len(to))
	return nil
}

// NoOpAlerter is a dummy alerter for when alerting is disabled
type NoOpAlerter struct{}

func (n *NoOpAlerter) Alert(subject, message string) error {
	return nil
}
