package mailer

import (
	"context"

	"github.com/sirupsen/logrus"
)

// Mailer delivers a single HTML email.
type Mailer interface {
	Send(ctx context.Context, to, subject, html string) error
}

// LogMailer writes emails to the log instead of sending them. It is used
// when no email provider is configured.
type LogMailer struct {
	logger *logrus.Logger
}

func NewLogMailer(logger *logrus.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (m *LogMailer) Send(ctx context.Context, to, subject, html string) error {
	m.logger.WithFields(logrus.Fields{
		"to":      to,
		"subject": subject,
	}).Info("Email delivery skipped, no provider configured")
	return nil
}
