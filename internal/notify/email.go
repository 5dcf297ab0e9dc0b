package notify

import (
	"context"

	"github.com/qcom/intake/internal/mailer"
	"github.com/qcom/intake/internal/models"
)

// Confirmation emails the submitter an acknowledgement.
type Confirmation struct {
	mailer mailer.Mailer
}

func NewConfirmation(m mailer.Mailer) *Confirmation {
	return &Confirmation{mailer: m}
}

func (c *Confirmation) Name() string { return "confirmation_email" }

func (c *Confirmation) Notify(ctx context.Context, s models.Submission) error {
	subject, html, err := mailer.ConfirmationEmail(s.ID, s.Name, s.Service)
	if err != nil {
		return err
	}
	return c.mailer.Send(ctx, s.Email, subject, html)
}
