package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/qcom/intake/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
)

// webhookClient posts JSON to one URL with retries behind a circuit breaker.
type webhookClient struct {
	url        string
	http       *http.Client
	cb         *gobreaker.CircuitBreaker
	newBackOff func() backoff.BackOff
}

func newWebhookClient(name, url string, timeout time.Duration, logger *logrus.Logger) *webhookClient {
	st := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Info("Circuit breaker state changed")
		},
	}

	return &webhookClient{
		url:  url,
		http: &http.Client{Timeout: timeout},
		cb:   gobreaker.NewCircuitBreaker(st),
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.MaxElapsedTime = timeout
			return b
		},
	}
}

func (c *webhookClient) post(ctx context.Context, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	op := func() error {
		_, err := c.cb.Execute(func() (interface{}, error) {
			return nil, c.send(ctx, body)
		})
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return backoff.Permanent(err)
		}
		return err
	}

	return backoff.Retry(op, backoff.WithContext(c.newBackOff(), ctx))
}

func (c *webhookClient) send(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return backoff.Permanent(fmt.Errorf("failed to create webhook request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	case resp.StatusCode >= 400:
		return backoff.Permanent(fmt.Errorf("webhook rejected payload: status %d", resp.StatusCode))
	}
	return nil
}

// ChatWebhook posts a short summary to a chat incoming-webhook URL.
type ChatWebhook struct {
	client *webhookClient
}

func NewChatWebhook(url string, timeout time.Duration, logger *logrus.Logger) *ChatWebhook {
	return &ChatWebhook{client: newWebhookClient("chat-webhook", url, timeout, logger)}
}

func (w *ChatWebhook) Name() string { return "chat_webhook" }

func (w *ChatWebhook) Notify(ctx context.Context, s models.Submission) error {
	var b strings.Builder
	fmt.Fprintf(&b, "New project request from %s <%s>\n", s.Name, s.Email)
	fmt.Fprintf(&b, "Service: %s", s.Service)
	if s.Budget != "" {
		fmt.Fprintf(&b, " | Budget: %s", s.Budget)
	}
	if s.Timeline != "" {
		fmt.Fprintf(&b, " | Timeline: %s", s.Timeline)
	}
	if s.Booking != nil {
		fmt.Fprintf(&b, "\nCall: %s %s %s", s.Booking.Date, s.Booking.Time, s.Booking.Timezone)
	}
	fmt.Fprintf(&b, "\n%s", s.Description)

	return w.client.post(ctx, map[string]string{"text": b.String()})
}

// SheetWebhook appends one row per submission through a spreadsheet
// automation endpoint.
type SheetWebhook struct {
	client *webhookClient
}

func NewSheetWebhook(url string, timeout time.Duration, logger *logrus.Logger) *SheetWebhook {
	return &SheetWebhook{client: newWebhookClient("sheet-webhook", url, timeout, logger)}
}

func (w *SheetWebhook) Name() string { return "sheet_webhook" }

type sheetRow struct {
	ID          string `json:"id"`
	SubmittedAt string `json:"submitted_at"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	Company     string `json:"company"`
	Phone       string `json:"phone"`
	Service     string `json:"service"`
	Budget      string `json:"budget"`
	Timeline    string `json:"timeline"`
	Description string `json:"description"`
	Attachments int    `json:"attachments"`
}

func (w *SheetWebhook) Notify(ctx context.Context, s models.Submission) error {
	return w.client.post(ctx, sheetRow{
		ID:          s.ID,
		SubmittedAt: s.SubmittedAt.UTC().Format(time.RFC3339),
		Name:        s.Name,
		Email:       s.Email,
		Company:     s.Company,
		Phone:       s.Phone,
		Service:     s.Service,
		Budget:      s.Budget,
		Timeline:    s.Timeline,
		Description: s.Description,
		Attachments: len(s.Attachments),
	})
}
