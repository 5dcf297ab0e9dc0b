// Package notify fans a stored submission out to the configured side
// channels. Delivery runs in the background and failures are only logged.
package notify

import (
	"context"
	"sync"
	"time"

	"github.com/qcom/intake/internal/metrics"
	"github.com/qcom/intake/internal/models"
	"github.com/sirupsen/logrus"
)

type Notifier interface {
	Name() string
	Notify(ctx context.Context, s models.Submission) error
}

type Dispatcher struct {
	notifiers []Notifier
	timeout   time.Duration
	logger    *logrus.Logger
	wg        sync.WaitGroup
}

func NewDispatcher(timeout time.Duration, logger *logrus.Logger, notifiers ...Notifier) *Dispatcher {
	return &Dispatcher{
		notifiers: notifiers,
		timeout:   timeout,
		logger:    logger,
	}
}

// Dispatch starts one goroutine per notifier and returns immediately.
func (d *Dispatcher) Dispatch(s models.Submission) {
	for _, n := range d.notifiers {
		d.wg.Add(1)
		go func(n Notifier) {
			defer d.wg.Done()

			ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
			defer cancel()

			if err := n.Notify(ctx, s); err != nil {
				metrics.Notifications.WithLabelValues(n.Name(), "error").Inc()
				d.logger.WithError(err).WithFields(logrus.Fields{
					"notifier":      n.Name(),
					"submission_id": s.ID,
				}).Warn("Submission notification failed")
				return
			}
			metrics.Notifications.WithLabelValues(n.Name(), "ok").Inc()
		}(n)
	}
}

// Wait blocks until in-flight notifications finish or ctx is done.
func (d *Dispatcher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
