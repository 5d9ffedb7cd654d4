package jobs

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/odyssey-erp/freightdesk/internal/jobs"
)

// OverdueMarker is the part of the workflow store the overdue sweep needs.
type OverdueMarker interface {
	MarkOverdueInvoices(ctx context.Context, asOf time.Time) ([]string, error)
}

// InvoiceOverdueJob moves unpaid invoices past their due date to overdue.
type InvoiceOverdueJob struct {
	base
	Store OverdueMarker
}

// NewInvoiceOverdueJob initialises the overdue sweep handler.
func NewInvoiceOverdueJob(store OverdueMarker, logger *slog.Logger, metrics *jobmetrics.Metrics) *InvoiceOverdueJob {
	return &InvoiceOverdueJob{base: newBase(logger, metrics), Store: store}
}

// Handle executes the sweep. The scheduled time is used as the cut-off when present.
func (j *InvoiceOverdueJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Store == nil {
		return errors.New("invoice overdue: handler not configured")
	}
	payload, err := decodeSweep(t)
	if err != nil {
		return err
	}
	tracker := j.Metrics.Track(TaskInvoiceOverdue)
	defer func() { err = tracker.End(err) }()

	asOf := payload.ScheduledFor
	if asOf.IsZero() {
		asOf = j.clock()
	}
	marked, err := j.Store.MarkOverdueInvoices(ctx, asOf)
	if err != nil {
		j.Logger.Error("invoice overdue sweep failed", slog.Any("error", err))
		return err
	}
	j.Metrics.AddFindings(TaskInvoiceOverdue, len(marked))
	j.Logger.Info("invoice overdue sweep completed",
		slog.Time("as_of", asOf),
		slog.Int("marked", len(marked)),
		slog.Any("invoices", marked))
	return nil
}
