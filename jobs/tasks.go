package jobs

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/odyssey-erp/freightdesk/internal/jobs"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskInvoiceOverdue marks sent invoices past their due date as overdue.
	TaskInvoiceOverdue = "freight:invoice_overdue"
	// TaskIntegrityCheck scans the workflow dataset and the ledger for drift.
	TaskIntegrityCheck = "freight:integrity_check"
	// TaskDocumentDigest reports open jobs still missing required documents.
	TaskDocumentDigest = "freight:document_digest"
)

// SweepPayload carries scheduling metadata shared by the sweep tasks.
type SweepPayload struct {
	ScheduledFor time.Time `json:"scheduled_for"`
}

// NewSweepTask constructs an Asynq task of the given sweep type.
func NewSweepTask(taskType string, at time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(SweepPayload{ScheduledFor: at.UTC()})
	if err != nil {
		return nil, fmt.Errorf("jobs: encode %s payload: %w", taskType, err)
	}
	return asynq.NewTask(taskType, body, asynq.Queue(QueueDefault)), nil
}

func decodeSweep(t *asynq.Task) (SweepPayload, error) {
	var payload SweepPayload
	if len(t.Payload()) == 0 {
		return payload, nil
	}
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return payload, fmt.Errorf("jobs: decode %s payload: %v: %w", t.Type(), err, asynq.SkipRetry)
	}
	return payload, nil
}

// base holds the dependencies every sweep job shares.
type base struct {
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

func newBase(logger *slog.Logger, metrics *jobmetrics.Metrics) base {
	if logger == nil {
		logger = slog.Default()
	}
	return base{Logger: logger, Metrics: metrics, clock: func() time.Time { return time.Now().UTC() }}
}

// WithClock overrides the job clock for testing.
func (b *base) WithClock(clock func() time.Time) {
	if clock != nil {
		b.clock = clock
	}
}
