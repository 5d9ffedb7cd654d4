package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
	"go.uber.org/multierr"

	jobmetrics "github.com/odyssey-erp/freightdesk/internal/jobs"
	"github.com/odyssey-erp/freightdesk/internal/ledger"
)

// IntegrityChecker lists divergences in the workflow dataset.
type IntegrityChecker interface {
	IntegrityIssues(ctx context.Context) ([]error, error)
}

// TrialBalancer reports the ledger trial balance.
type TrialBalancer interface {
	TrialBalance(ctx context.Context) (ledger.TrialBalance, error)
}

// IntegrityJob checks workflow derived values and ledger balance. Findings are logged
// and counted; only read failures fail the task.
type IntegrityJob struct {
	base
	Store  IntegrityChecker
	Ledger TrialBalancer
}

// NewIntegrityJob initialises the integrity check handler. The ledger is optional.
func NewIntegrityJob(store IntegrityChecker, ledger TrialBalancer, logger *slog.Logger, metrics *jobmetrics.Metrics) *IntegrityJob {
	return &IntegrityJob{base: newBase(logger, metrics), Store: store, Ledger: ledger}
}

// Handle executes the integrity check.
func (j *IntegrityJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Store == nil {
		return errors.New("integrity check: handler not configured")
	}
	if _, err := decodeSweep(t); err != nil {
		return err
	}
	tracker := j.Metrics.Track(TaskIntegrityCheck)
	defer func() { err = tracker.End(err) }()

	issues, readErr := j.Store.IntegrityIssues(ctx)
	if j.Ledger != nil {
		tb, ledgerErr := j.Ledger.TrialBalance(ctx)
		readErr = multierr.Append(readErr, ledgerErr)
		if ledgerErr == nil && !tb.Balanced {
			issues = append(issues, fmt.Errorf("ledger out of balance: debit %s credit %s",
				tb.TotalDebit.StringFixed(2), tb.TotalCredit.StringFixed(2)))
		}
	}
	if readErr != nil {
		j.Logger.Error("integrity check failed", slog.Any("error", readErr))
		return readErr
	}

	j.Metrics.AddFindings(TaskIntegrityCheck, len(issues))
	for _, issue := range issues {
		j.Logger.Warn("integrity issue", slog.String("issue", issue.Error()))
	}
	j.Logger.Info("integrity check completed", slog.Int("issues", len(issues)))
	return nil
}
