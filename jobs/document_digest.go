package jobs

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/freightdesk/internal/freight"
	jobmetrics "github.com/odyssey-erp/freightdesk/internal/jobs"
)

// DocumentTracker lists open jobs with required documents outstanding.
type DocumentTracker interface {
	OutstandingDocuments(ctx context.Context) ([]freight.DocumentStatus, error)
}

// DocumentDigestJob logs a digest of missing shipping documents.
type DocumentDigestJob struct {
	base
	Store DocumentTracker
}

// NewDocumentDigestJob initialises the document digest handler.
func NewDocumentDigestJob(store DocumentTracker, logger *slog.Logger, metrics *jobmetrics.Metrics) *DocumentDigestJob {
	return &DocumentDigestJob{base: newBase(logger, metrics), Store: store}
}

// Handle executes the digest.
func (j *DocumentDigestJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Store == nil {
		return errors.New("document digest: handler not configured")
	}
	if _, err := decodeSweep(t); err != nil {
		return err
	}
	tracker := j.Metrics.Track(TaskDocumentDigest)
	defer func() { err = tracker.End(err) }()

	pending, err := j.Store.OutstandingDocuments(ctx)
	if err != nil {
		j.Logger.Error("document digest failed", slog.Any("error", err))
		return err
	}
	j.Metrics.AddFindings(TaskDocumentDigest, len(pending))
	for _, p := range pending {
		j.Logger.Info("documents outstanding",
			slog.String("job", p.JobNo),
			slog.String("customer", p.Customer),
			slog.String("status", string(p.Status)),
			slog.String("completion", p.Completion.StringFixed(2)),
			slog.String("missing", strings.Join(p.Missing, ",")))
	}
	return nil
}
