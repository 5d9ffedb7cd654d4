package freight

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/freightdesk/internal/documents"
)

// UpdateJobStatus moves a job along its lifecycle. Closing goes through the close gate.
func (s *Store) UpdateJobStatus(ctx context.Context, jobNo string, status JobStatus, note string) (Job, error) {
	if !jobFlow.known(status) {
		return Job{}, invalidInput("job", jobNo, "unknown job status "+string(status), nil)
	}
	if status == JobClosed {
		return s.CloseJob(ctx, jobNo, note)
	}
	var updated Job
	err := s.mutate(ctx, "update_job_status", func(t *txn) error {
		job := t.job(jobNo)
		if job == nil {
			return notFound("job", jobNo)
		}
		if !jobFlow.allows(job.Status, status) {
			return invalidTransition("job", job.No, job.Status, status)
		}
		t.setJobStatus(job, status, note)
		updated = *job
		return nil
	})
	return updated, err
}

func (t *txn) setJobStatus(job *Job, status JobStatus, note string) {
	job.History = append(job.History, StatusChange{From: job.Status, To: status, At: t.now, Note: strings.TrimSpace(note)})
	job.Status = status
	job.UpdatedAt = t.now
}

// RecordDocument stores a received document and marks its checklist entry received.
func (s *Store) RecordDocument(ctx context.Context, jobNo string, input DocumentInput) (ShippingDocument, error) {
	if err := s.check("document", input); err != nil {
		return ShippingDocument{}, err
	}
	var created ShippingDocument
	err := s.mutate(ctx, "record_document", func(t *txn) error {
		job := t.job(jobNo)
		if job == nil {
			return notFound("job", jobNo)
		}
		if job.Status == JobClosed {
			return ruleViolation("job", job.No, "job is closed")
		}
		received := t.now
		if input.ReceivedAt != nil {
			received = input.ReceivedAt.UTC()
		}
		remarks := strings.TrimSpace(input.Reference)
		update := documents.Update{Status: documents.StatusReceived, ReceivedDate: &received}
		if remarks != "" {
			update.Remarks = &remarks
		}
		if _, err := documents.Apply(job.Checklist, input.DocKey, update, t.now); err != nil {
			return checklistFailure(job.No, input.DocKey, err)
		}
		job.UpdatedAt = t.now
		created = ShippingDocument{
			No:         t.nextID(prefixDocument),
			JobNo:      job.No,
			DocKey:     input.DocKey,
			FileName:   strings.TrimSpace(input.FileName),
			Reference:  remarks,
			ReceivedAt: received,
		}
		t.Documents = append(t.Documents, created)
		return nil
	})
	return created, err
}

// UpdateDocumentChecklist overwrites one checklist entry of a job.
func (s *Store) UpdateDocumentChecklist(ctx context.Context, jobNo, docKey string, update documents.Update) (documents.Entry, error) {
	if err := s.check("document", update); err != nil {
		return documents.Entry{}, err
	}
	var entry documents.Entry
	err := s.mutate(ctx, "update_checklist", func(t *txn) error {
		job := t.job(jobNo)
		if job == nil {
			return notFound("job", jobNo)
		}
		if job.Status == JobClosed {
			return ruleViolation("job", job.No, "job is closed")
		}
		var err error
		entry, err = documents.Apply(job.Checklist, docKey, update, t.now)
		if err != nil {
			return checklistFailure(job.No, docKey, err)
		}
		job.UpdatedAt = t.now
		return nil
	})
	return entry, err
}

func checklistFailure(jobNo, docKey string, err error) error {
	switch {
	case errors.Is(err, documents.ErrEntryNotFound):
		f := notFound("document", docKey)
		f.Message = "no checklist entry on job " + jobNo
		f.Err = err
		return f
	case errors.Is(err, documents.ErrInvalidStatus):
		return invalidInput("document", docKey, err.Error(), err)
	default:
		return err
	}
}

// Documents lists the documents recorded for a job.
func (s *Store) Documents(ctx context.Context, jobNo string) ([]ShippingDocument, error) {
	data, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	if data.job(jobNo) == nil {
		return nil, notFound("job", jobNo)
	}
	var out []ShippingDocument
	for _, d := range data.Documents {
		if d.JobNo == jobNo {
			out = append(out, d)
		}
	}
	return out, nil
}

func (d *Dataset) closeability(job *Job) documents.Closeability {
	in := documents.GateInput{
		Entries:       job.Checklist,
		PurchaseCount: len(d.activePurchases(job.No)),
	}
	if inv := d.invoiceForJob(job.No); inv != nil {
		in.HasInvoice = true
		in.InvoicePaid = inv.Status == InvoicePaid
	}
	return documents.Evaluate(in)
}

// CanCloseJob evaluates the close gate without changing anything.
func (s *Store) CanCloseJob(ctx context.Context, jobNo string) (documents.Closeability, error) {
	data, err := s.read(ctx)
	if err != nil {
		return documents.Closeability{}, err
	}
	job := data.job(jobNo)
	if job == nil {
		return documents.Closeability{}, notFound("job", jobNo)
	}
	if job.Status == JobClosed {
		return documents.Closeability{Reason: "job already closed"}, nil
	}
	return data.closeability(job), nil
}

// CloseJob closes a job once the gate passes and accrues its commission when a
// salesperson is attached and nothing has been accrued yet.
func (s *Store) CloseJob(ctx context.Context, jobNo, note string) (Job, error) {
	var closed Job
	err := s.mutate(ctx, "close_job", func(t *txn) error {
		job := t.job(jobNo)
		if job == nil {
			return notFound("job", jobNo)
		}
		if !jobFlow.allows(job.Status, JobClosed) {
			return invalidTransition("job", job.No, job.Status, JobClosed)
		}
		if gate := t.closeability(job); !gate.CanClose {
			return ruleViolation("job", job.No, "%s", gate.Reason)
		}
		t.setJobStatus(job, JobClosed, note)
		if job.SalesPersonID != "" && t.commissionForJob(job.No) == nil {
			if err := t.accrueCommission(job); err != nil {
				return err
			}
		}
		closed = *job
		return nil
	})
	return closed, err
}

// Jobs lists jobs, optionally filtered by status.
func (s *Store) Jobs(ctx context.Context, status JobStatus) ([]Job, error) {
	data, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	if status == "" {
		return data.Jobs, nil
	}
	var out []Job
	for _, j := range data.Jobs {
		if j.Status == status {
			out = append(out, j)
		}
	}
	return out, nil
}

// Job returns one job.
func (s *Store) Job(ctx context.Context, no string) (Job, error) {
	data, err := s.read(ctx)
	if err != nil {
		return Job{}, err
	}
	job := data.job(no)
	if job == nil {
		return Job{}, notFound("job", no)
	}
	return *job, nil
}

// DocumentStatus summarises checklist progress for an open job.
type DocumentStatus struct {
	JobNo      string          `json:"jobNo"`
	Customer   string          `json:"customer"`
	Status     JobStatus       `json:"status"`
	Completion decimal.Decimal `json:"completion"`
	Missing    []string        `json:"missing"`
}

// OutstandingDocuments lists every job that is not closed and still lacks required documents.
func (s *Store) OutstandingDocuments(ctx context.Context) ([]DocumentStatus, error) {
	data, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	var out []DocumentStatus
	for _, j := range data.Jobs {
		if j.Status == JobClosed {
			continue
		}
		missing := documents.Outstanding(j.Checklist)
		if len(missing) == 0 {
			continue
		}
		out = append(out, DocumentStatus{
			JobNo:      j.No,
			Customer:   j.Customer,
			Status:     j.Status,
			Completion: documents.Completion(j.Checklist),
			Missing:    missing,
		})
	}
	return out, nil
}
