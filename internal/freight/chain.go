package freight

import "context"

// Stage is the furthest step an enquiry's chain has reached.
type Stage string

const (
	StageEnquiry    Stage = "enquiry"
	StageQuoted     Stage = "quoted"
	StageApproved   Stage = "approved"
	StageInProgress Stage = "in-progress"
	StageInvoiced   Stage = "invoiced"
	StageCompleted  Stage = "completed"
)

var stageOrder = []Stage{StageEnquiry, StageQuoted, StageApproved, StageInProgress, StageInvoiced, StageCompleted}

// Progress maps a stage to a 0-100 progress value.
func (s Stage) Progress() int {
	for i, st := range stageOrder {
		if st == s {
			return i * 100 / (len(stageOrder) - 1)
		}
	}
	return 0
}

// Chain is an enquiry together with the records derived from it.
type Chain struct {
	Enquiry   Enquiry    `json:"enquiry"`
	Quotation *Quotation `json:"quotation,omitempty"`
	Job       *Job       `json:"job,omitempty"`
	Invoice   *Invoice   `json:"invoice,omitempty"`
	Payment   *Payment   `json:"payment,omitempty"`
	Stage     Stage      `json:"stage"`
	Progress  int        `json:"progress"`
}

// GetWorkflowChain resolves enquiry → quotation → job → invoice → payment.
// The converted quotation wins over later revisions; otherwise the latest one is used.
func (s *Store) GetWorkflowChain(ctx context.Context, enquiryNo string) (Chain, error) {
	data, err := s.read(ctx)
	if err != nil {
		return Chain{}, err
	}
	return data.chain(enquiryNo)
}

func (d *Dataset) chain(enquiryNo string) (Chain, error) {
	enq := d.enquiry(enquiryNo)
	if enq == nil {
		return Chain{}, notFound("enquiry", enquiryNo)
	}
	c := Chain{Enquiry: *enq, Stage: StageEnquiry}

	q := find(d.Quotations, func(q *Quotation) bool {
		return q.EnquiryNo == enq.No && q.Status == QuotationConverted
	})
	if q == nil {
		q = findLast(d.Quotations, func(q *Quotation) bool { return q.EnquiryNo == enq.No })
	}
	if q != nil {
		c.Quotation = q
		c.Stage = StageQuoted
		if q.Status != QuotationSent {
			c.Stage = StageApproved
		}
		if job := find(d.Jobs, func(j *Job) bool { return j.QuotationNo == q.No }); job != nil {
			c.Job = job
			c.Stage = StageInProgress
			if inv := d.invoiceForJob(job.No); inv != nil {
				c.Invoice = inv
				c.Stage = StageInvoiced
				if inv.Status == InvoicePaid {
					c.Stage = StageCompleted
				}
				c.Payment = findLast(d.Payments, func(p *Payment) bool { return p.InvoiceNo == inv.No })
			}
		}
	}
	c.Progress = c.Stage.Progress()
	return c, nil
}
