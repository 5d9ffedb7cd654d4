package freight

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
)

// CheckIntegrity scans the dataset for broken references and derived values that
// drifted from their sources. It returns every divergence combined with multierr.
func (s *Store) CheckIntegrity(ctx context.Context) error {
	issues, err := s.IntegrityIssues(ctx)
	if err != nil {
		return err
	}
	return multierr.Combine(issues...)
}

// IntegrityIssues lists each divergence separately. The error is reserved for read failures.
func (s *Store) IntegrityIssues(ctx context.Context) ([]error, error) {
	data, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	return multierr.Errors(data.integrity()), nil
}

func (d *Dataset) integrity() error {
	var errs error
	add := func(format string, args ...any) {
		errs = multierr.Append(errs, fmt.Errorf(format, args...))
	}

	for _, q := range d.Quotations {
		if d.enquiry(q.EnquiryNo) == nil {
			add("quotation %s references missing enquiry %s", q.No, q.EnquiryNo)
		}
	}
	for i := range d.Jobs {
		job := &d.Jobs[i]
		if d.quotation(job.QuotationNo) == nil {
			add("job %s references missing quotation %s", job.No, job.QuotationNo)
		}
		if d.enquiry(job.EnquiryNo) == nil {
			add("job %s references missing enquiry %s", job.No, job.EnquiryNo)
		}
		expected := *job
		d.recomputeJob(&expected, job.UpdatedAt)
		if !expected.TotalCost.Equal(job.TotalCost) {
			add("job %s totalCost %s, purchases sum to %s", job.No, job.TotalCost, expected.TotalCost)
		}
		if !expected.ActualProfit.Equal(job.ActualProfit) {
			add("job %s actualProfit %s, expected %s", job.No, job.ActualProfit, expected.ActualProfit)
		}
		if len(job.Checklist) == 0 {
			add("job %s has no document checklist", job.No)
		}
	}
	for _, p := range d.Purchases {
		if d.job(p.JobNo) == nil {
			add("purchase %s references missing job %s", p.No, p.JobNo)
		}
	}
	for _, doc := range d.Documents {
		if d.job(doc.JobNo) == nil {
			add("document %s references missing job %s", doc.No, doc.JobNo)
		}
	}
	for _, inv := range d.Invoices {
		if d.job(inv.JobNo) == nil {
			add("invoice %s references missing job %s", inv.No, inv.JobNo)
		}
		cleared := decimal.Zero
		for _, p := range d.Payments {
			if p.InvoiceNo == inv.No && p.Status == PaymentCleared {
				cleared = cleared.Add(p.Amount)
			}
		}
		if !cleared.Equal(inv.PaidAmount) {
			add("invoice %s paidAmount %s, cleared payments sum to %s", inv.No, inv.PaidAmount, cleared)
		}
		if settled := inv.PaidAmount.GreaterThanOrEqual(inv.Total); settled != (inv.Status == InvoicePaid) {
			add("invoice %s status %s inconsistent with paid %s of %s", inv.No, inv.Status, inv.PaidAmount, inv.Total)
		}
	}
	for _, p := range d.Payments {
		if d.invoice(p.InvoiceNo) == nil {
			add("payment %s references missing invoice %s", p.No, p.InvoiceNo)
		}
	}
	for _, c := range d.Commissions {
		if d.job(c.JobNo) == nil {
			add("commission %s references missing job %s", c.No, c.JobNo)
		}
		if d.salesPerson(c.SalesPersonID) == nil {
			add("commission %s references missing salesperson %s", c.No, c.SalesPersonID)
		}
	}
	d.checkCounters(add)
	return errs
}

func (d *Dataset) checkCounters(add func(string, ...any)) {
	ids := map[string][]string{
		prefixEnquiry:     collect(d.Enquiries, func(e Enquiry) string { return e.No }),
		prefixQuotation:   collect(d.Quotations, func(q Quotation) string { return q.No }),
		prefixJob:         collect(d.Jobs, func(j Job) string { return j.No }),
		prefixPurchase:    collect(d.Purchases, func(p AgentPurchase) string { return p.No }),
		prefixDocument:    collect(d.Documents, func(doc ShippingDocument) string { return doc.No }),
		prefixInvoice:     collect(d.Invoices, func(i Invoice) string { return i.No }),
		prefixPayment:     collect(d.Payments, func(p Payment) string { return p.No }),
		prefixCommission:  collect(d.Commissions, func(c Commission) string { return c.No }),
		prefixSalesPerson: collect(d.SalesPersons, func(sp SalesPerson) string { return sp.ID }),
	}
	for prefix, list := range ids {
		seen := make(map[string]bool, len(list))
		for _, id := range list {
			if seen[id] {
				add("duplicate identifier %s", id)
			}
			seen[id] = true
			n, err := strconv.Atoi(strings.TrimPrefix(id, prefix))
			if err != nil || !strings.HasPrefix(id, prefix) {
				add("identifier %s does not match prefix %s", id, prefix)
				continue
			}
			if n > d.Counters[prefix] {
				add("identifier %s is ahead of counter %s=%d", id, prefix, d.Counters[prefix])
			}
		}
	}
}

func collect[T any](items []T, id func(T) string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, id(item))
	}
	return out
}
