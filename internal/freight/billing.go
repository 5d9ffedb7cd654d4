package freight

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const defaultPaymentTerms = 30 * 24 * time.Hour

var hundred = decimal.NewFromInt(100)

// CreateInvoiceFromJob bills a job. Without explicit charges the freight
// (customer rate × cbm) is billed as a single line. A job has at most one invoice.
func (s *Store) CreateInvoiceFromJob(ctx context.Context, jobNo string, input InvoiceInput) (Invoice, error) {
	if err := s.check("invoice", input); err != nil {
		return Invoice{}, err
	}
	if input.TaxPercent.IsNegative() || input.TaxPercent.GreaterThan(hundred) {
		return Invoice{}, invalidInput("invoice", "", "taxPercent must be between 0 and 100", nil)
	}
	for _, c := range input.Charges {
		if c.Amount.IsNegative() {
			return Invoice{}, invalidInput("invoice", "", "charge amounts must not be negative", nil)
		}
	}

	var created Invoice
	err := s.mutate(ctx, "create_invoice", func(t *txn) error {
		job := t.job(jobNo)
		if job == nil {
			return notFound("job", jobNo)
		}
		if job.Status == JobClosed {
			return ruleViolation("job", job.No, "cannot invoice a closed job")
		}
		if existing := t.invoiceForJob(job.No); existing != nil {
			return ruleViolation("job", job.No, "job already invoiced as %s", existing.No)
		}

		charges := append([]Charge(nil), input.Charges...)
		if len(charges) == 0 {
			charges = []Charge{{Description: "Freight charges " + job.Origin + " to " + job.Destination, Amount: job.Revenue()}}
		}
		subtotal := decimal.Zero
		for i := range charges {
			charges[i].Description = strings.TrimSpace(charges[i].Description)
			charges[i].Amount = charges[i].Amount.Round(2)
			subtotal = subtotal.Add(charges[i].Amount)
		}
		if !subtotal.IsPositive() {
			return invalidInput("invoice", "", "invoice subtotal must be greater than zero", nil)
		}
		tax := subtotal.Mul(input.TaxPercent).Div(hundred).Round(2)
		due := t.now.Add(defaultPaymentTerms)
		if input.DueDate != nil {
			due = input.DueDate.UTC()
		}

		inv := Invoice{
			No:         t.nextID(prefixInvoice),
			JobNo:      job.No,
			Customer:   job.Customer,
			Charges:    charges,
			Subtotal:   subtotal,
			TaxPercent: input.TaxPercent,
			Tax:        tax,
			Total:      subtotal.Add(tax),
			Currency:   job.Currency,
			PaidAmount: decimal.Zero,
			DueDate:    due,
			Status:     InvoiceSent,
			CreatedAt:  t.now,
			UpdatedAt:  t.now,
		}
		if input.Draft {
			inv.Status = InvoiceDraft
		} else {
			t.issue(&inv)
		}
		t.Invoices = append(t.Invoices, inv)
		created = inv
		return nil
	})
	return created, err
}

func (t *txn) issue(inv *Invoice) {
	issued := t.now
	inv.IssuedAt = &issued
	snapshot := *inv
	t.post("invoice_issued", inv.No, func(ctx context.Context, h PostingHook) error {
		return h.InvoiceIssued(ctx, snapshot)
	})
}

// UpdateInvoiceStatus applies a manual invoice transition. Paid is reached only through payments.
func (s *Store) UpdateInvoiceStatus(ctx context.Context, invoiceNo string, status InvoiceStatus) (Invoice, error) {
	if !invoiceFlow.known(status) {
		return Invoice{}, invalidInput("invoice", invoiceNo, "unknown invoice status "+string(status), nil)
	}
	if status == InvoicePaid {
		return Invoice{}, ruleViolation("invoice", invoiceNo, "an invoice becomes paid only when cleared payments cover its total")
	}
	var updated Invoice
	err := s.mutate(ctx, "update_invoice_status", func(t *txn) error {
		inv := t.invoice(invoiceNo)
		if inv == nil {
			return notFound("invoice", invoiceNo)
		}
		if !invoiceFlow.allows(inv.Status, status) {
			return invalidTransition("invoice", inv.No, inv.Status, status)
		}
		if inv.Status == InvoiceDraft && status == InvoiceSent {
			inv.Status = status
			t.issue(inv)
		}
		inv.Status = status
		inv.UpdatedAt = t.now
		updated = *inv
		return nil
	})
	return updated, err
}

// MarkOverdueInvoices moves every sent invoice whose due date is before asOf to overdue.
func (s *Store) MarkOverdueInvoices(ctx context.Context, asOf time.Time) ([]string, error) {
	var marked []string
	err := s.mutate(ctx, "mark_overdue", func(t *txn) error {
		for i := range t.Invoices {
			inv := &t.Invoices[i]
			if inv.Status == InvoiceSent && inv.DueDate.Before(asOf) {
				inv.Status = InvoiceOverdue
				inv.UpdatedAt = t.now
				marked = append(marked, inv.No)
			}
		}
		return nil
	})
	return marked, err
}

// RecordPayment records money received against an invoice. Cleared payments count
// toward the paid amount immediately and settle the invoice once it is covered.
func (s *Store) RecordPayment(ctx context.Context, invoiceNo string, input PaymentInput) (Payment, error) {
	if err := s.check("payment", input); err != nil {
		return Payment{}, err
	}
	amount := input.Amount.Round(2)
	if !amount.IsPositive() {
		return Payment{}, invalidInput("payment", "", "amount must be greater than zero", nil)
	}
	status := input.Status
	if status == "" {
		status = PaymentCleared
	}

	var created Payment
	err := s.mutate(ctx, "record_payment", func(t *txn) error {
		inv := t.invoice(invoiceNo)
		if inv == nil {
			return notFound("invoice", invoiceNo)
		}
		switch inv.Status {
		case InvoiceDraft:
			return ruleViolation("invoice", inv.No, "invoice has not been sent")
		case InvoicePaid:
			return ruleViolation("invoice", inv.No, "invoice already paid")
		}
		committed := decimal.Zero
		for _, p := range t.Payments {
			if p.InvoiceNo == inv.No {
				committed = committed.Add(p.Amount)
			}
		}
		if remaining := inv.Total.Sub(committed); amount.GreaterThan(remaining) {
			return ruleViolation("invoice", inv.No, "payment %s exceeds outstanding %s", amount.StringFixed(2), remaining.StringFixed(2))
		}
		pay := Payment{
			No:        t.nextID(prefixPayment),
			InvoiceNo: inv.No,
			JobNo:     inv.JobNo,
			Amount:    amount,
			Currency:  inv.Currency,
			Method:    strings.TrimSpace(input.Method),
			Reference: strings.TrimSpace(input.Reference),
			Status:    PaymentPending,
			CreatedAt: t.now,
		}
		if status == PaymentCleared {
			t.clear(&pay, inv)
		}
		t.Payments = append(t.Payments, pay)
		created = pay
		return nil
	})
	return created, err
}

// ClearPayment confirms a pending payment and settles its invoice when covered.
func (s *Store) ClearPayment(ctx context.Context, paymentNo string) (Payment, error) {
	var cleared Payment
	err := s.mutate(ctx, "clear_payment", func(t *txn) error {
		pay := t.payment(paymentNo)
		if pay == nil {
			return notFound("payment", paymentNo)
		}
		if !paymentFlow.allows(pay.Status, PaymentCleared) {
			return invalidTransition("payment", pay.No, pay.Status, PaymentCleared)
		}
		inv := t.invoice(pay.InvoiceNo)
		if inv == nil {
			return notFound("invoice", pay.InvoiceNo)
		}
		t.clear(pay, inv)
		cleared = *pay
		return nil
	})
	return cleared, err
}

func (t *txn) clear(pay *Payment, inv *Invoice) {
	at := t.now
	pay.Status = PaymentCleared
	pay.ClearedAt = &at
	inv.PaidAmount = inv.PaidAmount.Add(pay.Amount)
	inv.UpdatedAt = t.now
	if inv.PaidAmount.GreaterThanOrEqual(inv.Total) {
		inv.Status = InvoicePaid
		inv.PaidAt = &at
	}
	snapshot := *pay
	t.post("payment_cleared", pay.No, func(ctx context.Context, h PostingHook) error {
		return h.PaymentCleared(ctx, snapshot)
	})
}

// Invoices lists invoices, optionally filtered by status.
func (s *Store) Invoices(ctx context.Context, status InvoiceStatus) ([]Invoice, error) {
	data, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	if status == "" {
		return data.Invoices, nil
	}
	var out []Invoice
	for _, inv := range data.Invoices {
		if inv.Status == status {
			out = append(out, inv)
		}
	}
	return out, nil
}

// Invoice returns one invoice.
func (s *Store) Invoice(ctx context.Context, no string) (Invoice, error) {
	data, err := s.read(ctx)
	if err != nil {
		return Invoice{}, err
	}
	inv := data.invoice(no)
	if inv == nil {
		return Invoice{}, notFound("invoice", no)
	}
	return *inv, nil
}

// Payments lists payments, optionally restricted to one invoice.
func (s *Store) Payments(ctx context.Context, invoiceNo string) ([]Payment, error) {
	data, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	if invoiceNo == "" {
		return data.Payments, nil
	}
	var out []Payment
	for _, p := range data.Payments {
		if p.InvoiceNo == invoiceNo {
			out = append(out, p)
		}
	}
	return out, nil
}
