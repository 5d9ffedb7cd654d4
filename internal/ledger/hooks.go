package ledger

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/freightdesk/internal/finance"
	"github.com/odyssey-erp/freightdesk/internal/freight"
)

// Converter turns workflow amounts into the ledger currency.
type Converter interface {
	Convert(amount decimal.Decimal, from, to string) (decimal.Decimal, error)
}

// Source modules recorded on hook postings.
const (
	SourceInvoice          = "freight.invoice"
	SourcePayment          = "freight.payment"
	SourcePurchase         = "freight.purchase"
	SourcePurchaseReversal = "freight.purchase.cancel"
	SourceCommission       = "freight.commission"
	SourceCommissionPaid   = "freight.commission.paid"
)

// Hooks posts freight workflow events into the ledger in USD.
type Hooks struct {
	service *Service
	rates   Converter
}

var _ freight.PostingHook = (*Hooks)(nil)

// NewHooks builds the freight posting hook.
func NewHooks(service *Service, rates Converter) *Hooks {
	return &Hooks{service: service, rates: rates}
}

func (h *Hooks) post(ctx context.Context, debit, credit string, amount decimal.Decimal, currency, module, ref, memo string) error {
	usd, err := h.rates.Convert(amount, currency, finance.BaseCurrency)
	if err != nil {
		return fmt.Errorf("ledger: convert %s %s: %w", module, ref, err)
	}
	return h.postUSD(ctx, debit, credit, usd, module, ref, memo)
}

// reverse settles or reverses an earlier posting at the USD amount it was booked
// at, so a rate change in between leaves no residual. Without an earlier posting
// it falls back to the current rate.
func (h *Hooks) reverse(ctx context.Context, debit, credit string, amount decimal.Decimal, currency, originModule, module, ref, memo string) error {
	origin, err := h.service.Transactions(ctx, TransactionFilter{SourceModule: originModule, SourceRef: ref})
	if err != nil {
		return err
	}
	if len(origin) == 0 {
		return h.post(ctx, debit, credit, amount, currency, module, ref, memo)
	}
	return h.postUSD(ctx, debit, credit, origin[0].Amount, module, ref, memo)
}

func (h *Hooks) postUSD(ctx context.Context, debit, credit string, usd decimal.Decimal, module, ref, memo string) error {
	if !usd.IsPositive() {
		return nil
	}
	_, err := h.service.PostTransaction(ctx, PostingInput{
		DebitAccount:  debit,
		CreditAccount: credit,
		Amount:        usd,
		Memo:          memo,
		SourceModule:  module,
		SourceRef:     ref,
	})
	if IsDuplicate(err) {
		return nil
	}
	return err
}

// InvoiceIssued books receivable against freight income.
func (h *Hooks) InvoiceIssued(ctx context.Context, inv freight.Invoice) error {
	return h.post(ctx, AccountReceivable, AccountFreightIncome, inv.Total, inv.Currency,
		SourceInvoice, inv.No, fmt.Sprintf("Invoice %s for job %s", inv.No, inv.JobNo))
}

// PaymentCleared settles receivable into cash at the current rate. A rate change
// since the invoice leaves the difference on receivables.
func (h *Hooks) PaymentCleared(ctx context.Context, pay freight.Payment) error {
	return h.post(ctx, AccountCash, AccountReceivable, pay.Amount, pay.Currency,
		SourcePayment, pay.No, fmt.Sprintf("Payment %s on %s", pay.No, pay.InvoiceNo))
}

// PurchaseRecorded books freight cost against payables.
func (h *Hooks) PurchaseRecorded(ctx context.Context, p freight.AgentPurchase) error {
	return h.post(ctx, AccountFreightCost, AccountPayable, p.Amount, p.Currency,
		SourcePurchase, p.No, fmt.Sprintf("%s for job %s", p.Vendor, p.JobNo))
}

// PurchaseCancelled reverses the cost booked for a purchase.
func (h *Hooks) PurchaseCancelled(ctx context.Context, p freight.AgentPurchase) error {
	return h.reverse(ctx, AccountPayable, AccountFreightCost, p.Amount, p.Currency,
		SourcePurchase, SourcePurchaseReversal, p.No, fmt.Sprintf("Cancelled %s for job %s", p.No, p.JobNo))
}

// CommissionAccrued books commission expense against commission payable.
func (h *Hooks) CommissionAccrued(ctx context.Context, c freight.Commission) error {
	return h.post(ctx, AccountCommissionExpenses, AccountCommissionPayable, c.Amount, c.Currency,
		SourceCommission, c.No, fmt.Sprintf("Commission %s on job %s", c.No, c.JobNo))
}

// CommissionPaid settles commission payable from cash.
func (h *Hooks) CommissionPaid(ctx context.Context, c freight.Commission) error {
	return h.reverse(ctx, AccountCommissionPayable, AccountCash, c.Amount, c.Currency,
		SourceCommission, SourceCommissionPaid, c.No, fmt.Sprintf("Commission %s paid", c.No))
}
