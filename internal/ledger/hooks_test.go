package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/freightdesk/internal/documents"
	"github.com/odyssey-erp/freightdesk/internal/finance"
	"github.com/odyssey-erp/freightdesk/internal/freight"
	"github.com/odyssey-erp/freightdesk/internal/platform/kv"
)

func TestHooksPostFreightEvents(t *testing.T) {
	ctx := context.Background()
	mem := kv.NewMemory()
	calc := finance.NewCalculator()
	svc := NewService(NewKVRepository(mem, nil), nil)
	svc.WithNow(func() time.Time { return fixedNow })

	store := freight.NewStore(freight.NewKVRepository(mem, nil, ""), calc, nil)
	store.WithNow(func() time.Time { return fixedNow })
	store.SetPostingHook(NewHooks(svc, calc))

	sp, err := store.CreateSalesPerson(ctx, freight.SalesPersonInput{
		Name: "Priya", Policy: finance.CommissionPolicy{Type: finance.CommissionOnProfit, Rate: dec("10")},
	})
	require.NoError(t, err)
	enq, err := store.CreateEnquiry(ctx, freight.EnquiryInput{
		CustomerName: "Acme", Origin: "Frankfurt", Destination: "Dubai",
		CBM: dec("10"), Mode: documents.ModeAir, ShipmentType: documents.ShipmentImport, SalesPersonID: sp.ID,
	})
	require.NoError(t, err)
	q, err := store.CreateQuotationFromEnquiry(ctx, enq.No, freight.QuotationInput{AgentRate: dec("36.8"), CustomerRate: dec("50.6"), Currency: "EUR"})
	require.NoError(t, err)
	_, err = store.ApproveQuotation(ctx, q.No)
	require.NoError(t, err)
	job, err := store.ConvertQuotationToJob(ctx, q.No)
	require.NoError(t, err)

	kept, err := store.RecordAgentPurchase(ctx, job.No, freight.PurchaseInput{Vendor: "Airline", Amount: dec("276"), Currency: "EUR"})
	require.NoError(t, err)
	dropped, err := store.RecordAgentPurchase(ctx, job.No, freight.PurchaseInput{Vendor: "Trucker", Amount: dec("50"), Currency: "USD"})
	require.NoError(t, err)
	_, err = store.UpdatePurchaseStatus(ctx, dropped.No, freight.PurchaseCancelled)
	require.NoError(t, err)

	inv, err := store.CreateInvoiceFromJob(ctx, job.No, freight.InvoiceInput{})
	require.NoError(t, err)
	require.True(t, inv.Total.Equal(dec("506")))
	_, err = store.RecordPayment(ctx, inv.No, freight.PaymentInput{Amount: inv.Total, Method: "wire"})
	require.NoError(t, err)
	for _, e := range job.Checklist {
		if e.Required {
			_, err := store.UpdateDocumentChecklist(ctx, job.No, e.Key, documents.Update{Status: documents.StatusReceived})
			require.NoError(t, err)
		}
	}
	_, err = store.CloseJob(ctx, job.No, "")
	require.NoError(t, err)

	// EUR 506 revenue and EUR 276 cost convert to USD 550 and 300; commission is 10% of EUR 230.
	require.True(t, balanceOf(t, svc, AccountCash).Equal(dec("550")))
	require.True(t, balanceOf(t, svc, AccountReceivable).IsZero())
	require.True(t, balanceOf(t, svc, AccountFreightIncome).Equal(dec("550")))
	require.True(t, balanceOf(t, svc, AccountFreightCost).Equal(dec("300")))
	require.True(t, balanceOf(t, svc, AccountPayable).Equal(dec("300")))
	require.True(t, balanceOf(t, svc, AccountCommissionExpenses).Equal(dec("25")))
	require.True(t, balanceOf(t, svc, AccountCommissionPayable).Equal(dec("25")))

	txs, err := svc.Transactions(ctx, TransactionFilter{SourceRef: kept.No})
	require.NoError(t, err)
	require.Len(t, txs, 1)
	require.Equal(t, SourcePurchase, txs[0].SourceModule)

	reversal, err := svc.Transactions(ctx, TransactionFilter{SourceModule: SourcePurchaseReversal})
	require.NoError(t, err)
	require.Len(t, reversal, 1)
	require.Equal(t, dropped.No, reversal[0].SourceRef)

	tb, err := svc.TrialBalance(ctx)
	require.NoError(t, err)
	require.True(t, tb.Balanced)

	hooks := NewHooks(svc, calc)
	require.NoError(t, hooks.InvoiceIssued(ctx, inv))
	again, err := svc.Transactions(ctx, TransactionFilter{SourceModule: SourceInvoice})
	require.NoError(t, err)
	require.Len(t, again, 1)
}

func TestHooksSkipZeroAmounts(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)
	hooks := NewHooks(svc, finance.NewCalculator())

	require.NoError(t, hooks.CommissionAccrued(ctx, freight.Commission{No: "COM001", JobNo: "JOB001", Currency: "USD"}))
	txs, err := svc.Transactions(ctx, TransactionFilter{})
	require.NoError(t, err)
	require.Empty(t, txs)

	err = hooks.PaymentCleared(ctx, freight.Payment{No: "PAY001", Amount: dec("5"), Currency: "XYZ"})
	require.ErrorIs(t, err, finance.ErrUnsupportedCurrency)
}

func TestReversalsUseOriginalUSDAmount(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)
	calc := finance.NewCalculator()
	hooks := NewHooks(svc, calc)

	purchase := freight.AgentPurchase{No: "PUR001", JobNo: "JOB001", Vendor: "Airline", Amount: dec("276"), Currency: "EUR"}
	require.NoError(t, hooks.PurchaseRecorded(ctx, purchase))
	commission := freight.Commission{No: "COM001", JobNo: "JOB001", Amount: dec("23"), Currency: "EUR"}
	require.NoError(t, hooks.CommissionAccrued(ctx, commission))
	require.True(t, balanceOf(t, svc, AccountPayable).Equal(dec("300")))
	require.True(t, balanceOf(t, svc, AccountCommissionPayable).Equal(dec("25")))

	require.NoError(t, calc.UpdateRate("EUR", dec("0.8")))
	require.NoError(t, hooks.PurchaseCancelled(ctx, purchase))
	require.NoError(t, hooks.CommissionPaid(ctx, commission))

	require.True(t, balanceOf(t, svc, AccountPayable).IsZero())
	require.True(t, balanceOf(t, svc, AccountFreightCost).IsZero())
	require.True(t, balanceOf(t, svc, AccountCommissionPayable).IsZero())
	require.True(t, balanceOf(t, svc, AccountCash).Equal(dec("-25")))

	// Without an earlier posting the current rate applies.
	require.NoError(t, hooks.PurchaseCancelled(ctx, freight.AgentPurchase{No: "PUR009", JobNo: "JOB002", Amount: dec("80"), Currency: "EUR"}))
	reversal, err := svc.Transactions(ctx, TransactionFilter{SourceModule: SourcePurchaseReversal, SourceRef: "PUR009"})
	require.NoError(t, err)
	require.Len(t, reversal, 1)
	require.True(t, reversal[0].Amount.Equal(dec("100")))
}
