package freight

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

func TestCheckIntegrityReportsDrift(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, _, job := f.openJob(t, acmeEnquiry())
	_, err := f.store.RecordAgentPurchase(ctx, job.No, PurchaseInput{Vendor: "Carrier", Amount: dec("300"), Currency: "USD"})
	require.NoError(t, err)
	require.NoError(t, f.store.CheckIntegrity(ctx))

	err = f.repo.WithTx(ctx, func(_ context.Context, data *Dataset) error {
		data.Jobs[0].TotalCost = dec("1")
		data.Purchases = append(data.Purchases, AgentPurchase{No: "PUR009", JobNo: "JOB404", Amount: dec("5"), Currency: "USD"})
		return nil
	})
	require.NoError(t, err)

	err = f.store.CheckIntegrity(ctx)
	require.Error(t, err)
	errs := multierr.Errors(err)
	messages := make([]string, 0, len(errs))
	for _, e := range errs {
		messages = append(messages, e.Error())
	}
	require.Contains(t, messages, "job JOB001 totalCost 1, purchases sum to 300")
	require.Contains(t, messages, "purchase PUR009 references missing job JOB404")
	require.Contains(t, messages, "identifier PUR009 is ahead of counter PUR=1")

	issues, err := f.store.IntegrityIssues(ctx)
	require.NoError(t, err)
	require.Len(t, issues, len(errs))
}

func TestCheckIntegrityDuplicateIdentifiers(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	enq, err := f.store.CreateEnquiry(ctx, acmeEnquiry())
	require.NoError(t, err)

	err = f.repo.WithTx(ctx, func(_ context.Context, data *Dataset) error {
		data.Enquiries = append(data.Enquiries, enq)
		return nil
	})
	require.NoError(t, err)

	issues, err := f.store.IntegrityIssues(ctx)
	require.NoError(t, err)
	require.Len(t, issues, 1)
	require.EqualError(t, issues[0], "duplicate identifier ENQ001")
}
