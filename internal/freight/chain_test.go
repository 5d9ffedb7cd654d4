package freight

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStageProgress(t *testing.T) {
	cases := map[Stage]int{
		StageEnquiry:    0,
		StageQuoted:     20,
		StageApproved:   40,
		StageInProgress: 60,
		StageInvoiced:   80,
		StageCompleted:  100,
		Stage("bogus"):  0,
	}
	for stage, want := range cases {
		require.Equal(t, want, stage.Progress(), string(stage))
	}
}

func TestGetWorkflowChainMissingEnquiry(t *testing.T) {
	f := newFixture(t)
	_, err := f.store.GetWorkflowChain(context.Background(), "ENQ404")
	require.ErrorIs(t, err, ErrNotFound)
	require.Equal(t, CodeNotFound, CodeOf(err))
}

func TestGetWorkflowChainFollowsEachStage(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	enq, err := f.store.CreateEnquiry(ctx, acmeEnquiry())
	require.NoError(t, err)
	chain, err := f.store.GetWorkflowChain(ctx, enq.No)
	require.NoError(t, err)
	require.Equal(t, StageEnquiry, chain.Stage)
	require.Nil(t, chain.Quotation)

	first, err := f.store.CreateQuotationFromEnquiry(ctx, enq.No, QuotationInput{AgentRate: dec("40"), CustomerRate: dec("60"), Currency: "USD"})
	require.NoError(t, err)
	revised, err := f.store.CreateQuotationFromEnquiry(ctx, enq.No, QuotationInput{AgentRate: dec("40"), CustomerRate: dec("55"), Currency: "USD"})
	require.NoError(t, err)

	chain, err = f.store.GetWorkflowChain(ctx, enq.No)
	require.NoError(t, err)
	require.Equal(t, StageQuoted, chain.Stage)
	require.Equal(t, revised.No, chain.Quotation.No)

	_, err = f.store.ApproveQuotation(ctx, first.No)
	require.NoError(t, err)
	chain, err = f.store.GetWorkflowChain(ctx, enq.No)
	require.NoError(t, err)
	require.Equal(t, revised.No, chain.Quotation.No)
	require.Equal(t, StageQuoted, chain.Stage)

	job, err := f.store.ConvertQuotationToJob(ctx, first.No)
	require.NoError(t, err)
	chain, err = f.store.GetWorkflowChain(ctx, enq.No)
	require.NoError(t, err)
	require.Equal(t, first.No, chain.Quotation.No)
	require.Equal(t, job.No, chain.Job.No)
	require.Equal(t, StageInProgress, chain.Stage)
	require.Equal(t, 60, chain.Progress)

	inv, err := f.store.CreateInvoiceFromJob(ctx, job.No, InvoiceInput{})
	require.NoError(t, err)
	chain, err = f.store.GetWorkflowChain(ctx, enq.No)
	require.NoError(t, err)
	require.Equal(t, StageInvoiced, chain.Stage)
	require.Equal(t, inv.No, chain.Invoice.No)
	require.Nil(t, chain.Payment)
}
