package freight

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestWriteProfitabilityReport(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, _, job := f.openJob(t, acmeEnquiry())
	_, err := f.store.RecordAgentPurchase(ctx, job.No, PurchaseInput{Vendor: "Carrier", Amount: dec("300"), Currency: "USD"})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, f.store.WriteProfitabilityReport(ctx, &buf, "EUR"))

	book, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer func() { _ = book.Close() }()

	rows, err := book.GetRows(profitabilitySheet)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, "Job", rows[0][0])
	require.Equal(t, "Margin %", rows[0][len(rows[0])-1])

	row := rows[1]
	require.Equal(t, "JOB001", row[0])
	require.Equal(t, "Acme", row[1])
	require.Equal(t, "Nhava Sheva - Jebel Ali", row[2])
	require.Equal(t, "550", row[5])
	require.Equal(t, "300", row[6])
	require.Equal(t, "250", row[7])
	require.Equal(t, "EUR", row[8])
	require.Equal(t, "506", row[9])
}

func TestWriteProfitabilityReportRejectsUnknownBase(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.openJob(t, acmeEnquiry())

	var buf bytes.Buffer
	err := f.store.WriteProfitabilityReport(ctx, &buf, "XYZ")
	require.ErrorIs(t, err, ErrInvalidInput)
}
