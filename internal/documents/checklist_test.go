package documents

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func keys(entries []Entry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Key)
	}
	return out
}

func TestGenerateSeaExport(t *testing.T) {
	entries, err := Generate(ShipmentExport, ModeSea)
	require.NoError(t, err)
	require.Equal(t, []string{
		"mbl", "hbl", "shipping_bill", "form_e", "certificate_of_origin",
		"commercial_invoice", "packing_list", "freight_invoice", "job_file", "cost_sheet",
	}, keys(entries))
	for _, e := range entries {
		require.Equal(t, StatusPending, e.Status)
		optional := e.Key == "form_e" || e.Key == "certificate_of_origin"
		require.Equal(t, !optional, e.Required, e.Key)
	}
}

func TestGenerateAirImport(t *testing.T) {
	entries, err := Generate(ShipmentImport, ModeAir)
	require.NoError(t, err)
	require.Equal(t, []string{
		"mawb", "hawb", "bill_of_entry", "arrival_notice",
		"commercial_invoice", "packing_list", "freight_invoice", "job_file", "cost_sheet",
	}, keys(entries))
}

func TestGenerateRejectsUnknownInputs(t *testing.T) {
	_, err := Generate(ShipmentExport, "Rail")
	require.ErrorIs(t, err, ErrUnknownMode)
	_, err = Generate("Transit", ModeSea)
	require.ErrorIs(t, err, ErrUnknownShipmentType)
}

func TestApply(t *testing.T) {
	entries, err := Generate(ShipmentImport, ModeSea)
	require.NoError(t, err)
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	remarks := "original received"

	entry, err := Apply(entries, "mbl", Update{Status: StatusReceived, Remarks: &remarks}, now)
	require.NoError(t, err)
	require.Equal(t, StatusReceived, entry.Status)
	require.Equal(t, now, *entry.ReceivedDate)
	require.Equal(t, "original received", entries[0].Remarks)

	entry, err = Apply(entries, "mbl", Update{Status: StatusMissing}, now.Add(time.Hour))
	require.NoError(t, err)
	require.Nil(t, entry.ReceivedDate)
	require.Equal(t, "original received", entry.Remarks)

	_, err = Apply(entries, "mawb", Update{Status: StatusReceived}, now)
	require.ErrorIs(t, err, ErrEntryNotFound)

	_, err = Apply(entries, "mbl", Update{Status: "lost"}, now)
	require.ErrorIs(t, err, ErrInvalidStatus)
}

func TestCompletionAndOutstanding(t *testing.T) {
	entries, err := Generate(ShipmentExport, ModeAir)
	require.NoError(t, err)
	require.True(t, Completion(entries).IsZero())
	require.Len(t, Outstanding(entries), 8)

	now := time.Now()
	for _, e := range entries {
		if e.Required {
			_, err := Apply(entries, e.Key, Update{Status: StatusReceived}, now)
			require.NoError(t, err)
		}
	}
	require.Empty(t, Outstanding(entries))
	require.Equal(t, "80", Completion(entries).String())
	require.True(t, Completion(nil).IsZero())
}

func TestEvaluate(t *testing.T) {
	entries, err := Generate(ShipmentImport, ModeAir)
	require.NoError(t, err)

	result := Evaluate(GateInput{Entries: entries, HasInvoice: true, InvoicePaid: true, PurchaseCount: 1})
	require.False(t, result.CanClose)
	require.Len(t, result.Missing, len(entries))
	require.Contains(t, result.Reason, "required documents")

	now := time.Now()
	for _, e := range entries {
		_, err := Apply(entries, e.Key, Update{Status: StatusReceived}, now)
		require.NoError(t, err)
	}

	require.Equal(t, "no invoice raised for job", Evaluate(GateInput{Entries: entries, PurchaseCount: 1}).Reason)
	require.Equal(t, "invoice not paid", Evaluate(GateInput{Entries: entries, HasInvoice: true, PurchaseCount: 1}).Reason)
	require.Equal(t, "no agent purchase recorded", Evaluate(GateInput{Entries: entries, HasInvoice: true, InvoicePaid: true}).Reason)

	result = Evaluate(GateInput{Entries: entries, HasInvoice: true, InvoicePaid: true, PurchaseCount: 2})
	require.True(t, result.CanClose)
	require.Empty(t, result.Reason)
}
