package documents

import (
	"fmt"
	"strings"
)

// GateInput is what the close gate needs to know about a job.
type GateInput struct {
	Entries       []Entry
	HasInvoice    bool
	InvoicePaid   bool
	PurchaseCount int
}

// Closeability is the outcome of the close gate.
type Closeability struct {
	CanClose bool     `json:"canClose"`
	Reason   string   `json:"reason,omitempty"`
	Missing  []string `json:"missing,omitempty"`
}

// Evaluate applies the close gate: required documents received, invoice paid,
// and at least one purchase recorded. The first failing check supplies the reason.
func Evaluate(in GateInput) Closeability {
	if missing := Outstanding(in.Entries); len(missing) > 0 {
		return Closeability{
			Reason:  fmt.Sprintf("required documents not received: %s", strings.Join(missing, ", ")),
			Missing: missing,
		}
	}
	if !in.HasInvoice {
		return Closeability{Reason: "no invoice raised for job"}
	}
	if !in.InvoicePaid {
		return Closeability{Reason: "invoice not paid"}
	}
	if in.PurchaseCount == 0 {
		return Closeability{Reason: "no agent purchase recorded"}
	}
	return Closeability{CanClose: true}
}
