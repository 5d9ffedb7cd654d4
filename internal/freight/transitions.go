package freight

import "slices"

// transitions lists the statuses reachable from each status.
type transitions[S ~string] map[S][]S

func (t transitions[S]) allows(from, to S) bool {
	return slices.Contains(t[from], to)
}

func (t transitions[S]) known(s S) bool {
	if _, ok := t[s]; ok {
		return true
	}
	for _, targets := range t {
		if slices.Contains(targets, s) {
			return true
		}
	}
	return false
}

var enquiryFlow = transitions[EnquiryStatus]{
	EnquiryNew:       {EnquiryQuoted},
	EnquiryQuoted:    {EnquiryQuoted, EnquiryApproved, EnquiryConverted},
	EnquiryApproved:  {EnquiryQuoted, EnquiryConverted},
	EnquiryConverted: nil,
}

var quotationFlow = transitions[QuotationStatus]{
	QuotationSent:      {QuotationApproved},
	QuotationApproved:  {QuotationConverted},
	QuotationConverted: nil,
}

var jobFlow = transitions[JobStatus]{
	JobOpen:          {JobInProgress, JobClosed},
	JobInProgress:    {JobDocumentation, JobInTransit, JobClosed},
	JobDocumentation: {JobInTransit, JobClosed},
	JobInTransit:     {JobDelivered, JobClosed},
	JobDelivered:     {JobCompleted, JobClosed},
	JobCompleted:     {JobClosed},
	JobClosed:        nil,
}

var purchaseFlow = transitions[PurchaseStatus]{
	PurchasePending:   {PurchaseApproved, PurchasePaid, PurchaseCancelled},
	PurchaseApproved:  {PurchasePaid, PurchaseCancelled},
	PurchasePaid:      nil,
	PurchaseCancelled: nil,
}

var invoiceFlow = transitions[InvoiceStatus]{
	InvoiceDraft:   {InvoiceSent},
	InvoiceSent:    {InvoiceOverdue, InvoicePaid},
	InvoiceOverdue: {InvoiceSent, InvoicePaid},
	InvoicePaid:    nil,
}

var paymentFlow = transitions[PaymentStatus]{
	PaymentPending: {PaymentCleared},
	PaymentCleared: nil,
}

var commissionFlow = transitions[CommissionStatus]{
	CommissionPending: {CommissionPaid},
	CommissionPaid:    nil,
}
