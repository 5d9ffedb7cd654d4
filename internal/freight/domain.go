// Package freight owns the freight-forwarding workflow records (enquiries, quotations,
// jobs, purchases, documents, invoices, payments and commissions) and the rules that
// move them from one state to the next.
package freight

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/freightdesk/internal/documents"
	"github.com/odyssey-erp/freightdesk/internal/finance"
)

// EnquiryStatus enumerates enquiry states.
type EnquiryStatus string

const (
	EnquiryNew       EnquiryStatus = "new"
	EnquiryQuoted    EnquiryStatus = "quoted"
	EnquiryApproved  EnquiryStatus = "approved"
	EnquiryConverted EnquiryStatus = "converted"
)

// QuotationStatus enumerates quotation states.
type QuotationStatus string

const (
	QuotationSent      QuotationStatus = "sent"
	QuotationApproved  QuotationStatus = "approved"
	QuotationConverted QuotationStatus = "converted"
)

// JobStatus enumerates job states.
type JobStatus string

const (
	JobOpen          JobStatus = "open"
	JobInProgress    JobStatus = "in-progress"
	JobDocumentation JobStatus = "documentation"
	JobInTransit     JobStatus = "in-transit"
	JobDelivered     JobStatus = "delivered"
	JobCompleted     JobStatus = "completed"
	JobClosed        JobStatus = "closed"
)

// PurchaseStatus enumerates agent purchase states.
type PurchaseStatus string

const (
	PurchasePending   PurchaseStatus = "pending"
	PurchaseApproved  PurchaseStatus = "approved"
	PurchasePaid      PurchaseStatus = "paid"
	PurchaseCancelled PurchaseStatus = "cancelled"
)

// InvoiceStatus enumerates invoice states.
type InvoiceStatus string

const (
	InvoiceDraft   InvoiceStatus = "draft"
	InvoiceSent    InvoiceStatus = "sent"
	InvoicePaid    InvoiceStatus = "paid"
	InvoiceOverdue InvoiceStatus = "overdue"
)

// PaymentStatus enumerates payment states.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentCleared PaymentStatus = "cleared"
)

// CommissionStatus enumerates commission states.
type CommissionStatus string

const (
	CommissionPending CommissionStatus = "pending"
	CommissionPaid    CommissionStatus = "paid"
)

// Enquiry is a customer request for a freight quote.
type Enquiry struct {
	No            string                 `json:"no"`
	CustomerName  string                 `json:"customerName"`
	ContactPerson string                 `json:"contactPerson,omitempty"`
	Email         string                 `json:"email,omitempty"`
	Phone         string                 `json:"phone,omitempty"`
	Origin        string                 `json:"origin"`
	Destination   string                 `json:"destination"`
	Commodity     string                 `json:"commodity,omitempty"`
	WeightKg      decimal.Decimal        `json:"weightKg"`
	CBM           decimal.Decimal        `json:"cbm"`
	Mode          documents.Mode         `json:"mode"`
	ShipmentType  documents.ShipmentType `json:"shipmentType"`
	SalesPersonID string                 `json:"salesPersonId,omitempty"`
	Status        EnquiryStatus          `json:"status"`
	CreatedAt     time.Time              `json:"createdAt"`
	UpdatedAt     time.Time              `json:"updatedAt"`
}

// Quotation prices an enquiry.
type Quotation struct {
	No           string          `json:"no"`
	EnquiryNo    string          `json:"enquiryNo"`
	AgentRate    decimal.Decimal `json:"agentRate"`
	CustomerRate decimal.Decimal `json:"customerRate"`
	Currency     string          `json:"currency"`
	CBM          decimal.Decimal `json:"cbm"`
	Profit       decimal.Decimal `json:"profit"`
	ValidUntil   *time.Time      `json:"validUntil,omitempty"`
	Remarks      string          `json:"remarks,omitempty"`
	Status       QuotationStatus `json:"status"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

// StatusChange is one entry of a job's status history.
type StatusChange struct {
	From JobStatus `json:"from"`
	To   JobStatus `json:"to"`
	At   time.Time `json:"at"`
	Note string    `json:"note,omitempty"`
}

// Job is a confirmed shipment executed for a customer.
type Job struct {
	No            string                 `json:"no"`
	QuotationNo   string                 `json:"quotationNo"`
	EnquiryNo     string                 `json:"enquiryNo"`
	Customer      string                 `json:"customer"`
	Origin        string                 `json:"origin"`
	Destination   string                 `json:"destination"`
	Commodity     string                 `json:"commodity,omitempty"`
	WeightKg      decimal.Decimal        `json:"weightKg"`
	CBM           decimal.Decimal        `json:"cbm"`
	Mode          documents.Mode         `json:"mode"`
	ShipmentType  documents.ShipmentType `json:"shipmentType"`
	AgentRate     decimal.Decimal        `json:"agentRate"`
	CustomerRate  decimal.Decimal        `json:"customerRate"`
	Currency      string                 `json:"currency"`
	SalesPersonID string                 `json:"salesPersonId,omitempty"`
	TotalCost     decimal.Decimal        `json:"totalCost"`
	ActualProfit  decimal.Decimal        `json:"actualProfit"`
	Status        JobStatus              `json:"status"`
	History       []StatusChange         `json:"history"`
	Checklist     []documents.Entry      `json:"checklist"`
	CreatedAt     time.Time              `json:"createdAt"`
	UpdatedAt     time.Time              `json:"updatedAt"`
}

// Revenue is the billable freight for the job in its own currency.
func (j Job) Revenue() decimal.Decimal {
	return j.CustomerRate.Mul(j.CBM).Round(2)
}

// AgentPurchase is a cost bought from an agent or vendor for a job.
type AgentPurchase struct {
	No                  string          `json:"no"`
	JobNo               string          `json:"jobNo"`
	Vendor              string          `json:"vendor"`
	Description         string          `json:"description,omitempty"`
	Amount              decimal.Decimal `json:"amount"`
	Currency            string          `json:"currency"`
	AmountInJobCurrency decimal.Decimal `json:"amountInJobCurrency"`
	Status              PurchaseStatus  `json:"status"`
	CreatedAt           time.Time       `json:"createdAt"`
	UpdatedAt           time.Time       `json:"updatedAt"`
}

// ShippingDocument records receipt of a physical or electronic document for a job.
type ShippingDocument struct {
	No         string    `json:"no"`
	JobNo      string    `json:"jobNo"`
	DocKey     string    `json:"docKey"`
	FileName   string    `json:"fileName,omitempty"`
	Reference  string    `json:"reference,omitempty"`
	ReceivedAt time.Time `json:"receivedAt"`
}

// Charge is one invoice line.
type Charge struct {
	Description string          `json:"description" validate:"required,max=200"`
	Amount      decimal.Decimal `json:"amount"`
}

// Invoice bills the customer for a job.
type Invoice struct {
	No         string          `json:"no"`
	JobNo      string          `json:"jobNo"`
	Customer   string          `json:"customer"`
	Charges    []Charge        `json:"charges"`
	Subtotal   decimal.Decimal `json:"subtotal"`
	TaxPercent decimal.Decimal `json:"taxPercent"`
	Tax        decimal.Decimal `json:"tax"`
	Total      decimal.Decimal `json:"total"`
	Currency   string          `json:"currency"`
	PaidAmount decimal.Decimal `json:"paidAmount"`
	DueDate    time.Time       `json:"dueDate"`
	Status     InvoiceStatus   `json:"status"`
	IssuedAt   *time.Time      `json:"issuedAt,omitempty"`
	PaidAt     *time.Time      `json:"paidAt,omitempty"`
	CreatedAt  time.Time       `json:"createdAt"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

// Outstanding is the unpaid remainder of the invoice.
func (i Invoice) Outstanding() decimal.Decimal {
	return i.Total.Sub(i.PaidAmount)
}

// Payment is money received against an invoice.
type Payment struct {
	No        string          `json:"no"`
	InvoiceNo string          `json:"invoiceNo"`
	JobNo     string          `json:"jobNo"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
	Method    string          `json:"method"`
	Reference string          `json:"reference,omitempty"`
	Status    PaymentStatus   `json:"status"`
	ClearedAt *time.Time      `json:"clearedAt,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}

// SalesPerson earns commission on the jobs they bring in.
type SalesPerson struct {
	ID        string                   `json:"id"`
	Name      string                   `json:"name"`
	Email     string                   `json:"email,omitempty"`
	Policy    finance.CommissionPolicy `json:"policy"`
	CreatedAt time.Time                `json:"createdAt"`
}

// Commission is the amount owed to a salesperson for a job.
type Commission struct {
	No            string                 `json:"no"`
	JobNo         string                 `json:"jobNo"`
	SalesPersonID string                 `json:"salesPersonId"`
	Policy        finance.CommissionType `json:"policy"`
	Basis         decimal.Decimal        `json:"basis"`
	Amount        decimal.Decimal        `json:"amount"`
	Currency      string                 `json:"currency"`
	Status        CommissionStatus       `json:"status"`
	CreatedAt     time.Time              `json:"createdAt"`
	PaidAt        *time.Time             `json:"paidAt,omitempty"`
}

// CommissionSummary aggregates a salesperson's commissions in the base currency.
type CommissionSummary struct {
	SalesPersonID string          `json:"salesPersonId"`
	Currency      string          `json:"currency"`
	Count         int             `json:"count"`
	Pending       decimal.Decimal `json:"pending"`
	TotalPaid     decimal.Decimal `json:"totalPaid"`
	TotalEarned   decimal.Decimal `json:"totalEarned"`
}

// Dataset is the single document holding every workflow collection.
type Dataset struct {
	Enquiries    []Enquiry          `json:"enquiries"`
	Quotations   []Quotation        `json:"quotations"`
	Jobs         []Job              `json:"jobs"`
	Purchases    []AgentPurchase    `json:"purchases"`
	Documents    []ShippingDocument `json:"documents"`
	Invoices     []Invoice          `json:"invoices"`
	Payments     []Payment          `json:"payments"`
	SalesPersons []SalesPerson      `json:"salesPersons"`
	Commissions  []Commission       `json:"commissions"`
	Counters     map[string]int     `json:"counters"`

	Version int64 `json:"-"`
}

// EnquiryInput is the payload for CreateEnquiry.
type EnquiryInput struct {
	CustomerName  string                 `json:"customerName" validate:"required,max=200"`
	ContactPerson string                 `json:"contactPerson" validate:"omitempty,max=200"`
	Email         string                 `json:"email" validate:"omitempty,email"`
	Phone         string                 `json:"phone" validate:"omitempty,max=40"`
	Origin        string                 `json:"origin" validate:"required,max=120"`
	Destination   string                 `json:"destination" validate:"required,max=120"`
	Commodity     string                 `json:"commodity" validate:"omitempty,max=200"`
	WeightKg      decimal.Decimal        `json:"weightKg"`
	CBM           decimal.Decimal        `json:"cbm"`
	Mode          documents.Mode         `json:"mode" validate:"required,oneof=Sea Air"`
	ShipmentType  documents.ShipmentType `json:"shipmentType" validate:"required,oneof=Export Import"`
	SalesPersonID string                 `json:"salesPersonId"`
}

// QuotationInput is the payload for CreateQuotationFromEnquiry.
type QuotationInput struct {
	AgentRate    decimal.Decimal `json:"agentRate"`
	CustomerRate decimal.Decimal `json:"customerRate"`
	Currency     string          `json:"currency" validate:"required,len=3"`
	ValidUntil   *time.Time      `json:"validUntil"`
	Remarks      string          `json:"remarks" validate:"omitempty,max=500"`
}

// PurchaseInput is the payload for RecordAgentPurchase.
type PurchaseInput struct {
	Vendor      string          `json:"vendor" validate:"required,max=200"`
	Description string          `json:"description" validate:"omitempty,max=500"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency" validate:"required,len=3"`
}

// InvoiceInput is the payload for CreateInvoiceFromJob. Empty charges bill the freight.
type InvoiceInput struct {
	Charges    []Charge        `json:"charges" validate:"dive"`
	TaxPercent decimal.Decimal `json:"taxPercent"`
	DueDate    *time.Time      `json:"dueDate"`
	Draft      bool            `json:"draft"`
}

// PaymentInput is the payload for RecordPayment. Status defaults to cleared.
type PaymentInput struct {
	Amount    decimal.Decimal `json:"amount"`
	Method    string          `json:"method" validate:"required,max=50"`
	Reference string          `json:"reference" validate:"omitempty,max=120"`
	Status    PaymentStatus   `json:"status" validate:"omitempty,oneof=pending cleared"`
}

// DocumentInput is the payload for RecordDocument.
type DocumentInput struct {
	DocKey     string     `json:"docKey" validate:"required"`
	FileName   string     `json:"fileName" validate:"omitempty,max=255"`
	Reference  string     `json:"reference" validate:"omitempty,max=120"`
	ReceivedAt *time.Time `json:"receivedAt"`
}

// SalesPersonInput is the payload for CreateSalesPerson.
type SalesPersonInput struct {
	Name   string                   `json:"name" validate:"required,max=200"`
	Email  string                   `json:"email" validate:"omitempty,email"`
	Policy finance.CommissionPolicy `json:"policy"`
}
