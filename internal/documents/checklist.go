// Package documents generates per-job shipping document checklists and evaluates
// whether a job is ready to close.
package documents

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Mode is the transport mode of a shipment.
type Mode string

const (
	ModeSea Mode = "Sea"
	ModeAir Mode = "Air"
)

// ShipmentType is the trade direction of a shipment.
type ShipmentType string

const (
	ShipmentExport ShipmentType = "Export"
	ShipmentImport ShipmentType = "Import"
)

// Status tracks receipt of a single document.
type Status string

const (
	StatusPending  Status = "pending"
	StatusReceived Status = "received"
	StatusMissing  Status = "missing"
)

var (
	// ErrUnknownMode indicates a mode outside Sea and Air.
	ErrUnknownMode = errors.New("documents: unknown transport mode")
	// ErrUnknownShipmentType indicates a shipment type outside Export and Import.
	ErrUnknownShipmentType = errors.New("documents: unknown shipment type")
	// ErrEntryNotFound indicates the checklist has no entry for the key.
	ErrEntryNotFound = errors.New("documents: checklist entry not found")
	// ErrInvalidStatus indicates an unknown document status.
	ErrInvalidStatus = errors.New("documents: invalid status")
)

// Entry is one line of a job's document checklist.
type Entry struct {
	Key          string     `json:"key"`
	Label        string     `json:"label"`
	Required     bool       `json:"required"`
	Status       Status     `json:"status"`
	ReceivedDate *time.Time `json:"receivedDate,omitempty"`
	Remarks      string     `json:"remarks,omitempty"`
	UpdatedAt    *time.Time `json:"updatedAt,omitempty"`
}

type docTemplate struct {
	key      string
	label    string
	required bool
}

var (
	modeDocuments = map[Mode][]docTemplate{
		ModeSea: {
			{"mbl", "Master Bill of Lading", true},
			{"hbl", "House Bill of Lading", true},
		},
		ModeAir: {
			{"mawb", "Master Air Waybill", true},
			{"hawb", "House Air Waybill", true},
		},
	}
	typeDocuments = map[ShipmentType][]docTemplate{
		ShipmentExport: {
			{"shipping_bill", "Shipping Bill", true},
			{"form_e", "Form E", false},
			{"certificate_of_origin", "Certificate of Origin", false},
		},
		ShipmentImport: {
			{"bill_of_entry", "Bill of Entry", true},
			{"arrival_notice", "Arrival Notice", true},
		},
	}
	commonDocuments = []docTemplate{
		{"commercial_invoice", "Commercial Invoice", true},
		{"packing_list", "Packing List", true},
		{"freight_invoice", "Freight Invoice", true},
		{"job_file", "Job File", true},
		{"cost_sheet", "Cost Sheet", true},
	}
)

// Generate builds the pending checklist for a shipment.
func Generate(shipmentType ShipmentType, mode Mode) ([]Entry, error) {
	byMode, ok := modeDocuments[mode]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}
	byType, ok := typeDocuments[shipmentType]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownShipmentType, shipmentType)
	}
	entries := make([]Entry, 0, len(byMode)+len(byType)+len(commonDocuments))
	for _, group := range [][]docTemplate{byMode, byType, commonDocuments} {
		for _, t := range group {
			entries = append(entries, Entry{Key: t.key, Label: t.label, Required: t.required, Status: StatusPending})
		}
	}
	return entries, nil
}

// Update carries a checklist change. Nil fields are left untouched.
type Update struct {
	Status       Status     `json:"status" validate:"required,oneof=pending received missing"`
	ReceivedDate *time.Time `json:"receivedDate,omitempty"`
	Remarks      *string    `json:"remarks,omitempty"`
}

// Apply overwrites the entry identified by key and returns the updated entry.
// Marking an entry received without a date stamps it with now.
func Apply(entries []Entry, key string, update Update, now time.Time) (Entry, error) {
	switch update.Status {
	case StatusPending, StatusReceived, StatusMissing:
	default:
		return Entry{}, fmt.Errorf("%w: %q", ErrInvalidStatus, update.Status)
	}
	for i := range entries {
		if entries[i].Key != key {
			continue
		}
		entry := &entries[i]
		entry.Status = update.Status
		switch {
		case update.ReceivedDate != nil:
			received := update.ReceivedDate.UTC()
			entry.ReceivedDate = &received
		case update.Status == StatusReceived && entry.ReceivedDate == nil:
			received := now
			entry.ReceivedDate = &received
		case update.Status != StatusReceived:
			entry.ReceivedDate = nil
		}
		if update.Remarks != nil {
			entry.Remarks = *update.Remarks
		}
		stamp := now
		entry.UpdatedAt = &stamp
		return *entry, nil
	}
	return Entry{}, fmt.Errorf("%w: %q", ErrEntryNotFound, key)
}

// Completion returns the share of entries received as a percentage rounded to 2 places.
func Completion(entries []Entry) decimal.Decimal {
	if len(entries) == 0 {
		return decimal.Zero
	}
	received := 0
	for _, e := range entries {
		if e.Status == StatusReceived {
			received++
		}
	}
	return decimal.NewFromInt(int64(received)).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(int64(len(entries)))).
		Round(2)
}

// Outstanding lists required keys that are not yet received, in checklist order.
func Outstanding(entries []Entry) []string {
	var keys []string
	for _, e := range entries {
		if e.Required && e.Status != StatusReceived {
			keys = append(keys, e.Key)
		}
	}
	return keys
}
