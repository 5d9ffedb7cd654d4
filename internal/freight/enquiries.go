package freight

import (
	"context"
	"strings"

	"github.com/odyssey-erp/freightdesk/internal/documents"
)

// CreateEnquiry records a new customer enquiry.
func (s *Store) CreateEnquiry(ctx context.Context, input EnquiryInput) (Enquiry, error) {
	if err := s.check("enquiry", input); err != nil {
		return Enquiry{}, err
	}
	if !input.CBM.IsPositive() {
		return Enquiry{}, invalidInput("enquiry", "", "cbm must be greater than zero", nil)
	}
	if input.WeightKg.IsNegative() {
		return Enquiry{}, invalidInput("enquiry", "", "weightKg must not be negative", nil)
	}

	var created Enquiry
	err := s.mutate(ctx, "create_enquiry", func(t *txn) error {
		spID := strings.TrimSpace(input.SalesPersonID)
		if spID != "" && t.salesPerson(spID) == nil {
			return notFound("salesperson", spID)
		}
		created = Enquiry{
			No:            t.nextID(prefixEnquiry),
			CustomerName:  strings.TrimSpace(input.CustomerName),
			ContactPerson: strings.TrimSpace(input.ContactPerson),
			Email:         strings.TrimSpace(input.Email),
			Phone:         s.normalizePhone(input.Phone),
			Origin:        strings.TrimSpace(input.Origin),
			Destination:   strings.TrimSpace(input.Destination),
			Commodity:     strings.TrimSpace(input.Commodity),
			WeightKg:      input.WeightKg,
			CBM:           input.CBM,
			Mode:          input.Mode,
			ShipmentType:  input.ShipmentType,
			SalesPersonID: spID,
			Status:        EnquiryNew,
			CreatedAt:     t.now,
			UpdatedAt:     t.now,
		}
		t.Enquiries = append(t.Enquiries, created)
		return nil
	})
	return created, err
}

// CreateQuotationFromEnquiry prices an enquiry and moves it to quoted.
func (s *Store) CreateQuotationFromEnquiry(ctx context.Context, enquiryNo string, input QuotationInput) (Quotation, error) {
	if err := s.check("quotation", input); err != nil {
		return Quotation{}, err
	}
	if input.AgentRate.IsNegative() || !input.CustomerRate.IsPositive() {
		return Quotation{}, invalidInput("quotation", "", "agentRate must not be negative and customerRate must be greater than zero", nil)
	}
	cur, err := s.currency("quotation", input.Currency)
	if err != nil {
		return Quotation{}, err
	}

	var created Quotation
	err = s.mutate(ctx, "create_quotation", func(t *txn) error {
		enq := t.enquiry(enquiryNo)
		if enq == nil {
			return notFound("enquiry", enquiryNo)
		}
		if enq.Status == EnquiryConverted {
			return ruleViolation("enquiry", enq.No, "enquiry already converted to a job")
		}
		if !enquiryFlow.allows(enq.Status, EnquiryQuoted) {
			return invalidTransition("enquiry", enq.No, enq.Status, EnquiryQuoted)
		}
		created = Quotation{
			No:           t.nextID(prefixQuotation),
			EnquiryNo:    enq.No,
			AgentRate:    input.AgentRate,
			CustomerRate: input.CustomerRate,
			Currency:     cur,
			CBM:          enq.CBM,
			Profit:       input.CustomerRate.Sub(input.AgentRate).Mul(enq.CBM).Round(2),
			ValidUntil:   input.ValidUntil,
			Remarks:      strings.TrimSpace(input.Remarks),
			Status:       QuotationSent,
			CreatedAt:    t.now,
			UpdatedAt:    t.now,
		}
		t.Quotations = append(t.Quotations, created)
		enq.Status = EnquiryQuoted
		enq.UpdatedAt = t.now
		return nil
	})
	return created, err
}

// ApproveQuotation moves a sent quotation, and its enquiry, to approved.
func (s *Store) ApproveQuotation(ctx context.Context, quotationNo string) (Quotation, error) {
	var approved Quotation
	err := s.mutate(ctx, "approve_quotation", func(t *txn) error {
		q := t.quotation(quotationNo)
		if q == nil {
			return notFound("quotation", quotationNo)
		}
		if !quotationFlow.allows(q.Status, QuotationApproved) {
			return invalidTransition("quotation", q.No, q.Status, QuotationApproved)
		}
		if q.ValidUntil != nil && q.ValidUntil.Before(t.now) {
			return ruleViolation("quotation", q.No, "quotation expired on %s", q.ValidUntil.Format("2006-01-02"))
		}
		enq := t.enquiry(q.EnquiryNo)
		if enq == nil {
			return notFound("enquiry", q.EnquiryNo)
		}
		if !enquiryFlow.allows(enq.Status, EnquiryApproved) {
			return invalidTransition("enquiry", enq.No, enq.Status, EnquiryApproved)
		}
		q.Status = QuotationApproved
		q.UpdatedAt = t.now
		enq.Status = EnquiryApproved
		enq.UpdatedAt = t.now
		approved = *q
		return nil
	})
	return approved, err
}

// ConvertQuotationToJob opens a job from an approved quotation and generates its
// document checklist.
func (s *Store) ConvertQuotationToJob(ctx context.Context, quotationNo string) (Job, error) {
	var created Job
	err := s.mutate(ctx, "convert_quotation", func(t *txn) error {
		q := t.quotation(quotationNo)
		if q == nil {
			return notFound("quotation", quotationNo)
		}
		if q.Status != QuotationApproved {
			return ruleViolation("quotation", q.No, "quotation must be approved before conversion, current status %q", q.Status)
		}
		enq := t.enquiry(q.EnquiryNo)
		if enq == nil {
			return notFound("enquiry", q.EnquiryNo)
		}
		// A revision moves the enquiry back to quoted without withdrawing an earlier approval.
		if !enquiryFlow.allows(enq.Status, EnquiryConverted) {
			return invalidTransition("enquiry", enq.No, enq.Status, EnquiryConverted)
		}
		checklist, err := documents.Generate(enq.ShipmentType, enq.Mode)
		if err != nil {
			return invalidInput("enquiry", enq.No, err.Error(), err)
		}
		job := Job{
			No:            t.nextID(prefixJob),
			QuotationNo:   q.No,
			EnquiryNo:     enq.No,
			Customer:      enq.CustomerName,
			Origin:        enq.Origin,
			Destination:   enq.Destination,
			Commodity:     enq.Commodity,
			WeightKg:      enq.WeightKg,
			CBM:           enq.CBM,
			Mode:          enq.Mode,
			ShipmentType:  enq.ShipmentType,
			AgentRate:     q.AgentRate,
			CustomerRate:  q.CustomerRate,
			Currency:      q.Currency,
			SalesPersonID: enq.SalesPersonID,
			Status:        JobOpen,
			History:       []StatusChange{{To: JobOpen, At: t.now, Note: "converted from " + q.No}},
			Checklist:     checklist,
			CreatedAt:     t.now,
		}
		t.recomputeJob(&job, t.now)
		t.Jobs = append(t.Jobs, job)

		q.Status = QuotationConverted
		q.UpdatedAt = t.now
		enq.Status = EnquiryConverted
		enq.UpdatedAt = t.now
		created = job
		return nil
	})
	return created, err
}

// Enquiries lists enquiries in creation order.
func (s *Store) Enquiries(ctx context.Context) ([]Enquiry, error) {
	data, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	return data.Enquiries, nil
}

// Enquiry returns one enquiry.
func (s *Store) Enquiry(ctx context.Context, no string) (Enquiry, error) {
	data, err := s.read(ctx)
	if err != nil {
		return Enquiry{}, err
	}
	enq := data.enquiry(no)
	if enq == nil {
		return Enquiry{}, notFound("enquiry", no)
	}
	return *enq, nil
}

// Quotations lists quotations, optionally restricted to one enquiry.
func (s *Store) Quotations(ctx context.Context, enquiryNo string) ([]Quotation, error) {
	data, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	if enquiryNo == "" {
		return data.Quotations, nil
	}
	var out []Quotation
	for _, q := range data.Quotations {
		if q.EnquiryNo == enquiryNo {
			out = append(out, q)
		}
	}
	return out, nil
}

// Quotation returns one quotation.
func (s *Store) Quotation(ctx context.Context, no string) (Quotation, error) {
	data, err := s.read(ctx)
	if err != nil {
		return Quotation{}, err
	}
	q := data.quotation(no)
	if q == nil {
		return Quotation{}, notFound("quotation", no)
	}
	return *q, nil
}
