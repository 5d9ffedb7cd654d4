package freight

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/freightdesk/internal/finance"
)

// CreateSalesPerson registers a salesperson and their commission policy.
func (s *Store) CreateSalesPerson(ctx context.Context, input SalesPersonInput) (SalesPerson, error) {
	if err := s.check("salesperson", input); err != nil {
		return SalesPerson{}, err
	}
	if err := input.Policy.Validate(); err != nil {
		return SalesPerson{}, invalidInput("salesperson", "", "commission policy type must be profit, revenue or fixed with a non-negative rate", err)
	}
	var created SalesPerson
	err := s.mutate(ctx, "create_salesperson", func(t *txn) error {
		created = SalesPerson{
			ID:        t.nextID(prefixSalesPerson),
			Name:      strings.TrimSpace(input.Name),
			Email:     strings.TrimSpace(input.Email),
			Policy:    input.Policy,
			CreatedAt: t.now,
		}
		t.SalesPersons = append(t.SalesPersons, created)
		return nil
	})
	return created, err
}

// SalesPersons lists salespeople.
func (s *Store) SalesPersons(ctx context.Context) ([]SalesPerson, error) {
	data, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	return data.SalesPersons, nil
}

// AccrueCommission books the commission for a completed or closed job.
func (s *Store) AccrueCommission(ctx context.Context, jobNo string) (Commission, error) {
	var accrued Commission
	err := s.mutate(ctx, "accrue_commission", func(t *txn) error {
		job := t.job(jobNo)
		if job == nil {
			return notFound("job", jobNo)
		}
		if job.Status != JobCompleted && job.Status != JobClosed {
			return ruleViolation("job", job.No, "commission accrues only on completed or closed jobs")
		}
		if job.SalesPersonID == "" {
			return ruleViolation("job", job.No, "job has no salesperson")
		}
		if existing := t.commissionForJob(job.No); existing != nil {
			return ruleViolation("job", job.No, "commission already accrued as %s", existing.No)
		}
		if err := t.accrueCommission(job); err != nil {
			return err
		}
		accrued = t.Commissions[len(t.Commissions)-1]
		return nil
	})
	return accrued, err
}

func (t *txn) accrueCommission(job *Job) error {
	sp := t.salesPerson(job.SalesPersonID)
	if sp == nil {
		return notFound("salesperson", job.SalesPersonID)
	}
	basis := job.ActualProfit
	switch sp.Policy.Type {
	case finance.CommissionOnRevenue:
		basis = job.Revenue()
	case finance.CommissionFixed:
		basis = decimal.Zero
	}
	c := Commission{
		No:            t.nextID(prefixCommission),
		JobNo:         job.No,
		SalesPersonID: sp.ID,
		Policy:        sp.Policy.Type,
		Basis:         basis,
		Amount:        sp.Policy.Calculate(job.ActualProfit, job.Revenue()),
		Currency:      job.Currency,
		Status:        CommissionPending,
		CreatedAt:     t.now,
	}
	t.Commissions = append(t.Commissions, c)
	t.post("commission_accrued", c.No, func(ctx context.Context, h PostingHook) error {
		return h.CommissionAccrued(ctx, c)
	})
	return nil
}

// PayCommission marks a pending commission paid.
func (s *Store) PayCommission(ctx context.Context, no string) (Commission, error) {
	var paid Commission
	err := s.mutate(ctx, "pay_commission", func(t *txn) error {
		c := t.commission(no)
		if c == nil {
			return notFound("commission", no)
		}
		if !commissionFlow.allows(c.Status, CommissionPaid) {
			return invalidTransition("commission", c.No, c.Status, CommissionPaid)
		}
		at := t.now
		c.Status = CommissionPaid
		c.PaidAt = &at
		paid = *c
		snapshot := paid
		t.post("commission_paid", c.No, func(ctx context.Context, h PostingHook) error {
			return h.CommissionPaid(ctx, snapshot)
		})
		return nil
	})
	return paid, err
}

// Commissions lists commissions, optionally restricted to one salesperson.
func (s *Store) Commissions(ctx context.Context, salesPersonID string) ([]Commission, error) {
	data, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	if salesPersonID == "" {
		return data.Commissions, nil
	}
	var out []Commission
	for _, c := range data.Commissions {
		if c.SalesPersonID == salesPersonID {
			out = append(out, c)
		}
	}
	return out, nil
}

// CommissionSummary derives a salesperson's pending, paid and earned totals in USD.
func (s *Store) CommissionSummary(ctx context.Context, salesPersonID string) (CommissionSummary, error) {
	data, err := s.read(ctx)
	if err != nil {
		return CommissionSummary{}, err
	}
	if data.salesPerson(salesPersonID) == nil {
		return CommissionSummary{}, notFound("salesperson", salesPersonID)
	}
	summary := CommissionSummary{
		SalesPersonID: salesPersonID,
		Currency:      finance.BaseCurrency,
		Pending:       decimal.Zero,
		TotalPaid:     decimal.Zero,
	}
	for _, c := range data.Commissions {
		if c.SalesPersonID != salesPersonID {
			continue
		}
		amount, err := s.rates.Convert(c.Amount, c.Currency, finance.BaseCurrency)
		if err != nil {
			return CommissionSummary{}, invalidInput("commission", c.No, err.Error(), err)
		}
		summary.Count++
		if c.Status == CommissionPaid {
			summary.TotalPaid = summary.TotalPaid.Add(amount)
		} else {
			summary.Pending = summary.Pending.Add(amount)
		}
	}
	summary.TotalEarned = summary.Pending.Add(summary.TotalPaid)
	return summary, nil
}
