package freight

import (
	"context"
	"strings"
)

// RecordAgentPurchase books a cost against a job and recomputes its cost and profit.
func (s *Store) RecordAgentPurchase(ctx context.Context, jobNo string, input PurchaseInput) (AgentPurchase, error) {
	if err := s.check("purchase", input); err != nil {
		return AgentPurchase{}, err
	}
	if !input.Amount.IsPositive() {
		return AgentPurchase{}, invalidInput("purchase", "", "amount must be greater than zero", nil)
	}
	cur, err := s.currency("purchase", input.Currency)
	if err != nil {
		return AgentPurchase{}, err
	}

	var created AgentPurchase
	err = s.mutate(ctx, "record_purchase", func(t *txn) error {
		job := t.job(jobNo)
		if job == nil {
			return notFound("job", jobNo)
		}
		if job.Status == JobClosed {
			return ruleViolation("job", job.No, "cannot add costs to a closed job")
		}
		inJobCurrency, err := s.rates.Convert(input.Amount, cur, job.Currency)
		if err != nil {
			return invalidInput("purchase", "", err.Error(), err)
		}
		created = AgentPurchase{
			No:                  t.nextID(prefixPurchase),
			JobNo:               job.No,
			Vendor:              strings.TrimSpace(input.Vendor),
			Description:         strings.TrimSpace(input.Description),
			Amount:              input.Amount,
			Currency:            cur,
			AmountInJobCurrency: inJobCurrency,
			Status:              PurchasePending,
			CreatedAt:           t.now,
			UpdatedAt:           t.now,
		}
		t.Purchases = append(t.Purchases, created)
		t.recomputeJob(job, t.now)

		p := created
		t.post("purchase_recorded", p.No, func(ctx context.Context, h PostingHook) error {
			return h.PurchaseRecorded(ctx, p)
		})
		return nil
	})
	return created, err
}

// UpdatePurchaseStatus moves a purchase along its lifecycle. Cancelling removes it from job cost.
func (s *Store) UpdatePurchaseStatus(ctx context.Context, purchaseNo string, status PurchaseStatus) (AgentPurchase, error) {
	if !purchaseFlow.known(status) {
		return AgentPurchase{}, invalidInput("purchase", purchaseNo, "unknown purchase status "+string(status), nil)
	}
	var updated AgentPurchase
	err := s.mutate(ctx, "update_purchase_status", func(t *txn) error {
		p := t.purchase(purchaseNo)
		if p == nil {
			return notFound("purchase", purchaseNo)
		}
		if !purchaseFlow.allows(p.Status, status) {
			return invalidTransition("purchase", p.No, p.Status, status)
		}
		job := t.job(p.JobNo)
		if job == nil {
			return notFound("job", p.JobNo)
		}
		if status == PurchaseCancelled && job.Status == JobClosed {
			return ruleViolation("job", job.No, "cannot cancel costs of a closed job")
		}
		p.Status = status
		p.UpdatedAt = t.now
		updated = *p
		if status == PurchaseCancelled {
			t.recomputeJob(job, t.now)
			cancelled := updated
			t.post("purchase_cancelled", cancelled.No, func(ctx context.Context, h PostingHook) error {
				return h.PurchaseCancelled(ctx, cancelled)
			})
		}
		return nil
	})
	return updated, err
}

// Purchases lists purchases, optionally restricted to one job.
func (s *Store) Purchases(ctx context.Context, jobNo string) ([]AgentPurchase, error) {
	data, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	if jobNo == "" {
		return data.Purchases, nil
	}
	if data.job(jobNo) == nil {
		return nil, notFound("job", jobNo)
	}
	var out []AgentPurchase
	for _, p := range data.Purchases {
		if p.JobNo == jobNo {
			out = append(out, p)
		}
	}
	return out, nil
}
