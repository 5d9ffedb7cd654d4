package freight

import (
	"context"

	"github.com/odyssey-erp/freightdesk/internal/finance"
)

// JobProfitability computes revenue, cost, profit and margin for a job in base,
// converting each purchase from the currency it was bought in.
func (s *Store) JobProfitability(ctx context.Context, jobNo, base string) (finance.ProfitResult, error) {
	data, err := s.read(ctx)
	if err != nil {
		return finance.ProfitResult{}, err
	}
	job := data.job(jobNo)
	if job == nil {
		return finance.ProfitResult{}, notFound("job", jobNo)
	}
	return s.profitability(data, job, base)
}

func (s *Store) profitability(data *Dataset, job *Job, base string) (finance.ProfitResult, error) {
	if base == "" {
		base = job.Currency
	}
	purchases := data.activePurchases(job.No)
	costs := make([]finance.Money, 0, len(purchases))
	for _, p := range purchases {
		costs = append(costs, finance.Money{Amount: p.Amount, Currency: p.Currency})
	}
	result, err := s.rates.MultiCurrencyProfit(finance.Money{Amount: job.Revenue(), Currency: job.Currency}, costs, base)
	if err != nil {
		return finance.ProfitResult{}, invalidInput("job", job.No, err.Error(), err)
	}
	return result, nil
}
