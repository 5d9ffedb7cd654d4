package freight

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/ttacon/libphonenumber"

	"github.com/odyssey-erp/freightdesk/internal/finance"
)

// RateConverter is the subset of finance.Calculator the store relies on.
type RateConverter interface {
	Convert(amount decimal.Decimal, from, to string) (decimal.Decimal, error)
	MultiCurrencyProfit(revenue finance.Money, costs []finance.Money, base string) (finance.ProfitResult, error)
	Supports(code string) bool
}

// PostingHook receives financially relevant events after they are committed.
type PostingHook interface {
	InvoiceIssued(ctx context.Context, inv Invoice) error
	PaymentCleared(ctx context.Context, pay Payment) error
	PurchaseRecorded(ctx context.Context, p AgentPurchase) error
	PurchaseCancelled(ctx context.Context, p AgentPurchase) error
	CommissionAccrued(ctx context.Context, c Commission) error
	CommissionPaid(ctx context.Context, c Commission) error
}

// Metrics observes store operation outcomes and failed posting hooks.
type Metrics interface {
	ObserveOperation(operation, outcome string)
	ObserveHookFailure(event string)
}

// Store is the single owner of the workflow dataset. Mutations are serialised
// within the process and version-checked against other processes.
type Store struct {
	mu          sync.Mutex
	repo        Repository
	rates       RateConverter
	logger      *slog.Logger
	hooks       PostingHook
	metrics     Metrics
	validate    *validator.Validate
	phoneRegion string
	now         func() time.Time
}

// NewStore constructs a Store.
func NewStore(repo Repository, rates RateConverter, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		repo:        repo,
		rates:       rates,
		logger:      logger,
		validate:    validator.New(),
		phoneRegion: "US",
		now:         time.Now,
	}
}

// WithNow overrides the clock for deterministic tests.
func (s *Store) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// SetPostingHook registers the ledger hook.
func (s *Store) SetPostingHook(h PostingHook) {
	s.hooks = h
}

// SetMetrics registers an operation observer.
func (s *Store) SetMetrics(m Metrics) {
	s.metrics = m
}

// SetPhoneRegion sets the default region used to normalise enquiry phone numbers.
func (s *Store) SetPhoneRegion(region string) {
	if region = strings.ToUpper(strings.TrimSpace(region)); region != "" {
		s.phoneRegion = region
	}
}

type posting struct {
	name string
	ref  string
	run  func(ctx context.Context, h PostingHook) error
}

// txn is the working state of a single mutation.
type txn struct {
	*Dataset
	now   time.Time
	posts []posting
}

func (t *txn) post(name, ref string, run func(ctx context.Context, h PostingHook) error) {
	t.posts = append(t.posts, posting{name: name, ref: ref, run: run})
}

func (s *Store) mutate(ctx context.Context, op string, fn func(t *txn) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var posts []posting
	err := s.repo.WithTx(ctx, func(_ context.Context, data *Dataset) error {
		t := &txn{Dataset: data, now: s.now().UTC()}
		if err := fn(t); err != nil {
			return err
		}
		posts = t.posts
		return nil
	})
	s.observe(op, err)
	if err != nil {
		return err
	}
	if s.hooks == nil {
		return nil
	}
	for _, p := range posts {
		if hookErr := p.run(ctx, s.hooks); hookErr != nil {
			s.logger.Error("posting hook failed",
				slog.String("operation", op),
				slog.String("event", p.name),
				slog.String("ref", p.ref),
				slog.Any("error", hookErr))
			if s.metrics != nil {
				s.metrics.ObserveHookFailure(p.name)
			}
		}
	}
	return nil
}

func (s *Store) read(ctx context.Context) (*Dataset, error) {
	data, err := s.repo.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("freight: read dataset: %w", err)
	}
	return data, nil
}

func (s *Store) observe(op string, err error) {
	if s.metrics == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = string(CodeOf(err))
		if outcome == "" {
			outcome = "error"
		}
	}
	s.metrics.ObserveOperation(op, outcome)
}

func (s *Store) check(entity string, input any) error {
	if err := s.validate.Struct(input); err != nil {
		return validationFailure(entity, err)
	}
	return nil
}

func (s *Store) normalizePhone(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	num, err := libphonenumber.Parse(raw, s.phoneRegion)
	if err != nil || !libphonenumber.IsValidNumber(num) {
		return raw
	}
	return libphonenumber.Format(num, libphonenumber.E164)
}

func (s *Store) currency(entity, code string) (string, error) {
	code = finance.NormalizeCode(code)
	if !s.rates.Supports(code) {
		return "", invalidInput(entity, "", fmt.Sprintf("unsupported currency %q", code), finance.ErrUnsupportedCurrency)
	}
	return code, nil
}

func (d *Dataset) nextID(prefix string) string {
	if d.Counters == nil {
		d.Counters = make(map[string]int)
	}
	d.Counters[prefix]++
	return fmt.Sprintf("%s%03d", prefix, d.Counters[prefix])
}

// ID prefixes.
const (
	prefixEnquiry     = "ENQ"
	prefixQuotation   = "QUO"
	prefixJob         = "JOB"
	prefixPurchase    = "PUR"
	prefixDocument    = "DOC"
	prefixInvoice     = "INV"
	prefixPayment     = "PAY"
	prefixSalesPerson = "SP"
	prefixCommission  = "COM"
)

func find[T any](items []T, match func(*T) bool) *T {
	for i := range items {
		if match(&items[i]) {
			return &items[i]
		}
	}
	return nil
}

func findLast[T any](items []T, match func(*T) bool) *T {
	for i := len(items) - 1; i >= 0; i-- {
		if match(&items[i]) {
			return &items[i]
		}
	}
	return nil
}

func (d *Dataset) enquiry(no string) *Enquiry {
	return find(d.Enquiries, func(e *Enquiry) bool { return e.No == no })
}

func (d *Dataset) quotation(no string) *Quotation {
	return find(d.Quotations, func(q *Quotation) bool { return q.No == no })
}

func (d *Dataset) job(no string) *Job {
	return find(d.Jobs, func(j *Job) bool { return j.No == no })
}

func (d *Dataset) purchase(no string) *AgentPurchase {
	return find(d.Purchases, func(p *AgentPurchase) bool { return p.No == no })
}

func (d *Dataset) invoice(no string) *Invoice {
	return find(d.Invoices, func(i *Invoice) bool { return i.No == no })
}

func (d *Dataset) invoiceForJob(jobNo string) *Invoice {
	return findLast(d.Invoices, func(i *Invoice) bool { return i.JobNo == jobNo })
}

func (d *Dataset) payment(no string) *Payment {
	return find(d.Payments, func(p *Payment) bool { return p.No == no })
}

func (d *Dataset) salesPerson(id string) *SalesPerson {
	return find(d.SalesPersons, func(sp *SalesPerson) bool { return sp.ID == id })
}

func (d *Dataset) commission(no string) *Commission {
	return find(d.Commissions, func(c *Commission) bool { return c.No == no })
}

func (d *Dataset) commissionForJob(jobNo string) *Commission {
	return find(d.Commissions, func(c *Commission) bool { return c.JobNo == jobNo })
}

func (d *Dataset) activePurchases(jobNo string) []AgentPurchase {
	var out []AgentPurchase
	for _, p := range d.Purchases {
		if p.JobNo == jobNo && p.Status != PurchaseCancelled {
			out = append(out, p)
		}
	}
	return out
}

// recomputeJob is the only place that writes a job's cost and profit.
func (d *Dataset) recomputeJob(job *Job, now time.Time) {
	total := decimal.Zero
	for _, p := range d.activePurchases(job.No) {
		total = total.Add(p.AmountInJobCurrency)
	}
	job.TotalCost = total.Round(2)
	job.ActualProfit = job.Revenue().Sub(job.TotalCost)
	job.UpdatedAt = now
}
