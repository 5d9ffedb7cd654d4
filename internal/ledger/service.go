package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Service coordinates account maintenance and transaction posting.
type Service struct {
	mu       sync.Mutex
	repo     Repository
	logger   *slog.Logger
	validate *validator.Validate
	now      func() time.Time
}

// NewService constructs the ledger service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger, validate: validator.New(), now: time.Now}
}

// WithNow overrides the clock for testing.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

func (s *Service) check(input any) error {
	if err := s.validate.Struct(input); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return nil
}

// CreateAccount adds an account to the chart with a zero balance.
func (s *Service) CreateAccount(ctx context.Context, input AccountInput) (Account, error) {
	if err := s.check(input); err != nil {
		return Account{}, err
	}
	if !input.Type.valid() {
		return Account{}, fmt.Errorf("%w: %q", ErrInvalidAccountType, input.Type)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var created Account
	err := s.repo.WithTx(ctx, func(_ context.Context, chart *Chart) error {
		if chart.account(input.Code) != nil {
			return fmt.Errorf("%w: %s", ErrAccountExists, input.Code)
		}
		created = Account{
			Code:      input.Code,
			Name:      strings.TrimSpace(input.Name),
			Type:      input.Type,
			Balance:   decimal.Zero,
			CreatedAt: s.now().UTC(),
		}
		chart.Accounts = append(chart.Accounts, created)
		return nil
	})
	if err != nil {
		return Account{}, err
	}
	s.logger.Info("ledger account created", slog.String("code", created.Code), slog.String("type", string(created.Type)))
	return created, nil
}

// Accounts lists the chart ordered by code.
func (s *Service) Accounts(ctx context.Context) ([]Account, error) {
	chart, err := s.repo.Load(ctx)
	if err != nil {
		return nil, err
	}
	accounts := chart.Accounts
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].Code < accounts[j].Code })
	return accounts, nil
}

// PostTransaction validates and records a debit/credit pair, updating both balances.
// A source already posted is rejected with ErrSourceAlreadyLinked.
func (s *Service) PostTransaction(ctx context.Context, input PostingInput) (Transaction, error) {
	if err := s.check(input); err != nil {
		return Transaction{}, err
	}
	if err := input.Validate(); err != nil {
		return Transaction{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var posted Transaction
	err := s.repo.WithTx(ctx, func(_ context.Context, chart *Chart) error {
		debit := chart.account(input.DebitAccount)
		if debit == nil {
			return fmt.Errorf("%w: %s", ErrAccountNotFound, input.DebitAccount)
		}
		credit := chart.account(input.CreditAccount)
		if credit == nil {
			return fmt.Errorf("%w: %s", ErrAccountNotFound, input.CreditAccount)
		}
		if chart.linked(input.SourceModule, input.SourceRef) {
			return fmt.Errorf("%w: %s %s", ErrSourceAlreadyLinked, input.SourceModule, input.SourceRef)
		}
		now := s.now().UTC()
		date := input.Date
		if date.IsZero() {
			date = now
		}
		posted = Transaction{
			ID:            uuid.New(),
			Date:          date.UTC(),
			DebitAccount:  debit.Code,
			CreditAccount: credit.Code,
			Amount:        input.Amount,
			Memo:          strings.TrimSpace(input.Memo),
			SourceModule:  input.SourceModule,
			SourceRef:     input.SourceRef,
			PostedAt:      now,
		}
		apply(debit, input.Amount, true)
		apply(credit, input.Amount, false)
		chart.Transactions = append(chart.Transactions, posted)
		return nil
	})
	if err != nil {
		return Transaction{}, err
	}
	s.logger.Debug("ledger transaction posted",
		slog.String("id", posted.ID.String()),
		slog.String("debit", posted.DebitAccount),
		slog.String("credit", posted.CreditAccount),
		slog.String("amount", posted.Amount.StringFixed(2)),
		slog.String("source", posted.SourceModule+"/"+posted.SourceRef))
	return posted, nil
}

func apply(acct *Account, amount decimal.Decimal, debit bool) {
	if debit == acct.Type.DebitNormal() {
		acct.Balance = acct.Balance.Add(amount)
		return
	}
	acct.Balance = acct.Balance.Sub(amount)
}

// TransactionFilter narrows Transactions.
type TransactionFilter struct {
	Account      string
	SourceModule string
	SourceRef    string
}

// Transactions lists postings in the order they were made.
func (s *Service) Transactions(ctx context.Context, filter TransactionFilter) ([]Transaction, error) {
	chart, err := s.repo.Load(ctx)
	if err != nil {
		return nil, err
	}
	if filter.Account != "" && chart.account(filter.Account) == nil {
		return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, filter.Account)
	}
	var out []Transaction
	for _, tx := range chart.Transactions {
		if filter.Account != "" && tx.DebitAccount != filter.Account && tx.CreditAccount != filter.Account {
			continue
		}
		if filter.SourceModule != "" && tx.SourceModule != filter.SourceModule {
			continue
		}
		if filter.SourceRef != "" && tx.SourceRef != filter.SourceRef {
			continue
		}
		out = append(out, tx)
	}
	return out, nil
}

// TrialBalance places each balance on its normal side; negative balances flip sides.
func (s *Service) TrialBalance(ctx context.Context) (TrialBalance, error) {
	accounts, err := s.Accounts(ctx)
	if err != nil {
		return TrialBalance{}, err
	}
	tb := TrialBalance{TotalDebit: decimal.Zero, TotalCredit: decimal.Zero}
	for _, a := range accounts {
		line := TrialBalanceLine{Code: a.Code, Name: a.Name, Type: a.Type, Debit: decimal.Zero, Credit: decimal.Zero}
		onDebit := a.Type.DebitNormal() != a.Balance.IsNegative()
		if onDebit {
			line.Debit = a.Balance.Abs()
		} else {
			line.Credit = a.Balance.Abs()
		}
		tb.TotalDebit = tb.TotalDebit.Add(line.Debit)
		tb.TotalCredit = tb.TotalCredit.Add(line.Credit)
		tb.Lines = append(tb.Lines, line)
	}
	tb.Balanced = tb.TotalDebit.Equal(tb.TotalCredit)
	return tb, nil
}

// IsDuplicate reports whether err is a repeated posting of the same source.
func IsDuplicate(err error) bool {
	return errors.Is(err, ErrSourceAlreadyLinked)
}
