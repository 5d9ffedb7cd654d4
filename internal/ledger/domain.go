// Package ledger keeps a double-entry chart of accounts that the freight workflow
// posts into when invoices, payments, purchases and commissions are booked.
package ledger

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccountType enumerates chart of accounts categories.
type AccountType string

const (
	AccountTypeAssets      AccountType = "assets"
	AccountTypeLiabilities AccountType = "liabilities"
	AccountTypeEquity      AccountType = "equity"
	AccountTypeIncome      AccountType = "income"
	AccountTypeExpenses    AccountType = "expenses"
)

// DebitNormal reports whether the account type increases on debit.
func (t AccountType) DebitNormal() bool {
	return t == AccountTypeAssets || t == AccountTypeExpenses
}

func (t AccountType) valid() bool {
	switch t {
	case AccountTypeAssets, AccountTypeLiabilities, AccountTypeEquity, AccountTypeIncome, AccountTypeExpenses:
		return true
	}
	return false
}

// Codes of the seeded accounts the posting hooks rely on.
const (
	AccountCash               = "1000"
	AccountReceivable         = "1100"
	AccountPayable            = "2000"
	AccountCommissionPayable  = "2100"
	AccountOwnerEquity        = "3000"
	AccountFreightIncome      = "4000"
	AccountFreightCost        = "5000"
	AccountCommissionExpenses = "5100"
)

// Account models a chart of accounts node. Balance is signed in the account's
// normal direction.
type Account struct {
	Code      string          `json:"code"`
	Name      string          `json:"name"`
	Type      AccountType     `json:"type"`
	Balance   decimal.Decimal `json:"balance"`
	CreatedAt time.Time       `json:"createdAt"`
}

// Transaction is a single balanced debit/credit pair.
type Transaction struct {
	ID            uuid.UUID       `json:"id"`
	Date          time.Time       `json:"date"`
	DebitAccount  string          `json:"debitAccount"`
	CreditAccount string          `json:"creditAccount"`
	Amount        decimal.Decimal `json:"amount"`
	Memo          string          `json:"memo,omitempty"`
	SourceModule  string          `json:"sourceModule,omitempty"`
	SourceRef     string          `json:"sourceRef,omitempty"`
	PostedAt      time.Time       `json:"postedAt"`
}

// Chart is the persisted ledger document.
type Chart struct {
	Accounts     []Account     `json:"accounts"`
	Transactions []Transaction `json:"transactions"`

	Version int64 `json:"-"`
}

func (c *Chart) account(code string) *Account {
	for i := range c.Accounts {
		if c.Accounts[i].Code == code {
			return &c.Accounts[i]
		}
	}
	return nil
}

func (c *Chart) linked(module, ref string) bool {
	if module == "" || ref == "" {
		return false
	}
	for _, tx := range c.Transactions {
		if tx.SourceModule == module && tx.SourceRef == ref {
			return true
		}
	}
	return false
}

// DefaultAccounts returns the chart seeded on first use.
func DefaultAccounts(now time.Time) []Account {
	seed := []struct {
		code, name string
		typ        AccountType
	}{
		{AccountCash, "Cash", AccountTypeAssets},
		{AccountReceivable, "Accounts Receivable", AccountTypeAssets},
		{AccountPayable, "Accounts Payable", AccountTypeLiabilities},
		{AccountCommissionPayable, "Commission Payable", AccountTypeLiabilities},
		{AccountOwnerEquity, "Owner Equity", AccountTypeEquity},
		{AccountFreightIncome, "Freight Income", AccountTypeIncome},
		{AccountFreightCost, "Freight Cost", AccountTypeExpenses},
		{AccountCommissionExpenses, "Commission Expense", AccountTypeExpenses},
	}
	out := make([]Account, 0, len(seed))
	for _, s := range seed {
		out = append(out, Account{Code: s.code, Name: s.name, Type: s.typ, Balance: decimal.Zero, CreatedAt: now})
	}
	return out
}

var (
	// ErrAccountNotFound indicates an unknown account code.
	ErrAccountNotFound = errors.New("ledger: account not found")
	// ErrAccountExists indicates CreateAccount was called for a known code.
	ErrAccountExists = errors.New("ledger: account already exists")
	// ErrInvalidAccountType indicates a type outside the five categories.
	ErrInvalidAccountType = errors.New("ledger: invalid account type")
	// ErrSameAccount indicates debit and credit name the same account.
	ErrSameAccount = errors.New("ledger: debit and credit accounts must differ")
	// ErrInvalidAmount indicates a non-positive amount.
	ErrInvalidAmount = errors.New("ledger: amount must be greater than zero")
	// ErrSourceAlreadyLinked indicates the source was already posted.
	ErrSourceAlreadyLinked = errors.New("ledger: source already linked")
	// ErrConflict indicates another writer saved the chart in between.
	ErrConflict = errors.New("ledger: concurrent modification")
	// ErrValidation wraps validator failures.
	ErrValidation = errors.New("ledger: validation failed")
)

// AccountInput is the payload for CreateAccount.
type AccountInput struct {
	Code string      `json:"code" validate:"required,numeric,min=3,max=10"`
	Name string      `json:"name" validate:"required,max=120"`
	Type AccountType `json:"type" validate:"required"`
}

// PostingInput groups fields required to post a transaction.
type PostingInput struct {
	Date          time.Time       `json:"date"`
	DebitAccount  string          `json:"debitAccount" validate:"required"`
	CreditAccount string          `json:"creditAccount" validate:"required"`
	Amount        decimal.Decimal `json:"amount"`
	Memo          string          `json:"memo" validate:"omitempty,max=500"`
	SourceModule  string          `json:"sourceModule" validate:"required_with=SourceRef,max=60"`
	SourceRef     string          `json:"sourceRef" validate:"omitempty,max=60"`
}

// Validate ensures posting input meets minimum criteria.
func (in PostingInput) Validate() error {
	if strings.TrimSpace(in.DebitAccount) == strings.TrimSpace(in.CreditAccount) {
		return ErrSameAccount
	}
	if !in.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if !in.Amount.Equal(in.Amount.Round(2)) {
		return fmt.Errorf("%w: at most 2 decimal places", ErrInvalidAmount)
	}
	return nil
}

// TrialBalanceLine is one account row of the trial balance.
type TrialBalanceLine struct {
	Code   string          `json:"code"`
	Name   string          `json:"name"`
	Type   AccountType     `json:"type"`
	Debit  decimal.Decimal `json:"debit"`
	Credit decimal.Decimal `json:"credit"`
}

// TrialBalance totals every account's balance on its debit or credit side.
type TrialBalance struct {
	Lines       []TrialBalanceLine `json:"lines"`
	TotalDebit  decimal.Decimal    `json:"totalDebit"`
	TotalCredit decimal.Decimal    `json:"totalCredit"`
	Balanced    bool               `json:"balanced"`
}
