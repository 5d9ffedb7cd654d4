package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/freightdesk/internal/platform/kv"
)

var fixedNow = time.Date(2024, 6, 3, 12, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newService(t *testing.T) (*Service, *kv.Memory) {
	t.Helper()
	mem := kv.NewMemory()
	svc := NewService(NewKVRepository(mem, nil), nil)
	svc.WithNow(func() time.Time { return fixedNow })
	return svc, mem
}

func balanceOf(t *testing.T, svc *Service, code string) decimal.Decimal {
	t.Helper()
	accounts, err := svc.Accounts(context.Background())
	require.NoError(t, err)
	for _, a := range accounts {
		if a.Code == code {
			return a.Balance
		}
	}
	t.Fatalf("account %s not in chart", code)
	return decimal.Zero
}

func TestDefaultChartSeededOnFirstUse(t *testing.T) {
	svc, _ := newService(t)
	accounts, err := svc.Accounts(context.Background())
	require.NoError(t, err)
	require.Len(t, accounts, 8)
	require.Equal(t, AccountCash, accounts[0].Code)
	require.Equal(t, AccountCommissionExpenses, accounts[len(accounts)-1].Code)
}

func TestCreateAccount(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	acct, err := svc.CreateAccount(ctx, AccountInput{Code: "1200", Name: " Prepaid Freight ", Type: AccountTypeAssets})
	require.NoError(t, err)
	require.Equal(t, "Prepaid Freight", acct.Name)
	require.True(t, acct.Balance.IsZero())

	_, err = svc.CreateAccount(ctx, AccountInput{Code: "1200", Name: "Again", Type: AccountTypeAssets})
	require.ErrorIs(t, err, ErrAccountExists)
	_, err = svc.CreateAccount(ctx, AccountInput{Code: "1300", Name: "Odd", Type: "contra"})
	require.ErrorIs(t, err, ErrInvalidAccountType)
	_, err = svc.CreateAccount(ctx, AccountInput{Code: "AB", Name: "Bad", Type: AccountTypeAssets})
	require.ErrorIs(t, err, ErrValidation)

	accounts, err := svc.Accounts(ctx)
	require.NoError(t, err)
	require.Len(t, accounts, 9)
}

func TestPostTransactionRules(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	cases := []struct {
		name  string
		input PostingInput
		want  error
	}{
		{"same account", PostingInput{DebitAccount: AccountCash, CreditAccount: AccountCash, Amount: dec("10")}, ErrSameAccount},
		{"zero amount", PostingInput{DebitAccount: AccountCash, CreditAccount: AccountOwnerEquity, Amount: decimal.Zero}, ErrInvalidAmount},
		{"negative amount", PostingInput{DebitAccount: AccountCash, CreditAccount: AccountOwnerEquity, Amount: dec("-5")}, ErrInvalidAmount},
		{"fractional cents", PostingInput{DebitAccount: AccountCash, CreditAccount: AccountOwnerEquity, Amount: dec("1.005")}, ErrInvalidAmount},
		{"unknown debit", PostingInput{DebitAccount: "9999", CreditAccount: AccountOwnerEquity, Amount: dec("10")}, ErrAccountNotFound},
		{"unknown credit", PostingInput{DebitAccount: AccountCash, CreditAccount: "9999", Amount: dec("10")}, ErrAccountNotFound},
		{"ref without module", PostingInput{DebitAccount: AccountCash, CreditAccount: AccountOwnerEquity, Amount: dec("10"), SourceRef: "X1"}, ErrValidation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.PostTransaction(ctx, tc.input)
			require.ErrorIs(t, err, tc.want)
		})
	}

	txs, err := svc.Transactions(ctx, TransactionFilter{})
	require.NoError(t, err)
	require.Empty(t, txs)
}

func TestPostTransactionUpdatesBalances(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	tx, err := svc.PostTransaction(ctx, PostingInput{
		DebitAccount: AccountCash, CreditAccount: AccountOwnerEquity, Amount: dec("1000"), Memo: "capital",
	})
	require.NoError(t, err)
	require.NotEqual(t, "00000000-0000-0000-0000-000000000000", tx.ID.String())
	require.Equal(t, fixedNow, tx.Date)

	_, err = svc.PostTransaction(ctx, PostingInput{
		DebitAccount: AccountFreightCost, CreditAccount: AccountCash, Amount: dec("250.50"),
	})
	require.NoError(t, err)

	require.True(t, balanceOf(t, svc, AccountCash).Equal(dec("749.50")))
	require.True(t, balanceOf(t, svc, AccountOwnerEquity).Equal(dec("1000")))
	require.True(t, balanceOf(t, svc, AccountFreightCost).Equal(dec("250.50")))

	cash, err := svc.Transactions(ctx, TransactionFilter{Account: AccountCash})
	require.NoError(t, err)
	require.Len(t, cash, 2)
	_, err = svc.Transactions(ctx, TransactionFilter{Account: "9999"})
	require.ErrorIs(t, err, ErrAccountNotFound)

	tb, err := svc.TrialBalance(ctx)
	require.NoError(t, err)
	require.True(t, tb.Balanced)
	require.True(t, tb.TotalDebit.Equal(dec("1000")))
}

func TestTrialBalanceNegativeBalanceFlipsSide(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)
	_, err := svc.PostTransaction(ctx, PostingInput{DebitAccount: AccountFreightCost, CreditAccount: AccountCash, Amount: dec("40")})
	require.NoError(t, err)

	tb, err := svc.TrialBalance(ctx)
	require.NoError(t, err)
	require.True(t, tb.Balanced)
	for _, line := range tb.Lines {
		if line.Code == AccountCash {
			require.True(t, line.Debit.IsZero())
			require.True(t, line.Credit.Equal(dec("40")))
		}
	}
}

func TestPostTransactionSourceIsIdempotent(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)
	in := PostingInput{
		DebitAccount: AccountReceivable, CreditAccount: AccountFreightIncome, Amount: dec("550"),
		SourceModule: SourceInvoice, SourceRef: "INV001",
	}
	_, err := svc.PostTransaction(ctx, in)
	require.NoError(t, err)
	_, err = svc.PostTransaction(ctx, in)
	require.ErrorIs(t, err, ErrSourceAlreadyLinked)
	require.True(t, IsDuplicate(err))

	txs, err := svc.Transactions(ctx, TransactionFilter{SourceModule: SourceInvoice, SourceRef: "INV001"})
	require.NoError(t, err)
	require.Len(t, txs, 1)
}

func TestChartPersistsAcrossServices(t *testing.T) {
	ctx := context.Background()
	svc, mem := newService(t)
	_, err := svc.PostTransaction(ctx, PostingInput{DebitAccount: AccountCash, CreditAccount: AccountOwnerEquity, Amount: dec("75")})
	require.NoError(t, err)

	reopened := NewService(NewKVRepository(mem, nil), nil)
	require.True(t, balanceOf(t, reopened, AccountCash).Equal(dec("75")))

	doc, ok, err := mem.Get(ctx, ChartKey)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, int64(1), doc.Version)
}
