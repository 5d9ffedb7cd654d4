package finance

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/freightdesk/internal/platform/kv"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestConvertSameCurrencyIsIdentity(t *testing.T) {
	calc := NewCalculator()
	for _, code := range calc.Currencies() {
		got, err := calc.Convert(d("123.456"), code, code)
		require.NoError(t, err)
		require.True(t, got.Equal(d("123.456")), code)
	}
}

func TestConvertRoundTrip(t *testing.T) {
	calc := NewCalculator()
	rates := DefaultRates()
	amounts := []decimal.Decimal{d("1"), d("99.99"), d("1000"), d("250000.5")}
	for _, x := range calc.Currencies() {
		for _, y := range calc.Currencies() {
			for _, a := range amounts {
				there, err := calc.Convert(a, x, y)
				require.NoError(t, err)
				back, err := calc.Convert(there, y, x)
				require.NoError(t, err)
				// one rounding step in y expressed in x, plus one in x
				tolerance := d("0.005").Mul(rates[x]).Div(rates[y]).Add(d("0.0051"))
				require.True(t, back.Sub(a).Abs().LessThanOrEqual(tolerance),
					"%s->%s->%s: %s became %s", x, y, x, a, back)
			}
		}
	}
}

func TestConvertKnownValues(t *testing.T) {
	calc := NewCalculator()
	got, err := calc.Convert(d("100"), "usd", "INR")
	require.NoError(t, err)
	require.Equal(t, "8312", got.String())

	got, err = calc.Convert(d("100"), "EUR", "GBP")
	require.NoError(t, err)
	require.Equal(t, "85.87", got.String())
}

func TestConvertUnknownCurrency(t *testing.T) {
	calc := NewCalculator()
	_, err := calc.Convert(d("1"), "USD", "XYZ")
	require.ErrorIs(t, err, ErrUnsupportedCurrency)
	_, err = calc.Convert(d("1"), "XYZ", "XYZ")
	require.ErrorIs(t, err, ErrUnsupportedCurrency)
}

func TestExchangeRate(t *testing.T) {
	calc := NewCalculator()
	rate, err := calc.ExchangeRate("EUR", "INR")
	require.NoError(t, err)
	require.Equal(t, "90.3478", rate.String())
}

func TestMultiCurrencyProfitWithoutCosts(t *testing.T) {
	calc := NewCalculator()
	revenue := Money{Amount: d("550"), Currency: "EUR"}
	result, err := calc.MultiCurrencyProfit(revenue, nil, "USD")
	require.NoError(t, err)
	converted, err := calc.Convert(revenue.Amount, "EUR", "USD")
	require.NoError(t, err)
	require.True(t, result.Profit.Equal(converted))
	require.True(t, result.MarginPercent.Equal(d("100")))
}

func TestMultiCurrencyProfitMixedCosts(t *testing.T) {
	calc := NewCalculator()
	result, err := calc.MultiCurrencyProfit(
		Money{Amount: d("1000"), Currency: "USD"},
		[]Money{{Amount: d("92"), Currency: "EUR"}, {Amount: d("300"), Currency: "USD"}},
		"USD",
	)
	require.NoError(t, err)
	require.True(t, result.TotalCost.Equal(d("400")))
	require.True(t, result.Profit.Equal(d("600")))
	require.True(t, result.MarginPercent.Equal(d("60")))
}

func TestMultiCurrencyProfitZeroRevenue(t *testing.T) {
	calc := NewCalculator()
	result, err := calc.MultiCurrencyProfit(Money{Amount: decimal.Zero, Currency: "USD"},
		[]Money{{Amount: d("10"), Currency: "USD"}}, "USD")
	require.NoError(t, err)
	require.True(t, result.MarginPercent.IsZero())
	require.True(t, result.Profit.Equal(d("-10")))
}

func TestUpdateRateValidation(t *testing.T) {
	calc := NewCalculator()
	require.ErrorIs(t, calc.UpdateRate("EUR", decimal.Zero), ErrInvalidRate)
	require.ErrorIs(t, calc.UpdateRate("EUR", d("-1")), ErrInvalidRate)
	require.ErrorIs(t, calc.UpdateRate("USD", d("2")), ErrBaseCurrencyFixed)
	require.ErrorIs(t, calc.UpdateRate("E1R", d("2")), ErrInvalidCurrencyCode)
	require.ErrorIs(t, calc.UpdateRate("CHF", d("0.9")), ErrUnsupportedCurrency)
	require.ErrorIs(t, calc.AddCurrency("EUR", d("0.9")), ErrCurrencyExists)
}

func TestRateHistory(t *testing.T) {
	calc := NewCalculator()
	at := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	calc.WithNow(func() time.Time { return at })

	require.NoError(t, calc.UpdateRate("eur", d("0.95")))
	require.NoError(t, calc.AddCurrency("CHF", d("0.88")))

	snap := calc.Snapshot()
	require.Len(t, snap.History, 2)
	require.Equal(t, "EUR", snap.History[0].Currency)
	require.True(t, snap.History[0].From.Equal(d("0.92")))
	require.True(t, snap.History[0].To.Equal(d("0.95")))
	require.True(t, snap.History[1].From.IsZero())
	require.Equal(t, at, snap.UpdatedAt)
	require.True(t, calc.Supports("chf"))
}

func TestRestoreKeepsBaseFixed(t *testing.T) {
	calc := NewCalculator()
	calc.Restore(RateTable{Rates: map[string]decimal.Decimal{"usd": d("5"), "eur": d("0.9"), "BAD": decimal.Zero}})
	require.Equal(t, []string{"EUR", "USD"}, calc.Currencies())
	rate, err := calc.ExchangeRate("USD", "EUR")
	require.NoError(t, err)
	require.Equal(t, "0.9", rate.String())
}

type failingStore struct {
	kv.Store
	fail bool
}

func (f *failingStore) Set(ctx context.Context, key string, data json.RawMessage, expected int64) (int64, error) {
	if f.fail {
		return 0, errors.New("store down")
	}
	return f.Store.Set(ctx, key, data, expected)
}

func TestRateServicePersistsAndReloads(t *testing.T) {
	ctx := context.Background()
	mem := kv.NewMemory()

	svc := NewRateService(NewCalculator(), NewRateStore(mem), nil)
	require.NoError(t, svc.Load(ctx))
	_, err := svc.UpdateRate(ctx, "EUR", d("0.95"))
	require.NoError(t, err)

	reloaded := NewRateService(NewCalculator(), NewRateStore(mem), nil)
	require.NoError(t, reloaded.Load(ctx))
	rate, err := reloaded.Calculator().ExchangeRate("USD", "EUR")
	require.NoError(t, err)
	require.Equal(t, "0.95", rate.String())
	require.Len(t, reloaded.Calculator().Snapshot().History, 1)
}

func TestRateServiceRevertsOnSaveFailure(t *testing.T) {
	ctx := context.Background()
	store := &failingStore{Store: kv.NewMemory(), fail: true}
	svc := NewRateService(NewCalculator(), NewRateStore(store), nil)
	require.NoError(t, svc.Load(ctx))

	_, err := svc.UpdateRate(ctx, "EUR", d("0.95"))
	require.Error(t, err)

	rate, err := svc.Calculator().ExchangeRate("USD", "EUR")
	require.NoError(t, err)
	require.Equal(t, "0.92", rate.String())
	require.Empty(t, svc.Calculator().Snapshot().History)
}

// racingStore lets another writer land between a service's refresh and its save.
type racingStore struct {
	kv.Store
	race func()
}

func (r *racingStore) Set(ctx context.Context, key string, data json.RawMessage, expected int64) (int64, error) {
	if r.race != nil {
		race := r.race
		r.race = nil
		race()
	}
	return r.Store.Set(ctx, key, data, expected)
}

func TestRateServicePicksUpOtherWriterBeforeMutating(t *testing.T) {
	ctx := context.Background()
	mem := kv.NewMemory()
	a := NewRateService(NewCalculator(), NewRateStore(mem), nil)
	b := NewRateService(NewCalculator(), NewRateStore(mem), nil)
	require.NoError(t, a.Load(ctx))
	require.NoError(t, b.Load(ctx))

	_, err := a.UpdateRate(ctx, "EUR", d("0.95"))
	require.NoError(t, err)
	table, err := b.UpdateRate(ctx, "GBP", d("0.8"))
	require.NoError(t, err)
	require.Equal(t, "0.95", table.Rates["EUR"].String())
	require.Len(t, table.History, 2)

	require.NoError(t, a.Refresh(ctx))
	rate, err := a.Calculator().ExchangeRate("USD", "GBP")
	require.NoError(t, err)
	require.Equal(t, "0.8", rate.String())
}

func TestRateServiceConflictReloadsThenRetrySucceeds(t *testing.T) {
	ctx := context.Background()
	mem := kv.NewMemory()
	a := NewRateService(NewCalculator(), NewRateStore(mem), nil)
	racing := &racingStore{Store: mem}
	b := NewRateService(NewCalculator(), NewRateStore(racing), nil)
	require.NoError(t, a.Load(ctx))
	require.NoError(t, b.Load(ctx))

	racing.race = func() {
		_, err := a.UpdateRate(ctx, "EUR", d("0.95"))
		require.NoError(t, err)
	}
	_, err := b.UpdateRate(ctx, "GBP", d("0.8"))
	require.ErrorIs(t, err, kv.ErrVersionConflict)

	rate, err := b.Calculator().ExchangeRate("USD", "EUR")
	require.NoError(t, err)
	require.Equal(t, "0.95", rate.String())
	rate, err = b.Calculator().ExchangeRate("USD", "GBP")
	require.NoError(t, err)
	require.Equal(t, "0.79", rate.String())

	_, err = b.UpdateRate(ctx, "GBP", d("0.8"))
	require.NoError(t, err)

	reloaded := NewRateService(NewCalculator(), NewRateStore(mem), nil)
	require.NoError(t, reloaded.Load(ctx))
	snap := reloaded.Calculator().Snapshot()
	require.Equal(t, "0.95", snap.Rates["EUR"].String())
	require.Equal(t, "0.8", snap.Rates["GBP"].String())
}

func TestRateServiceWatchRefreshes(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	mem := kv.NewMemory()
	a := NewRateService(NewCalculator(), NewRateStore(mem), nil)
	b := NewRateService(NewCalculator(), NewRateStore(mem), nil)
	require.NoError(t, a.Load(ctx))
	require.NoError(t, b.Load(ctx))

	done := make(chan struct{})
	go func() {
		b.Watch(ctx, 10*time.Millisecond)
		close(done)
	}()

	_, err := a.AddCurrency(ctx, "THB", d("35.5"))
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return b.Calculator().Supports("THB")
	}, time.Second, 10*time.Millisecond)

	cancel()
	<-done
}

func TestCommissionPolicyCalculate(t *testing.T) {
	cases := []struct {
		name    string
		policy  CommissionPolicy
		profit  string
		revenue string
		want    string
	}{
		{"profit share", CommissionPolicy{Type: CommissionOnProfit, Rate: d("10")}, "1000", "5000", "100"},
		{"loss clamps to zero", CommissionPolicy{Type: CommissionOnProfit, Rate: d("10")}, "-500", "5000", "0"},
		{"fixed ignores profit", CommissionPolicy{Type: CommissionFixed, Rate: d("75")}, "-500", "5000", "75"},
		{"revenue share", CommissionPolicy{Type: CommissionOnRevenue, Rate: d("3")}, "-500", "5000", "150"},
		{"rounds to cents", CommissionPolicy{Type: CommissionOnProfit, Rate: d("7.5")}, "333.33", "0", "25"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.NoError(t, tc.policy.Validate())
			got := tc.policy.Calculate(d(tc.profit), d(tc.revenue))
			require.True(t, got.Equal(d(tc.want)), "got %s", got)
		})
	}

	require.ErrorIs(t, CommissionPolicy{Type: "bonus", Rate: d("1")}.Validate(), ErrInvalidCommissionPolicy)
	require.ErrorIs(t, CommissionPolicy{Type: CommissionFixed, Rate: d("-1")}.Validate(), ErrInvalidCommissionPolicy)
}
