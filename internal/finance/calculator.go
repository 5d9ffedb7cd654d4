// Package finance converts between currencies and computes profit, margin and commission.
package finance

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

// BaseCurrency is the currency every rate is quoted against.
const BaseCurrency = "USD"

var (
	// ErrUnsupportedCurrency indicates the code is not in the rate table.
	ErrUnsupportedCurrency = errors.New("finance: unsupported currency")
	// ErrInvalidRate indicates a non-positive exchange rate.
	ErrInvalidRate = errors.New("finance: rate must be greater than zero")
	// ErrInvalidCurrencyCode indicates a code that is not ISO-4217.
	ErrInvalidCurrencyCode = errors.New("finance: invalid ISO-4217 currency code")
	// ErrBaseCurrencyFixed indicates an attempt to change the base currency rate.
	ErrBaseCurrencyFixed = errors.New("finance: base currency rate is fixed")
	// ErrCurrencyExists indicates AddCurrency was called for a known code.
	ErrCurrencyExists = errors.New("finance: currency already exists")
)

// Money is an amount in a specific currency.
type Money struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

// RateChange records one mutation of the rate table.
type RateChange struct {
	Currency string          `json:"currency"`
	From     decimal.Decimal `json:"from"`
	To       decimal.Decimal `json:"to"`
	At       time.Time       `json:"at"`
}

// RateTable is the persisted form of the calculator state. Rates are units per one USD.
type RateTable struct {
	Rates     map[string]decimal.Decimal `json:"rates"`
	History   []RateChange               `json:"history"`
	UpdatedAt time.Time                  `json:"updatedAt"`
}

// ProfitResult is the outcome of a multi-currency profit calculation.
type ProfitResult struct {
	Base          string          `json:"base"`
	Revenue       decimal.Decimal `json:"revenue"`
	TotalCost     decimal.Decimal `json:"totalCost"`
	Profit        decimal.Decimal `json:"profit"`
	MarginPercent decimal.Decimal `json:"marginPercent"`
}

// DefaultRates returns the seed rate table.
func DefaultRates() map[string]decimal.Decimal {
	return map[string]decimal.Decimal{
		"USD": decimal.NewFromInt(1),
		"EUR": decimal.RequireFromString("0.92"),
		"GBP": decimal.RequireFromString("0.79"),
		"INR": decimal.RequireFromString("83.12"),
		"AED": decimal.RequireFromString("3.67"),
		"SGD": decimal.RequireFromString("1.34"),
		"CNY": decimal.RequireFromString("7.24"),
		"JPY": decimal.RequireFromString("149.5"),
	}
}

// Calculator owns the rate table. It is safe for concurrent use.
type Calculator struct {
	mu        sync.RWMutex
	rates     map[string]decimal.Decimal
	history   []RateChange
	updatedAt time.Time
	now       func() time.Time
}

// NewCalculator constructs a calculator seeded with DefaultRates.
func NewCalculator() *Calculator {
	return &Calculator{rates: DefaultRates(), now: time.Now}
}

// WithNow overrides the clock used for rate history.
func (c *Calculator) WithNow(now func() time.Time) {
	if now != nil {
		c.now = now
	}
}

// NormalizeCode upper-cases and trims a currency code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func (c *Calculator) rate(code string) (decimal.Decimal, error) {
	r, ok := c.rates[code]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrUnsupportedCurrency, code)
	}
	return r, nil
}

// Supports reports whether the code is present in the rate table.
func (c *Calculator) Supports(code string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.rates[NormalizeCode(code)]
	return ok
}

// Convert converts amount between currencies, rounding to 2 places.
// Converting to the same currency returns the amount unchanged.
func (c *Calculator) Convert(amount decimal.Decimal, from, to string) (decimal.Decimal, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.convert(amount, NormalizeCode(from), NormalizeCode(to))
}

func (c *Calculator) convert(amount decimal.Decimal, from, to string) (decimal.Decimal, error) {
	rf, err := c.rate(from)
	if err != nil {
		return decimal.Zero, err
	}
	rt, err := c.rate(to)
	if err != nil {
		return decimal.Zero, err
	}
	if from == to {
		return amount, nil
	}
	return amount.Div(rf).Mul(rt).Round(2), nil
}

// ExchangeRate returns units of to per one unit of from, rounded to 4 places.
func (c *Calculator) ExchangeRate(from, to string) (decimal.Decimal, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	rf, err := c.rate(NormalizeCode(from))
	if err != nil {
		return decimal.Zero, err
	}
	rt, err := c.rate(NormalizeCode(to))
	if err != nil {
		return decimal.Zero, err
	}
	return rt.Div(rf).Round(4), nil
}

// MultiCurrencyProfit converts revenue and costs into base and derives profit and margin.
// Zero revenue yields a zero margin.
func (c *Calculator) MultiCurrencyProfit(revenue Money, costs []Money, base string) (ProfitResult, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	base = NormalizeCode(base)
	rev, err := c.convert(revenue.Amount, NormalizeCode(revenue.Currency), base)
	if err != nil {
		return ProfitResult{}, err
	}
	total := decimal.Zero
	for _, cost := range costs {
		converted, err := c.convert(cost.Amount, NormalizeCode(cost.Currency), base)
		if err != nil {
			return ProfitResult{}, err
		}
		total = total.Add(converted)
	}
	profit := rev.Sub(total)
	margin := decimal.Zero
	if !rev.IsZero() {
		margin = profit.Div(rev).Mul(decimal.NewFromInt(100)).Round(2)
	}
	return ProfitResult{
		Base:          base,
		Revenue:       rev.Round(2),
		TotalCost:     total.Round(2),
		Profit:        profit.Round(2),
		MarginPercent: margin,
	}, nil
}

// UpdateRate changes the rate of a known currency.
func (c *Calculator) UpdateRate(code string, rate decimal.Decimal) error {
	code, err := validateRate(code, rate)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	prev, err := c.rate(code)
	if err != nil {
		return err
	}
	c.record(code, prev, rate)
	return nil
}

// AddCurrency registers a new currency with its rate.
func (c *Calculator) AddCurrency(code string, rate decimal.Decimal) error {
	code, err := validateRate(code, rate)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.rates[code]; ok {
		return fmt.Errorf("%w: %q", ErrCurrencyExists, code)
	}
	c.record(code, decimal.Zero, rate)
	return nil
}

func (c *Calculator) record(code string, from, to decimal.Decimal) {
	at := c.now().UTC()
	c.rates[code] = to
	c.history = append(c.history, RateChange{Currency: code, From: from, To: to, At: at})
	c.updatedAt = at
}

func validateRate(code string, rate decimal.Decimal) (string, error) {
	code = NormalizeCode(code)
	if _, err := currency.ParseISO(code); err != nil || len(code) != 3 {
		return "", fmt.Errorf("%w: %q", ErrInvalidCurrencyCode, code)
	}
	if code == BaseCurrency {
		return "", ErrBaseCurrencyFixed
	}
	if !rate.IsPositive() {
		return "", ErrInvalidRate
	}
	return code, nil
}

// Currencies lists the known codes in sorted order.
func (c *Calculator) Currencies() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	codes := make([]string, 0, len(c.rates))
	for code := range c.rates {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// Snapshot returns a deep copy of the rate table.
func (c *Calculator) Snapshot() RateTable {
	c.mu.RLock()
	defer c.mu.RUnlock()
	rates := make(map[string]decimal.Decimal, len(c.rates))
	for k, v := range c.rates {
		rates[k] = v
	}
	return RateTable{
		Rates:     rates,
		History:   append([]RateChange(nil), c.history...),
		UpdatedAt: c.updatedAt,
	}
}

// Restore replaces the calculator state with table. The base currency is always kept at 1.
func (c *Calculator) Restore(table RateTable) {
	rates := make(map[string]decimal.Decimal, len(table.Rates)+1)
	for k, v := range table.Rates {
		if v.IsPositive() {
			rates[NormalizeCode(k)] = v
		}
	}
	rates[BaseCurrency] = decimal.NewFromInt(1)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.rates = rates
	c.history = append([]RateChange(nil), table.History...)
	c.updatedAt = table.UpdatedAt
}
