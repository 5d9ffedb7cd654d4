package finance

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/freightdesk/internal/platform/httpx"
	"github.com/odyssey-erp/freightdesk/internal/platform/kv"
)

// Handler exposes the rate table and calculator over HTTP.
type Handler struct {
	logger  *slog.Logger
	service *RateService
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *RateService) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers fx routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/currencies", h.listRates)
	r.Post("/currencies", h.addCurrency)
	r.Put("/currencies/{code}", h.updateRate)
	r.Get("/fx/convert", h.convert)
	r.Get("/fx/rate", h.exchangeRate)
	r.Post("/fx/profit", h.profit)
}

type rateRequest struct {
	Code string          `json:"code"`
	Rate decimal.Decimal `json:"rate"`
}

type profitRequest struct {
	Revenue Money   `json:"revenue"`
	Costs   []Money `json:"costs"`
	Base    string  `json:"base"`
}

func (h *Handler) listRates(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, h.service.Calculator().Snapshot())
}

func (h *Handler) addCurrency(w http.ResponseWriter, r *http.Request) {
	var req rateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	table, err := h.service.AddCurrency(r.Context(), req.Code, req.Rate)
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, table)
}

func (h *Handler) updateRate(w http.ResponseWriter, r *http.Request) {
	var req rateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	table, err := h.service.UpdateRate(r.Context(), chi.URLParam(r, "code"), req.Rate)
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, table)
}

func (h *Handler) convert(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	amount, err := decimal.NewFromString(q.Get("amount"))
	if err != nil {
		httpx.RespondError(w, fmt.Errorf("%w: amount: %v", httpx.ErrValidation, err))
		return
	}
	from, to := NormalizeCode(q.Get("from")), NormalizeCode(q.Get("to"))
	converted, err := h.service.Calculator().Convert(amount, from, to)
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"amount": converted,
		"from":   from,
		"to":     to,
	})
}

func (h *Handler) exchangeRate(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	rate, err := h.service.Calculator().ExchangeRate(q.Get("from"), q.Get("to"))
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"rate": rate})
}

func (h *Handler) profit(w http.ResponseWriter, r *http.Request) {
	var req profitRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if req.Base == "" {
		req.Base = BaseCurrency
	}
	result, err := h.service.Calculator().MultiCurrencyProfit(req.Revenue, req.Costs, req.Base)
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, kv.ErrVersionConflict), errors.Is(err, kv.ErrLocked):
		err = fmt.Errorf("%w: %w", httpx.ErrConflict, err)
	case errors.Is(err, ErrUnsupportedCurrency), errors.Is(err, ErrInvalidRate),
		errors.Is(err, ErrInvalidCurrencyCode), errors.Is(err, ErrBaseCurrencyFixed),
		errors.Is(err, ErrCurrencyExists):
		err = fmt.Errorf("%w: %w", httpx.ErrValidation, err)
	default:
		h.logger.Error("fx request failed", slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
