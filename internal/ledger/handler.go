package ledger

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/freightdesk/internal/platform/httpx"
)

// Handler wires ledger endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers HTTP routes for the ledger module.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/ledger/accounts", h.listAccounts)
	r.Post("/ledger/accounts", h.createAccount)
	r.Get("/ledger/transactions", h.listTransactions)
	r.Post("/ledger/transactions", h.postTransaction)
	r.Get("/ledger/trial-balance", h.trialBalance)
}

func (h *Handler) listAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.service.Accounts(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, accounts)
}

func (h *Handler) createAccount(w http.ResponseWriter, r *http.Request) {
	var input AccountInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		h.fail(w, err)
		return
	}
	account, err := h.service.CreateAccount(r.Context(), input)
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, account)
}

func (h *Handler) listTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	txs, err := h.service.Transactions(r.Context(), TransactionFilter{
		Account:      q.Get("account"),
		SourceModule: q.Get("sourceModule"),
		SourceRef:    q.Get("sourceRef"),
	})
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, txs)
}

func (h *Handler) postTransaction(w http.ResponseWriter, r *http.Request) {
	var input PostingInput
	if err := httpx.DecodeJSON(r, &input); err != nil {
		h.fail(w, err)
		return
	}
	tx, err := h.service.PostTransaction(r.Context(), input)
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, tx)
}

func (h *Handler) trialBalance(w http.ResponseWriter, r *http.Request) {
	tb, err := h.service.TrialBalance(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, tb)
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrAccountNotFound):
		err = fmt.Errorf("%w: %v", httpx.ErrNotFound, err)
	case errors.Is(err, ErrAccountExists), errors.Is(err, ErrSourceAlreadyLinked), errors.Is(err, ErrConflict):
		err = fmt.Errorf("%w: %v", httpx.ErrConflict, err)
	case errors.Is(err, ErrValidation), errors.Is(err, ErrInvalidAccountType),
		errors.Is(err, ErrSameAccount), errors.Is(err, ErrInvalidAmount):
		err = fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	case errors.Is(err, httpx.ErrValidation):
	default:
		h.logger.Error("ledger request failed", slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
