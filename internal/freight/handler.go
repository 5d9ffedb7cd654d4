package freight

import (
	"bytes"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/freightdesk/internal/documents"
	"github.com/odyssey-erp/freightdesk/internal/platform/httpx"
)

// Handler exposes the workflow store as a JSON API.
type Handler struct {
	logger *slog.Logger
	store  *Store
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, store *Store) *Handler {
	return &Handler{logger: logger, store: store}
}

// MountRoutes registers workflow routes.
func (h *Handler) MountRoutes(r chi.Router) {
	// Enquiries and quotations
	r.Get("/enquiries", h.listEnquiries)
	r.Post("/enquiries", h.createEnquiry)
	r.Get("/enquiries/{no}", h.showEnquiry)
	r.Get("/enquiries/{no}/chain", h.showChain)
	r.Post("/enquiries/{no}/quotations", h.createQuotation)
	r.Get("/quotations", h.listQuotations)
	r.Get("/quotations/{no}", h.showQuotation)
	r.Post("/quotations/{no}/approve", h.approveQuotation)
	r.Post("/quotations/{no}/convert", h.convertQuotation)

	// Jobs
	r.Get("/jobs", h.listJobs)
	r.Get("/jobs/{no}", h.showJob)
	r.Put("/jobs/{no}/status", h.updateJobStatus)
	r.Get("/jobs/{no}/closeability", h.canCloseJob)
	r.Post("/jobs/{no}/close", h.closeJob)
	r.Get("/jobs/{no}/profitability", h.jobProfitability)
	r.Get("/jobs/{no}/purchases", h.listPurchases)
	r.Post("/jobs/{no}/purchases", h.recordPurchase)
	r.Get("/jobs/{no}/documents", h.listDocuments)
	r.Post("/jobs/{no}/documents", h.recordDocument)
	r.Put("/jobs/{no}/checklist/{docKey}", h.updateChecklist)
	r.Post("/jobs/{no}/invoice", h.createInvoice)
	r.Post("/jobs/{no}/commission", h.accrueCommission)
	r.Put("/purchases/{no}/status", h.updatePurchaseStatus)

	// Billing
	r.Get("/invoices", h.listInvoices)
	r.Get("/invoices/{no}", h.showInvoice)
	r.Put("/invoices/{no}/status", h.updateInvoiceStatus)
	r.Get("/invoices/{no}/payments", h.listPayments)
	r.Post("/invoices/{no}/payments", h.recordPayment)
	r.Get("/payments", h.listPayments)
	r.Post("/payments/{no}/clear", h.clearPayment)

	// Sales
	r.Get("/salespersons", h.listSalesPersons)
	r.Post("/salespersons", h.createSalesPerson)
	r.Get("/salespersons/{id}/commissions", h.commissionSummary)
	r.Get("/commissions", h.listCommissions)
	r.Post("/commissions/{no}/pay", h.payCommission)

	// Reports
	r.Get("/reports/profitability.xlsx", h.profitabilityReport)
	r.Get("/reports/integrity", h.integrityReport)
	r.Get("/reports/outstanding-documents", h.outstandingDocuments)
}

type statusRequest struct {
	Status string `json:"status"`
	Note   string `json:"note"`
}

func (h *Handler) respond(w http.ResponseWriter, status int, data any, err error) {
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.JSON(w, status, data)
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	if CodeOf(err) == "" {
		h.logger.Error("freight request failed", slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := httpx.DecodeJSON(r, target); err != nil {
		h.fail(w, invalidInput("request", "", err.Error(), err))
		return false
	}
	return true
}

// ============================================================================
// ENQUIRIES & QUOTATIONS
// ============================================================================

func (h *Handler) listEnquiries(w http.ResponseWriter, r *http.Request) {
	out, err := h.store.Enquiries(r.Context())
	h.respond(w, http.StatusOK, out, err)
}

func (h *Handler) createEnquiry(w http.ResponseWriter, r *http.Request) {
	var input EnquiryInput
	if !h.decode(w, r, &input) {
		return
	}
	out, err := h.store.CreateEnquiry(r.Context(), input)
	h.respond(w, http.StatusCreated, out, err)
}

func (h *Handler) showEnquiry(w http.ResponseWriter, r *http.Request) {
	out, err := h.store.Enquiry(r.Context(), chi.URLParam(r, "no"))
	h.respond(w, http.StatusOK, out, err)
}

func (h *Handler) showChain(w http.ResponseWriter, r *http.Request) {
	out, err := h.store.GetWorkflowChain(r.Context(), chi.URLParam(r, "no"))
	h.respond(w, http.StatusOK, out, err)
}

func (h *Handler) createQuotation(w http.ResponseWriter, r *http.Request) {
	var input QuotationInput
	if !h.decode(w, r, &input) {
		return
	}
	out, err := h.store.CreateQuotationFromEnquiry(r.Context(), chi.URLParam(r, "no"), input)
	h.respond(w, http.StatusCreated, out, err)
}

func (h *Handler) listQuotations(w http.ResponseWriter, r *http.Request) {
	out, err := h.store.Quotations(r.Context(), r.URL.Query().Get("enquiryNo"))
	h.respond(w, http.StatusOK, out, err)
}

func (h *Handler) showQuotation(w http.ResponseWriter, r *http.Request) {
	out, err := h.store.Quotation(r.Context(), chi.URLParam(r, "no"))
	h.respond(w, http.StatusOK, out, err)
}

func (h *Handler) approveQuotation(w http.ResponseWriter, r *http.Request) {
	out, err := h.store.ApproveQuotation(r.Context(), chi.URLParam(r, "no"))
	h.respond(w, http.StatusOK, out, err)
}

func (h *Handler) convertQuotation(w http.ResponseWriter, r *http.Request) {
	out, err := h.store.ConvertQuotationToJob(r.Context(), chi.URLParam(r, "no"))
	h.respond(w, http.StatusCreated, out, err)
}

// ============================================================================
// JOBS
// ============================================================================

func (h *Handler) listJobs(w http.ResponseWriter, r *http.Request) {
	out, err := h.store.Jobs(r.Context(), JobStatus(r.URL.Query().Get("status")))
	h.respond(w, http.StatusOK, out, err)
}

func (h *Handler) showJob(w http.ResponseWriter, r *http.Request) {
	out, err := h.store.Job(r.Context(), chi.URLParam(r, "no"))
	h.respond(w, http.StatusOK, out, err)
}

func (h *Handler) updateJobStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if !h.decode(w, r, &req) {
		return
	}
	out, err := h.store.UpdateJobStatus(r.Context(), chi.URLParam(r, "no"), JobStatus(req.Status), req.Note)
	h.respond(w, http.StatusOK, out, err)
}

func (h *Handler) canCloseJob(w http.ResponseWriter, r *http.Request) {
	out, err := h.store.CanCloseJob(r.Context(), chi.URLParam(r, "no"))
	h.respond(w, http.StatusOK, out, err)
}

func (h *Handler) closeJob(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if r.ContentLength > 0 && !h.decode(w, r, &req) {
		return
	}
	out, err := h.store.CloseJob(r.Context(), chi.URLParam(r, "no"), req.Note)
	h.respond(w, http.StatusOK, out, err)
}

func (h *Handler) jobProfitability(w http.ResponseWriter, r *http.Request) {
	out, err := h.store.JobProfitability(r.Context(), chi.URLParam(r, "no"), r.URL.Query().Get("base"))
	h.respond(w, http.StatusOK, out, err)
}

func (h *Handler) listPurchases(w http.ResponseWriter, r *http.Request) {
	out, err := h.store.Purchases(r.Context(), chi.URLParam(r, "no"))
	h.respond(w, http.StatusOK, out, err)
}

func (h *Handler) recordPurchase(w http.ResponseWriter, r *http.Request) {
	var input PurchaseInput
	if !h.decode(w, r, &input) {
		return
	}
	out, err := h.store.RecordAgentPurchase(r.Context(), chi.URLParam(r, "no"), input)
	h.respond(w, http.StatusCreated, out, err)
}

func (h *Handler) updatePurchaseStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if !h.decode(w, r, &req) {
		return
	}
	out, err := h.store.UpdatePurchaseStatus(r.Context(), chi.URLParam(r, "no"), PurchaseStatus(req.Status))
	h.respond(w, http.StatusOK, out, err)
}

func (h *Handler) listDocuments(w http.ResponseWriter, r *http.Request) {
	out, err := h.store.Documents(r.Context(), chi.URLParam(r, "no"))
	h.respond(w, http.StatusOK, out, err)
}

func (h *Handler) recordDocument(w http.ResponseWriter, r *http.Request) {
	var input DocumentInput
	if !h.decode(w, r, &input) {
		return
	}
	out, err := h.store.RecordDocument(r.Context(), chi.URLParam(r, "no"), input)
	h.respond(w, http.StatusCreated, out, err)
}

func (h *Handler) updateChecklist(w http.ResponseWriter, r *http.Request) {
	var update documents.Update
	if !h.decode(w, r, &update) {
		return
	}
	out, err := h.store.UpdateDocumentChecklist(r.Context(), chi.URLParam(r, "no"), chi.URLParam(r, "docKey"), update)
	h.respond(w, http.StatusOK, out, err)
}

func (h *Handler) createInvoice(w http.ResponseWriter, r *http.Request) {
	var input InvoiceInput
	if r.ContentLength > 0 && !h.decode(w, r, &input) {
		return
	}
	out, err := h.store.CreateInvoiceFromJob(r.Context(), chi.URLParam(r, "no"), input)
	h.respond(w, http.StatusCreated, out, err)
}

func (h *Handler) accrueCommission(w http.ResponseWriter, r *http.Request) {
	out, err := h.store.AccrueCommission(r.Context(), chi.URLParam(r, "no"))
	h.respond(w, http.StatusCreated, out, err)
}

// ============================================================================
// BILLING
// ============================================================================

func (h *Handler) listInvoices(w http.ResponseWriter, r *http.Request) {
	out, err := h.store.Invoices(r.Context(), InvoiceStatus(r.URL.Query().Get("status")))
	h.respond(w, http.StatusOK, out, err)
}

func (h *Handler) showInvoice(w http.ResponseWriter, r *http.Request) {
	out, err := h.store.Invoice(r.Context(), chi.URLParam(r, "no"))
	h.respond(w, http.StatusOK, out, err)
}

func (h *Handler) updateInvoiceStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if !h.decode(w, r, &req) {
		return
	}
	out, err := h.store.UpdateInvoiceStatus(r.Context(), chi.URLParam(r, "no"), InvoiceStatus(req.Status))
	h.respond(w, http.StatusOK, out, err)
}

func (h *Handler) listPayments(w http.ResponseWriter, r *http.Request) {
	out, err := h.store.Payments(r.Context(), chi.URLParam(r, "no"))
	h.respond(w, http.StatusOK, out, err)
}

func (h *Handler) recordPayment(w http.ResponseWriter, r *http.Request) {
	var input PaymentInput
	if !h.decode(w, r, &input) {
		return
	}
	out, err := h.store.RecordPayment(r.Context(), chi.URLParam(r, "no"), input)
	h.respond(w, http.StatusCreated, out, err)
}

func (h *Handler) clearPayment(w http.ResponseWriter, r *http.Request) {
	out, err := h.store.ClearPayment(r.Context(), chi.URLParam(r, "no"))
	h.respond(w, http.StatusOK, out, err)
}

// ============================================================================
// SALES
// ============================================================================

func (h *Handler) listSalesPersons(w http.ResponseWriter, r *http.Request) {
	out, err := h.store.SalesPersons(r.Context())
	h.respond(w, http.StatusOK, out, err)
}

func (h *Handler) createSalesPerson(w http.ResponseWriter, r *http.Request) {
	var input SalesPersonInput
	if !h.decode(w, r, &input) {
		return
	}
	out, err := h.store.CreateSalesPerson(r.Context(), input)
	h.respond(w, http.StatusCreated, out, err)
}

func (h *Handler) commissionSummary(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	summary, err := h.store.CommissionSummary(r.Context(), id)
	if err != nil {
		h.fail(w, err)
		return
	}
	list, err := h.store.Commissions(r.Context(), id)
	h.respond(w, http.StatusOK, map[string]any{"summary": summary, "commissions": list}, err)
}

func (h *Handler) listCommissions(w http.ResponseWriter, r *http.Request) {
	out, err := h.store.Commissions(r.Context(), r.URL.Query().Get("salesPersonId"))
	h.respond(w, http.StatusOK, out, err)
}

func (h *Handler) payCommission(w http.ResponseWriter, r *http.Request) {
	out, err := h.store.PayCommission(r.Context(), chi.URLParam(r, "no"))
	h.respond(w, http.StatusOK, out, err)
}

// ============================================================================
// REPORTS
// ============================================================================

func (h *Handler) profitabilityReport(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := h.store.WriteProfitabilityReport(r.Context(), &buf, r.URL.Query().Get("base")); err != nil {
		h.fail(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="profitability.xlsx"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (h *Handler) integrityReport(w http.ResponseWriter, r *http.Request) {
	found, err := h.store.IntegrityIssues(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	issues := make([]string, 0, len(found))
	for _, e := range found {
		issues = append(issues, e.Error())
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"ok": len(issues) == 0, "issues": issues})
}

func (h *Handler) outstandingDocuments(w http.ResponseWriter, r *http.Request) {
	out, err := h.store.OutstandingDocuments(r.Context())
	h.respond(w, http.StatusOK, out, err)
}
