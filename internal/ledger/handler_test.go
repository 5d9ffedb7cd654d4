package ledger

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

func newLedgerServer(t *testing.T) http.Handler {
	t.Helper()
	svc, _ := newService(t)
	r := chi.NewRouter()
	NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), svc).MountRoutes(r)
	return r
}

func serve(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestLedgerHandler(t *testing.T) {
	h := newLedgerServer(t)

	rec := serve(h, http.MethodPost, "/ledger/transactions",
		`{"debitAccount":"1000","creditAccount":"3000","amount":"500","memo":"capital"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = serve(h, http.MethodPost, "/ledger/transactions",
		`{"debitAccount":"1000","creditAccount":"1000","amount":"5"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(h, http.MethodPost, "/ledger/transactions",
		`{"debitAccount":"1000","creditAccount":"9999","amount":"5"}`)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(h, http.MethodPost, "/ledger/accounts", `{"code":"1000","name":"Cash again","type":"assets"}`)
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = serve(h, http.MethodPost, "/ledger/accounts", `{"code":"1200","name":"Deposits","type":"assets","extra":1}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(h, http.MethodGet, "/ledger/trial-balance", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var tb TrialBalance
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tb))
	require.True(t, tb.Balanced)
	require.True(t, tb.TotalCredit.Equal(dec("500")))

	rec = serve(h, http.MethodGet, "/ledger/transactions?account=1000", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var txs []Transaction
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &txs))
	require.Len(t, txs, 1)
}
