package app

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/odyssey-erp/freightdesk/internal/finance"
	"github.com/odyssey-erp/freightdesk/internal/freight"
	"github.com/odyssey-erp/freightdesk/internal/ledger"
	"github.com/odyssey-erp/freightdesk/internal/observability"
	"github.com/odyssey-erp/freightdesk/jobs"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(t *testing.T, cfg *Config) *httptest.Server {
	t.Helper()
	ctx := context.Background()
	logger := discardLogger()
	backend, err := OpenBackend(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = backend.Close() })
	metrics := observability.NewMetrics()
	services, err := NewServices(ctx, cfg, backend, logger, metrics)
	require.NoError(t, err)

	srv := httptest.NewServer(NewRouter(RouterParams{
		Logger:         logger,
		Config:         cfg,
		FreightHandler: freight.NewHandler(logger, services.Freight),
		FinanceHandler: finance.NewHandler(logger, services.Rates),
		LedgerHandler:  ledger.NewHandler(logger, services.Ledger),
		JobHandler:     jobs.NewHandler(nil, logger),
		Metrics:        metrics,
	}))
	t.Cleanup(srv.Close)
	return srv
}

func request(t *testing.T, method, url, token, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestRouterServesAPIAndOps(t *testing.T) {
	cfg := &Config{StoreBackend: BackendMemory, StoreKey: "freightData", DefaultPhoneRegion: "US"}
	srv := newTestServer(t, cfg)

	resp := request(t, http.MethodGet, srv.URL+"/healthz", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "DENY", resp.Header.Get("X-Frame-Options"))

	resp = request(t, http.MethodPost, srv.URL+"/api/enquiries", "",
		`{"customerName":"Acme","origin":"Nhava Sheva","destination":"Jebel Ali","cbm":"10","mode":"Sea","shipmentType":"Export"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = request(t, http.MethodGet, srv.URL+"/api/currencies", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = request(t, http.MethodGet, srv.URL+"/api/ledger/trial-balance", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = request(t, http.MethodGet, srv.URL+"/jobs/health", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = request(t, http.MethodGet, srv.URL+"/metrics", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), `freightdesk_workflow_operations_total{operation="create_enquiry",outcome="ok"} 1`)
}

func TestRouterBearerAuth(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)
	cfg := &Config{StoreBackend: BackendMemory, StoreKey: "freightData", APITokenHash: string(hash)}
	srv := newTestServer(t, cfg)

	resp := request(t, http.MethodGet, srv.URL+"/api/jobs", "", "")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp = request(t, http.MethodGet, srv.URL+"/api/jobs", "wrong", "")
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp = request(t, http.MethodGet, srv.URL+"/api/jobs", "s3cret", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = request(t, http.MethodGet, srv.URL+"/healthz", "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRedisBackendSharesStateAcrossServices(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	cfg := &Config{StoreBackend: BackendRedis, RedisAddr: mr.Addr(), StoreKey: "freightData"}

	backend, err := OpenBackend(ctx, cfg)
	require.NoError(t, err)
	defer backend.Close()
	first, err := NewServices(ctx, cfg, backend, discardLogger(), nil)
	require.NoError(t, err)
	enq, err := first.Freight.CreateEnquiry(ctx, freight.EnquiryInput{
		CustomerName: "Acme", Origin: "Nhava Sheva", Destination: "Jebel Ali",
		CBM: decimal.NewFromInt(10), Mode: "Sea", ShipmentType: "Export",
	})
	require.NoError(t, err)

	other, err := OpenBackend(ctx, cfg)
	require.NoError(t, err)
	defer other.Close()
	second, err := NewServices(ctx, cfg, other, discardLogger(), nil)
	require.NoError(t, err)
	got, err := second.Freight.Enquiry(ctx, enq.No)
	require.NoError(t, err)
	require.Equal(t, "Acme", got.CustomerName)
}

func TestOpenBackendUnknown(t *testing.T) {
	_, err := OpenBackend(context.Background(), &Config{StoreBackend: "sqlite"})
	require.Error(t, err)
}
