package main

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shieldnetlabs/shieldnet_backend/models"
	"github.com/shieldnetlabs/shieldnet_backend/storage"
	"github.com/shieldnetlabs/shieldnet_backend/workflow"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

func newTestApp(t *testing.T) *app {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	store := storage.NewResultStore()
	registry := storage.NewThreatRegistry(false)
	ledger := storage.NewLedgerAccount(decimal.NewFromInt(10000))
	pipeline := workflow.NewDecisionPipeline(workflow.PipelineOptions{
		Store:     store,
		Registry:  registry,
		Ledger:    ledger,
		Artifacts: storage.NewArtifactStore(t.TempDir(), logger),
		Logger:    logger,
	})
	return &app{
		pipeline: pipeline,
		store:    store,
		registry: registry,
		ledger:   ledger,
		logger:   logger,
	}
}

func performRequest(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestListTransactionsHandler_FilterAndEmptyList(t *testing.T) {
	a := newTestApp(t)
	r := gin.New()
	r.GET("/api/transactions", listTransactionsHandler(a))

	w := performRequest(r, http.MethodGet, "/api/transactions", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Transactions []*models.Transaction `json:"transactions"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.Transactions == nil || len(resp.Transactions) != 0 {
		t.Fatalf("expected empty list, got %#v", resp.Transactions)
	}

	if err := a.store.SaveTransaction(&models.Transaction{Id: "TXN-1", Status: models.TransactionStatusPaid, Date: "2026-08-20"}); err != nil {
		t.Fatalf("SaveTransaction error: %v", err)
	}
	w = performRequest(r, http.MethodGet, "/api/transactions?status=blocked", "")
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if len(resp.Transactions) != 0 {
		t.Fatalf("expected no blocked transactions, got %d", len(resp.Transactions))
	}

	w = performRequest(r, http.MethodGet, "/api/transactions?status=bogus", "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid status, got %d", w.Code)
	}
}

func TestThreatAnalyticsHandler_AggregatesBlockedTransactions(t *testing.T) {
	a := newTestApp(t)
	if _, err := a.registry.Report("Shady Corp", 90, "mill", decimal.NewFromInt(5000)); err != nil {
		t.Fatalf("Report error: %v", err)
	}
	if _, err := a.registry.Report("Quantum Consulting Group", 95, "fake", decimal.NewFromInt(12000)); err != nil {
		t.Fatalf("Report error: %v", err)
	}
	txns := []*models.Transaction{
		{Id: "TXN-1", Status: models.TransactionStatusBlocked, Amount: decimal.NewFromInt(5000), Date: "2026-08-20"},
		{Id: "TXN-2", Status: models.TransactionStatusBlocked, Amount: decimal.NewFromInt(12000), Date: "2026-08-21"},
		{Id: "TXN-3", Status: models.TransactionStatusPaid, Amount: decimal.NewFromInt(100), Date: "2026-08-22"},
	}
	for _, txn := range txns {
		if err := a.store.SaveTransaction(txn); err != nil {
			t.Fatalf("SaveTransaction error: %v", err)
		}
	}

	r := gin.New()
	r.GET("/api/threats/analytics", threatAnalyticsHandler(a))
	w := performRequest(r, http.MethodGet, "/api/threats/analytics", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var analytics models.ThreatAnalytics
	if err := json.Unmarshal(w.Body.Bytes(), &analytics); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if analytics.TotalBlockedInvoices != 2 {
		t.Fatalf("expected 2 blocked invoices, got %d", analytics.TotalBlockedInvoices)
	}
	if analytics.TotalBlockedAmount.String() != "17000" {
		t.Fatalf("expected blocked amount 17000, got %s", analytics.TotalBlockedAmount.String())
	}
	if analytics.TotalThreatsDetected != 2 {
		t.Fatalf("expected 2 threats, got %d", analytics.TotalThreatsDetected)
	}
	// Flat 25 per registry record.
	if analytics.RewardsEarned.String() != "50" {
		t.Fatalf("expected rewards 50, got %s", analytics.RewardsEarned.String())
	}
}

func TestReportThreatHandler_ValidatesAndRecords(t *testing.T) {
	a := newTestApp(t)
	r := gin.New()
	r.POST("/api/threats/report", reportThreatHandler(a))

	w := performRequest(r, http.MethodPost, "/api/threats/report", `{"vendor": "Shady Corp"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for incomplete body, got %d", w.Code)
	}

	body := `{"invoiceId": "INV-1", "vendor": "Shady Corp", "fraudScore": 88, "reason": "invoice mill", "amount": 5000}`
	w = performRequest(r, http.MethodPost, "/api/threats/report", body)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp models.ThreatReportResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if !resp.Success || !strings.HasPrefix(resp.ThreatId, "THR-") {
		t.Fatalf("unexpected response: %#v", resp)
	}
	if a.registry.Count() != 1 {
		t.Fatalf("expected 1 registry record, got %d", a.registry.Count())
	}
}

func TestWalletBalanceHandler_LedgerFallback(t *testing.T) {
	a := newTestApp(t)
	if err := a.ledger.Settle(decimal.NewFromInt(4800)); err != nil {
		t.Fatalf("Settle error: %v", err)
	}

	r := gin.New()
	r.GET("/api/wallet/balance", walletBalanceHandler(a))
	w := performRequest(r, http.MethodGet, "/api/wallet/balance", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Balance           decimal.Decimal `json:"balance"`
		Currency          string          `json:"currency"`
		AutoPaidThisMonth decimal.Decimal `json:"autoPaidThisMonth"`
		Success           bool            `json:"success"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.Success {
		t.Fatal("expected success=false without a chain client")
	}
	if resp.Balance.String() != "5200" {
		t.Fatalf("expected ledger balance 5200, got %s", resp.Balance.String())
	}
	if resp.AutoPaidThisMonth.String() != "4800" {
		t.Fatalf("expected autoPaidThisMonth 4800, got %s", resp.AutoPaidThisMonth.String())
	}
	if resp.Currency != models.CurrencyUSDC {
		t.Fatalf("expected USDC, got %s", resp.Currency)
	}
}
