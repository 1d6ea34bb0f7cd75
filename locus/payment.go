// Package locus wraps the external Locus capabilities: outbound USDC
// payments for approved invoices and the on-chain wallet balance query.
// Both are collaborators the pipeline treats as opaque; payment failures
// never fail the primary analysis response.
package locus

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// PaymentResult reports the outcome of one dispatch attempt.
type PaymentResult struct {
	Success       bool   `json:"success"`
	TransactionId string `json:"transactionId,omitempty"`
	Message       string `json:"message"`
}

// PaymentClient sends approved-invoice payments through the Locus API.
type PaymentClient struct {
	baseURL   string
	apiKey    string
	recipient string
	http      *http.Client
}

func NewPaymentClient() (*PaymentClient, error) {
	apiKey := strings.TrimSpace(os.Getenv("LOCUS_API_KEY"))
	if apiKey == "" {
		return nil, errors.New("LOCUS_API_KEY is empty")
	}
	baseURL := strings.TrimSpace(os.Getenv("LOCUS_API_BASE_URL"))
	if baseURL == "" {
		baseURL = "https://api.paywithlocus.com"
	}
	recipient := strings.TrimSpace(os.Getenv("LOCUS_RECIPIENT_ADDRESS"))
	if recipient == "" {
		return nil, errors.New("LOCUS_RECIPIENT_ADDRESS is empty")
	}
	return &PaymentClient{
		baseURL:   strings.TrimRight(baseURL, "/"),
		apiKey:    apiKey,
		recipient: recipient,
		http:      &http.Client{Timeout: 30 * time.Second},
	}, nil
}

type paymentRequest struct {
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
	Recipient string          `json:"recipient"`
	InvoiceId string          `json:"invoiceId"`
	Vendor    string          `json:"vendor"`
	Memo      string          `json:"memo"`
}

type paymentResponse struct {
	Success       bool   `json:"success"`
	TransactionId string `json:"transaction_id"`
	Message       string `json:"message"`
}

// Pay attempts a USDC transfer for an approved invoice.
func (c *PaymentClient) Pay(ctx context.Context, amount decimal.Decimal, invoiceId, vendor string) (*PaymentResult, error) {
	body, err := json.Marshal(paymentRequest{
		Amount:    amount,
		Currency:  "USDC",
		Recipient: c.recipient,
		InvoiceId: invoiceId,
		Vendor:    vendor,
		Memo:      fmt.Sprintf("invoice %s (vendor: %s)", invoiceId, vendor),
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/payments", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("locus api error %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var parsed paymentResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, err
	}
	return &PaymentResult{
		Success:       parsed.Success,
		TransactionId: parsed.TransactionId,
		Message:       parsed.Message,
	}, nil
}
