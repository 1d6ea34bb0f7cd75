package locus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// USDC contract on Base, 6 decimal places.
const (
	usdcContractBase = "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913"
	baseChainId      = "8453"
	usdcDecimals     = 6
)

// BalanceResult is the outcome of an on-chain balance query. Success=false
// with a message rather than an error keeps the wallet endpoint usable when
// the explorer is down.
type BalanceResult struct {
	Balance  decimal.Decimal `json:"balance"`
	Currency string          `json:"currency"`
	Success  bool            `json:"success"`
	Message  string          `json:"message"`
}

// WalletClient queries the USDC balance of the treasury wallet on Base via
// the Etherscan V2 multichain API.
type WalletClient struct {
	baseURL string
	apiKey  string
	address string
	http    *http.Client
}

func NewWalletClient() (*WalletClient, error) {
	address := strings.TrimSpace(os.Getenv("TREASURY_WALLET_ADDRESS"))
	if address == "" {
		return nil, errors.New("TREASURY_WALLET_ADDRESS is empty")
	}
	baseURL := strings.TrimSpace(os.Getenv("ETHERSCAN_API_BASE_URL"))
	if baseURL == "" {
		baseURL = "https://api.etherscan.io"
	}
	return &WalletClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  strings.TrimSpace(os.Getenv("ETHERSCAN_API_KEY")),
		address: address,
		http:    &http.Client{Timeout: 30 * time.Second},
	}, nil
}

type etherscanResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Result  string `json:"result"`
}

// QueryBalance fetches the current USDC balance.
func (c *WalletClient) QueryBalance(ctx context.Context) BalanceResult {
	if c.apiKey == "" {
		return BalanceResult{Currency: "USDC", Message: "API key not found"}
	}

	params := url.Values{}
	params.Set("chainid", baseChainId)
	params.Set("module", "account")
	params.Set("action", "tokenbalance")
	params.Set("contractaddress", usdcContractBase)
	params.Set("address", c.address)
	params.Set("tag", "latest")
	params.Set("apikey", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v2/api?"+params.Encode(), nil)
	if err != nil {
		return BalanceResult{Currency: "USDC", Message: err.Error()}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return BalanceResult{Currency: "USDC", Message: err.Error()}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return BalanceResult{Currency: "USDC", Message: fmt.Sprintf("explorer api error %d", resp.StatusCode)}
	}

	var parsed etherscanResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return BalanceResult{Currency: "USDC", Message: err.Error()}
	}
	if parsed.Status != "1" {
		msg := parsed.Message
		if msg == "" {
			msg = "API error"
		}
		return BalanceResult{Currency: "USDC", Message: msg}
	}

	raw, err := decimal.NewFromString(parsed.Result)
	if err != nil {
		return BalanceResult{Currency: "USDC", Message: fmt.Sprintf("bad balance %q", parsed.Result)}
	}
	return BalanceResult{
		Balance:  raw.Shift(-usdcDecimals),
		Currency: "USDC",
		Success:  true,
		Message:  "Balance retrieved from Base",
	}
}
