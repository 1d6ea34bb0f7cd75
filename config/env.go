package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

func init() {
	// Load env from .env
	godotenv.Load()

	// Amounts go over the wire as JSON numbers, matching the frontend.
	decimal.MarshalJSONWithoutQuotes = true
}

// InitialWalletBalance seeds the in-memory ledger at startup.
// Set via INITIAL_WALLET_BALANCE; malformed values fall back to zero.
func InitialWalletBalance() decimal.Decimal {
	raw := strings.TrimSpace(os.Getenv("INITIAL_WALLET_BALANCE"))
	if raw == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func UploadDir() string {
	dir := strings.TrimSpace(os.Getenv("UPLOAD_DIR"))
	if dir == "" {
		dir = "uploads"
	}
	return dir
}

// OracleModel is the Gemini model used for invoice assessment.
func OracleModel() string {
	model := strings.TrimSpace(os.Getenv("ORACLE_MODEL"))
	if model == "" {
		model = "gemini-2.5-flash"
	}
	return model
}

// OracleTimeout bounds a single oracle invocation. Expiry surfaces as a
// retryable timeout error, distinct from a parse failure.
func OracleTimeout() time.Duration {
	if v := strings.TrimSpace(os.Getenv("ORACLE_TIMEOUT_SECONDS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return time.Duration(n) * time.Second
		}
	}
	return 120 * time.Second
}
