package models

import (
	"github.com/shopspring/decimal"
)

// WalletBalance combines the external chain balance with the process-scoped
// monthly accumulators.
type WalletBalance struct {
	Balance           decimal.Decimal `json:"balance"`
	Currency          string          `json:"currency"`
	AutoPaidThisMonth decimal.Decimal `json:"autoPaidThisMonth"`
	BlockedThisMonth  decimal.Decimal `json:"blockedThisMonth"`
}
