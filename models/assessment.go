package models

import (
	"github.com/shopspring/decimal"
)

// CurrencyUSDC is the only settlement currency the network supports.
const CurrencyUSDC = "USDC"

// LocalCheck is a single security check performed by the oracle against the
// document itself (PO match, hours verification, vendor trust, ...).
// An assessment normally carries 3-5 of them; an empty list is legal but
// degraded.
type LocalCheck struct {
	Name   string      `json:"name"`
	Status CheckStatus `json:"status"`
	Detail string      `json:"detail"`
}

// NetworkSignal is evidence derived from the shared threat registry during
// correlation.
type NetworkSignal struct {
	Type        SignalType `json:"type"`
	Description string     `json:"description"`
}

// InvoiceAssessment is the canonical result of one analysis run. The
// invoiceId is extracted by the oracle and is not guaranteed unique.
type InvoiceAssessment struct {
	InvoiceId      string          `json:"invoiceId"`
	Status         InvoiceStatus   `json:"status"`
	Confidence     int             `json:"confidence"`
	FraudScore     int             `json:"fraudScore"`
	LocalChecks    []LocalCheck    `json:"localChecks"`
	NetworkSignals []NetworkSignal `json:"networkSignals"`
	Explanation    string          `json:"explanation"`
	Vendor         string          `json:"vendor"`
	Amount         decimal.Decimal `json:"amount"`
	Currency       string          `json:"currency"`
}

// HasFailingCheck reports whether any local check failed.
func (a *InvoiceAssessment) HasFailingCheck() bool {
	for _, c := range a.LocalChecks {
		if c.Status == CheckStatusFail {
			return true
		}
	}
	return false
}
