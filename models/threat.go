package models

import (
	"github.com/shopspring/decimal"
)

// ThreatRecord is one entry in the shared threat registry. Records are never
// deleted within process lifetime; timesSeen counts correlation hits after
// the initial report.
type ThreatRecord struct {
	Id            string          `json:"id"`
	Vendor        string          `json:"vendor"`
	FraudScore    int             `json:"fraudScore"`
	FirstSeen     string          `json:"firstSeen"`
	TimesSeen     int             `json:"timesSeen"`
	Reason        string          `json:"reason"`
	AmountBlocked decimal.Decimal `json:"amountBlocked"`
	TemplateHash  *string         `json:"templateHash,omitempty"`
}

// ThreatAnalytics aggregates the registry plus blocked-transaction totals
// for the dashboard.
type ThreatAnalytics struct {
	TotalBlockedAmount   decimal.Decimal `json:"totalBlockedAmount"`
	TotalBlockedInvoices int             `json:"totalBlockedInvoices"`
	TotalThreatsDetected int             `json:"totalThreatsDetected"`
	RewardsEarned        decimal.Decimal `json:"rewardsEarned"`
	Threats              []*ThreatRecord `json:"threats"`
}

// NewThreatReport is the request body for a manual threat report.
type NewThreatReport struct {
	InvoiceId  string          `json:"invoiceId" binding:"required"`
	Vendor     string          `json:"vendor" binding:"required,notblank"`
	FraudScore int             `json:"fraudScore" binding:"min=0,max=100"`
	Reason     string          `json:"reason" binding:"required,notblank"`
	Amount     decimal.Decimal `json:"amount"`
}

type ThreatReportResponse struct {
	Success  bool   `json:"success"`
	ThreatId string `json:"threatId"`
}
