package models

import (
	"github.com/shopspring/decimal"
)

// Transaction records the financial outcome of one completed assessment.
// Immutable after creation.
type Transaction struct {
	Id        string            `json:"id"`
	Status    TransactionStatus `json:"status"`
	Vendor    string            `json:"vendor"`
	Amount    decimal.Decimal   `json:"amount"`
	Currency  string            `json:"currency"`
	Date      string            `json:"date"`
	Reason    string            `json:"reason"`
	InvoiceId string            `json:"invoiceId"`
}

// TransactionFilter narrows and paginates a transaction listing. Zero
// values mean "no constraint".
type TransactionFilter struct {
	Status TransactionStatus
	Limit  int
	Offset int
}
