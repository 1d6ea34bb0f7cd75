package models

import (
	"encoding/json"
	"errors"
)

// InvoiceStatus is the terminal decision for an assessed invoice.
type InvoiceStatus string

const (
	InvoiceStatusApproved InvoiceStatus = "approved"
	InvoiceStatusHold     InvoiceStatus = "hold"
	InvoiceStatusBlocked  InvoiceStatus = "blocked"
)

func (s InvoiceStatus) Valid() bool {
	switch s {
	case InvoiceStatusApproved, InvoiceStatusHold, InvoiceStatusBlocked:
		return true
	}
	return false
}

func (s *InvoiceStatus) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return errors.New("invoice status must be string")
	}
	v := InvoiceStatus(str)
	if !v.Valid() {
		return errors.New("invalid invoice status")
	}
	*s = v
	return nil
}

// CheckStatus is the outcome of a single local security check.
type CheckStatus string

const (
	CheckStatusPass    CheckStatus = "pass"
	CheckStatusFail    CheckStatus = "fail"
	CheckStatusWarning CheckStatus = "warning"
)

func (s CheckStatus) Valid() bool {
	switch s {
	case CheckStatusPass, CheckStatusFail, CheckStatusWarning:
		return true
	}
	return false
}

func (s *CheckStatus) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return errors.New("check status must be string")
	}
	v := CheckStatus(str)
	if !v.Valid() {
		return errors.New("invalid check status")
	}
	*s = v
	return nil
}

// SignalType classifies network evidence derived from the threat registry.
// Signals are never supplied by the oracle.
type SignalType string

const (
	SignalTypeFlagged SignalType = "flagged"
	SignalTypeSeen    SignalType = "seen"
	SignalTypeClean   SignalType = "clean"
)

func (s SignalType) Valid() bool {
	switch s {
	case SignalTypeFlagged, SignalTypeSeen, SignalTypeClean:
		return true
	}
	return false
}

func (s *SignalType) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return errors.New("signal type must be string")
	}
	v := SignalType(str)
	if !v.Valid() {
		return errors.New("invalid signal type")
	}
	*s = v
	return nil
}

// TransactionStatus is derived 1:1 from the invoice decision.
type TransactionStatus string

const (
	TransactionStatusPaid    TransactionStatus = "paid"
	TransactionStatusHeld    TransactionStatus = "held"
	TransactionStatusBlocked TransactionStatus = "blocked"
)

func (s TransactionStatus) Valid() bool {
	switch s {
	case TransactionStatusPaid, TransactionStatusHeld, TransactionStatusBlocked:
		return true
	}
	return false
}

func (s *TransactionStatus) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return errors.New("transaction status must be string")
	}
	v := TransactionStatus(str)
	if !v.Valid() {
		return errors.New("invalid transaction status")
	}
	*s = v
	return nil
}

// TransactionStatusForDecision maps a terminal decision to its transaction
// status.
func TransactionStatusForDecision(decision InvoiceStatus) TransactionStatus {
	switch decision {
	case InvoiceStatusApproved:
		return TransactionStatusPaid
	case InvoiceStatusHold:
		return TransactionStatusHeld
	default:
		return TransactionStatusBlocked
	}
}
