package analyzer

import (
	"github.com/shieldnetlabs/shieldnet_backend/models"
)

// Classify maps a fraud score and local check outcomes to a decision.
//
// Bands: blocked when score > 70 or any check failed; hold when score is in
// [30,70] or any check warned; approved otherwise. Every check is treated
// as critical since the oracle reports no criticality flag.
//
// The pipeline trusts the oracle's own decision by default; this function
// backs the strict-validation mode and the tests.
func Classify(score int, checks []models.LocalCheck) models.InvoiceStatus {
	var failed, warned bool
	for _, c := range checks {
		switch c.Status {
		case models.CheckStatusFail:
			failed = true
		case models.CheckStatusWarning:
			warned = true
		}
	}

	switch {
	case score > 70 || failed:
		return models.InvoiceStatusBlocked
	case score >= 30 || warned:
		return models.InvoiceStatusHold
	default:
		return models.InvoiceStatusApproved
	}
}
