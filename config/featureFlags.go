package config

import (
	"os"
	"strings"
)

// DedupThreatReports collapses threat reports per vendor: reporting a vendor
// that already has a registry record increments that record instead of
// creating a duplicate.
//
// Default (off) keeps the historical duplicate-on-report behavior.
//
// Set via env:
// - DEDUP_THREAT_REPORTS=true
func DedupThreatReports() bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("DEDUP_THREAT_REPORTS")))
	return v == "1" || v == "true" || v == "yes" || v == "y"
}

// StrictDecisionValidation re-derives the decision from the fraud score and
// local checks and rejects oracle responses whose decision disagrees.
// The default trusts the oracle's decision field once the response parses.
//
// Set via env:
// - STRICT_DECISION_VALIDATION=true
func StrictDecisionValidation() bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv("STRICT_DECISION_VALIDATION")))
	return v == "1" || v == "true" || v == "yes" || v == "y"
}
