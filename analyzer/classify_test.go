package analyzer

import (
	"testing"

	"github.com/shieldnetlabs/shieldnet_backend/models"
)

func TestClassify_ScoreBands(t *testing.T) {
	cases := []struct {
		score    int
		expected models.InvoiceStatus
	}{
		{0, models.InvoiceStatusApproved},
		{29, models.InvoiceStatusApproved},
		{30, models.InvoiceStatusHold},
		{70, models.InvoiceStatusHold},
		{71, models.InvoiceStatusBlocked},
		{100, models.InvoiceStatusBlocked},
	}
	for _, tc := range cases {
		if got := Classify(tc.score, nil); got != tc.expected {
			t.Fatalf("Classify(%d) expected %s, got %s", tc.score, tc.expected, got)
		}
	}
}

func TestClassify_FailedCheckBlocksLowScore(t *testing.T) {
	checks := []models.LocalCheck{
		{Name: "PO match", Status: models.CheckStatusFail},
	}
	if got := Classify(5, checks); got != models.InvoiceStatusBlocked {
		t.Fatalf("expected blocked on failed check, got %s", got)
	}
}

func TestClassify_WarningCheckHoldsLowScore(t *testing.T) {
	checks := []models.LocalCheck{
		{Name: "Hours verification", Status: models.CheckStatusWarning},
	}
	if got := Classify(5, checks); got != models.InvoiceStatusHold {
		t.Fatalf("expected hold on warning check, got %s", got)
	}
}

func TestClassify_PassingChecksDoNotEscalate(t *testing.T) {
	checks := []models.LocalCheck{
		{Name: "PO match", Status: models.CheckStatusPass},
		{Name: "Vendor trust", Status: models.CheckStatusPass},
	}
	if got := Classify(10, checks); got != models.InvoiceStatusApproved {
		t.Fatalf("expected approved, got %s", got)
	}
}
