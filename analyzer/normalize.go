package analyzer

import (
	"encoding/json"
	"strings"

	"github.com/shieldnetlabs/shieldnet_backend/models"
	"github.com/shieldnetlabs/shieldnet_backend/utils"
	"github.com/shopspring/decimal"
)

// rawAssessment mirrors the JSON shape the prompt requests. Pointer fields
// distinguish "absent" from zero values so incomplete responses are
// rejected instead of silently defaulted.
type rawAssessment struct {
	InvoiceId   *string               `json:"invoiceId"`
	Vendor      *string               `json:"vendor"`
	Amount      *decimal.Decimal      `json:"amount"`
	FraudScore  *int                  `json:"fraudScore"`
	Confidence  *int                  `json:"confidence"`
	Status      *models.InvoiceStatus `json:"status"`
	Explanation *string               `json:"explanation"`
	LocalChecks *[]models.LocalCheck  `json:"localChecks"`
}

// ExtractPayload strips markdown fencing from the oracle's raw text. A
// ` ```json ` fence wins over a bare ` ``` ` fence; with no fence the whole
// text is the payload. Prose outside the fence is discarded.
func ExtractPayload(text string) string {
	if start := strings.Index(text, "```json"); start >= 0 {
		return betweenFence(text[start+len("```json"):])
	}
	if start := strings.Index(text, "```"); start >= 0 {
		return betweenFence(text[start+len("```"):])
	}
	return strings.TrimSpace(text)
}

func betweenFence(rest string) string {
	if end := strings.Index(rest, "```"); end >= 0 {
		rest = rest[:end]
	}
	return strings.TrimSpace(rest)
}

// Normalize repairs and parses raw oracle output into the canonical
// assessment. Any parse failure or missing required field fails with a
// malformed-assessment error; this is the most fragile boundary in the
// pipeline.
func Normalize(raw string) (*models.InvoiceAssessment, error) {
	payload := ExtractPayload(raw)

	var parsed rawAssessment
	if err := json.Unmarshal([]byte(payload), &parsed); err != nil {
		return nil, utils.NewAppErrorf(utils.ErrKindMalformedAssessment, "parse oracle response: %w", err)
	}

	for field, missing := range map[string]bool{
		"invoiceId":   parsed.InvoiceId == nil,
		"vendor":      parsed.Vendor == nil,
		"amount":      parsed.Amount == nil,
		"fraudScore":  parsed.FraudScore == nil,
		"confidence":  parsed.Confidence == nil,
		"status":      parsed.Status == nil,
		"explanation": parsed.Explanation == nil,
		"localChecks": parsed.LocalChecks == nil,
	} {
		if missing {
			return nil, utils.NewAppErrorf(utils.ErrKindMalformedAssessment, "oracle response missing required field %q", field)
		}
	}

	checks := *parsed.LocalChecks
	if checks == nil {
		checks = []models.LocalCheck{}
	}

	return &models.InvoiceAssessment{
		InvoiceId:      *parsed.InvoiceId,
		Status:         *parsed.Status,
		Confidence:     *parsed.Confidence,
		FraudScore:     *parsed.FraudScore,
		LocalChecks:    checks,
		NetworkSignals: []models.NetworkSignal{},
		Explanation:    *parsed.Explanation,
		Vendor:         *parsed.Vendor,
		Amount:         *parsed.Amount,
		Currency:       models.CurrencyUSDC,
	}, nil
}
