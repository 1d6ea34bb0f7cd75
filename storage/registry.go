package storage

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/shieldnetlabs/shieldnet_backend/models"
	"github.com/shieldnetlabs/shieldnet_backend/utils"
	"github.com/shopspring/decimal"
)

// ThreatRegistry owns the shared list of known-fraudulent vendors.
//
// Correlation and reporting are distinct operations: correlation reads the
// registry during every analysis and, on a hit, increments timesSeen on the
// first matching record; reporting creates a record. By default a report
// always creates a new record even when the vendor is already present,
// matching the network's historical behavior. dedupOnReport folds repeat
// reports into the existing record instead.
type ThreatRegistry struct {
	mu            sync.Mutex
	closed        bool
	records       []*models.ThreatRecord
	dedupOnReport bool
}

func NewThreatRegistry(dedupOnReport bool) *ThreatRegistry {
	return &ThreatRegistry{dedupOnReport: dedupOnReport}
}

func (r *ThreatRegistry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
}

// firstMatch returns the earliest-inserted record for the vendor
// (case-insensitive exact match). Caller must hold the lock.
func (r *ThreatRegistry) firstMatch(vendor string) *models.ThreatRecord {
	for _, rec := range r.records {
		if strings.EqualFold(rec.Vendor, vendor) {
			return rec
		}
	}
	return nil
}

// Correlate checks a vendor against the registry and derives network
// signals. A hit increments the matched record's timesSeen as a side effect;
// the returned descriptions reference the pre-increment counter.
func (r *ThreatRegistry) Correlate(vendor string, fraudScore int) []models.NetworkSignal {
	r.mu.Lock()
	defer r.mu.Unlock()

	if match := r.firstMatch(vendor); match != nil {
		signals := []models.NetworkSignal{
			{
				Type:        models.SignalTypeFlagged,
				Description: fmt.Sprintf("Vendor flagged by %d other companies", match.TimesSeen),
			},
			{
				Type:        models.SignalTypeFlagged,
				Description: fmt.Sprintf("Previously blocked $%s in fraudulent invoices", groupThousands(match.AmountBlocked)),
			},
		}
		match.TimesSeen++
		return signals
	}

	if fraudScore < 30 {
		return []models.NetworkSignal{
			{
				Type:        models.SignalTypeClean,
				Description: "No similar scams seen in ShieldNet network",
			},
		}
	}

	// Mid-band scores with no registry hit deliberately produce no evidence.
	return nil
}

// Report records a threat for the vendor and returns the affected record.
func (r *ThreatRegistry) Report(vendor string, fraudScore int, reason string, amount decimal.Decimal) (*models.ThreatRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, utils.NewAppError(utils.ErrKindPersistenceFailure, errStoreClosed)
	}

	if r.dedupOnReport {
		if existing := r.firstMatch(vendor); existing != nil {
			existing.TimesSeen++
			existing.AmountBlocked = existing.AmountBlocked.Add(amount)
			existing.FraudScore = fraudScore
			existing.Reason = reason
			return existing, nil
		}
	}

	now := time.Now()
	record := &models.ThreatRecord{
		Id:            fmt.Sprintf("THR-%d", now.UnixMilli()),
		Vendor:        vendor,
		FraudScore:    fraudScore,
		FirstSeen:     now.Format("2006-01-02"),
		TimesSeen:     1,
		Reason:        reason,
		AmountBlocked: amount,
	}
	r.records = append(r.records, record)
	return record, nil
}

// All returns the registry in insertion order.
func (r *ThreatRegistry) All() []*models.ThreatRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.ThreatRecord, len(r.records))
	copy(out, r.records)
	return out
}

func (r *ThreatRegistry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

// groupThousands renders an amount with comma grouping and no decimals,
// e.g. 2000 -> "2,000".
func groupThousands(d decimal.Decimal) string {
	s := d.Round(0).String()
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}
