// Package storage holds the process-lifetime state of the service: analyzed
// invoices, transactions, the threat registry and the wallet ledger. Nothing
// here survives a restart; that is a stated design property, not a gap. Each
// store is an owned service object injected into the pipeline and guards its
// state behind a mutex so concurrent analyses cannot lose updates.
package storage

import (
	"errors"
	"sort"
	"sync"

	"github.com/shieldnetlabs/shieldnet_backend/models"
	"github.com/shieldnetlabs/shieldnet_backend/utils"
)

var errStoreClosed = errors.New("store is closed")

// ResultStore owns the invoice and transaction collections.
type ResultStore struct {
	mu           sync.Mutex
	closed       bool
	invoices     []*models.InvoiceAssessment
	transactions []*models.Transaction
}

func NewResultStore() *ResultStore {
	return &ResultStore{}
}

// Close marks the store closed. Subsequent writes fail with a persistence
// error so a future durable backend can share the same contract.
func (s *ResultStore) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

func (s *ResultStore) SaveInvoice(assessment *models.InvoiceAssessment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return utils.NewAppError(utils.ErrKindPersistenceFailure, errStoreClosed)
	}
	s.invoices = append(s.invoices, assessment)
	return nil
}

// Invoices returns all assessments in insertion order.
func (s *ResultStore) Invoices() []*models.InvoiceAssessment {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.InvoiceAssessment, len(s.invoices))
	copy(out, s.invoices)
	return out
}

func (s *ResultStore) SaveTransaction(txn *models.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return utils.NewAppError(utils.ErrKindPersistenceFailure, errStoreClosed)
	}
	s.transactions = append(s.transactions, txn)
	return nil
}

// Transactions returns transactions sorted by date descending, then filtered
// and paginated.
func (s *ResultStore) Transactions(filter models.TransactionFilter) []*models.Transaction {
	s.mu.Lock()
	all := make([]*models.Transaction, len(s.transactions))
	copy(all, s.transactions)
	s.mu.Unlock()

	// Dates are YYYY-MM-DD strings; lexical order is chronological order.
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Date > all[j].Date
	})

	filtered := all
	if filter.Status != "" {
		filtered = filtered[:0:0]
		for _, t := range all {
			if t.Status == filter.Status {
				filtered = append(filtered, t)
			}
		}
	}

	if filter.Offset > 0 {
		if filter.Offset >= len(filtered) {
			return nil
		}
		filtered = filtered[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(filtered) {
		filtered = filtered[:filter.Limit]
	}
	return filtered
}
