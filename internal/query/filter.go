// Package query provides read-only projections over ledger transactions for
// display and export. Nothing here mutates state.
package query

import (
	"strings"
	"time"

	"github.com/lirepay/walletcore/pkg/models"
)

// DateLayout is the display format free-text search matches against.
const DateLayout = "Jan 2, 2006"

// Criteria narrows a transaction set. All predicates are conjunctive; a zero
// or "all" value is a no-op for its predicate.
type Criteria struct {
	Type     string
	Status   string
	DateFrom time.Time
	DateTo   time.Time
	FreeText string
}

// Filter returns the transactions matching every set predicate, preserving
// the input order.
func Filter(txs []*models.Transaction, c Criteria) []*models.Transaction {
	out := make([]*models.Transaction, 0, len(txs))
	text := strings.ToLower(strings.TrimSpace(c.FreeText))
	for _, tx := range txs {
		if !matchValue(c.Type, string(tx.Type)) {
			continue
		}
		if !matchValue(c.Status, string(tx.Status)) {
			continue
		}
		if !c.DateFrom.IsZero() && tx.CreatedAt.Before(c.DateFrom) {
			continue
		}
		if !c.DateTo.IsZero() && tx.CreatedAt.After(c.DateTo) {
			continue
		}
		if text != "" && !matchFreeText(tx, text) {
			continue
		}
		out = append(out, tx)
	}
	return out
}

func matchValue(want, have string) bool {
	if want == "" || want == "all" {
		return true
	}
	return want == have
}

// matchFreeText matches case-insensitively against id, type, status,
// amount-as-string and the formatted date.
func matchFreeText(tx *models.Transaction, text string) bool {
	candidates := []string{
		tx.ID.String(),
		string(tx.Type),
		string(tx.Status),
		tx.Amount.String(),
		tx.CreatedAt.Format(DateLayout),
	}
	for _, candidate := range candidates {
		if strings.Contains(strings.ToLower(candidate), text) {
			return true
		}
	}
	return false
}
