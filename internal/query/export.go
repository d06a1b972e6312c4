package query

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"

	"github.com/lirepay/walletcore/pkg/models"
)

// ExportCSV writes the transactions as CSV with a deterministic column set:
// the fixed columns followed by one column per metadata key present in the
// input, in sorted order. Amounts are written with Decimal.String so numeric
// precision is never altered.
func ExportCSV(w io.Writer, txs []*models.Transaction) error {
	metaKeys := map[string]struct{}{}
	for _, tx := range txs {
		for k := range tx.Metadata {
			metaKeys[k] = struct{}{}
		}
	}
	sorted := make([]string, 0, len(metaKeys))
	for k := range metaKeys {
		sorted = append(sorted, k)
	}
	sort.Strings(sorted)

	header := []string{"id", "type", "amount", "status"}
	header = append(header, sorted...)
	header = append(header, "date")

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, tx := range txs {
		row := []string{
			tx.ID.String(),
			string(tx.Type),
			tx.Amount.String(),
			string(tx.Status),
		}
		for _, k := range sorted {
			row = append(row, tx.Metadata[k])
		}
		row = append(row, tx.CreatedAt.Format(DateLayout))
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
