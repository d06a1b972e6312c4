package query

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lirepay/walletcore/pkg/models"
)

func tx(txType models.TransactionType, amount string, status models.TransactionStatus, createdAt time.Time) *models.Transaction {
	return &models.Transaction{
		ID:        uuid.New(),
		WalletID:  uuid.New(),
		Type:      txType,
		Amount:    decimal.RequireFromString(amount),
		Status:    status,
		CreatedAt: createdAt,
	}
}

func sampleLedger() []*models.Transaction {
	march := time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)
	return []*models.Transaction{
		tx(models.TxWithdrawal, "50", models.TxCompleted, march),
		tx(models.TxWithdrawal, "20", models.TxPending, march.AddDate(0, 0, 1)),
		tx(models.TxWithdrawal, "75", models.TxRejected, march.AddDate(0, 0, 2)),
		tx(models.TxCommission, "12.50", models.TxCompleted, march.AddDate(0, 1, 0)),
		tx(models.TxBonus, "5", models.TxCompleted, march.AddDate(0, 1, 5)),
	}
}

func TestFilterByType(t *testing.T) {
	txs := sampleLedger()
	got := Filter(txs, Criteria{Type: string(models.TxWithdrawal)})
	require.Len(t, got, 3)
	for _, tx := range got {
		assert.Equal(t, models.TxWithdrawal, tx.Type)
	}
}

func TestFilterConjunction(t *testing.T) {
	txs := sampleLedger()
	got := Filter(txs, Criteria{
		Type:   string(models.TxWithdrawal),
		Status: string(models.TxCompleted),
	})
	require.Len(t, got, 1)
	assert.True(t, got[0].Amount.Equal(decimal.NewFromInt(50)))
}

func TestFilterAllAndZeroAreNoOps(t *testing.T) {
	txs := sampleLedger()
	assert.Len(t, Filter(txs, Criteria{}), len(txs))
	assert.Len(t, Filter(txs, Criteria{Type: "all", Status: "all"}), len(txs))
}

func TestFilterDateRange(t *testing.T) {
	txs := sampleLedger()
	from := time.Date(2025, time.March, 11, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, time.March, 31, 23, 59, 59, 0, time.UTC)
	got := Filter(txs, Criteria{DateFrom: from, DateTo: to})
	require.Len(t, got, 2)
	for _, tx := range got {
		assert.False(t, tx.CreatedAt.Before(from))
		assert.False(t, tx.CreatedAt.After(to))
	}
}

func TestFilterFreeText(t *testing.T) {
	txs := sampleLedger()

	t.Run("MatchesType", func(t *testing.T) {
		got := Filter(txs, Criteria{FreeText: "bonus"})
		require.Len(t, got, 1)
		assert.Equal(t, models.TxBonus, got[0].Type)
	})

	t.Run("MatchesAmount", func(t *testing.T) {
		got := Filter(txs, Criteria{FreeText: "12.5"})
		require.Len(t, got, 1)
		assert.Equal(t, models.TxCommission, got[0].Type)
	})

	t.Run("MatchesFormattedDate", func(t *testing.T) {
		got := Filter(txs, Criteria{FreeText: "apr"})
		require.Len(t, got, 2)
	})

	t.Run("CaseInsensitive", func(t *testing.T) {
		assert.Len(t, Filter(txs, Criteria{FreeText: "REJECTED"}), 1)
	})

	t.Run("NoMatch", func(t *testing.T) {
		assert.Empty(t, Filter(txs, Criteria{FreeText: "zebra"}))
	})
}

func TestFilterPreservesOrder(t *testing.T) {
	txs := sampleLedger()
	got := Filter(txs, Criteria{Status: string(models.TxCompleted)})
	require.Len(t, got, 3)
	for i := 1; i < len(got); i++ {
		assert.True(t, got[i-1].CreatedAt.Before(got[i].CreatedAt) || got[i-1].CreatedAt.Equal(got[i].CreatedAt),
			"input order must survive filtering")
	}
}

func TestExportCSV(t *testing.T) {
	march := time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)
	first := tx(models.TxWithdrawal, "50.25", models.TxCompleted, march)
	first.Metadata = models.Metadata{
		models.MetaPaymentMethod: "mobile_money",
		models.MetaFeeAmount:     "1.25",
	}
	second := tx(models.TxBonus, "5", models.TxCompleted, march.AddDate(0, 0, 1))

	var buf bytes.Buffer
	require.NoError(t, ExportCSV(&buf, []*models.Transaction{first, second}))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)

	// Metadata keys appear sorted between the fixed columns and the date
	assert.Equal(t, []string{"id", "type", "amount", "status", "fee_amount", "payment_method", "date"}, records[0])
	assert.Equal(t, []string{first.ID.String(), "withdrawal", "50.25", "completed", "1.25", "mobile_money", "Mar 10, 2025"}, records[1])

	// Rows without a metadata key still carry the column, empty
	assert.Equal(t, []string{second.ID.String(), "bonus", "5", "completed", "", "", "Mar 11, 2025"}, records[2])
}

func TestExportCSVDeterministic(t *testing.T) {
	txs := sampleLedger()
	txs[0].Metadata = models.Metadata{"b_key": "2", "a_key": "1", "c_key": "3"}

	var first, second bytes.Buffer
	require.NoError(t, ExportCSV(&first, txs))
	require.NoError(t, ExportCSV(&second, txs))
	assert.Equal(t, first.String(), second.String())
	assert.True(t, strings.HasPrefix(first.String(), "id,type,amount,status,a_key,b_key,c_key,date"))
}
