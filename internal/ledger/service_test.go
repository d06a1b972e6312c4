// Concurrency and invariant tests for the ledger Service.
//
// Expected: no overdraws under concurrent debits (run with -race), balances
// always equal credits minus debits, aggregates monotonically non-decreasing.

package ledger

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	apperrors "github.com/lirepay/walletcore/pkg/errors"
	"github.com/lirepay/walletcore/pkg/models"
)

func setupTestService(t *testing.T) *Service {
	t.Helper()
	// Shared cache plus a single connection so every goroutine sees the same
	// in-memory database
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&models.Wallet{}, &models.Transaction{}))
	return NewService(zap.NewNop(), db, true)
}

func seedWallet(t *testing.T, s *Service, amount string) *models.Wallet {
	t.Helper()
	ctx := context.Background()
	wallet, err := s.GetWallet(ctx, models.OwnerUser, "user-"+t.Name())
	require.NoError(t, err)
	if amount != "" {
		_, err = s.AppendTransaction(ctx, wallet.ID, models.TxReception,
			decimal.RequireFromString(amount), models.TxCompleted, nil)
		require.NoError(t, err)
	}
	refreshed, err := s.GetWalletByID(ctx, wallet.ID)
	require.NoError(t, err)
	return refreshed
}

func TestGetWalletAutoCreate(t *testing.T) {
	s := setupTestService(t)
	ctx := context.Background()

	wallet, err := s.GetWallet(ctx, models.OwnerUser, "u-1")
	require.NoError(t, err)
	assert.True(t, wallet.Balance.IsZero())
	assert.True(t, wallet.TotalEarned.IsZero())

	again, err := s.GetWallet(ctx, models.OwnerUser, "u-1")
	require.NoError(t, err)
	assert.Equal(t, wallet.ID, again.ID, "same owner must get the same wallet")

	_, err = s.GetWallet(ctx, "tenant", "u-1")
	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))
}

func TestAppendTransactionBalanceInvariant(t *testing.T) {
	s := setupTestService(t)
	ctx := context.Background()
	wallet := seedWallet(t, s, "")

	credits := []string{"100", "25.50", "0.25"}
	debits := []string{"40", "10.75"}

	for _, amount := range credits {
		_, err := s.AppendTransaction(ctx, wallet.ID, models.TxCommission,
			decimal.RequireFromString(amount), models.TxCompleted, nil)
		require.NoError(t, err)
	}
	for _, amount := range debits {
		_, err := s.AppendTransaction(ctx, wallet.ID, models.TxWithdrawal,
			decimal.RequireFromString(amount), models.TxCompleted, nil)
		require.NoError(t, err)
	}

	refreshed, err := s.GetWalletByID(ctx, wallet.ID)
	require.NoError(t, err)
	assert.True(t, refreshed.Balance.Equal(decimal.RequireFromString("75")),
		"balance must equal credits minus debits, got %s", refreshed.Balance)
	assert.True(t, refreshed.TotalEarned.Equal(decimal.RequireFromString("125.75")))
	assert.True(t, refreshed.TotalWithdrawn.Equal(decimal.RequireFromString("50.75")))
}

func TestAppendTransactionValidation(t *testing.T) {
	s := setupTestService(t)
	ctx := context.Background()
	wallet := seedWallet(t, s, "100")

	_, err := s.AppendTransaction(ctx, wallet.ID, models.TxBonus, decimal.Zero, models.TxCompleted, nil)
	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))

	_, err = s.AppendTransaction(ctx, wallet.ID, models.TxBonus, decimal.NewFromInt(-5), models.TxCompleted, nil)
	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))

	_, err = s.AppendTransaction(ctx, wallet.ID, "refund", decimal.NewFromInt(5), models.TxCompleted, nil)
	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))
}

func TestAppendTransactionInsufficientFunds(t *testing.T) {
	s := setupTestService(t)
	ctx := context.Background()
	wallet := seedWallet(t, s, "100")

	_, err := s.AppendTransaction(ctx, wallet.ID, models.TxWithdrawal,
		decimal.NewFromInt(150), models.TxCompleted, nil)
	require.Error(t, err)
	assert.Equal(t, apperrors.KindInsufficientFunds, apperrors.KindOf(err))

	// Nothing may have been written
	refreshed, err := s.GetWalletByID(ctx, wallet.ID)
	require.NoError(t, err)
	assert.True(t, refreshed.Balance.Equal(decimal.NewFromInt(100)))

	var count int64
	require.NoError(t, s.db.Model(&models.Transaction{}).
		Where("wallet_id = ? AND type = ?", wallet.ID, models.TxWithdrawal).
		Count(&count).Error)
	assert.Zero(t, count, "failed debit must not leave a transaction row")
}

func TestListTransactions(t *testing.T) {
	s := setupTestService(t)
	ctx := context.Background()
	wallet := seedWallet(t, s, "1000")

	for i := 0; i < 3; i++ {
		_, err := s.AppendTransaction(ctx, wallet.ID, models.TxWithdrawal,
			decimal.NewFromInt(10), models.TxCompleted, nil)
		require.NoError(t, err)
	}
	_, err := s.AppendTransaction(ctx, wallet.ID, models.TxBonus,
		decimal.RequireFromString("7.25"), models.TxCompleted, nil)
	require.NoError(t, err)

	t.Run("ByType", func(t *testing.T) {
		items, total, err := s.ListTransactions(ctx, wallet.ID, Filter{Type: models.TxWithdrawal}, 10, 0)
		require.NoError(t, err)
		assert.EqualValues(t, 3, total)
		for _, tx := range items {
			assert.Equal(t, models.TxWithdrawal, tx.Type)
		}
	})

	t.Run("AllIsNoOp", func(t *testing.T) {
		_, total, err := s.ListTransactions(ctx, wallet.ID, Filter{Type: "all", Status: "all"}, 10, 0)
		require.NoError(t, err)
		assert.EqualValues(t, 5, total, "seed reception plus four appends")
	})

	t.Run("Pagination", func(t *testing.T) {
		first, total, err := s.ListTransactions(ctx, wallet.ID, Filter{}, 2, 0)
		require.NoError(t, err)
		assert.EqualValues(t, 5, total)
		require.Len(t, first, 2)

		second, _, err := s.ListTransactions(ctx, wallet.ID, Filter{}, 2, 2)
		require.NoError(t, err)
		require.Len(t, second, 2)
		assert.NotEqual(t, first[0].ID, second[0].ID)
	})

	t.Run("OrderedByRecency", func(t *testing.T) {
		items, _, err := s.ListTransactions(ctx, wallet.ID, Filter{}, 10, 0)
		require.NoError(t, err)
		for i := 1; i < len(items); i++ {
			assert.False(t, items[i-1].CreatedAt.Before(items[i].CreatedAt),
				"transactions must be ordered created_at descending")
		}
	})

	t.Run("FreeText", func(t *testing.T) {
		items, total, err := s.ListTransactions(ctx, wallet.ID, Filter{FreeText: "bonus"}, 10, 0)
		require.NoError(t, err)
		assert.EqualValues(t, 1, total)
		require.Len(t, items, 1)
		assert.Equal(t, models.TxBonus, items[0].Type)
	})

	t.Run("DateRange", func(t *testing.T) {
		future := time.Now().Add(time.Hour)
		_, total, err := s.ListTransactions(ctx, wallet.ID, Filter{DateFrom: future}, 10, 0)
		require.NoError(t, err)
		assert.Zero(t, total)
	})
}

func TestConcurrentDebitsNeverOverdraw(t *testing.T) {
	s := setupTestService(t)
	ctx := context.Background()
	wallet := seedWallet(t, s, "500")

	// 100 concurrent debits of 10 against a balance of 500: exactly 50 can
	// succeed, the rest must fail with insufficient funds
	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded, refused := 0, 0
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.AppendTransaction(ctx, wallet.ID, models.TxWithdrawal,
				decimal.NewFromInt(10), models.TxCompleted, nil)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				succeeded++
			} else if apperrors.KindOf(err) == apperrors.KindInsufficientFunds {
				refused++
			} else {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, succeeded)
	assert.Equal(t, 50, refused)

	refreshed, err := s.GetWalletByID(ctx, wallet.ID)
	require.NoError(t, err)
	assert.True(t, refreshed.Balance.IsZero(), "balance must be exactly zero, got %s", refreshed.Balance)
}
