package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/lirepay/walletcore/internal/query"
	apperrors "github.com/lirepay/walletcore/pkg/errors"
	"github.com/lirepay/walletcore/pkg/metrics"
	"github.com/lirepay/walletcore/pkg/models"
)

// SystemOwnerID is the owner id of the platform-wide liquidity wallet.
const SystemOwnerID = "system"

// LedgerService is the single source of truth for wallet balances and
// transaction history. All mutations are transactional.
type LedgerService interface {
	GetWallet(ctx context.Context, kind models.OwnerKind, ownerID string) (*models.Wallet, error)
	GetWalletByID(ctx context.Context, id uuid.UUID) (*models.Wallet, error)
	SystemWallet(ctx context.Context) (*models.Wallet, error)
	AppendTransaction(ctx context.Context, walletID uuid.UUID, txType models.TransactionType, amount decimal.Decimal, status models.TransactionStatus, metadata models.Metadata) (*models.Transaction, error)
	ListTransactions(ctx context.Context, walletID uuid.UUID, filter Filter, limit, offset int) ([]*models.Transaction, int64, error)
}

// Filter narrows a transaction listing. Zero values are no-ops.
type Filter struct {
	Type     models.TransactionType
	Status   models.TransactionStatus
	DateFrom time.Time
	DateTo   time.Time
	FreeText string
}

// Service implements LedgerService
type Service struct {
	logger     *zap.Logger
	db         *gorm.DB
	autoCreate bool
	locks      *walletLocks
}

// NewService creates a new ledger service. When autoCreate is set, GetWallet
// creates a zero-balance wallet on first access.
func NewService(logger *zap.Logger, db *gorm.DB, autoCreate bool) *Service {
	return &Service{
		logger:     logger,
		db:         db,
		autoCreate: autoCreate,
		locks:      newWalletLocks(),
	}
}

// DB exposes the underlying handle for services composing multi-step
// mutations into a single database transaction.
func (s *Service) DB() *gorm.DB { return s.db }

// LockWallets serializes mutations for the given wallets. The returned
// function releases the locks.
func (s *Service) LockWallets(ids ...uuid.UUID) func() {
	return s.locks.Lock(ids...)
}

// GetWallet fetches the wallet for an owner, creating a zero-balance one on
// first access when auto-creation is enabled.
func (s *Service) GetWallet(ctx context.Context, kind models.OwnerKind, ownerID string) (*models.Wallet, error) {
	if !kind.Valid() {
		return nil, apperrors.Validation(fmt.Sprintf("unknown owner kind: %s", kind))
	}
	if ownerID == "" {
		return nil, apperrors.Validation("owner id is required")
	}

	var wallet models.Wallet
	err := s.db.WithContext(ctx).Where("owner_kind = ? AND owner_id = ?", kind, ownerID).First(&wallet).Error
	if err == nil {
		return &wallet, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, apperrors.Internal("failed to find wallet", err)
	}
	if !s.autoCreate {
		return nil, apperrors.NotFound(fmt.Sprintf("no wallet for %s %s", kind, ownerID))
	}

	now := time.Now()
	wallet = models.Wallet{
		ID:             uuid.New(),
		OwnerKind:      kind,
		OwnerID:        ownerID,
		Balance:        decimal.Zero,
		TotalEarned:    decimal.Zero,
		TotalWithdrawn: decimal.Zero,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.db.WithContext(ctx).Create(&wallet).Error; err != nil {
		// Lost a creation race: another request created the wallet first
		var existing models.Wallet
		if ferr := s.db.WithContext(ctx).Where("owner_kind = ? AND owner_id = ?", kind, ownerID).First(&existing).Error; ferr == nil {
			return &existing, nil
		}
		return nil, apperrors.Internal("failed to create wallet", err)
	}
	s.logger.Info("Created wallet",
		zap.String("wallet_id", wallet.ID.String()),
		zap.String("owner_kind", string(kind)),
		zap.String("owner_id", ownerID))
	return &wallet, nil
}

// GetWalletByID fetches a wallet by its id.
func (s *Service) GetWalletByID(ctx context.Context, id uuid.UUID) (*models.Wallet, error) {
	var wallet models.Wallet
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&wallet).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperrors.NotFound("wallet not found")
		}
		return nil, apperrors.Internal("failed to find wallet", err)
	}
	return &wallet, nil
}

// SystemWallet fetches the platform-wide liquidity wallet.
func (s *Service) SystemWallet(ctx context.Context) (*models.Wallet, error) {
	return s.GetWallet(ctx, models.OwnerSystem, SystemOwnerID)
}

// AppendTransaction validates and appends a transaction, atomically updating
// the wallet balance and the relevant running aggregate. Debiting types fail
// with insufficient funds when the balance does not cover the amount.
func (s *Service) AppendTransaction(ctx context.Context, walletID uuid.UUID, txType models.TransactionType, amount decimal.Decimal, status models.TransactionStatus, metadata models.Metadata) (*models.Transaction, error) {
	unlock := s.locks.Lock(walletID)
	defer unlock()

	var created *models.Transaction
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		created, err = s.AppendTransactionTx(tx, walletID, txType, amount, status, metadata)
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// AppendTransactionTx is the transaction-scoped variant of
// AppendTransaction for services composing multiple ledger mutations into
// one database transaction. The caller must hold the wallet locks.
func (s *Service) AppendTransactionTx(tx *gorm.DB, walletID uuid.UUID, txType models.TransactionType, amount decimal.Decimal, status models.TransactionStatus, metadata models.Metadata) (*models.Transaction, error) {
	if !txType.Valid() {
		return nil, apperrors.Validation(fmt.Sprintf("unknown transaction type: %s", txType))
	}
	if !amount.IsPositive() {
		return nil, apperrors.Validation("amount must be positive").WithField("amount", "must be greater than zero")
	}

	var wallet models.Wallet
	if err := tx.Where("id = ?", walletID).First(&wallet).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperrors.NotFound("wallet not found")
		}
		return nil, apperrors.Internal("failed to find wallet", err)
	}

	if txType.Debits() {
		if wallet.Balance.LessThan(amount) {
			return nil, apperrors.InsufficientFunds(fmt.Sprintf(
				"wallet %s balance %s does not cover %s",
				wallet.ID, wallet.Balance, amount))
		}
		wallet.Balance = wallet.Balance.Sub(amount)
		wallet.TotalWithdrawn = wallet.TotalWithdrawn.Add(amount)
	} else {
		wallet.Balance = wallet.Balance.Add(amount)
		wallet.TotalEarned = wallet.TotalEarned.Add(amount)
	}
	wallet.UpdatedAt = time.Now()

	if err := tx.Save(&wallet).Error; err != nil {
		return nil, apperrors.Internal("failed to save wallet", err)
	}

	now := time.Now()
	row := &models.Transaction{
		ID:        uuid.New(),
		WalletID:  walletID,
		Type:      txType,
		Amount:    amount,
		Status:    status,
		Metadata:  metadata,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := tx.Create(row).Error; err != nil {
		return nil, apperrors.Internal("failed to create transaction", err)
	}

	metrics.TransactionsAppended.WithLabelValues(string(txType), string(status)).Inc()
	s.logger.Info("Appended transaction",
		zap.String("transaction_id", row.ID.String()),
		zap.String("wallet_id", walletID.String()),
		zap.String("type", string(txType)),
		zap.String("amount", amount.String()),
		zap.String("status", string(status)))
	return row, nil
}

// ListTransactions returns a page of a wallet's transactions ordered by
// created_at descending, plus the total count for the filter. Free text
// matches case-insensitively against id, type, status, amount and the
// formatted date.
func (s *Service) ListTransactions(ctx context.Context, walletID uuid.UUID, filter Filter, limit, offset int) ([]*models.Transaction, int64, error) {
	q := s.db.WithContext(ctx).Model(&models.Transaction{}).Where("wallet_id = ?", walletID)

	if filter.Type != "" && filter.Type != "all" {
		q = q.Where("type = ?", filter.Type)
	}
	if filter.Status != "" && filter.Status != "all" {
		q = q.Where("status = ?", filter.Status)
	}
	if !filter.DateFrom.IsZero() {
		q = q.Where("created_at >= ?", filter.DateFrom)
	}
	if !filter.DateTo.IsZero() {
		q = q.Where("created_at <= ?", filter.DateTo)
	}

	// Free text matches against derived strings (formatted date included),
	// which SQL cannot express portably, so it filters the ordered rows
	// in memory
	if text := strings.TrimSpace(filter.FreeText); text != "" {
		var all []*models.Transaction
		if err := q.Order("created_at DESC, id").Find(&all).Error; err != nil {
			return nil, 0, apperrors.Internal("failed to find transactions", err)
		}
		matched := query.Filter(all, query.Criteria{FreeText: text})
		total := int64(len(matched))
		if offset >= len(matched) {
			return []*models.Transaction{}, total, nil
		}
		matched = matched[offset:]
		if limit >= 0 && limit < len(matched) {
			matched = matched[:limit]
		}
		return matched, total, nil
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, apperrors.Internal("failed to count transactions", err)
	}

	var items []*models.Transaction
	if err := q.Order("created_at DESC, id").Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, 0, apperrors.Internal("failed to find transactions", err)
	}
	return items, total, nil
}
