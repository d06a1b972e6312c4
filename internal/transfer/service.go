package transfer

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/lirepay/walletcore/internal/ledger"
	"github.com/lirepay/walletcore/internal/notifier"
	apperrors "github.com/lirepay/walletcore/pkg/errors"
	"github.com/lirepay/walletcore/pkg/metrics"
	"github.com/lirepay/walletcore/pkg/models"
)

// TransferService moves funds between two wallets immediately and
// atomically, outside the withdrawal workflow.
type TransferService interface {
	Transfer(ctx context.Context, sourceWalletID uuid.UUID, recipientAccountID string, amount decimal.Decimal, description, callerSecret string) (*models.Transaction, *models.Transaction, error)
}

// Service implements TransferService
type Service struct {
	logger   *zap.Logger
	db       *gorm.DB
	ledger   *ledger.Service
	verifier SecretVerifier
	notifier notifier.Notifier
}

// NewService creates a new transfer service.
func NewService(logger *zap.Logger, ledgerSvc *ledger.Service, verifier SecretVerifier, n notifier.Notifier) *Service {
	return &Service{
		logger:   logger,
		db:       ledgerSvc.DB(),
		ledger:   ledgerSvc,
		verifier: verifier,
		notifier: n,
	}
}

// Transfer debits the source wallet and credits the recipient wallet as a
// single atomic unit: both transaction rows are appended or neither is.
func (s *Service) Transfer(ctx context.Context, sourceWalletID uuid.UUID, recipientAccountID string, amount decimal.Decimal, description, callerSecret string) (*models.Transaction, *models.Transaction, error) {
	start := time.Now()

	if !amount.IsPositive() {
		return nil, nil, apperrors.Validation("amount must be positive").WithField("amount", "must be greater than zero")
	}
	if strings.TrimSpace(description) == "" {
		return nil, nil, apperrors.Validation("description is required").WithField("description", "required")
	}
	if strings.TrimSpace(recipientAccountID) == "" {
		return nil, nil, apperrors.Validation("recipient account is required").WithField("recipient_account_id", "required")
	}

	source, err := s.ledger.GetWalletByID(ctx, sourceWalletID)
	if err != nil {
		return nil, nil, err
	}
	if source.OwnerID == recipientAccountID {
		return nil, nil, apperrors.Validation("cannot transfer to your own wallet").WithField("recipient_account_id", "must differ from source")
	}

	if err := s.verifier.Verify(ctx, source.OwnerID, callerSecret); err != nil {
		return nil, nil, err
	}

	recipient, err := s.ledger.GetWallet(ctx, models.OwnerUser, recipientAccountID)
	if err != nil {
		if apperrors.KindOf(err) == apperrors.KindNotFound {
			return nil, nil, apperrors.Validation("recipient account not found").WithField("recipient_account_id", "unknown account")
		}
		return nil, nil, err
	}

	unlock := s.ledger.LockWallets(source.ID, recipient.ID)
	defer unlock()

	var debit, credit *models.Transaction
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		debit, err = s.ledger.AppendTransactionTx(tx, source.ID, models.TxTransfer, amount, models.TxCompleted, models.Metadata{
			models.MetaCounterpartWallet: recipient.ID.String(),
			models.MetaCounterpartOwner:  recipient.OwnerID,
			models.MetaDescription:       description,
		})
		if err != nil {
			return err
		}
		credit, err = s.ledger.AppendTransactionTx(tx, recipient.ID, models.TxReception, amount, models.TxCompleted, models.Metadata{
			models.MetaCounterpartWallet: source.ID.String(),
			models.MetaCounterpartOwner:  source.OwnerID,
			models.MetaDescription:       description,
		})
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	metrics.TransferLatency.Observe(time.Since(start).Seconds())
	s.logger.Info("Transfer applied",
		zap.String("source_wallet_id", source.ID.String()),
		zap.String("recipient_wallet_id", recipient.ID.String()),
		zap.String("amount", amount.String()))
	s.notifier.Notify(notifier.Success, "Transfer completed")
	return debit, credit, nil
}
