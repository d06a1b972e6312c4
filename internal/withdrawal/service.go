package withdrawal

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/lirepay/walletcore/internal/ledger"
	"github.com/lirepay/walletcore/internal/notifier"
	"github.com/lirepay/walletcore/internal/otp"
	apperrors "github.com/lirepay/walletcore/pkg/errors"
	"github.com/lirepay/walletcore/pkg/metrics"
	"github.com/lirepay/walletcore/pkg/models"
)

// WorkflowService orchestrates a withdrawal request from submission to a
// terminal outcome. Funds sufficiency is enforced once, authoritatively, at
// approval time against both the owner wallet and the system wallet.
type WorkflowService interface {
	Submit(ctx context.Context, walletID uuid.UUID, amount decimal.Decimal, method models.PaymentMethod, details models.PaymentDetails) (*models.WithdrawalRequest, error)
	Approve(ctx context.Context, requestID uuid.UUID, adminNote string) (*models.WithdrawalRequest, error)
	Reject(ctx context.Context, requestID uuid.UUID, adminNote string) (*models.WithdrawalRequest, error)
	Cancel(ctx context.Context, requestID uuid.UUID, callerOwnerID string) (*models.WithdrawalRequest, error)
	Get(ctx context.Context, requestID uuid.UUID) (*models.WithdrawalRequest, error)
	List(ctx context.Context, status models.WithdrawalStatus, limit, offset int) ([]*models.WithdrawalRequest, int64, error)
}

// Service implements WorkflowService
type Service struct {
	logger     *zap.Logger
	db         *gorm.DB
	ledger     *ledger.Service
	gate       otp.Gate
	notifier   notifier.Notifier
	feePercent decimal.Decimal
}

// NewService creates a new withdrawal workflow service. feePercent is the
// platform payout fee recorded in the debit's metadata; the debit itself is
// always the full requested amount.
func NewService(logger *zap.Logger, ledgerSvc *ledger.Service, gate otp.Gate, n notifier.Notifier, feePercent float64) *Service {
	return &Service{
		logger:     logger,
		db:         ledgerSvc.DB(),
		ledger:     ledgerSvc,
		gate:       gate,
		notifier:   n,
		feePercent: decimal.NewFromFloat(feePercent),
	}
}

// Submit records a pending withdrawal request. Mobile-money submissions must
// carry a valid one-time code, which is consumed here. The wallet balance is
// not checked or touched: the authoritative check happens at approval.
func (s *Service) Submit(ctx context.Context, walletID uuid.UUID, amount decimal.Decimal, method models.PaymentMethod, details models.PaymentDetails) (*models.WithdrawalRequest, error) {
	if !amount.IsPositive() {
		return nil, apperrors.Validation("amount must be positive").WithField("amount", "must be greater than zero")
	}
	if !method.Valid() {
		return nil, apperrors.Validation(fmt.Sprintf("unsupported payment method: %s", method)).
			WithField("payment_method", "must be mobile_money or card")
	}
	if err := validateDetails(method, details); err != nil {
		return nil, err
	}

	if method == models.PayMobileMoney {
		if err := s.gate.ValidateCode(ctx, details.PhoneNumber, details.OtpCode); err != nil {
			return nil, err
		}
	}

	wallet, err := s.ledger.GetWalletByID(ctx, walletID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	request := &models.WithdrawalRequest{
		ID:              uuid.New(),
		WalletID:        wallet.ID,
		WalletOwnerKind: wallet.OwnerKind,
		OwnerID:         wallet.OwnerID,
		Amount:          amount,
		PaymentMethod:   method,
		PaymentDetails:  details,
		Status:          models.WithdrawalPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.db.WithContext(ctx).Create(request).Error; err != nil {
		return nil, apperrors.Internal("failed to create withdrawal request", err)
	}

	s.logger.Info("Withdrawal request submitted",
		zap.String("request_id", request.ID.String()),
		zap.String("wallet_id", wallet.ID.String()),
		zap.String("amount", amount.String()),
		zap.String("payment_method", string(method)))
	s.notifier.Notify(notifier.Success, "Withdrawal request submitted and awaiting review")
	return request, nil
}

// Approve re-validates both the owner wallet and the system wallet against
// the requested amount, debits the owner wallet, and marks the request
// approved, all in one database transaction. A request already in a terminal
// state fails with an invalid-state error and no ledger mutation.
func (s *Service) Approve(ctx context.Context, requestID uuid.UUID, adminNote string) (*models.WithdrawalRequest, error) {
	request, err := s.Get(ctx, requestID)
	if err != nil {
		return nil, err
	}
	systemWallet, err := s.ledger.SystemWallet(ctx)
	if err != nil {
		return nil, err
	}

	unlock := s.ledger.LockWallets(request.WalletID, systemWallet.ID)
	defer unlock()

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Re-read under the lock: the request may have reached a terminal
		// state since the caller fetched it
		if err := tx.Where("id = ?", requestID).First(request).Error; err != nil {
			return apperrors.Internal("failed to reload withdrawal request", err)
		}
		if !CanTransition(request.Status, models.WithdrawalApproved) {
			return transitionError(request.Status, models.WithdrawalApproved)
		}

		var owner, system models.Wallet
		if err := tx.Where("id = ?", request.WalletID).First(&owner).Error; err != nil {
			return apperrors.Internal("failed to load owner wallet", err)
		}
		if err := tx.Where("id = ?", systemWallet.ID).First(&system).Error; err != nil {
			return apperrors.Internal("failed to load system wallet", err)
		}

		// Both wallets must independently cover the amount: the owner wallet
		// funds the debit, the system wallet proves payout liquidity
		if owner.Balance.LessThan(request.Amount) {
			return apperrors.InsufficientFunds(fmt.Sprintf(
				"wallet balance %s does not cover withdrawal of %s", owner.Balance, request.Amount))
		}
		if system.Balance.LessThan(request.Amount) {
			return apperrors.InsufficientFunds(fmt.Sprintf(
				"system wallet balance %s does not cover withdrawal of %s", system.Balance, request.Amount))
		}

		fee := request.Amount.Mul(s.feePercent).Div(decimal.NewFromInt(100))
		net := request.Amount.Sub(fee)
		metadata := models.Metadata{
			models.MetaWithdrawalRequestID: request.ID.String(),
			models.MetaPaymentMethod:       string(request.PaymentMethod),
			models.MetaFeeAmount:           fee.String(),
			models.MetaNetAmount:           net.String(),
		}
		if _, err := s.ledger.AppendTransactionTx(tx, request.WalletID, models.TxWithdrawal, request.Amount, models.TxCompleted, metadata); err != nil {
			return err
		}

		request.Status = models.WithdrawalApproved
		request.AdminNote = adminNote
		request.UpdatedAt = time.Now()
		if err := tx.Save(request).Error; err != nil {
			return apperrors.Internal("failed to save withdrawal request", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.WithdrawalOutcomes.WithLabelValues("approved").Inc()
	s.logger.Info("Withdrawal request approved",
		zap.String("request_id", request.ID.String()),
		zap.String("amount", request.Amount.String()))
	s.notifier.Notify(notifier.Success, "Withdrawal request approved")
	return request, nil
}

// Reject marks a pending request rejected with the administrator's note. No
// ledger mutation takes place.
func (s *Service) Reject(ctx context.Context, requestID uuid.UUID, adminNote string) (*models.WithdrawalRequest, error) {
	request, err := s.Get(ctx, requestID)
	if err != nil {
		return nil, err
	}

	unlock := s.ledger.LockWallets(request.WalletID)
	defer unlock()

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", requestID).First(request).Error; err != nil {
			return apperrors.Internal("failed to reload withdrawal request", err)
		}
		if !CanTransition(request.Status, models.WithdrawalRejected) {
			return transitionError(request.Status, models.WithdrawalRejected)
		}
		request.Status = models.WithdrawalRejected
		request.AdminNote = adminNote
		request.UpdatedAt = time.Now()
		if err := tx.Save(request).Error; err != nil {
			return apperrors.Internal("failed to save withdrawal request", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.WithdrawalOutcomes.WithLabelValues("rejected").Inc()
	s.logger.Info("Withdrawal request rejected", zap.String("request_id", request.ID.String()))
	s.notifier.Notify(notifier.Warning, "Withdrawal request rejected")
	return request, nil
}

// Cancel lets the request's owner withdraw a still-pending request. No
// ledger mutation takes place.
func (s *Service) Cancel(ctx context.Context, requestID uuid.UUID, callerOwnerID string) (*models.WithdrawalRequest, error) {
	request, err := s.Get(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if request.OwnerID != callerOwnerID {
		return nil, apperrors.AuthFailed("only the request owner may cancel it")
	}

	unlock := s.ledger.LockWallets(request.WalletID)
	defer unlock()

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", requestID).First(request).Error; err != nil {
			return apperrors.Internal("failed to reload withdrawal request", err)
		}
		if !CanTransition(request.Status, models.WithdrawalCancelled) {
			return transitionError(request.Status, models.WithdrawalCancelled)
		}
		request.Status = models.WithdrawalCancelled
		request.UpdatedAt = time.Now()
		if err := tx.Save(request).Error; err != nil {
			return apperrors.Internal("failed to save withdrawal request", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.WithdrawalOutcomes.WithLabelValues("cancelled").Inc()
	s.logger.Info("Withdrawal request cancelled", zap.String("request_id", request.ID.String()))
	s.notifier.Notify(notifier.Info, "Withdrawal request cancelled")
	return request, nil
}

// Get fetches a withdrawal request by id.
func (s *Service) Get(ctx context.Context, requestID uuid.UUID) (*models.WithdrawalRequest, error) {
	var request models.WithdrawalRequest
	if err := s.db.WithContext(ctx).Where("id = ?", requestID).First(&request).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperrors.NotFound("withdrawal request not found")
		}
		return nil, apperrors.Internal("failed to find withdrawal request", err)
	}
	return &request, nil
}

// List returns withdrawal requests for the admin review screen, newest
// first. An empty or "all" status returns every request.
func (s *Service) List(ctx context.Context, status models.WithdrawalStatus, limit, offset int) ([]*models.WithdrawalRequest, int64, error) {
	q := s.db.WithContext(ctx).Model(&models.WithdrawalRequest{})
	if status != "" && status != "all" {
		q = q.Where("status = ?", status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, apperrors.Internal("failed to count withdrawal requests", err)
	}
	var items []*models.WithdrawalRequest
	if err := q.Order("created_at DESC, id").Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, 0, apperrors.Internal("failed to find withdrawal requests", err)
	}
	return items, total, nil
}

// validateDetails checks the method-specific payout fields.
func validateDetails(method models.PaymentMethod, details models.PaymentDetails) error {
	switch method {
	case models.PayMobileMoney:
		verr := apperrors.Validation("incomplete mobile money details")
		ok := true
		if details.PhoneNumber == "" {
			verr.WithField("phone_number", "required")
			ok = false
		}
		if details.OtpCode == "" {
			verr.WithField("otp_code", "required")
			ok = false
		}
		if !ok {
			return verr
		}
	case models.PayCard:
		verr := apperrors.Validation("incomplete card details")
		ok := true
		if details.CardNumber == "" {
			verr.WithField("card_number", "required")
			ok = false
		}
		if details.CardHolder == "" {
			verr.WithField("card_holder", "required")
			ok = false
		}
		if details.CardExpiry == "" {
			verr.WithField("card_expiry", "required")
			ok = false
		}
		if !ok {
			return verr
		}
	}
	return nil
}
