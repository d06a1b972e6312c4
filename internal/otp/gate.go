package otp

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base32"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/hotp"
	"go.uber.org/zap"
	"gorm.io/gorm"

	apperrors "github.com/lirepay/walletcore/pkg/errors"
	"github.com/lirepay/walletcore/pkg/metrics"
	"github.com/lirepay/walletcore/pkg/models"
)

// Gate issues and validates phone-bound one-time codes. Mobile-money
// withdrawals must pass the gate before submission; card withdrawals bypass
// it entirely.
type Gate interface {
	IssueCode(ctx context.Context, phoneNumber string) (*models.OtpChallenge, error)
	ValidateCode(ctx context.Context, phoneNumber, code string) error
}

// Service implements Gate
type Service struct {
	logger     *zap.Logger
	db         *gorm.DB
	dispatcher Dispatcher
	limiter    *RateLimiter
	digits     int
	ttl        time.Duration
	now        func() time.Time
}

// NewService creates a new OTP gate.
func NewService(logger *zap.Logger, db *gorm.DB, dispatcher Dispatcher, limiter *RateLimiter, digits int, ttl time.Duration) *Service {
	return &Service{
		logger:     logger,
		db:         db,
		dispatcher: dispatcher,
		limiter:    limiter,
		digits:     digits,
		ttl:        ttl,
		now:        time.Now,
	}
}

// IssueCode generates a fresh code for the phone number, superseding any
// unconsumed prior code, and dispatches it out-of-band. Delivery failure is
// logged, never returned: the challenge stands once stored.
func (s *Service) IssueCode(ctx context.Context, phoneNumber string) (*models.OtpChallenge, error) {
	phoneNumber = strings.TrimSpace(phoneNumber)
	if phoneNumber == "" {
		return nil, apperrors.Validation("phone number is required").WithField("phone_number", "required")
	}

	if ok, err := s.limiter.Allow(ctx, phoneNumber); err != nil {
		s.logger.Warn("OTP rate limiter unavailable, allowing issuance", zap.Error(err))
	} else if !ok {
		return nil, apperrors.Validation("too many codes requested for this phone number, try again later")
	}

	code, err := s.mintCode()
	if err != nil {
		return nil, apperrors.Internal("failed to generate code", err)
	}

	issuedAt := s.now()
	challenge := &models.OtpChallenge{
		ID:          uuid.New(),
		PhoneNumber: phoneNumber,
		Code:        code,
		IssuedAt:    issuedAt,
		ExpiresAt:   issuedAt.Add(s.ttl),
		Consumed:    false,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Supersede unconsumed prior codes for this phone
		if err := tx.Model(&models.OtpChallenge{}).
			Where("phone_number = ? AND consumed = ?", phoneNumber, false).
			Update("consumed", true).Error; err != nil {
			return err
		}
		return tx.Create(challenge).Error
	})
	if err != nil {
		return nil, apperrors.Internal("failed to store challenge", err)
	}

	metrics.OtpIssued.Inc()
	s.logger.Info("Issued OTP challenge",
		zap.String("phone_number", phoneNumber),
		zap.Time("expires_at", challenge.ExpiresAt))

	// Fire-and-forget dispatch; a delivery failure does not roll back issuance
	message := fmt.Sprintf("Your verification code is %s. It expires in %d minutes.",
		code, int(s.ttl.Minutes()))
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := s.dispatcher.Send(ctx, phoneNumber, message); err != nil {
			s.logger.Error("OTP dispatch failed",
				zap.String("phone_number", phoneNumber),
				zap.Error(err))
		}
	}()

	return challenge, nil
}

// ValidateCode checks the latest code issued for the phone number and marks
// it consumed on success. A code validates exactly once.
func (s *Service) ValidateCode(ctx context.Context, phoneNumber, code string) error {
	phoneNumber = strings.TrimSpace(phoneNumber)
	code = strings.TrimSpace(code)
	if phoneNumber == "" || code == "" {
		return apperrors.OtpInvalid("phone number and code are required")
	}

	var challenge models.OtpChallenge
	err := s.db.WithContext(ctx).
		Where("phone_number = ?", phoneNumber).
		Order("issued_at DESC").
		First(&challenge).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			metrics.OtpValidationFailures.WithLabelValues("unknown").Inc()
			return apperrors.OtpInvalid("no code issued for this phone number")
		}
		return apperrors.Internal("failed to load challenge", err)
	}

	if challenge.Consumed {
		metrics.OtpValidationFailures.WithLabelValues("already_used").Inc()
		return apperrors.OtpAlreadyUsed("code already used, request a new one")
	}
	if challenge.Expired(s.now()) {
		metrics.OtpValidationFailures.WithLabelValues("expired").Inc()
		return apperrors.OtpExpired("code expired, request a new one")
	}
	if subtle.ConstantTimeCompare([]byte(challenge.Code), []byte(code)) != 1 {
		metrics.OtpValidationFailures.WithLabelValues("mismatch").Inc()
		return apperrors.OtpInvalid("incorrect code")
	}

	// Conditional update so two concurrent validations of the same code
	// cannot both pass: only the one that flips consumed wins
	res := s.db.WithContext(ctx).Model(&models.OtpChallenge{}).
		Where("id = ? AND consumed = ?", challenge.ID, false).
		Update("consumed", true)
	if res.Error != nil {
		return apperrors.Internal("failed to consume challenge", res.Error)
	}
	if res.RowsAffected == 0 {
		metrics.OtpValidationFailures.WithLabelValues("already_used").Inc()
		return apperrors.OtpAlreadyUsed("code already used, request a new one")
	}

	s.logger.Info("OTP validated", zap.String("phone_number", phoneNumber))
	return nil
}

// mintCode derives a numeric code of the configured length from a
// single-use random HOTP secret.
func (s *Service) mintCode() (string, error) {
	secret := make([]byte, 20)
	if _, err := rand.Read(secret); err != nil {
		return "", fmt.Errorf("failed to read random secret: %w", err)
	}
	encoded := base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(secret)
	code, err := hotp.GenerateCodeCustom(encoded, 0, hotp.ValidateOpts{
		Digits:    otp.Digits(s.digits),
		Algorithm: otp.AlgorithmSHA1,
	})
	if err != nil {
		return "", fmt.Errorf("failed to derive code: %w", err)
	}
	return code, nil
}
