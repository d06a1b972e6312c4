package transfer

import (
	"context"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	apperrors "github.com/lirepay/walletcore/pkg/errors"
	"github.com/lirepay/walletcore/pkg/models"
)

// SecretVerifier checks a caller-supplied secret against the stored
// credential of a wallet owner.
type SecretVerifier interface {
	Verify(ctx context.Context, ownerID, secret string) error
}

// BcryptVerifier verifies secrets against bcrypt hashes stored in the
// credentials table.
type BcryptVerifier struct {
	db *gorm.DB
}

func NewBcryptVerifier(db *gorm.DB) *BcryptVerifier {
	return &BcryptVerifier{db: db}
}

func (v *BcryptVerifier) Verify(ctx context.Context, ownerID, secret string) error {
	var cred models.Credential
	if err := v.db.WithContext(ctx).Where("owner_id = ?", ownerID).First(&cred).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return apperrors.AuthFailed("no credential on record for this account")
		}
		return apperrors.Internal("failed to load credential", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(cred.SecretHash), []byte(secret)); err != nil {
		return apperrors.AuthFailed("incorrect transfer secret")
	}
	return nil
}

// SetSecret stores (or replaces) an owner's transfer secret.
func (v *BcryptVerifier) SetSecret(ctx context.Context, ownerID, secret string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return apperrors.Internal("failed to hash secret", err)
	}
	cred := models.Credential{OwnerID: ownerID, SecretHash: string(hash)}
	if err := v.db.WithContext(ctx).Save(&cred).Error; err != nil {
		return apperrors.Internal("failed to store credential", err)
	}
	return nil
}
